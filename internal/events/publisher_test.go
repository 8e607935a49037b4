package events

import (
	"testing"
	"time"
)

func TestExpenseEvent_JSON(t *testing.T) {
	timestamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := &ExpenseEvent{
		ID:        42,
		Owner:     "alice",
		Action:    ActionCreated,
		Timestamp: timestamp,
	}

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ExpenseEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ExpenseEventFromJSON() error = %v", err)
	}

	if parsed.ID != event.ID {
		t.Errorf("Parsed ID = %v, want %v", parsed.ID, event.ID)
	}
	if parsed.Owner != event.Owner {
		t.Errorf("Parsed Owner = %q, want %q", parsed.Owner, event.Owner)
	}
	if parsed.Action != event.Action {
		t.Errorf("Parsed Action = %q, want %q", parsed.Action, event.Action)
	}
	if !parsed.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, event.Timestamp)
	}
}

func TestExpenseEvent_InvalidJSON(t *testing.T) {
	if _, err := ExpenseEventFromJSON([]byte(`{"id": "not_a_number"}`)); err == nil {
		t.Error("ExpenseEventFromJSON() should fail with invalid JSON")
	}
}

func TestNewPublisher_InvalidURL(t *testing.T) {
	if _, err := NewPublisher("not-an-amqp-url", "trackd", "expense_events"); err == nil {
		t.Error("NewPublisher should fail with an invalid URL")
	}
}
