package core

import (
	"errors"
	"testing"
	"time"
)

func validExpense() Expense {
	return Expense{
		Owner:       "alice",
		Amount:      12.34,
		ShopName:    "Corner Shop",
		Purpose:     "Groceries",
		Timestamp:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		InputMethod: InputManual,
	}
}

func TestExpense_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Expense)
		wantField string
	}{
		{"valid", func(e *Expense) {}, ""},
		{"zero amount", func(e *Expense) { e.Amount = 0 }, "amount"},
		{"negative amount", func(e *Expense) { e.Amount = -5 }, "amount"},
		{"blank shop name", func(e *Expense) { e.ShopName = "   " }, "shop_name"},
		{"blank purpose", func(e *Expense) { e.Purpose = "" }, "purpose"},
		{"zero timestamp", func(e *Expense) { e.Timestamp = time.Time{} }, "timestamp"},
		{"bad input method", func(e *Expense) { e.InputMethod = "voice" }, "input_method"},
		{"missing owner", func(e *Expense) { e.Owner = "" }, "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)

			err := e.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestInputMethod_Valid(t *testing.T) {
	for _, m := range []InputMethod{InputManual, InputImage, InputText} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if InputMethod("voice").Valid() {
		t.Error("unexpected input method accepted")
	}
}
