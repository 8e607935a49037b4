package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	InputManual InputMethod = "manual"
	InputImage  InputMethod = "image"
	InputText   InputMethod = "text"
)

type (
	// InputMethod records how an expense entered the system. It is set once
	// at creation and never changes, even across updates.
	InputMethod string

	Expense struct {
		ID          int64       `json:"id"`
		Owner       string      `json:"owner"`
		Amount      float64     `json:"amount"`
		ShopName    string      `json:"shop_name"`
		Purpose     string      `json:"purpose"`
		Timestamp   time.Time   `json:"timestamp"`
		InputMethod InputMethod `json:"input_method"`
		CreatedAt   time.Time   `json:"created_at"`
	}

	// Invoice is the audit record written for every image upload: the stored
	// receipt path plus the extraction output, kept even if parsing rules
	// change later. Text input intentionally produces no invoice.
	Invoice struct {
		ID            int64     `json:"id"`
		Owner         string    `json:"owner"`
		ImagePath     string    `json:"image_path"`
		ExtractedText string    `json:"extracted_text"`
		ProcessedAt   time.Time `json:"processed_at"`
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// ExtractedExpense is the structured result the extraction gateway pulls
	// out of a receipt image or free-text description.
	ExtractedExpense struct {
		Amount    float64   `json:"amount"`
		ShopName  string    `json:"shop_name"`
		Purpose   string    `json:"purpose"`
		Timestamp time.Time `json:"timestamp"`
	}
)

// KnownCategories are always present in the dashboard breakdown. Purposes
// outside this set are still counted, under their own label.
var KnownCategories = []string{"Groceries", "Dining", "Transport", "Other"}

var (
	ErrNotFound         = errors.New("expense not found")
	ErrForbidden        = errors.New("not authorized for this expense")
	ErrExtractionFailed = errors.New("extraction failed")
)

// ValidationError reports a missing or invalid field on client input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (m InputMethod) Valid() bool {
	switch m {
	case InputManual, InputImage, InputText:
		return true
	}
	return false
}

func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be a positive number"}
	}
	if strings.TrimSpace(e.ShopName) == "" {
		return &ValidationError{Field: "shop_name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(e.Purpose) == "" {
		return &ValidationError{Field: "purpose", Reason: "must not be empty"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "must be a valid date"}
	}
	if !e.InputMethod.Valid() {
		return &ValidationError{Field: "input_method", Reason: "must be manual, image or text"}
	}
	if strings.TrimSpace(e.Owner) == "" {
		return &ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	return nil
}
