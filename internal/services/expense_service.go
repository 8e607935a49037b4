package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"trackd/internal/core"
	"trackd/internal/events"
	"trackd/internal/storage"
)

// Extractor is the extraction gateway contract: an image or text in,
// structured expense fields out, core.ErrExtractionFailed on any failure.
type Extractor interface {
	ExtractFromImage(ctx context.Context, image []byte) (core.ExtractedExpense, error)
	ExtractFromText(ctx context.Context, text string) (core.ExtractedExpense, error)
}

// ManualExpenseInput carries the client-supplied fields of a manual create
// or update. Owner and input method are never client-controlled.
type ManualExpenseInput struct {
	Amount    float64
	ShopName  string
	Purpose   string
	Timestamp time.Time
}

// ExpenseService orchestrates expense operations across storage, the
// extraction gateway and the optional event publisher.
type ExpenseService struct {
	storage   *storage.SQLiteRepository
	extractor Extractor
	events    *events.Publisher
	uploadDir string
}

func NewExpenseService(storage *storage.SQLiteRepository, extractor Extractor, publisher *events.Publisher, uploadDir string) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		extractor: extractor,
		events:    publisher,
		uploadDir: uploadDir,
	}
}

// SaveManual creates a new manual expense, or updates an existing one when
// id is non-zero. Updates require ownership and keep the record's original
// input method no matter what the payload asked for. The returned bool is
// true when a new record was created.
func (s *ExpenseService) SaveManual(ctx context.Context, owner string, in ManualExpenseInput, id int64) (core.Expense, bool, error) {
	if id != 0 {
		existing, err := s.storage.GetExpense(ctx, id)
		if err != nil {
			return core.Expense{}, false, err
		}
		if existing.Owner != owner {
			return core.Expense{}, false, core.ErrForbidden
		}

		updated := existing
		updated.Amount = in.Amount
		updated.ShopName = in.ShopName
		updated.Purpose = in.Purpose
		updated.Timestamp = in.Timestamp
		// existing.InputMethod is kept as-is.

		if err := updated.Validate(); err != nil {
			return core.Expense{}, false, err
		}
		if err := s.storage.UpdateExpense(ctx, updated); err != nil {
			return core.Expense{}, false, err
		}

		s.publishEvent(ctx, updated.ID, owner, events.ActionUpdated)
		return updated, false, nil
	}

	expense := core.Expense{
		Owner:       owner,
		Amount:      in.Amount,
		ShopName:    in.ShopName,
		Purpose:     in.Purpose,
		Timestamp:   in.Timestamp,
		InputMethod: core.InputManual,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, false, err
	}

	created, err := s.storage.CreateExpense(ctx, expense)
	if err != nil {
		return core.Expense{}, false, err
	}

	s.publishEvent(ctx, created.ID, owner, events.ActionCreated)
	return created, true, nil
}

// CreateFromImage stores the uploaded receipt, runs extraction, writes the
// invoice audit record and then the expense. An extraction failure leaves
// neither invoice nor expense behind (only the file on disk, like any other
// upload).
func (s *ExpenseService) CreateFromImage(ctx context.Context, owner, filename string, image []byte) (core.Expense, error) {
	imagePath, err := s.saveUpload(filename, image)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save upload: %w", err)
	}

	extracted, err := s.extractor.ExtractFromImage(ctx, image)
	if err != nil {
		return core.Expense{}, err
	}

	rawJSON, err := json.Marshal(extracted)
	if err != nil {
		return core.Expense{}, fmt.Errorf("serialize extraction: %w", err)
	}

	// Invoice first, then expense. A crash in between leaves an orphaned
	// invoice; accepted, there is no cross-document transaction.
	if _, err := s.storage.CreateInvoice(ctx, core.Invoice{
		Owner:         owner,
		ImagePath:     imagePath,
		ExtractedText: string(rawJSON),
	}); err != nil {
		return core.Expense{}, err
	}

	return s.createFromExtraction(ctx, owner, extracted, core.InputImage)
}

// CreateFromText runs extraction over a free-text description. Unlike image
// uploads, no invoice audit record is written.
func (s *ExpenseService) CreateFromText(ctx context.Context, owner, text string) (core.Expense, error) {
	extracted, err := s.extractor.ExtractFromText(ctx, text)
	if err != nil {
		return core.Expense{}, err
	}

	return s.createFromExtraction(ctx, owner, extracted, core.InputText)
}

func (s *ExpenseService) createFromExtraction(ctx context.Context, owner string, extracted core.ExtractedExpense, method core.InputMethod) (core.Expense, error) {
	expense := core.Expense{
		Owner:       owner,
		Amount:      extracted.Amount,
		ShopName:    extracted.ShopName,
		Purpose:     extracted.Purpose,
		Timestamp:   extracted.Timestamp,
		InputMethod: method,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, expense)
	if err != nil {
		return core.Expense{}, err
	}

	s.publishEvent(ctx, created.ID, owner, events.ActionCreated)
	return created, nil
}

// History returns all of an owner's expenses, newest spend first.
func (s *ExpenseService) History(ctx context.Context, owner string) ([]core.Expense, error) {
	return s.storage.ListExpensesByOwner(ctx, owner)
}

// Dashboard aggregates the owner's trailing-window expenses.
func (s *ExpenseService) Dashboard(ctx context.Context, owner string, now time.Time) (core.Dashboard, error) {
	expenses, err := s.storage.ListExpensesSince(ctx, owner, core.WindowStart(now))
	if err != nil {
		return core.Dashboard{}, err
	}
	return core.BuildDashboard(expenses, now), nil
}

// Delete removes an expense after checking ownership.
func (s *ExpenseService) Delete(ctx context.Context, owner string, id int64) error {
	existing, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return core.ErrForbidden
	}

	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, id, owner, events.ActionDeleted)
	return nil
}

// Close releases the storage and broker connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}

// saveUpload writes the receipt under the upload directory using a
// timestamp-based name plus the original extension.
func (s *ExpenseService) saveUpload(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := strconv.FormatInt(time.Now().UnixMilli(), 10) + filepath.Ext(filename)
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

func (s *ExpenseService) publishEvent(ctx context.Context, id int64, owner, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, id, owner, action); err != nil {
		// Don't fail the request, the expense is already persisted.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"id", id, "owner", owner, "action", action, "error", err)
	}
}
