package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"trackd/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists users, expenses and invoices. Each statement is
// atomic on its own; no operation spans multiple rows transactionally.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "username", username)
	return core.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username)

	var u core.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (owner, amount, shop_name, purpose, timestamp, input_method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Owner, e.Amount, e.ShopName, e.Purpose, e.Timestamp, string(e.InputMethod), e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"owner", e.Owner,
		"amount", e.Amount,
		"shop_name", e.ShopName,
		"input_method", e.InputMethod)

	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, amount, shop_name, purpose, timestamp, input_method, created_at
		 FROM expenses WHERE id = ?`, id)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense rewrites the mutable fields of an existing expense. Owner
// and input_method are deliberately not part of the statement.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, shop_name = ?, purpose = ?, timestamp = ? WHERE id = ?`,
		e.Amount, e.ShopName, e.Purpose, e.Timestamp, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID, "owner", e.Owner)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// ListExpensesByOwner returns every expense for an owner, newest spend first.
func (r *SQLiteRepository) ListExpensesByOwner(ctx context.Context, owner string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, amount, shop_name, purpose, timestamp, input_method, created_at
		 FROM expenses WHERE owner = ? ORDER BY timestamp DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list expenses by owner: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// ListExpensesSince returns an owner's expenses with timestamp >= since,
// oldest first, for dashboard aggregation.
func (r *SQLiteRepository) ListExpensesSince(ctx context.Context, owner string, since time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, amount, shop_name, purpose, timestamp, input_method, created_at
		 FROM expenses WHERE owner = ? AND timestamp >= ? ORDER BY timestamp ASC`, owner, since)
	if err != nil {
		return nil, fmt.Errorf("list expenses since: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.ProcessedAt.IsZero() {
		inv.ProcessedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (owner, image_path, extracted_text, processed_at) VALUES (?, ?, ?, ?)`,
		inv.Owner, inv.ImagePath, inv.ExtractedText, inv.ProcessedAt)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice insert id: %w", err)
	}
	inv.ID = id

	slog.InfoContext(ctx, "Invoice saved", "id", inv.ID, "owner", inv.Owner, "image_path", inv.ImagePath)
	return inv, nil
}

// CountInvoicesByOwner reports how many audit records an owner has.
func (r *SQLiteRepository) CountInvoicesByOwner(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE owner = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e      core.Expense
		method string
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.Amount, &e.ShopName, &e.Purpose, &e.Timestamp, &method, &e.CreatedAt); err != nil {
		return core.Expense{}, err
	}
	e.InputMethod = core.InputMethod(method)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}
