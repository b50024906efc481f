// Package storage is the SQLite record store. It implements the ports in
// internal/store on top of database/sql with the modernc.org/sqlite driver;
// the schema lives in embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ store.RecordStore = (*SQLiteRepository)(nil)
	_ store.ExportQueue = (*SQLiteRepository)(nil)
)

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

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
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

// Dates are stored as RFC3339 UTC text so range scans sort correctly.
func encodeDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// CreateTransaction implements store.TransactionStore.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, category_id, amount_cents, type, date, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.CategoryID, tx.Amount.Cents, string(tx.Type), encodeDate(tx.Date), tx.Note)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", mapConstraintErr(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	tx.ID = id
	tx.Date = tx.Date.UTC()

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"user_id", tx.UserID,
		"category_id", tx.CategoryID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents)

	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, amount_cents, type, date, note
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET category_id = ?, amount_cents = ?, type = ?, date = ?, note = ?, export_status = 'pending'
		 WHERE id = ? AND user_id = ?`,
		tx.CategoryID, tx.Amount.Cents, string(tx.Type), encodeDate(tx.Date), tx.Note, tx.ID, tx.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", mapConstraintErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	tx.Date = tx.Date.UTC()
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f store.TransactionFilter) ([]core.Transaction, error) {
	query := strings.Builder{}
	query.WriteString(
		`SELECT id, user_id, category_id, amount_cents, type, date, note
		 FROM transactions WHERE user_id = ?`)
	args := []any{userID}

	if f.Type != nil {
		query.WriteString(" AND type = ?")
		args = append(args, string(*f.Type))
	}
	if f.CategoryID != nil {
		query.WriteString(" AND category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.From != nil {
		query.WriteString(" AND date >= ?")
		args = append(args, encodeDate(*f.From))
	}
	if f.To != nil {
		query.WriteString(" AND date < ?")
		args = append(args, encodeDate(*f.To))
	}
	query.WriteString(" ORDER BY date DESC, id DESC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		typ     string
		rawDate string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.CategoryID, &tx.Amount.Cents, &typ, &rawDate, &tx.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	if tx.Date, err = decodeDate(rawDate); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// CreateCategory implements store.CategoryStore.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, description, type) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Name, c.Description, string(c.Type))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	c.ID = id

	slog.InfoContext(ctx, "Category saved", "id", c.ID, "user_id", c.UserID, "name", c.Name, "type", c.Type)
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, type FROM categories WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

// UpdateCategory writes name and description only; type is immutable.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Description, c.ID, c.UserID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return r.GetCategory(ctx, c.UserID, c.ID)
}

// DeleteCategory blocks the delete while transactions or budgets still
// reference the category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer dbTx.Rollback()

	var refs int64
	err = dbTx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
		      + (SELECT COUNT(*) FROM budgets WHERE category_id = ?)`, id, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return core.ErrCategoryInUse
	}

	res, err := dbTx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, typ *core.TransactionType) ([]core.Category, error) {
	query := `SELECT id, user_id, name, description, type FROM categories WHERE user_id = ?`
	args := []any{userID}
	if typ != nil {
		query += " AND type = ?"
		args = append(args, string(*typ))
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c     core.Category
			ctype string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &ctype); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(ctype)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// CreateBudget implements store.BudgetStore. The UNIQUE(user_id, category_id,
// month) constraint backs the one-budget-per-month rule.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, amount_cents, month) VALUES (?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.Amount.Cents, b.Month.String())
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", mapConstraintErr(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget insert id: %w", err)
	}
	b.ID = id

	slog.InfoContext(ctx, "Budget saved",
		"id", b.ID,
		"user_id", b.UserID,
		"category_id", b.CategoryID,
		"month", b.Month.String(),
		"amount_cents", b.Amount.Cents)

	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	var (
		b        core.Budget
		rawMonth string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, amount_cents, month FROM budgets WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount.Cents, &rawMonth)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if b.Month, err = core.ParseMonth(rawMonth); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// UpdateBudget writes the amount only; category and month identify the budget.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET amount_cents = ? WHERE id = ? AND user_id = ?`,
		b.Amount.Cents, b.ID, b.UserID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Budget{}, core.ErrNotFound
	}
	return r.GetBudget(ctx, b.UserID, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Budget deleted", "id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64, month *core.Month) ([]core.Budget, error) {
	query := `SELECT id, user_id, category_id, amount_cents, month FROM budgets WHERE user_id = ?`
	args := []any{userID}
	if month != nil {
		query += " AND month = ?"
		args = append(args, month.String())
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			rawMonth string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount.Cents, &rawMonth); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Month, err = core.ParseMonth(rawMonth); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

// GetTransactionForExport implements store.ExportQueue. The worker looks
// transactions up by ID alone; export messages carry no user scope.
func (r *SQLiteRepository) GetTransactionForExport(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, amount_cents, type, date, note
		 FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// ListPendingExports implements store.ExportQueue. It feeds the worker's
// backup scan for exports whose AMQP message was lost.
func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, amount_cents, type, date, note
		 FROM transactions WHERE export_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	return out, nil
}

// MarkExported marks a transaction as successfully mirrored to the ledger.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if err := r.setExportStatus(ctx, id, "exported"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// MarkExportError marks a transaction as having failed the ledger export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if err := r.setExportStatus(ctx, id, "error"); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

func (r *SQLiteRepository) setExportStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set export status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// mapConstraintErr translates SQLite constraint violations into the domain
// sentinels the services and handlers branch on.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: budgets"):
		return core.ErrDuplicateBudget
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return core.ErrDanglingCategory
	}
	return err
}
