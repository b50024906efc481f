// Package memory provides a mutex-guarded in-memory record store. It backs
// unit tests and the default development backend; semantics match the SQLite
// adapter, including budget uniqueness and the category deletion block.
package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type exportState string

const (
	exportPending exportState = "pending"
	exportDone    exportState = "exported"
	exportFailed  exportState = "error"
)

type Store struct {
	mu           sync.Mutex
	nextID       int64
	transactions map[int64]core.Transaction
	categories   map[int64]core.Category
	budgets      map[int64]core.Budget
	exports      map[int64]exportState
}

var (
	_ store.RecordStore = (*Store)(nil)
	_ store.ExportQueue = (*Store)(nil)
)

func New() *Store {
	return &Store{
		nextID:       1,
		transactions: make(map[int64]core.Transaction),
		categories:   make(map[int64]core.Category),
		budgets:      make(map[int64]core.Budget),
		exports:      make(map[int64]exportState),
	}
}

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// CreateTransaction implements store.TransactionStore.
func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.categories[tx.CategoryID]
	if !ok || cat.UserID != tx.UserID {
		return core.Transaction{}, core.ErrDanglingCategory
	}

	tx.ID = s.allocID()
	tx.Date = tx.Date.UTC()
	s.transactions[tx.ID] = tx
	s.exports[tx.ID] = exportPending
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		return core.Transaction{}, core.ErrNotFound
	}
	cat, ok := s.categories[tx.CategoryID]
	if !ok || cat.UserID != tx.UserID {
		return core.Transaction{}, core.ErrDanglingCategory
	}

	tx.Date = tx.Date.UTC()
	s.transactions[tx.ID] = tx
	s.exports[tx.ID] = exportPending
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.transactions, id)
	delete(s.exports, id)
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID int64, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if f.Type != nil && tx.Type != *f.Type {
			continue
		}
		if f.CategoryID != nil && tx.CategoryID != *f.CategoryID {
			continue
		}
		if f.From != nil && tx.Date.Before(f.From.UTC()) {
			continue
		}
		if f.To != nil && !tx.Date.Before(f.To.UTC()) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// CreateCategory implements store.CategoryStore.
func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.allocID()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok || existing.UserID != c.UserID {
		return core.Category{}, core.ErrNotFound
	}
	// Type stays as created.
	existing.Name = c.Name
	existing.Description = c.Description
	s.categories[c.ID] = existing
	return existing, nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return core.ErrNotFound
	}
	for _, tx := range s.transactions {
		if tx.CategoryID == id {
			return core.ErrCategoryInUse
		}
	}
	for _, b := range s.budgets {
		if b.CategoryID == id {
			return core.ErrCategoryInUse
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID int64, typ *core.TransactionType) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Category
	for _, c := range s.categories {
		if c.UserID != userID {
			continue
		}
		if typ != nil && c.Type != *typ {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateBudget implements store.BudgetStore.
func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.categories[b.CategoryID]
	if !ok || cat.UserID != b.UserID {
		return core.Budget{}, core.ErrDanglingCategory
	}
	for _, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.CategoryID == b.CategoryID && existing.Month == b.Month {
			return core.Budget{}, core.ErrDuplicateBudget
		}
	}

	b.ID = s.allocID()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.budgets[b.ID]
	if !ok || existing.UserID != b.UserID {
		return core.Budget{}, core.ErrNotFound
	}
	// Only the amount is mutable; category and month identify the budget.
	existing.Amount = b.Amount
	s.budgets[b.ID] = existing
	return existing, nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(ctx context.Context, userID int64, month *core.Month) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID != userID {
			continue
		}
		if month != nil && b.Month != *month {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetTransactionForExport implements store.ExportQueue.
func (s *Store) GetTransactionForExport(ctx context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

// ListPendingExports implements store.ExportQueue.
func (s *Store) ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for id, state := range s.exports {
		if state != exportPending {
			continue
		}
		if tx, ok := s.transactions[id]; ok {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return core.ErrNotFound
	}
	s.exports[id] = exportDone
	return nil
}

func (s *Store) MarkExportError(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return core.ErrNotFound
	}
	s.exports[id] = exportFailed
	return nil
}

// SeedCategory inserts a category with a fixed ID, for dev fixtures and tests.
func (s *Store) SeedCategory(c core.Category) core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.allocID()
	} else if c.ID >= s.nextID {
		s.nextID = c.ID + 1
	}
	s.categories[c.ID] = c
	return c
}
