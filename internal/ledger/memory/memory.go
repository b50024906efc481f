package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/ledger"
)

// Store is an in-memory ledger for tests and local runs.
type Store struct {
	mu   sync.Mutex
	rows map[int64]ledger.Row
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]ledger.Row)}
}

// Append stores the row and returns a synthetic reference.
func (s *Store) Append(_ context.Context, row ledger.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.TxID] = row
	return fmt.Sprintf("mem:%d", row.TxID), nil
}

// Remove deletes the row for the transaction. Removing an absent row is a no-op.
func (s *Store) Remove(_ context.Context, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, txID)
	return nil
}

// Row returns the stored row for a transaction, if any.
func (s *Store) Row(txID int64) (ledger.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[txID]
	return row, ok
}

// Len reports how many rows the ledger holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
