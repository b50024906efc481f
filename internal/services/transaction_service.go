// Package services orchestrates the domain operations: transaction and
// category lifecycles, budget evaluation, and dashboard composition. The
// services own cross-record validation; derived figures are recomputed from
// the stored transactions on every read.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// EventPublisher emits export events after local writes. Publishing is best
// effort; the worker's backup scan covers lost messages.
type EventPublisher interface {
	PublishTransactionExport(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

const (
	exportVersionCreate int64 = 1
	exportVersionUpdate int64 = 2
)

// TransactionService orchestrates transaction writes across storage and the
// export event bus.
type TransactionService struct {
	store     store.RecordStore
	publisher EventPublisher
}

func NewTransactionService(store store.RecordStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// Create validates the transaction against its category and saves it. The
// export message is published after the commit and never fails the request.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	cat, err := s.store.GetCategory(ctx, tx.UserID, tx.CategoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, core.ErrDanglingCategory
		}
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}
	if err := tx.ValidateAgainst(cat); err != nil {
		return core.Transaction{}, err
	}
	tx.Date = tx.Date.UTC()

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishExport(ctx, saved.ID, exportVersionCreate)
	return saved, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// Update replaces the mutable fields of a transaction. The same type
// consistency rule as Create applies against the (possibly new) category.
func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	cat, err := s.store.GetCategory(ctx, tx.UserID, tx.CategoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, core.ErrDanglingCategory
		}
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}
	if err := tx.ValidateAgainst(cat); err != nil {
		return core.Transaction{}, err
	}
	tx.Date = tx.Date.UTC()

	saved, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishExport(ctx, saved.ID, exportVersionUpdate)
	return saved, nil
}

// Delete removes the transaction locally and asks the worker to drop its
// ledger row.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping delete message")
		return nil
	}
	if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request, the transaction is gone locally.
	}
	return nil
}

func (s *TransactionService) List(ctx context.Context, userID int64, f store.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) publishExport(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping export message")
		return
	}
	if err := s.publisher.PublishTransactionExport(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", id, "error", err)
		// Don't fail the request, the backup scan will pick it up.
	}
}
