package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// CategoryService owns the category lifecycle. Type is fixed at creation;
// deletion is blocked while transactions or budgets still reference the
// category.
type CategoryService struct {
	store store.RecordStore
}

func NewCategoryService(store store.RecordStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return saved, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, userID, id)
}

// Update renames a category or changes its description. A type carried in
// the input is ignored; the stored type wins.
func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	existing, err := s.store.GetCategory(ctx, c.UserID, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	c.Type = existing.Type
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.UpdateCategory(ctx, c)
}

// Delete removes an unreferenced category. While transactions or budgets
// still point at it the store reports core.ErrCategoryInUse and nothing
// changes.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.DeleteCategory(ctx, userID, id)
	if errors.Is(err, core.ErrCategoryInUse) {
		slog.InfoContext(ctx, "Category deletion blocked by references",
			"id", id, "user_id", userID)
	}
	return err
}

func (s *CategoryService) List(ctx context.Context, userID int64, typ *core.TransactionType) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID, typ)
}
