package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// NewCategory is the input of CategoryService.Create.
type NewCategory struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// CategoryService manages the caller's private categories. Categories of
// other users are reported as not found.
type CategoryService struct {
	store ledger.Store
	now   func() time.Time
}

func NewCategoryService(store ledger.Store) *CategoryService {
	return &CategoryService{store: store, now: time.Now}
}

func (s *CategoryService) Create(ctx context.Context, owner core.ID, in NewCategory) (core.Category, error) {
	c := core.Category{
		ID:        core.NewID(),
		OwnerID:   owner,
		Name:      strings.TrimSpace(in.Name),
		Icon:      strings.TrimSpace(in.Icon),
		CreatedAt: s.now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, owner core.ID) ([]core.Category, error) {
	return s.store.ListCategories(ctx, owner)
}

// Owned returns the category when owner owns it.
func (s *CategoryService) Owned(ctx context.Context, owner, id core.ID) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.OwnerID != owner {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, owner, id core.ID, upd core.CategoryUpdate) (core.Category, error) {
	c, err := s.Owned(ctx, owner, id)
	if err != nil {
		return core.Category{}, err
	}
	c, err = upd.Apply(c)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// Delete removes a category that no transaction references.
func (s *CategoryService) Delete(ctx context.Context, owner, id core.ID) error {
	if _, err := s.Owned(ctx, owner, id); err != nil {
		return err
	}
	n, err := s.store.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d transactions)", core.ErrCategoryInUse, n)
	}
	return s.store.DeleteCategory(ctx, id)
}
