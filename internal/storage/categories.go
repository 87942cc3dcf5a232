package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const categoryColumns = `id, owner_id, name, icon, created_at`

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?)`,
		string(c.ID), string(c.OwnerID), c.Name, c.Icon, formatTime(c.CreatedAt))
	if isUniqueConstraintError(err) {
		return core.ErrCategoryExists
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id core.ID) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, string(id))
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFoundOr(err, core.ErrCategoryNotFound)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID core.ID) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? ORDER BY name`, string(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	err := r.execOne(ctx, core.ErrCategoryNotFound,
		`UPDATE categories SET name = ?, icon = ? WHERE id = ?`, c.Name, c.Icon, string(c.ID))
	switch {
	case isUniqueConstraintError(err):
		return core.ErrCategoryExists
	case err == nil, err == core.ErrCategoryNotFound:
		return err
	}
	return fmt.Errorf("update category %s: %w", c.ID, err)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id core.ID) error {
	err := r.execOne(ctx, core.ErrCategoryNotFound, `DELETE FROM categories WHERE id = ?`, string(id))
	if err != nil && err != core.ErrCategoryNotFound {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return err
}

func scanCategory(row scanner) (core.Category, error) {
	var c core.Category
	var createdAt string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon, &createdAt); err != nil {
		return core.Category{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = t
	return c, nil
}
