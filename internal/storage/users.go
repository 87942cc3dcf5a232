package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const userColumns = `id, email, name, password_hash, created_at`

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		string(u.ID), core.NormalizeEmail(u.Email), u.Name, u.PasswordHash, formatTime(u.CreatedAt))
	if isUniqueConstraintError(err) {
		return core.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID)
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id core.ID) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, string(id))
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, notFoundOr(err, core.ErrUserNotFound)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email))
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, notFoundOr(err, core.ErrUserNotFound)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	err := r.execOne(ctx, core.ErrUserNotFound,
		`UPDATE users SET email = ?, name = ?, password_hash = ? WHERE id = ?`,
		core.NormalizeEmail(u.Email), u.Name, u.PasswordHash, string(u.ID))
	if isUniqueConstraintError(err) {
		return core.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (core.User, error) {
	var u core.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt); err != nil {
		return core.User{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = t
	return u, nil
}
