package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const accountColumns = `id, owner_id, name, type, initial_balance_cents, permissions, created_at`

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	perms, err := encodePermissions(a.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.OwnerID), a.Name, string(a.Type), a.InitialBalance.Cents, perms, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved to SQLite",
		"id", a.ID,
		"owner_id", a.OwnerID,
		"type", a.Type)
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id core.ID) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, string(id))
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFoundOr(err, core.ErrAccountNotFound)
	}
	return a, nil
}

func (r *SQLiteRepository) ListOwnedAccounts(ctx context.Context, ownerID core.ID) ([]core.Account, error) {
	return r.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY created_at, id`,
		string(ownerID))
}

func (r *SQLiteRepository) ListSharedAccounts(ctx context.Context, userID core.ID) ([]core.Account, error) {
	return r.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts a
		 WHERE EXISTS (
		     SELECT 1 FROM json_each(a.permissions) p
		     WHERE json_extract(p.value, '$.user_id') = ?
		 )
		 ORDER BY created_at, id`,
		string(userID))
}

func (r *SQLiteRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	out := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	err := r.execOne(ctx, core.ErrAccountNotFound,
		`UPDATE accounts SET name = ?, type = ? WHERE id = ?`,
		a.Name, string(a.Type), string(a.ID))
	if err != nil && err != core.ErrAccountNotFound {
		return fmt.Errorf("update account %s: %w", a.ID, err)
	}
	return err
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id core.ID) error {
	err := r.execOne(ctx, core.ErrAccountNotFound, `DELETE FROM accounts WHERE id = ?`, string(id))
	if err != nil && err != core.ErrAccountNotFound {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return err
}

func (r *SQLiteRepository) UpsertPermission(ctx context.Context, accountID, userID core.ID, level core.PermissionLevel) (core.Permissions, error) {
	return r.updatePermissions(ctx, accountID, func(p core.Permissions) core.Permissions { return p.With(userID, level) })
}

func (r *SQLiteRepository) RemovePermission(ctx context.Context, accountID, userID core.ID) (core.Permissions, error) {
	return r.updatePermissions(ctx, accountID, func(p core.Permissions) core.Permissions { return p.Without(userID) })
}

// updatePermissions is a read-modify-write of the permissions column inside
// one immediate transaction, so concurrent grants cannot lose each other.
func (r *SQLiteRepository) updatePermissions(ctx context.Context, accountID core.ID, apply func(core.Permissions) core.Permissions) (core.Permissions, error) {
	var result core.Permissions
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT permissions FROM accounts WHERE id = ?`, string(accountID)).Scan(&raw)
		if err != nil {
			return notFoundOr(err, core.ErrAccountNotFound)
		}
		current, err := decodePermissions(raw)
		if err != nil {
			return err
		}
		result = apply(current)
		encoded, err := encodePermissions(result)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET permissions = ? WHERE id = ?`, encoded, string(accountID)); err != nil {
			return fmt.Errorf("update permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Account permissions updated", "account_id", accountID, "grants", len(result))
	return result, nil
}

func scanAccount(row scanner) (core.Account, error) {
	var a core.Account
	var perms, createdAt string
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.InitialBalance.Cents, &perms, &createdAt); err != nil {
		return core.Account{}, err
	}
	p, err := decodePermissions(perms)
	if err != nil {
		return core.Account{}, err
	}
	a.Permissions = p
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func encodePermissions(p core.Permissions) (string, error) {
	b, err := json.Marshal(p.Entries())
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

func decodePermissions(raw string) (core.Permissions, error) {
	var entries []core.PermissionEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return core.PermissionsFromEntries(entries), nil
}
