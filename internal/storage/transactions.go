package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const transactionColumns = `id, user_id, account_id, category_id, description, type, value_cents,
	transaction_date, notes, status, expense_type, installment_current, installment_total,
	created_at, updated_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	cur, total := installmentArgs(t.Installment)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.UserID), string(t.AccountID), string(t.CategoryID),
		t.Description, string(t.Type), t.Value.Cents, t.Date.String(), t.Notes,
		string(t.Status), string(t.ExpenseType), cur, total,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"account_id", t.AccountID,
		"type", t.Type,
		"value_cents", t.Value.Cents,
		"date", t.Date.String())
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id core.ID) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, string(id))
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFoundOr(err, core.ErrTransactionNotFound)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	var where []string
	var args []any
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}
	if f.UserID != "" {
		add("user_id = ?", string(f.UserID))
	}
	if f.AccountID != "" {
		add("account_id = ?", string(f.AccountID))
	}
	if f.CategoryID != "" {
		add("category_id = ?", string(f.CategoryID))
	}
	if f.Type != "" {
		add("type = ?", string(f.Type))
	}
	if !f.From.IsZero() {
		add("transaction_date >= ?", f.From.String())
	}
	if !f.To.IsZero() {
		add("transaction_date <= ?", f.To.String())
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY transaction_date DESC, created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	cur, total := installmentArgs(t.Installment)
	err := r.execOne(ctx, core.ErrTransactionNotFound,
		`UPDATE transactions SET
		     category_id = ?, description = ?, type = ?, value_cents = ?, transaction_date = ?,
		     notes = ?, status = ?, expense_type = ?, installment_current = ?, installment_total = ?,
		     updated_at = ?
		 WHERE id = ?`,
		string(t.CategoryID), t.Description, string(t.Type), t.Value.Cents, t.Date.String(),
		t.Notes, string(t.Status), string(t.ExpenseType), cur, total,
		formatTime(t.UpdatedAt), string(t.ID))
	if err != nil && err != core.ErrTransactionNotFound {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	return err
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id core.ID) error {
	err := r.execOne(ctx, core.ErrTransactionNotFound, `DELETE FROM transactions WHERE id = ?`, string(id))
	if err != nil && err != core.ErrTransactionNotFound {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return err
}

func (r *SQLiteRepository) DeleteUserTransactions(ctx context.Context, userID core.ID, w core.Window) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND transaction_date >= ? AND transaction_date < ?`,
		string(userID), w.Start.String(), w.End.String())
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	slog.InfoContext(ctx, "Transactions deleted from SQLite",
		"user_id", userID,
		"from", w.Start.String(),
		"to", w.End.String(),
		"count", n)
	return n, nil
}

func (r *SQLiteRepository) CountByAccount(ctx context.Context, accountID core.ID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = ?`, string(accountID))
}

func (r *SQLiteRepository) CountByCategory(ctx context.Context, categoryID core.ID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM transactions WHERE category_id = ?`, string(categoryID))
}

func (r *SQLiteRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func installmentArgs(i *core.Installment) (any, any) {
	if i == nil {
		return nil, nil
	}
	return i.Current, i.Total
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		date                 string
		createdAt, updatedAt string
		cur, total           sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.Description, &t.Type,
		&t.Value.Cents, &date, &t.Notes, &t.Status, &t.ExpenseType, &cur, &total,
		&createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Transaction{}, err
	}
	if total.Valid {
		t.Installment = &core.Installment{Current: int(cur.Int64), Total: int(total.Int64)}
	}
	return t, nil
}
