package storage

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// SumByType implements ledger.Aggregator
func (r *SQLiteRepository) SumByType(ctx context.Context, q ledger.SumQuery) (core.Totals, error) {
	where := []string{"1 = 1"}
	var args []any
	if q.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, string(q.AccountID))
	}
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, string(q.UserID))
	}
	if q.Window != nil {
		where = append(where, "transaction_date >= ?", "transaction_date < ?")
		args = append(args, q.Window.Start.String(), q.Window.End.String())
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COALESCE(SUM(value_cents), 0) FROM transactions
		 WHERE `+strings.Join(where, " AND ")+`
		 GROUP BY type`, args...)
	if err != nil {
		return core.Totals{}, fmt.Errorf("sum by type: %w", err)
	}
	defer rows.Close()

	var totals core.Totals
	for rows.Next() {
		var typ core.TransactionType
		var cents int64
		if err := rows.Scan(&typ, &cents); err != nil {
			return core.Totals{}, fmt.Errorf("scan sum: %w", err)
		}
		switch typ {
		case core.Income:
			totals.Income = core.Money{Cents: cents}
		case core.Expense:
			totals.Expense = core.Money{Cents: cents}
		}
	}
	return totals, rows.Err()
}

// CategoryTotals implements ledger.Aggregator
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID core.ID, w core.Window, limit int) ([]core.CategoryTotal, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.category_id, COALESCE(c.name, ''), SUM(t.value_cents) AS total
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.type = 'expense'
		   AND t.transaction_date >= ? AND t.transaction_date < ?
		 GROUP BY t.category_id, c.name
		 ORDER BY total DESC, c.name ASC, t.category_id ASC
		 LIMIT ?`,
		string(userID), w.Start.String(), w.End.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// MonthlyTotals implements ledger.Aggregator
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, userID core.ID, w core.Window) ([]core.MonthlyTotals, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%Y', transaction_date) AS INTEGER) AS year,
		        CAST(strftime('%m', transaction_date) AS INTEGER) AS month,
		        SUM(CASE WHEN type = 'income' THEN value_cents ELSE 0 END),
		        SUM(CASE WHEN type = 'expense' THEN value_cents ELSE 0 END)
		 FROM transactions
		 WHERE user_id = ? AND transaction_date >= ? AND transaction_date < ?
		 GROUP BY year, month
		 ORDER BY year, month`,
		string(userID), w.Start.String(), w.End.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	out := []core.MonthlyTotals{}
	for rows.Next() {
		var m core.MonthlyTotals
		if err := rows.Scan(&m.Year, &m.Month, &m.Income.Cents, &m.Expenses.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
