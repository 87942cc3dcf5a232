package memory

import (
	"context"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id core.ID) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	s.mu.Lock()
	matched := []core.Transaction{}
	for _, t := range s.transactions {
		if f.Matches(t) {
			matched = append(matched, cloneTransaction(t))
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return newerFirst(matched[i], matched[j]) })
	if f.Skip >= len(matched) {
		return []core.Transaction{}, nil
	}
	matched = matched[f.Skip:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; !ok {
		return core.ErrTransactionNotFound
	}
	s.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.ErrTransactionNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) DeleteUserTransactions(_ context.Context, userID core.ID, w core.Window) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.transactions {
		if t.UserID == userID && w.Contains(t.Date) {
			delete(s.transactions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountByAccount(_ context.Context, accountID core.ID) (int, error) {
	return s.count(func(t core.Transaction) bool { return t.AccountID == accountID }), nil
}

func (s *Store) CountByCategory(_ context.Context, categoryID core.ID) (int, error) {
	return s.count(func(t core.Transaction) bool { return t.CategoryID == categoryID }), nil
}

func (s *Store) count(match func(core.Transaction) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.transactions {
		if match(t) {
			n++
		}
	}
	return n
}

func (s *Store) SumByType(_ context.Context, q ledger.SumQuery) (core.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totals core.Totals
	for _, t := range s.transactions {
		if q.Matches(t) {
			totals = totals.Add(t)
		}
	}
	return totals, nil
}

func (s *Store) CategoryTotals(_ context.Context, userID core.ID, w core.Window, limit int) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[core.ID]core.Money{}
	for _, t := range s.transactions {
		if t.UserID == userID && t.Type == core.Expense && w.Contains(t.Date) {
			sums[t.CategoryID] = sums[t.CategoryID].Add(t.Value)
		}
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for id, total := range sums {
		out = append(out, core.CategoryTotal{CategoryID: id, Category: s.categories[id].Name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Total.Cents != b.Total.Cents {
			return a.Total.Cents > b.Total.Cents
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.CategoryID < b.CategoryID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MonthlyTotals(_ context.Context, userID core.ID, w core.Window) ([]core.MonthlyTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type month struct{ year, month int }
	sums := map[month]core.Totals{}
	for _, t := range s.transactions {
		if t.UserID == userID && w.Contains(t.Date) {
			k := month{t.Date.Year(), int(t.Date.Month())}
			sums[k] = sums[k].Add(t)
		}
	}
	out := make([]core.MonthlyTotals, 0, len(sums))
	for k, totals := range sums {
		out = append(out, core.MonthlyTotals{Year: k.year, Month: k.month, Income: totals.Income, Expenses: totals.Expense})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func newerFirst(a, b core.Transaction) bool {
	if !a.Date.Equal(b.Date.Time) {
		return a.Date.After(b.Date.Time)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func cloneTransaction(t core.Transaction) core.Transaction {
	if t.Installment != nil {
		inst := *t.Installment
		t.Installment = &inst
	}
	return t
}
