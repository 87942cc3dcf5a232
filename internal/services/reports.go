package services

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// ReportService builds grouped reports over a user's own transactions.
type ReportService struct {
	store ledger.Aggregator
}

func NewReportService(store ledger.Aggregator) *ReportService {
	return &ReportService{store: store}
}

// ExpensesByCategory returns every category's expense total for the month,
// largest first.
func (s *ReportService) ExpensesByCategory(ctx context.Context, user core.ID, year, month int) ([]core.CategoryTotal, error) {
	w, err := core.MonthWindow(year, month)
	if err != nil {
		return nil, err
	}
	return s.store.CategoryTotals(ctx, user, w, 0)
}

// IncomeVsExpenses returns one point per month with transactions in
// [start, end), oldest first. Months without transactions are omitted.
func (s *ReportService) IncomeVsExpenses(ctx context.Context, user core.ID, start, end core.Date) ([]core.MonthlyTotals, error) {
	w := core.Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return s.store.MonthlyTotals(ctx, user, w)
}
