package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// DashboardService produces the monthly overview of a user's own transactions.
type DashboardService struct {
	store  ledger.Store
	events EventPublisher
	now    func() time.Time
}

func NewDashboardService(store ledger.Store, events EventPublisher) *DashboardService {
	return &DashboardService{store: store, events: events, now: time.Now}
}

// MonthSummary returns income, expenses, balance and the top expense
// category of the month. The totals and the top category are computed by
// two concurrent store queries.
func (s *DashboardService) MonthSummary(ctx context.Context, user core.ID, year, month int) (core.MonthSummary, error) {
	w, err := core.MonthWindow(year, month)
	if err != nil {
		return core.MonthSummary{}, err
	}

	var (
		totals core.Totals
		top    []core.CategoryTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.store.SumByType(gctx, ledger.SumQuery{UserID: user, Window: &w})
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.store.CategoryTotals(gctx, user, w, 1)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthSummary{}, err
	}

	summary := core.MonthSummary{
		Year:          year,
		Month:         month,
		TotalIncome:   totals.Income,
		TotalExpenses: totals.Expense,
		Balance:       totals.Balance(),
		GeneratedAt:   s.now().UTC(),
	}
	if len(top) > 0 {
		summary.TopExpenseCategory = &top[0]
	}
	return summary, nil
}

// DeleteYear permanently removes the caller's own transactions dated in year.
func (s *DashboardService) DeleteYear(ctx context.Context, user core.ID, year int) (int64, error) {
	w, err := core.YearWindow(year)
	if err != nil {
		return 0, err
	}
	n, err := s.store.DeleteUserTransactions(ctx, user, w)
	if err != nil {
		return 0, err
	}

	slog.WarnContext(ctx, "Transactions of a year deleted", "user_id", user, "year", year, "count", n)
	if n > 0 {
		publish(ctx, s.events, amqp.NewClearedEvent(user, year))
	}
	return n, nil
}
