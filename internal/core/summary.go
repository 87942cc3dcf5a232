package core

import "time"

// Window is a half-open date range [Start, End).
type Window struct {
	Start Date
	End   Date
}

// MonthWindow returns the window covering one calendar month.
func MonthWindow(year, month int) (Window, error) {
	if month < 1 || month > 12 {
		return Window{}, ErrInvalidMonth
	}
	if year < 1 || year > 9999 {
		return Window{}, ErrInvalidDate
	}
	start := NewDate(year, month, 1)
	return Window{Start: start, End: Date{Time: start.AddDate(0, 1, 0)}}, nil
}

// YearWindow returns the window covering one calendar year.
func YearWindow(year int) (Window, error) {
	if year < 1 || year > 9999 {
		return Window{}, ErrInvalidDate
	}
	return Window{Start: NewDate(year, 1, 1), End: NewDate(year+1, 1, 1)}, nil
}

func (w Window) Validate() error {
	if err := w.Start.Validate(); err != nil {
		return err
	}
	if err := w.End.Validate(); err != nil {
		return err
	}
	if !w.End.After(w.Start.Time) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start.Time) && d.Before(w.End.Time)
}

// Totals holds the income and expense sums of a set of transactions.
type Totals struct {
	Income  Money
	Expense Money
}

// Balance returns income minus expenses.
func (t Totals) Balance() Money {
	return t.Income.Sub(t.Expense)
}

// Add folds one transaction into the totals.
func (t Totals) Add(tx Transaction) Totals {
	switch tx.Type {
	case Income:
		t.Income = t.Income.Add(tx.Value)
	case Expense:
		t.Expense = t.Expense.Add(tx.Value)
	}
	return t
}

// CategoryTotal is the expense sum of one category.
type CategoryTotal struct {
	CategoryID ID     `json:"category_id"`
	Category   string `json:"category"`
	Total      Money  `json:"total_value"`
}

// MonthlyTotals is one point of an income-vs-expenses series.
type MonthlyTotals struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"`
	Income   Money `json:"total_income"`
	Expenses Money `json:"total_expenses"`
}

// AccountSummary is the computed balance of a single account.
type AccountSummary struct {
	AccountID      ID          `json:"account_id"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	InitialBalance Money       `json:"balance"`
	TotalIncome    Money       `json:"total_income"`
	TotalExpenses  Money       `json:"total_expenses"`
	CurrentBalance Money       `json:"current_balance"`
}

// NewAccountSummary applies current = initial + income - expenses.
func NewAccountSummary(a Account, t Totals) AccountSummary {
	return AccountSummary{
		AccountID:      a.ID,
		Name:           a.Name,
		Type:           a.Type,
		InitialBalance: a.InitialBalance,
		TotalIncome:    t.Income,
		TotalExpenses:  t.Expense,
		CurrentBalance: a.InitialBalance.Add(t.Balance()),
	}
}

// MonthSummary is the dashboard view of one user's month.
type MonthSummary struct {
	Year               int            `json:"year"`
	Month              int            `json:"month"`
	TotalIncome        Money          `json:"total_income"`
	TotalExpenses      Money          `json:"total_expenses"`
	Balance            Money          `json:"balance"`
	TopExpenseCategory *CategoryTotal `json:"top_expense_category"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
