package main

import (
	"math/rand/v2"
	"time"

	"fintrack/internal/core"
)

var (
	incomeCategories  = []string{"Salário", "Freelance", "Vendas", "Rendimentos"}
	expenseCategories = []string{"Alimentação", "Transporte", "Moradia", "Lazer", "Saúde", "Educação"}
	descriptions      = []string{"Mercado", "Uber", "Aluguel", "Cinema", "Farmácia", "Curso", "Pagamento", "Projeto", "Restaurante", "Conta de luz"}
)

// fakeTransaction is one generated transaction before it is bound to an
// account and category id.
type fakeTransaction struct {
	Category    string
	Description string
	Type        core.TransactionType
	Value       core.Money
	Date        core.Date
	Status      core.TransactionStatus
	ExpenseType core.ExpenseType
}

// generate draws n transactions dated within the two years before now.
// Roughly one in five is income of 500 to 7000; the rest are expenses of 10
// to 800, paid or pending.
func generate(r *rand.Rand, n int, now time.Time) []fakeTransaction {
	span := int64(2 * 365 * 24 * time.Hour)
	out := make([]fakeTransaction, n)
	for i := range out {
		d := now.Add(-time.Duration(r.Int64N(span)))
		ft := fakeTransaction{
			Description: descriptions[r.IntN(len(descriptions))],
			Date:        core.NewDate(d.Year(), int(d.Month()), d.Day()),
		}
		if r.Float64() < 0.2 {
			ft.Type = core.Income
			ft.Category = incomeCategories[r.IntN(len(incomeCategories))]
			ft.Value = core.Money{Cents: 50000 + r.Int64N(650000+1)}
			ft.Status = core.Received
		} else {
			ft.Type = core.Expense
			ft.Category = expenseCategories[r.IntN(len(expenseCategories))]
			ft.Value = core.Money{Cents: 1000 + r.Int64N(79000+1)}
			ft.Status = core.Paid
			if r.IntN(2) == 0 {
				ft.Status = core.Pending
			}
			ft.ExpenseType = core.Fixed
			if r.IntN(2) == 0 {
				ft.ExpenseType = core.Variable
			}
		}
		out[i] = ft
	}
	return out
}
