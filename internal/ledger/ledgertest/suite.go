// Package ledgertest holds the contract suite every ledger.Store must pass.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// StoreSuite runs against a fresh store per test.
type StoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) ledger.Store

	store ledger.Store
	ctx   context.Context
	clock time.Time
}

func (s *StoreSuite) SetupTest() {
	require.NotNil(s.T(), s.NewStore, "NewStore must be set")
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
	s.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

func (s *StoreSuite) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *StoreSuite) newUser(email string) core.User {
	u := core.User{ID: core.NewID(), Email: email, Name: "User " + email, PasswordHash: "hash", CreatedAt: s.now()}
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return u
}

func (s *StoreSuite) newAccount(owner core.ID, cents int64) core.Account {
	a := core.Account{
		ID:             core.NewID(),
		OwnerID:        owner,
		Name:           "Conta",
		Type:           core.Checking,
		InitialBalance: core.Money{Cents: cents},
		Permissions:    core.Permissions{},
		CreatedAt:      s.now(),
	}
	s.Require().NoError(s.store.CreateAccount(s.ctx, a))
	return a
}

func (s *StoreSuite) newCategory(owner core.ID, name string) core.Category {
	c := core.Category{ID: core.NewID(), OwnerID: owner, Name: name, CreatedAt: s.now()}
	s.Require().NoError(s.store.CreateCategory(s.ctx, c))
	return c
}

func (s *StoreSuite) newTx(user core.ID, acc core.Account, cat core.Category, typ core.TransactionType, cents int64, date core.Date) core.Transaction {
	status := core.Paid
	if typ == core.Income {
		status = core.Received
	}
	now := s.now()
	t := core.Transaction{
		ID:          core.NewID(),
		UserID:      user,
		AccountID:   acc.ID,
		CategoryID:  cat.ID,
		Description: fmt.Sprintf("%s %d", typ, cents),
		Type:        typ,
		Value:       core.Money{Cents: cents},
		Date:        date,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.store.CreateTransaction(s.ctx, t))
	return t
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *StoreSuite) TestUsers() {
	u := s.newUser("Ana@Example.com")

	got, err := s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("ana@example.com", got.Email)
	s.Equal("hash", got.PasswordHash)
	s.True(u.CreatedAt.Equal(got.CreatedAt))

	byEmail, err := s.store.GetUserByEmail(s.ctx, " ANA@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	dup := core.User{ID: core.NewID(), Email: "ana@example.com", Name: "Other", PasswordHash: "x", CreatedAt: s.now()}
	s.ErrorIs(s.store.CreateUser(s.ctx, dup), core.ErrEmailTaken)

	_, err = s.store.GetUser(s.ctx, core.NewID())
	s.ErrorIs(err, core.ErrUserNotFound)
	_, err = s.store.GetUserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, core.ErrNotFound)

	other := s.newUser("bia@example.com")
	other.Email = "ana@example.com"
	s.ErrorIs(s.store.UpdateUser(s.ctx, other), core.ErrEmailTaken)

	got.Name = "Ana Maria"
	s.Require().NoError(s.store.UpdateUser(s.ctx, got))
	got, err = s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Ana Maria", got.Name)

	s.ErrorIs(s.store.UpdateUser(s.ctx, core.User{ID: core.NewID(), Email: "x@y.z"}), core.ErrUserNotFound)
}

func (s *StoreSuite) TestAccounts() {
	owner := s.newUser("owner@example.com")
	a := s.newAccount(owner.ID, 100_00)

	got, err := s.store.GetAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.Name, got.Name)
	s.Equal(a.Type, got.Type)
	s.Equal(a.InitialBalance, got.InitialBalance)
	s.Equal(owner.ID, got.OwnerID)
	s.Empty(got.Permissions)

	a.Name = "Poupança"
	a.Type = core.Savings
	a.InitialBalance = core.Money{Cents: 1}
	s.Require().NoError(s.store.UpdateAccount(s.ctx, a))
	got, err = s.store.GetAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("Poupança", got.Name)
	s.Equal(core.Savings, got.Type)
	s.Equal(int64(100_00), got.InitialBalance.Cents, "update must not touch the initial balance")

	second := s.newAccount(owner.ID, 0)
	owned, err := s.store.ListOwnedAccounts(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Require().Len(owned, 2)
	s.Equal(a.ID, owned[0].ID)
	s.Equal(second.ID, owned[1].ID)

	s.Require().NoError(s.store.DeleteAccount(s.ctx, a.ID))
	_, err = s.store.GetAccount(s.ctx, a.ID)
	s.ErrorIs(err, core.ErrAccountNotFound)
	s.ErrorIs(s.store.DeleteAccount(s.ctx, a.ID), core.ErrAccountNotFound)
	s.ErrorIs(s.store.UpdateAccount(s.ctx, a), core.ErrAccountNotFound)
}

func (s *StoreSuite) TestPermissionsUpsertIsIdempotent() {
	owner := s.newUser("owner@example.com")
	friend := s.newUser("friend@example.com")
	a := s.newAccount(owner.ID, 0)

	for i := 0; i < 3; i++ {
		perms, err := s.store.UpsertPermission(s.ctx, a.ID, friend.ID, core.PermissionRead)
		s.Require().NoError(err)
		s.Len(perms, 1)
	}
	perms, err := s.store.UpsertPermission(s.ctx, a.ID, friend.ID, core.PermissionEdit)
	s.Require().NoError(err)
	s.Equal(core.Permissions{friend.ID: core.PermissionEdit}, perms)

	got, err := s.store.GetAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(core.Permissions{friend.ID: core.PermissionEdit}, got.Permissions)

	shared, err := s.store.ListSharedAccounts(s.ctx, friend.ID)
	s.Require().NoError(err)
	s.Require().Len(shared, 1)
	s.Equal(a.ID, shared[0].ID)

	none, err := s.store.ListSharedAccounts(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Empty(none)

	perms, err = s.store.RemovePermission(s.ctx, a.ID, friend.ID)
	s.Require().NoError(err)
	s.Empty(perms)
	perms, err = s.store.RemovePermission(s.ctx, a.ID, friend.ID)
	s.Require().NoError(err)
	s.Empty(perms)

	_, err = s.store.UpsertPermission(s.ctx, core.NewID(), friend.ID, core.PermissionRead)
	s.ErrorIs(err, core.ErrAccountNotFound)
}

func (s *StoreSuite) TestConcurrentUpsertsKeepOneEntryPerUser() {
	owner := s.newUser("owner@example.com")
	a := s.newAccount(owner.ID, 0)
	grantees := make([]core.User, 4)
	for i := range grantees {
		grantees[i] = s.newUser(fmt.Sprintf("g%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(grantees)*5)
	for _, g := range grantees {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(id core.ID, i int) {
				defer wg.Done()
				level := core.PermissionRead
				if i%2 == 0 {
					level = core.PermissionEdit
				}
				_, err := s.store.UpsertPermission(s.ctx, a.ID, id, level)
				errs <- err
			}(g.ID, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.GetAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Len(got.Permissions, len(grantees))
}

func (s *StoreSuite) TestCategories() {
	owner := s.newUser("owner@example.com")
	other := s.newUser("other@example.com")
	food := s.newCategory(owner.ID, "Alimentação")
	s.newCategory(owner.ID, "Transporte")
	s.newCategory(other.ID, "Alimentação")

	dup := core.Category{ID: core.NewID(), OwnerID: owner.ID, Name: "Alimentação", CreatedAt: s.now()}
	s.ErrorIs(s.store.CreateCategory(s.ctx, dup), core.ErrCategoryExists)

	cats, err := s.store.ListCategories(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Require().Len(cats, 2)
	s.Equal("Alimentação", cats[0].Name)
	s.Equal("Transporte", cats[1].Name)

	food.Name = "Transporte"
	s.ErrorIs(s.store.UpdateCategory(s.ctx, food), core.ErrCategoryExists)
	food.Name = "Mercado"
	food.Icon = "cart"
	s.Require().NoError(s.store.UpdateCategory(s.ctx, food))
	got, err := s.store.GetCategory(s.ctx, food.ID)
	s.Require().NoError(err)
	s.Equal("Mercado", got.Name)
	s.Equal("cart", got.Icon)

	s.Require().NoError(s.store.DeleteCategory(s.ctx, food.ID))
	_, err = s.store.GetCategory(s.ctx, food.ID)
	s.ErrorIs(err, core.ErrCategoryNotFound)
	s.ErrorIs(s.store.DeleteCategory(s.ctx, food.ID), core.ErrCategoryNotFound)
}

func (s *StoreSuite) TestTransactionRoundTrip() {
	u := s.newUser("u@example.com")
	a := s.newAccount(u.ID, 0)
	c := s.newCategory(u.ID, "Lazer")

	now := s.now()
	t := core.Transaction{
		ID:          core.NewID(),
		UserID:      u.ID,
		AccountID:   a.ID,
		CategoryID:  c.ID,
		Description: "Notebook",
		Type:        core.Expense,
		Value:       core.Money{Cents: 3_600_00},
		Date:        core.NewDate(2024, 5, 10),
		Notes:       "12x",
		Status:      core.Pending,
		ExpenseType: core.Fixed,
		Installment: &core.Installment{Current: 2, Total: 12},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.store.CreateTransaction(s.ctx, t))

	got, err := s.store.GetTransaction(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.Description, got.Description)
	s.Equal(t.Value, got.Value)
	s.Equal("2024-05-10", got.Date.String())
	s.Equal(t.Notes, got.Notes)
	s.Equal(t.ExpenseType, got.ExpenseType)
	s.Require().NotNil(got.Installment)
	s.Equal(*t.Installment, *got.Installment)
	s.True(t.CreatedAt.Equal(got.CreatedAt))

	got.Installment.Current = 3
	got.Status = core.Paid
	got.ExpenseType = ""
	got.Installment = nil
	s.Require().NoError(s.store.UpdateTransaction(s.ctx, got))
	again, err := s.store.GetTransaction(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(core.Paid, again.Status)
	s.Nil(again.Installment)
	s.Equal(core.ExpenseType(""), again.ExpenseType)

	s.Require().NoError(s.store.DeleteTransaction(s.ctx, t.ID))
	_, err = s.store.GetTransaction(s.ctx, t.ID)
	s.ErrorIs(err, core.ErrTransactionNotFound)
	s.ErrorIs(s.store.DeleteTransaction(s.ctx, t.ID), core.ErrTransactionNotFound)
	s.ErrorIs(s.store.UpdateTransaction(s.ctx, t), core.ErrTransactionNotFound)
}

func (s *StoreSuite) TestListTransactions() {
	u := s.newUser("u@example.com")
	other := s.newUser("o@example.com")
	a := s.newAccount(u.ID, 0)
	b := s.newAccount(u.ID, 0)
	food := s.newCategory(u.ID, "Alimentação")
	fun := s.newCategory(u.ID, "Lazer")

	jan := s.newTx(u.ID, a, food, core.Expense, 10_00, core.NewDate(2024, 1, 15))
	feb := s.newTx(u.ID, a, fun, core.Expense, 20_00, core.NewDate(2024, 2, 15))
	mar := s.newTx(u.ID, b, food, core.Income, 30_00, core.NewDate(2024, 3, 15))
	marLater := s.newTx(u.ID, b, food, core.Expense, 5_00, core.NewDate(2024, 3, 15))
	s.newTx(other.ID, a, food, core.Expense, 99_00, core.NewDate(2024, 3, 1))

	ids := func(ts []core.Transaction) []core.ID {
		out := make([]core.ID, len(ts))
		for i, t := range ts {
			out[i] = t.ID
		}
		return out
	}

	all, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{UserID: u.ID})
	s.Require().NoError(err)
	s.Equal([]core.ID{marLater.ID, mar.ID, feb.ID, jan.ID}, ids(all), "newest first, later insert wins on equal dates")

	byAccount, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{AccountID: a.ID})
	s.Require().NoError(err)
	s.Len(byAccount, 3, "account filter without user filter includes every author")

	byCat, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{UserID: u.ID, CategoryID: food.ID, Type: core.Expense})
	s.Require().NoError(err)
	s.Equal([]core.ID{marLater.ID, jan.ID}, ids(byCat))

	ranged, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{
		UserID: u.ID,
		From:   core.NewDate(2024, 2, 15),
		To:     core.NewDate(2024, 3, 15),
	})
	s.Require().NoError(err)
	s.Equal([]core.ID{marLater.ID, mar.ID, feb.ID}, ids(ranged), "date bounds are inclusive")

	page, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{UserID: u.ID, Skip: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal([]core.ID{mar.ID, feb.ID}, ids(page))

	empty, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{UserID: u.ID, Skip: 10})
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *StoreSuite) TestReferenceCounts() {
	u := s.newUser("u@example.com")
	a := s.newAccount(u.ID, 0)
	unused := s.newAccount(u.ID, 0)
	c := s.newCategory(u.ID, "Saúde")
	s.newTx(u.ID, a, c, core.Expense, 1_00, core.NewDate(2024, 1, 1))
	s.newTx(u.ID, a, c, core.Expense, 2_00, core.NewDate(2024, 1, 2))

	n, err := s.store.CountByAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(2, n)
	n, err = s.store.CountByAccount(s.ctx, unused.ID)
	s.Require().NoError(err)
	s.Zero(n)
	n, err = s.store.CountByCategory(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *StoreSuite) TestDeleteUserTransactions() {
	u := s.newUser("u@example.com")
	other := s.newUser("o@example.com")
	a := s.newAccount(u.ID, 0)
	c := s.newCategory(u.ID, "Moradia")
	s.newTx(u.ID, a, c, core.Expense, 1_00, core.NewDate(2023, 12, 31))
	s.newTx(u.ID, a, c, core.Expense, 1_00, core.NewDate(2024, 1, 1))
	s.newTx(u.ID, a, c, core.Expense, 1_00, core.NewDate(2024, 12, 31))
	s.newTx(other.ID, a, c, core.Expense, 1_00, core.NewDate(2024, 6, 1))

	w, err := core.YearWindow(2024)
	s.Require().NoError(err)
	n, err := s.store.DeleteUserTransactions(s.ctx, u.ID, w)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	left, err := s.store.ListTransactions(s.ctx, ledger.TransactionFilter{AccountID: a.ID})
	s.Require().NoError(err)
	s.Len(left, 2)
}

func (s *StoreSuite) TestSumByType() {
	u := s.newUser("u@example.com")
	friend := s.newUser("f@example.com")
	a := s.newAccount(u.ID, 100_00)
	b := s.newAccount(u.ID, 0)
	c := s.newCategory(u.ID, "Vendas")

	s.newTx(u.ID, a, c, core.Income, 50_00, core.NewDate(2024, 1, 10))
	s.newTx(friend.ID, a, c, core.Expense, 30_00, core.NewDate(2024, 2, 10))
	s.newTx(u.ID, b, c, core.Expense, 7_77, core.NewDate(2024, 1, 20))

	totals, err := s.store.SumByType(s.ctx, ledger.SumQuery{AccountID: a.ID})
	s.Require().NoError(err)
	s.Equal(int64(50_00), totals.Income.Cents)
	s.Equal(int64(30_00), totals.Expense.Cents)

	jan, err := core.MonthWindow(2024, 1)
	s.Require().NoError(err)
	totals, err = s.store.SumByType(s.ctx, ledger.SumQuery{UserID: u.ID, Window: &jan})
	s.Require().NoError(err)
	s.Equal(int64(50_00), totals.Income.Cents)
	s.Equal(int64(7_77), totals.Expense.Cents)

	totals, err = s.store.SumByType(s.ctx, ledger.SumQuery{AccountID: core.NewID()})
	s.Require().NoError(err)
	s.Zero(totals.Income.Cents)
	s.Zero(totals.Expense.Cents)
}

func (s *StoreSuite) TestCategoryTotals() {
	u := s.newUser("u@example.com")
	a := s.newAccount(u.ID, 0)
	food := s.newCategory(u.ID, "Alimentação")
	home := s.newCategory(u.ID, "Moradia")
	fun := s.newCategory(u.ID, "Lazer")
	salary := s.newCategory(u.ID, "Salário")

	s.newTx(u.ID, a, food, core.Expense, 10_00, core.NewDate(2024, 4, 1))
	s.newTx(u.ID, a, food, core.Expense, 15_00, core.NewDate(2024, 4, 30))
	s.newTx(u.ID, a, home, core.Expense, 25_00, core.NewDate(2024, 4, 5))
	s.newTx(u.ID, a, fun, core.Expense, 5_00, core.NewDate(2024, 4, 5))
	s.newTx(u.ID, a, fun, core.Expense, 500_00, core.NewDate(2024, 5, 1))
	s.newTx(u.ID, a, salary, core.Income, 9_000_00, core.NewDate(2024, 4, 5))

	apr, err := core.MonthWindow(2024, 4)
	s.Require().NoError(err)
	totals, err := s.store.CategoryTotals(s.ctx, u.ID, apr, 0)
	s.Require().NoError(err)
	s.Require().Len(totals, 3)
	s.Equal("Alimentação", totals[0].Category, "ties sort by name")
	s.Equal(int64(25_00), totals[0].Total.Cents)
	s.Equal("Moradia", totals[1].Category)
	s.Equal("Lazer", totals[2].Category)
	s.Equal(fun.ID, totals[2].CategoryID)

	top, err := s.store.CategoryTotals(s.ctx, u.ID, apr, 1)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(food.ID, top[0].CategoryID)

	empty, err := s.store.CategoryTotals(s.ctx, s.newUser("n@example.com").ID, apr, 1)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *StoreSuite) TestMonthlyTotals() {
	u := s.newUser("u@example.com")
	a := s.newAccount(u.ID, 0)
	c := s.newCategory(u.ID, "Freelance")

	s.newTx(u.ID, a, c, core.Expense, 1_00, core.NewDate(2024, 1, 31))
	s.newTx(u.ID, a, c, core.Income, 200_00, core.NewDate(2024, 2, 1))
	s.newTx(u.ID, a, c, core.Expense, 50_00, core.NewDate(2024, 2, 29))
	s.newTx(u.ID, a, c, core.Income, 10_00, core.NewDate(2024, 4, 2))
	s.newTx(u.ID, a, c, core.Income, 10_00, core.NewDate(2024, 5, 1))

	w := core.Window{Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 5, 1)}
	series, err := s.store.MonthlyTotals(s.ctx, u.ID, w)
	s.Require().NoError(err)
	s.Equal([]core.MonthlyTotals{
		{Year: 2024, Month: 2, Income: core.Money{Cents: 200_00}, Expenses: core.Money{Cents: 50_00}},
		{Year: 2024, Month: 4, Income: core.Money{Cents: 10_00}, Expenses: core.Money{}},
	}, series, "months without transactions are omitted and the end is exclusive")
}
