// Package ledger defines the storage ports of the service. The memory and
// SQLite stores both implement Store and are checked by the same contract
// suite in ledgertest.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// Ports for storage adapters.
type (
	UserStore interface {
		// CreateUser fails with core.ErrEmailTaken when the email is in use.
		CreateUser(ctx context.Context, u core.User) error
		GetUser(ctx context.Context, id core.ID) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) error
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) error
		GetAccount(ctx context.Context, id core.ID) (core.Account, error)
		ListOwnedAccounts(ctx context.Context, ownerID core.ID) ([]core.Account, error)
		// ListSharedAccounts returns accounts where userID holds a grant.
		ListSharedAccounts(ctx context.Context, userID core.ID) ([]core.Account, error)
		// UpdateAccount writes name and type. Permissions are only changed
		// through UpsertPermission and RemovePermission.
		UpdateAccount(ctx context.Context, a core.Account) error
		DeleteAccount(ctx context.Context, id core.ID) error
		// UpsertPermission atomically replaces any grant for userID.
		UpsertPermission(ctx context.Context, accountID, userID core.ID, level core.PermissionLevel) (core.Permissions, error)
		RemovePermission(ctx context.Context, accountID, userID core.ID) (core.Permissions, error)
	}

	CategoryStore interface {
		// CreateCategory fails with core.ErrCategoryExists on a duplicate name.
		CreateCategory(ctx context.Context, c core.Category) error
		GetCategory(ctx context.Context, id core.ID) (core.Category, error)
		ListCategories(ctx context.Context, ownerID core.ID) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id core.ID) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id core.ID) (core.Transaction, error)
		// ListTransactions returns matches newest first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id core.ID) error
		// DeleteUserTransactions removes the user's own transactions dated in w.
		DeleteUserTransactions(ctx context.Context, userID core.ID, w core.Window) (int64, error)
		CountByAccount(ctx context.Context, accountID core.ID) (int, error)
		CountByCategory(ctx context.Context, categoryID core.ID) (int, error)
	}

	// Aggregator evaluates grouped sums inside the store.
	Aggregator interface {
		SumByType(ctx context.Context, q SumQuery) (core.Totals, error)
		// CategoryTotals returns expense sums per category, largest first,
		// ties broken by category name. limit <= 0 returns every category.
		CategoryTotals(ctx context.Context, userID core.ID, w core.Window, limit int) ([]core.CategoryTotal, error)
		// MonthlyTotals returns one entry per month that has transactions,
		// oldest first.
		MonthlyTotals(ctx context.Context, userID core.ID, w core.Window) ([]core.MonthlyTotals, error)
	}

	Store interface {
		UserStore
		AccountStore
		CategoryStore
		TransactionStore
		Aggregator
		Ping(ctx context.Context) error
		Close() error
	}
)

// TransactionFilter selects transactions. Zero-valued fields are ignored.
type TransactionFilter struct {
	UserID     core.ID
	AccountID  core.ID
	CategoryID core.ID
	Type       core.TransactionType
	// From and To are inclusive bounds on the transaction date.
	From  core.Date
	To    core.Date
	Skip  int
	Limit int
}

// Normalize clamps paging to the supported range.
func (f TransactionFilter) Normalize() TransactionFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Matches reports whether t passes every set field of f.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	switch {
	case f.UserID != "" && t.UserID != f.UserID:
		return false
	case f.AccountID != "" && t.AccountID != f.AccountID:
		return false
	case f.CategoryID != "" && t.CategoryID != f.CategoryID:
		return false
	case f.Type != "" && t.Type != f.Type:
		return false
	case !f.From.IsZero() && t.Date.Before(f.From.Time):
		return false
	case !f.To.IsZero() && t.Date.After(f.To.Time):
		return false
	}
	return true
}

// SumQuery scopes SumByType to an account or a user, optionally within a window.
type SumQuery struct {
	AccountID core.ID
	UserID    core.ID
	Window    *core.Window
}

// Matches reports whether t falls inside the query scope.
func (q SumQuery) Matches(t core.Transaction) bool {
	if q.AccountID != "" && t.AccountID != q.AccountID {
		return false
	}
	if q.UserID != "" && t.UserID != q.UserID {
		return false
	}
	if q.Window != nil && !q.Window.Contains(t.Date) {
		return false
	}
	return true
}
