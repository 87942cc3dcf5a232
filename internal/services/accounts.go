package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// NewAccount is the input of AccountService.Create.
type NewAccount struct {
	Name    string           `json:"name"`
	Type    core.AccountType `json:"type"`
	Balance core.Money       `json:"balance"`
}

// AccountService manages accounts, their sharing grants and balances.
type AccountService struct {
	store ledger.Store
	now   func() time.Time
}

func NewAccountService(store ledger.Store) *AccountService {
	return &AccountService{store: store, now: time.Now}
}

func (s *AccountService) Create(ctx context.Context, owner core.ID, in NewAccount) (core.Account, error) {
	a := core.Account{
		ID:             core.NewID(),
		OwnerID:        owner,
		Name:           strings.TrimSpace(in.Name),
		Type:           in.Type,
		InitialBalance: in.Balance,
		Permissions:    core.Permissions{},
		CreatedAt:      s.now().UTC(),
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// ListOwned returns the accounts the user owns. Shared accounts are excluded.
func (s *AccountService) ListOwned(ctx context.Context, user core.ID) ([]core.Account, error) {
	return s.store.ListOwnedAccounts(ctx, user)
}

// ListShared returns the accounts other users shared with user.
func (s *AccountService) ListShared(ctx context.Context, user core.ID) ([]core.Account, error) {
	return s.store.ListSharedAccounts(ctx, user)
}

// Authorize loads the account and checks that user holds at least required.
func (s *AccountService) Authorize(ctx context.Context, user, accountID core.ID, required core.PermissionLevel) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if err := a.Resolve(user, required); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (s *AccountService) owned(ctx context.Context, user, accountID core.ID) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if err := a.ResolveOwner(user); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// Update changes name and type. Only the owner may update.
func (s *AccountService) Update(ctx context.Context, user, accountID core.ID, upd core.AccountUpdate) (core.Account, error) {
	a, err := s.owned(ctx, user, accountID)
	if err != nil {
		return core.Account{}, err
	}
	a, err = upd.Apply(a)
	if err != nil {
		return core.Account{}, err
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// Delete removes an account that no transaction references.
func (s *AccountService) Delete(ctx context.Context, user, accountID core.ID) error {
	if _, err := s.owned(ctx, user, accountID); err != nil {
		return err
	}
	n, err := s.store.CountByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d transactions)", core.ErrAccountInUse, n)
	}
	return s.store.DeleteAccount(ctx, accountID)
}

// Summarize recomputes the account balance from its transactions.
func (s *AccountService) Summarize(ctx context.Context, user, accountID core.ID) (core.AccountSummary, error) {
	a, err := s.Authorize(ctx, user, accountID, core.PermissionRead)
	if err != nil {
		return core.AccountSummary{}, err
	}
	totals, err := s.store.SumByType(ctx, ledger.SumQuery{AccountID: a.ID})
	if err != nil {
		return core.AccountSummary{}, err
	}
	return core.NewAccountSummary(a, totals), nil
}

// Share grants level on the account to the user registered under email,
// replacing any earlier grant. Only the owner may share.
func (s *AccountService) Share(ctx context.Context, grantor, accountID core.ID, email string, level core.PermissionLevel) (core.Permissions, error) {
	a, err := s.owned(ctx, grantor, accountID)
	if err != nil {
		return nil, err
	}
	if err := level.Validate(); err != nil {
		return nil, err
	}
	grantee, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if grantee.ID == a.OwnerID {
		return nil, core.ErrShareWithSelf
	}
	perms, err := s.store.UpsertPermission(ctx, a.ID, grantee.ID, level)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Account shared",
		"account_id", a.ID,
		"grantee_id", grantee.ID,
		"level", level)
	return perms, nil
}

// Revoke removes the grantee's grant. Revoking an absent grant is a no-op.
func (s *AccountService) Revoke(ctx context.Context, grantor, accountID, grantee core.ID) (core.Permissions, error) {
	a, err := s.owned(ctx, grantor, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.RemovePermission(ctx, a.ID, grantee)
}
