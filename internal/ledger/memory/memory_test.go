package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/ledgertest"
)

func TestStoreContract(t *testing.T) {
	suite.Run(t, &ledgertest.StoreSuite{
		NewStore: func(*testing.T) ledger.Store { return New() },
	})
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	friend := core.NewID()
	acc := core.Account{ID: core.NewID(), OwnerID: core.NewID(), Name: "c", Type: core.Wallet, Permissions: core.Permissions{}}
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetAccount(ctx, acc.ID)
	got.Permissions[friend] = core.PermissionEdit
	again, _ := s.GetAccount(ctx, acc.ID)
	if len(again.Permissions) != 0 {
		t.Fatalf("mutating a returned account leaked into the store: %v", again.Permissions)
	}

	tx := core.Transaction{ID: core.NewID(), Installment: &core.Installment{Current: 0, Total: 2}}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	tx.Installment.Current = 2
	stored, _ := s.GetTransaction(ctx, tx.ID)
	if stored.Installment.Current != 0 {
		t.Fatalf("caller's installment pointer is shared with the store")
	}
}
