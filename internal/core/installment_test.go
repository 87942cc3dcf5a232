package core

import (
	"errors"
	"testing"
)

func TestPayInstallment(t *testing.T) {
	cases := []struct {
		name       string
		inst       *Installment
		wantInst   *Installment
		wantStatus TransactionStatus
		wantErr    error
	}{
		{"not an installment", nil, nil, Pending, ErrNotInstallment},
		{"first of three", &Installment{0, 3}, &Installment{1, 3}, Pending, nil},
		{"middle", &Installment{1, 3}, &Installment{2, 3}, Pending, nil},
		{"last one marks paid", &Installment{2, 3}, &Installment{3, 3}, Paid, nil},
		{"single installment", &Installment{0, 1}, &Installment{1, 1}, Paid, nil},
		{"already complete", &Installment{3, 3}, &Installment{3, 3}, Pending, ErrAlreadyComplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tx.Status = Pending
			tx.Installment = tc.inst
			err := tx.PayInstallment()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil && !errors.Is(err, ErrPreconditionFailed) {
				t.Fatalf("%v is not a precondition failure", err)
			}
			if tx.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", tx.Status, tc.wantStatus)
			}
			if tc.wantInst == nil {
				if tx.Installment != nil {
					t.Fatalf("installment = %+v, want nil", tx.Installment)
				}
				return
			}
			if *tx.Installment != *tc.wantInst {
				t.Fatalf("installment = %+v, want %+v", *tx.Installment, *tc.wantInst)
			}
		})
	}
}

func TestPayInstallmentDoesNotAliasInput(t *testing.T) {
	shared := &Installment{Current: 0, Total: 2}
	tx := validTransaction()
	tx.Installment = shared
	if err := tx.PayInstallment(); err != nil {
		t.Fatal(err)
	}
	if shared.Current != 0 {
		t.Fatalf("caller's installment mutated: %+v", shared)
	}
}

func TestPayInstallmentUntilComplete(t *testing.T) {
	tx := validTransaction()
	tx.Status = Pending
	tx.Installment = &Installment{Current: 0, Total: 12}
	for i := 1; i <= 12; i++ {
		if err := tx.PayInstallment(); err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
		if tx.Installment.Current != i {
			t.Fatalf("payment %d: current = %d", i, tx.Installment.Current)
		}
		if (tx.Status == Paid) != (i == 12) {
			t.Fatalf("payment %d: status = %s", i, tx.Status)
		}
	}
	if err := tx.PayInstallment(); !errors.Is(err, ErrAlreadyComplete) {
		t.Fatalf("13th payment: %v", err)
	}
}
