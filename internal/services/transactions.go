package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// NewTransaction is the input of TransactionService.Create.
type NewTransaction struct {
	AccountID   core.ID                `json:"account_id"`
	CategoryID  core.ID                `json:"category_id"`
	Description string                 `json:"description"`
	Type        core.TransactionType   `json:"type"`
	Value       core.Money             `json:"value"`
	Date        core.Date              `json:"transaction_date"`
	Notes       string                 `json:"notes,omitempty"`
	Status      core.TransactionStatus `json:"status"`
	ExpenseType core.ExpenseType       `json:"expense_type,omitempty"`
	Installment *core.Installment      `json:"installment_details,omitempty"`
}

// TransactionQuery filters TransactionService.List. With AccountID set the
// caller needs read access and sees every transaction of that account;
// otherwise only the caller's own transactions are listed.
type TransactionQuery struct {
	AccountID  core.ID
	CategoryID core.ID
	Type       core.TransactionType
	From       core.Date
	To         core.Date
	Skip       int
	Limit      int
}

// TransactionService orchestrates transaction writes against the store and
// publishes a ledger event after each committed change.
type TransactionService struct {
	store      ledger.Store
	accounts   *AccountService
	categories *CategoryService
	events     EventPublisher
	now        func() time.Time
}

func NewTransactionService(store ledger.Store, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:      store,
		accounts:   NewAccountService(store),
		categories: NewCategoryService(store),
		events:     events,
		now:        time.Now,
	}
}

// Create records a transaction on an account the caller may edit, filed
// under one of the caller's categories.
func (s *TransactionService) Create(ctx context.Context, user core.ID, in NewTransaction) (core.Transaction, error) {
	now := s.now().UTC()
	t := core.Transaction{
		ID:          core.NewID(),
		UserID:      user,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Value:       in.Value,
		Date:        in.Date,
		Notes:       strings.TrimSpace(in.Notes),
		Status:      in.Status,
		ExpenseType: in.ExpenseType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Installment != nil {
		inst := *in.Installment
		t.Installment = &inst
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.accounts.Authorize(ctx, user, t.AccountID, core.PermissionEdit); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.categories.Owned(ctx, user, t.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	publish(ctx, s.events, amqp.NewTransactionEvent(amqp.TransactionCreated, t))
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, user core.ID, q TransactionQuery) ([]core.Transaction, error) {
	f := ledger.TransactionFilter{
		AccountID:  q.AccountID,
		CategoryID: q.CategoryID,
		Type:       q.Type,
		From:       q.From,
		To:         q.To,
		Skip:       q.Skip,
		Limit:      q.Limit,
	}
	if q.Type != "" {
		if err := q.Type.Validate(); err != nil {
			return nil, err
		}
	}
	if q.AccountID != "" {
		if _, err := s.accounts.Authorize(ctx, user, q.AccountID, core.PermissionRead); err != nil {
			return nil, err
		}
	} else {
		f.UserID = user
	}
	return s.store.ListTransactions(ctx, f)
}

// Get returns a transaction of an account the caller may read.
func (s *TransactionService) Get(ctx context.Context, user, id core.ID) (core.Transaction, error) {
	return s.authorized(ctx, user, id, core.PermissionRead)
}

func (s *TransactionService) authorized(ctx context.Context, user, id core.ID, required core.PermissionLevel) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.accounts.Authorize(ctx, user, t.AccountID, required); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, user, id core.ID, upd core.TransactionUpdate) (core.Transaction, error) {
	t, err := s.authorized(ctx, user, id, core.PermissionEdit)
	if err != nil {
		return core.Transaction{}, err
	}
	prevCategory := t.CategoryID
	t, err = upd.Apply(t)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.CategoryID != prevCategory {
		if _, err := s.categories.Owned(ctx, user, t.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	publish(ctx, s.events, amqp.NewTransactionEvent(amqp.TransactionUpdated, t))
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, user, id core.ID) error {
	t, err := s.authorized(ctx, user, id, core.PermissionEdit)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	publish(ctx, s.events, amqp.NewTransactionEvent(amqp.TransactionDeleted, t))
	return nil
}

// PayInstallment records one more paid installment on the transaction.
func (s *TransactionService) PayInstallment(ctx context.Context, user, id core.ID) (core.Transaction, error) {
	t, err := s.authorized(ctx, user, id, core.PermissionEdit)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := t.PayInstallment(); err != nil {
		return core.Transaction{}, err
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Installment paid",
		"transaction_id", t.ID,
		"current", t.Installment.Current,
		"total", t.Installment.Total,
		"status", t.Status)

	publish(ctx, s.events, amqp.NewTransactionEvent(amqp.InstallmentPaid, t))
	return t, nil
}
