// Package sheets mirrors ledger transactions into a spreadsheet.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Row is the exported form of one transaction.
type Row struct {
	TransactionID core.ID
	UserID        core.ID
	AccountID     core.ID
	Date          core.Date
	Description   string
	Category      string
	Type          core.TransactionType
	Value         core.Money
	Status        core.TransactionStatus
	Installment   string
}

// NewRow flattens a transaction and its category name into a Row.
func NewRow(t core.Transaction, category string) Row {
	r := Row{
		TransactionID: t.ID,
		UserID:        t.UserID,
		AccountID:     t.AccountID,
		Date:          t.Date,
		Description:   t.Description,
		Category:      category,
		Type:          t.Type,
		Value:         t.Value,
		Status:        t.Status,
	}
	if t.Installment != nil {
		r.Installment = formatInstallment(*t.Installment)
	}
	return r
}

// Ports for outbound adapters.
type (
	// TransactionExporter keeps one row per transaction, keyed by its id.
	TransactionExporter interface {
		// Upsert writes r over the row holding the same transaction id, or
		// appends a new row.
		Upsert(ctx context.Context, r Row) (rowRef string, err error)
		// Clear blanks the row of a transaction. A missing row is not an error.
		Clear(ctx context.Context, transactionID core.ID) error
		// ClearUserYear blanks every row of userID dated in year.
		ClearUserYear(ctx context.Context, userID core.ID, year int) (int, error)
	}
)
