// Package memory is an in-process TransactionExporter used by tests and by
// the worker when no spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Exporter keeps rows in insertion order. A cleared row keeps its slot, like
// a blanked spreadsheet row.
type Exporter struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// Upsert stores the row and returns a synthetic row reference.
func (e *Exporter) Upsert(_ context.Context, r sheets.Row) (string, error) {
	if r.TransactionID == "" {
		return "", errors.New("row without transaction id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rows {
		if e.rows[i].TransactionID == r.TransactionID {
			e.rows[i] = r
			return ref(i), nil
		}
	}
	e.rows = append(e.rows, r)
	return ref(len(e.rows) - 1), nil
}

func (e *Exporter) Clear(_ context.Context, transactionID core.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rows {
		if e.rows[i].TransactionID == transactionID {
			e.rows[i] = sheets.Row{}
			return nil
		}
	}
	return nil
}

func (e *Exporter) ClearUserYear(_ context.Context, userID core.ID, year int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for i, r := range e.rows {
		if r.TransactionID != "" && r.UserID == userID && r.Date.Year() == year {
			e.rows[i] = sheets.Row{}
			n++
		}
	}
	return n, nil
}

// Rows returns the non-cleared rows in sheet order.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sheets.Row, 0, len(e.rows))
	for _, r := range e.rows {
		if r.TransactionID != "" {
			out = append(out, r)
		}
	}
	return out
}

// Row returns the row of a transaction, if present.
func (e *Exporter) Row(transactionID core.ID) (sheets.Row, bool) {
	for _, r := range e.Rows() {
		if r.TransactionID == transactionID {
			return r, true
		}
	}
	return sheets.Row{}, false
}

func ref(i int) string {
	return fmt.Sprintf("mem:%d", i+1)
}
