package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventType names what happened to a transaction.
type EventType string

const (
	TransactionCreated  EventType = "transaction.created"
	TransactionUpdated  EventType = "transaction.updated"
	TransactionDeleted  EventType = "transaction.deleted"
	InstallmentPaid     EventType = "transaction.installment_paid"
	TransactionsCleared EventType = "transactions.cleared"
)

// LedgerEvent is a lightweight notification about a ledger change.
// It carries identifiers only; consumers read the current record from the store.
type LedgerEvent struct {
	Event         EventType `json:"event"`
	TransactionID core.ID   `json:"transaction_id,omitempty"`
	AccountID     core.ID   `json:"account_id,omitempty"`
	UserID        core.ID   `json:"user_id"`
	// Year is set for TransactionsCleared.
	Year      int       `json:"year,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEvent builds an event for a single transaction.
func NewTransactionEvent(event EventType, t core.Transaction) LedgerEvent {
	return LedgerEvent{
		Event:         event,
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		UserID:        t.UserID,
		Timestamp:     time.Now().UTC(),
	}
}

// NewClearedEvent builds the event for a bulk delete of a user's year.
func NewClearedEvent(userID core.ID, year int) LedgerEvent {
	return LedgerEvent{
		Event:     TransactionsCleared,
		UserID:    userID,
		Year:      year,
		Timestamp: time.Now().UTC(),
	}
}

func (e LedgerEvent) Validate() error {
	switch e.Event {
	case TransactionCreated, TransactionUpdated, TransactionDeleted, InstallmentPaid:
		if e.TransactionID == "" {
			return fmt.Errorf("event %s without transaction id", e.Event)
		}
	case TransactionsCleared:
		if e.Year == 0 {
			return fmt.Errorf("event %s without year", e.Event)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Event)
	}
	if e.UserID == "" {
		return fmt.Errorf("event %s without user id", e.Event)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	if err := e.Validate(); err != nil {
		return LedgerEvent{}, err
	}
	return e, nil
}
