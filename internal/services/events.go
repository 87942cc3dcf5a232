package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
)

// EventPublisher sends ledger events to the message broker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt amqp.LedgerEvent) error
}

// publish sends evt when a publisher is configured. Failures are logged and
// never fail the caller; the ledger change is already committed.
func publish(ctx context.Context, p EventPublisher, evt amqp.LedgerEvent) {
	if p == nil {
		slog.DebugContext(ctx, "No event publisher, skipping ledger event", "event", evt.Event)
		return
	}
	if err := p.PublishLedgerEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", evt.Event,
			"transaction_id", evt.TransactionID,
			"error", err)
	}
}
