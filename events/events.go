package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatusChanged is emitted for every applied status transition
const TransactionStatusChanged = "transaction.status_changed"

type TransactionEvent struct {
	Type              string          `json:"type"`
	ExternalReference string          `json:"externalReference"`
	Status            string          `json:"status"`
	PreviousStatus    string          `json:"previousStatus"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Provider          string          `json:"provider"`
	MerchantID        uint            `json:"merchantId"`
	OccurredAt        time.Time       `json:"occurredAt"`
}

// Publisher delivers transaction events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, key string, event TransactionEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, key string, event TransactionEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
