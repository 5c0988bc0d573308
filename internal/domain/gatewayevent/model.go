package gatewayevent

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/types"
)

// Record is an append-only ledger entry for an inbound gateway or fiscal
// callback. The idempotency key is unique; its presence means processed.
type Record struct {
	ID             string    `json:"id"`
	Gateway        string    `json:"gateway"`
	EventType      string    `json:"event_type"`
	TransactionID  string    `json:"transaction_id"`
	Payload        []byte    `json:"payload"`
	IdempotencyKey string    `json:"idempotency_key"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// NewRecord builds a ledger entry keyed gateway:transactionId:eventType
func NewRecord(gateway, eventType, transactionID string, payload []byte) *Record {
	return &Record{
		ID:             types.GenerateUUID(),
		Gateway:        gateway,
		EventType:      eventType,
		TransactionID:  transactionID,
		Payload:        payload,
		IdempotencyKey: idempotency.GatewayEventKey(gateway, transactionID, eventType),
		ProcessedAt:    time.Now().UTC(),
	}
}

// Repository is the ledger store. Create fails with ErrAlreadyExists on a
// duplicate key, which callers treat as an already processed event.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByIdempotencyKey(ctx context.Context, key string) (*Record, error)
}
