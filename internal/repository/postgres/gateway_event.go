package postgres

import (
	"context"

	"github.com/condohub/billing/internal/domain/gatewayevent"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
)

type gatewayEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewGatewayEventRepository(db *postgres.DB, logger *logger.Logger) gatewayevent.Repository {
	return &gatewayEventRepository{db: db, logger: logger}
}

// Create appends to the ledger. A replayed event leaves the row untouched and
// surfaces as ErrAlreadyExists; the conflict is absorbed by ON CONFLICT so the
// surrounding transaction stays usable.
func (r *gatewayEventRepository) Create(ctx context.Context, record *gatewayevent.Record) error {
	details := map[string]any{"idempotency_key": record.IdempotencyKey}
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		INSERT INTO gateway_events (id, gateway, event_type, transaction_id, payload, idempotency_key, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		record.ID,
		record.Gateway,
		record.EventType,
		record.TransactionID,
		record.Payload,
		record.IdempotencyKey,
		record.ProcessedAt,
	)
	if err != nil {
		return wrapError(err, ierr.ErrNotFound, details)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return wrapError(err, ierr.ErrNotFound, details)
	}
	if inserted == 0 {
		return ierr.NewError("gateway event already recorded").
			WithHint("Event already processed").
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	}

	r.logger.Debugw("recorded gateway event",
		"gateway", record.Gateway,
		"event_type", record.EventType,
		"idempotency_key", record.IdempotencyKey,
	)
	return nil
}

func (r *gatewayEventRepository) GetByIdempotencyKey(ctx context.Context, key string) (*gatewayevent.Record, error) {
	var record gatewayevent.Record
	err := r.db.GetQuerier(ctx).QueryRowxContext(ctx, `
		SELECT id, gateway, event_type, transaction_id, payload, idempotency_key, processed_at
		FROM gateway_events WHERE idempotency_key = $1`, key).
		Scan(
			&record.ID,
			&record.Gateway,
			&record.EventType,
			&record.TransactionID,
			&record.Payload,
			&record.IdempotencyKey,
			&record.ProcessedAt,
		)
	if err != nil {
		return nil, wrapError(err, ierr.ErrNotFound, map[string]any{"idempotency_key": key})
	}
	return &record, nil
}
