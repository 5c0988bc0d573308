package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/gatewayevent"
	ierr "github.com/condohub/billing/internal/errors"
)

// InMemoryGatewayEventStore implements gatewayevent.Repository
type InMemoryGatewayEventStore struct {
	*InMemoryStore[*gatewayevent.Record]
}

func NewInMemoryGatewayEventStore() *InMemoryGatewayEventStore {
	return &InMemoryGatewayEventStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrNotFound, func(r *gatewayevent.Record) *gatewayevent.Record {
			c := *r
			c.Payload = append([]byte(nil), r.Payload...)
			return &c
		}),
	}
}

func (s *InMemoryGatewayEventStore) Create(ctx context.Context, r *gatewayevent.Record) error {
	return s.CreateUnique(ctx, r.ID, r, func(existing *gatewayevent.Record) bool {
		return existing.IdempotencyKey == r.IdempotencyKey
	})
}

func (s *InMemoryGatewayEventStore) GetByIdempotencyKey(ctx context.Context, key string) (*gatewayevent.Record, error) {
	return s.Find(ctx, func(r *gatewayevent.Record) bool { return r.IdempotencyKey == key }, nil)
}

// Len returns the number of ledger entries
func (s *InMemoryGatewayEventStore) Len() int {
	return s.Count(context.Background(), nil)
}
