package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/nfse"
	ierr "github.com/condohub/billing/internal/errors"
)

// InMemoryNFSeStore implements nfse.Repository
type InMemoryNFSeStore struct {
	*InMemoryStore[*nfse.Document]
}

func NewInMemoryNFSeStore() *InMemoryNFSeStore {
	return &InMemoryNFSeStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrNFSeNotFound, func(d *nfse.Document) *nfse.Document {
			c := *d
			c.Outbox = events.Outbox{}
			return &c
		}),
	}
}

func (s *InMemoryNFSeStore) Create(ctx context.Context, d *nfse.Document) error {
	return s.CreateUnique(ctx, d.ID, d, func(existing *nfse.Document) bool {
		return existing.InvoiceID == d.InvoiceID || existing.IdempotencyKey == d.IdempotencyKey
	})
}

func (s *InMemoryNFSeStore) Get(ctx context.Context, id string) (*nfse.Document, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryNFSeStore) Update(ctx context.Context, d *nfse.Document) error {
	return s.InMemoryStore.Update(ctx, d.ID, d)
}

func (s *InMemoryNFSeStore) GetByIdempotencyKey(ctx context.Context, key string) (*nfse.Document, error) {
	return s.Find(ctx, func(d *nfse.Document) bool { return d.IdempotencyKey == key }, nil)
}

func (s *InMemoryNFSeStore) GetByProviderRef(ctx context.Context, providerRef string) (*nfse.Document, error) {
	return s.Find(ctx, func(d *nfse.Document) bool {
		return d.ProviderRef != nil && *d.ProviderRef == providerRef
	}, nil)
}
