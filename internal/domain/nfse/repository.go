package nfse

import "context"

// Repository defines the interface for fiscal document persistence. Create
// fails with ErrAlreadyExists when the invoice already has a document.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	Update(ctx context.Context, d *Document) error
	GetByIdempotencyKey(ctx context.Context, key string) (*Document, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*Document, error)
}
