package subscription

import "context"

// Repository defines the interface for subscription persistence operations
type Repository interface {
	// Create fails with ErrAlreadyExists when the tenant already holds an
	// active or trialing subscription
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	// GetActiveByTenantID returns the tenant's active or trialing subscription,
	// or ErrSubscriptionNotFound
	GetActiveByTenantID(ctx context.Context, tenantID string) (*Subscription, error)
}
