package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/subscription"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrSubscriptionNotFound, copySubscription),
	}
}

func copySubscription(s *subscription.Subscription) *subscription.Subscription {
	c := *s
	c.Outbox = events.Outbox{}
	return &c
}

func isLive(s *subscription.Subscription) bool {
	return s.Status == types.SubscriptionStatusActive || s.Status == types.SubscriptionStatusTrialing
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	return s.CreateUnique(ctx, sub.ID, sub, func(existing *subscription.Subscription) bool {
		return existing.TenantID == sub.TenantID && isLive(existing) && isLive(sub)
	})
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	return s.UpdateUnique(ctx, sub.ID, sub, func(existing *subscription.Subscription) bool {
		return existing.TenantID == sub.TenantID && isLive(existing) && isLive(sub)
	})
}

func (s *InMemorySubscriptionStore) GetActiveByTenantID(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	return s.Find(ctx, func(sub *subscription.Subscription) bool {
		return sub.TenantID == tenantID && isLive(sub)
	}, func(i, j *subscription.Subscription) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}
