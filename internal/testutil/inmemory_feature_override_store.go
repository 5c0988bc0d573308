package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/feature"
	ierr "github.com/condohub/billing/internal/errors"
)

// InMemoryFeatureOverrideStore implements feature.OverrideRepository
type InMemoryFeatureOverrideStore struct {
	*InMemoryStore[*feature.Override]
}

func NewInMemoryFeatureOverrideStore() *InMemoryFeatureOverrideStore {
	return &InMemoryFeatureOverrideStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrFeatureOverrideNotFound, func(o *feature.Override) *feature.Override {
			c := *o
			return &c
		}),
	}
}

func overrideConflicts(o *feature.Override) FilterFunc[*feature.Override] {
	return func(existing *feature.Override) bool {
		return existing.TenantID == o.TenantID &&
			existing.FeatureID == o.FeatureID &&
			existing.Status == feature.OverrideStatusActive &&
			o.Status == feature.OverrideStatusActive
	}
}

func (s *InMemoryFeatureOverrideStore) Create(ctx context.Context, o *feature.Override) error {
	return s.CreateUnique(ctx, o.ID, o, overrideConflicts(o))
}

func (s *InMemoryFeatureOverrideStore) Update(ctx context.Context, o *feature.Override) error {
	return s.UpdateUnique(ctx, o.ID, o, overrideConflicts(o))
}

func (s *InMemoryFeatureOverrideStore) GetActive(ctx context.Context, tenantID, featureID string) (*feature.Override, error) {
	return s.Find(ctx, func(o *feature.Override) bool {
		return o.TenantID == tenantID && o.FeatureID == featureID && o.Status == feature.OverrideStatusActive
	}, nil)
}
