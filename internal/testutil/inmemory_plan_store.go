package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/plan"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrPlanNotFound, func(p *plan.Plan) *plan.Plan {
			c := *p
			return &c
		}),
	}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	return s.CreateUnique(ctx, p.ID, p, func(existing *plan.Plan) bool {
		return existing.Slug == p.Slug
	})
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPlanStore) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	return s.Find(ctx, func(p *plan.Plan) bool { return p.Slug == slug }, nil)
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	return s.InMemoryStore.Update(ctx, p.ID, p)
}

// InMemoryPlanVersionStore implements plan.VersionRepository
type InMemoryPlanVersionStore struct {
	*InMemoryStore[*plan.Version]
}

func NewInMemoryPlanVersionStore() *InMemoryPlanVersionStore {
	return &InMemoryPlanVersionStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrPlanVersionNotFound, func(v *plan.Version) *plan.Version {
			c := *v
			return &c
		}),
	}
}

// Create enforces unique (plan, version) and a single active version per plan
func (s *InMemoryPlanVersionStore) Create(ctx context.Context, v *plan.Version) error {
	return s.CreateUnique(ctx, v.ID, v, func(existing *plan.Version) bool {
		return existing.PlanID == v.PlanID &&
			(existing.Version == v.Version || (existing.IsActive() && v.IsActive()))
	})
}

func (s *InMemoryPlanVersionStore) Get(ctx context.Context, id string) (*plan.Version, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPlanVersionStore) Update(ctx context.Context, v *plan.Version) error {
	return s.UpdateUnique(ctx, v.ID, v, func(existing *plan.Version) bool {
		return existing.PlanID == v.PlanID && existing.IsActive() && v.IsActive()
	})
}

func (s *InMemoryPlanVersionStore) GetActiveByPlanID(ctx context.Context, planID string) (*plan.Version, error) {
	return s.Find(ctx, func(v *plan.Version) bool {
		return v.PlanID == planID && v.IsActive()
	}, nil)
}

func (s *InMemoryPlanVersionStore) GetLatestNumber(ctx context.Context, planID string) (int, error) {
	latest := 0
	for _, v := range s.List(ctx, func(v *plan.Version) bool { return v.PlanID == planID }, nil) {
		latest = max(latest, v.Version)
	}
	return latest, nil
}

// InMemoryPlanPriceStore implements plan.PriceRepository
type InMemoryPlanPriceStore struct {
	*InMemoryStore[*plan.Price]
}

func NewInMemoryPlanPriceStore() *InMemoryPlanPriceStore {
	return &InMemoryPlanPriceStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrPlanVersionNotAvailable, func(p *plan.Price) *plan.Price {
			c := *p
			return &c
		}),
	}
}

func (s *InMemoryPlanPriceStore) Create(ctx context.Context, p *plan.Price) error {
	return s.CreateUnique(ctx, p.ID, p, func(existing *plan.Price) bool {
		return existing.PlanVersionID == p.PlanVersionID && existing.BillingCycle == p.BillingCycle
	})
}

func (s *InMemoryPlanPriceStore) GetByVersionAndCycle(ctx context.Context, versionID string, cycle types.BillingCycle) (*plan.Price, error) {
	return s.Find(ctx, func(p *plan.Price) bool {
		return p.PlanVersionID == versionID && p.BillingCycle == cycle
	}, nil)
}

func (s *InMemoryPlanPriceStore) ListByVersionID(ctx context.Context, versionID string) ([]*plan.Price, error) {
	return s.List(ctx, func(p *plan.Price) bool { return p.PlanVersionID == versionID },
		func(i, j *plan.Price) bool { return i.BillingCycle < j.BillingCycle }), nil
}

// InMemoryPlanFeatureStore implements plan.FeatureRepository
type InMemoryPlanFeatureStore struct {
	*InMemoryStore[*plan.Feature]
}

func NewInMemoryPlanFeatureStore() *InMemoryPlanFeatureStore {
	return &InMemoryPlanFeatureStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrFeatureNotFound, func(f *plan.Feature) *plan.Feature {
			c := *f
			return &c
		}),
	}
}

func (s *InMemoryPlanFeatureStore) Create(ctx context.Context, f *plan.Feature) error {
	return s.CreateUnique(ctx, f.ID, f, func(existing *plan.Feature) bool {
		return existing.PlanVersionID == f.PlanVersionID && existing.Key == f.Key
	})
}

func (s *InMemoryPlanFeatureStore) Get(ctx context.Context, id string) (*plan.Feature, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPlanFeatureStore) GetByVersionAndKey(ctx context.Context, versionID, key string) (*plan.Feature, error) {
	return s.Find(ctx, func(f *plan.Feature) bool {
		return f.PlanVersionID == versionID && f.Key == key
	}, nil)
}

func (s *InMemoryPlanFeatureStore) ListByVersionID(ctx context.Context, versionID string) ([]*plan.Feature, error) {
	return s.List(ctx, func(f *plan.Feature) bool { return f.PlanVersionID == versionID },
		func(i, j *plan.Feature) bool { return i.Key < j.Key }), nil
}
