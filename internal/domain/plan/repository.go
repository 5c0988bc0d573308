package plan

import (
	"context"

	"github.com/condohub/billing/internal/types"
)

// Repository defines the interface for plan persistence operations
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	// GetBySlug returns ErrPlanNotFound when no plan uses the slug
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	Update(ctx context.Context, plan *Plan) error
}

// VersionRepository persists plan versions
type VersionRepository interface {
	Create(ctx context.Context, version *Version) error
	Get(ctx context.Context, id string) (*Version, error)
	Update(ctx context.Context, version *Version) error
	// GetActiveByPlanID returns ErrPlanVersionNotFound when the plan has no active version
	GetActiveByPlanID(ctx context.Context, planID string) (*Version, error)
	// GetLatestNumber returns 0 for a plan without versions
	GetLatestNumber(ctx context.Context, planID string) (int, error)
}

// PriceRepository persists version prices, unique per (version, cycle)
type PriceRepository interface {
	Create(ctx context.Context, price *Price) error
	GetByVersionAndCycle(ctx context.Context, versionID string, cycle types.BillingCycle) (*Price, error)
	ListByVersionID(ctx context.Context, versionID string) ([]*Price, error)
}

// FeatureRepository persists version features, unique per (version, key)
type FeatureRepository interface {
	Create(ctx context.Context, feature *Feature) error
	Get(ctx context.Context, id string) (*Feature, error)
	GetByVersionAndKey(ctx context.Context, versionID, key string) (*Feature, error)
	ListByVersionID(ctx context.Context, versionID string) ([]*Feature, error)
}
