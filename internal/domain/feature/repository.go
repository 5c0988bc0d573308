package feature

import "context"

// OverrideRepository persists tenant feature overrides. Create fails with
// ErrAlreadyExists when an active override exists for the same pair.
type OverrideRepository interface {
	Create(ctx context.Context, override *Override) error
	Update(ctx context.Context, override *Override) error
	// GetActive returns ErrFeatureOverrideNotFound when there is no active
	// override for the pair. Time based expiry is not applied here.
	GetActive(ctx context.Context, tenantID, featureID string) (*Override, error)
}
