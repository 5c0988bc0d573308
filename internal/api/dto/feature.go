package dto

import (
	"time"

	"github.com/condohub/billing/internal/domain/feature"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
)

type SetTenantFeatureOverrideRequest struct {
	TenantID   string     `json:"tenant_id" validate:"required"`
	FeatureKey string     `json:"feature_key" validate:"required"`
	Value      string     `json:"value" validate:"required"`
	Reason     string     `json:"reason" validate:"required"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (r *SetTenantFeatureOverrideRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type RemoveTenantFeatureOverrideRequest struct {
	TenantID   string `json:"tenant_id" validate:"required"`
	FeatureKey string `json:"feature_key" validate:"required"`
}

func (r *RemoveTenantFeatureOverrideRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type FeatureOverrideResponse struct {
	ID         string                 `json:"id"`
	TenantID   string                 `json:"tenant_id"`
	FeatureID  string                 `json:"feature_id"`
	FeatureKey string                 `json:"feature_key"`
	Value      string                 `json:"value"`
	Reason     string                 `json:"reason"`
	Status     feature.OverrideStatus `json:"status"`
	ExpiresAt  *string                `json:"expires_at,omitempty"`
	CreatedBy  string                 `json:"created_by"`
	CreatedAt  string                 `json:"created_at"`
	RemovedAt  *string                `json:"removed_at,omitempty"`
}

func NewFeatureOverrideResponse(o *feature.Override, key string) *FeatureOverrideResponse {
	return &FeatureOverrideResponse{
		ID:         o.ID,
		TenantID:   o.TenantID,
		FeatureID:  o.FeatureID,
		FeatureKey: key,
		Value:      o.Value,
		Reason:     o.Reason,
		Status:     o.Status,
		ExpiresAt:  types.FormatTimePtr(o.ExpiresAt),
		CreatedBy:  o.CreatedBy,
		CreatedAt:  types.FormatTime(o.CreatedAt),
		RemovedAt:  types.FormatTimePtr(o.RemovedAt),
	}
}

// FeatureValueSource tells where a resolved feature value came from
type FeatureValueSource string

const (
	FeatureValueSourceOverride FeatureValueSource = "override"
	FeatureValueSourcePlan     FeatureValueSource = "plan"
	FeatureValueSourceNone     FeatureValueSource = "none"
)

// FeatureValueResponse is a resolved tenant feature. Value is nil when the
// tenant has no live subscription or the plan lacks the feature.
type FeatureValueResponse struct {
	TenantID string             `json:"tenant_id"`
	Key      string             `json:"key"`
	Value    *string            `json:"value"`
	Source   FeatureValueSource `json:"source"`
}
