package feature

import (
	"context"
	"time"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// OverrideStatus marks whether an override row is the live one for its
// (tenant, feature) pair. Only one active row may exist per pair.
type OverrideStatus string

const (
	OverrideStatusActive  OverrideStatus = "active"
	OverrideStatusRemoved OverrideStatus = "removed"
)

// Override replaces a plan feature value for a single tenant
type Override struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	FeatureID string         `json:"feature_id"`
	Value     string         `json:"value"`
	Reason    string         `json:"reason"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Status    OverrideStatus `json:"status"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	RemovedAt *time.Time     `json:"removed_at,omitempty"`
}

// NewOverride builds an active override. reason is required for auditing.
func NewOverride(ctx context.Context, tenantID, featureID, value, reason string, expiresAt *time.Time) (*Override, error) {
	if err := validateOverride(tenantID, value, reason); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Override{
		ID:        types.GenerateUUID(),
		TenantID:  tenantID,
		FeatureID: featureID,
		Value:     value,
		Reason:    reason,
		ExpiresAt: expiresAt,
		Status:    OverrideStatusActive,
		CreatedBy: types.GetUserID(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Replace updates the live override in place
func (o *Override) Replace(value, reason string, expiresAt *time.Time) error {
	if err := validateOverride(o.TenantID, value, reason); err != nil {
		return err
	}
	o.Value = value
	o.Reason = reason
	o.ExpiresAt = expiresAt
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Remove retires the override. The row is kept for audit.
func (o *Override) Remove(at time.Time) {
	o.Status = OverrideStatusRemoved
	o.RemovedAt = &at
	o.UpdatedAt = at
}

// IsEffective reports whether the override applies at now
func (o *Override) IsEffective(now time.Time) bool {
	if o.Status != OverrideStatusActive {
		return false
	}
	return o.ExpiresAt == nil || o.ExpiresAt.After(now)
}

func validateOverride(tenantID, value, reason string) error {
	if tenantID == "" || value == "" || reason == "" {
		return ierr.NewError("tenant, value and reason are required").
			WithHint("A feature override requires a tenant, a value and a reason").
			WithReportableDetails(map[string]any{
				"tenant_id": tenantID,
				"value":     value,
				"reason":    reason,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
