package plan

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
)

// Plan is a sellable catalog entry. Its slug is stable across versions.
type Plan struct {
	ID          string           `json:"id"`
	Name        string           `json:"name" validate:"required"`
	Slug        string           `json:"slug" validate:"required"`
	Description string           `json:"description"`
	Status      types.PlanStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CreatedBy   string           `json:"created_by"`
}

// NewPlan creates an active plan
func NewPlan(ctx context.Context, name, slug, description string) (*Plan, error) {
	now := time.Now().UTC()
	p := &Plan{
		ID:          types.GenerateUUID(),
		Name:        name,
		Slug:        slug,
		Description: description,
		Status:      types.PlanStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   types.GetUserID(ctx),
	}
	if err := validator.ValidateRequest(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) Activate() error {
	return p.transitionTo(types.PlanStatusActive)
}

func (p *Plan) Deactivate() error {
	return p.transitionTo(types.PlanStatusInactive)
}

// Archive retires the plan permanently
func (p *Plan) Archive() error {
	return p.transitionTo(types.PlanStatusArchived)
}

// IsSellable reports whether new subscriptions may be bound to the plan
func (p *Plan) IsSellable() bool {
	return p.Status == types.PlanStatusActive
}

func (p *Plan) transitionTo(target types.PlanStatus) error {
	if err := types.PlanTransitions.Check(p.Status, target, ierr.ErrInvalidPlanTransition); err != nil {
		return err
	}
	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Version is an immutable snapshot of a plan's prices and features. Only
// deactivation mutates it.
type Version struct {
	ID        string                  `json:"id"`
	PlanID    string                  `json:"plan_id"`
	Version   int                     `json:"version"`
	Status    types.PlanVersionStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewVersion creates the active version number n of planID
func NewVersion(planID string, n int) *Version {
	return &Version{
		ID:        types.GenerateUUID(),
		PlanID:    planID,
		Version:   n,
		Status:    types.PlanVersionStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func (v *Version) IsActive() bool {
	return v.Status == types.PlanVersionStatusActive
}

// Deactivate supersedes the version. Deactivating twice is a no-op.
func (v *Version) Deactivate() {
	v.Status = types.PlanVersionStatusInactive
}

// Price is the price of a version for one billing cycle
type Price struct {
	ID            string             `json:"id"`
	PlanVersionID string             `json:"plan_version_id"`
	BillingCycle  types.BillingCycle `json:"billing_cycle"`
	Price         money.Money        `json:"-"`
	TrialDays     int                `json:"trial_days"`
}

// NewPrice validates and builds a version price
func NewPrice(versionID string, cycle types.BillingCycle, price money.Money, trialDays int) (*Price, error) {
	if err := cycle.Validate(); err != nil {
		return nil, err
	}
	if err := price.Validate(); err != nil {
		return nil, err
	}
	if price.IsNegative() || trialDays < 0 {
		return nil, ierr.NewError("price and trial days must not be negative").
			WithHint("Price amount and trial days must be zero or positive").
			WithReportableDetails(map[string]any{
				"amount":     price.Amount(),
				"trial_days": trialDays,
			}).
			Mark(ierr.ErrValidation)
	}
	return &Price{
		ID:            types.GenerateUUID(),
		PlanVersionID: versionID,
		BillingCycle:  cycle,
		Price:         price,
		TrialDays:     trialDays,
	}, nil
}

// Feature is a keyed entitlement value on a plan version
type Feature struct {
	ID            string            `json:"id"`
	PlanVersionID string            `json:"plan_version_id"`
	Key           string            `json:"key"`
	Value         string            `json:"value"`
	Type          types.FeatureType `json:"type"`
}

// NewFeature validates the declared type against the value
func NewFeature(versionID, key, value string, featureType types.FeatureType) (*Feature, error) {
	if key == "" {
		return nil, ierr.NewError("feature key is required").
			WithHint("Feature key is required").
			Mark(ierr.ErrValidation)
	}
	if err := featureType.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateFeatureValue(featureType, value); err != nil {
		return nil, err
	}
	return &Feature{
		ID:            types.GenerateUUID(),
		PlanVersionID: versionID,
		Key:           key,
		Value:         value,
		Type:          featureType,
	}, nil
}
