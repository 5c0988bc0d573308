package dto

import (
	"context"

	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/plan"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
	"github.com/samber/lo"
)

type CreatePlanRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"required,max=100"`
	Description string `json:"description"`
}

func (r *CreatePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreatePlanRequest) ToPlan(ctx context.Context) (*plan.Plan, error) {
	return plan.NewPlan(ctx, r.Name, r.Slug, r.Description)
}

type CreatePlanPriceRequest struct {
	BillingCycle types.BillingCycle `json:"billing_cycle" validate:"required"`
	Amount       int64              `json:"amount" validate:"gte=0"`
	Currency     string             `json:"currency" validate:"required,len=3"`
	TrialDays    int                `json:"trial_days" validate:"gte=0"`
}

func (r *CreatePlanPriceRequest) ToPrice(versionID string) (*plan.Price, error) {
	return plan.NewPrice(versionID, r.BillingCycle, money.New(r.Amount, r.Currency), r.TrialDays)
}

type CreatePlanFeatureRequest struct {
	Key   string            `json:"key" validate:"required"`
	Value string            `json:"value"`
	Type  types.FeatureType `json:"type" validate:"required"`
}

func (r *CreatePlanFeatureRequest) ToFeature(versionID string) (*plan.Feature, error) {
	return plan.NewFeature(versionID, r.Key, r.Value, r.Type)
}

// CreatePlanVersionRequest creates a new active version of a plan along with
// its prices and features
type CreatePlanVersionRequest struct {
	PlanID   string                     `json:"plan_id" validate:"required"`
	Prices   []CreatePlanPriceRequest   `json:"prices" validate:"required,min=1,dive"`
	Features []CreatePlanFeatureRequest `json:"features" validate:"dive"`
}

func (r *CreatePlanVersionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type PlanResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Status      types.PlanStatus `json:"status"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

func NewPlanResponse(p *plan.Plan) *PlanResponse {
	return &PlanResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   types.FormatTime(p.CreatedAt),
		UpdatedAt:   types.FormatTime(p.UpdatedAt),
	}
}

type PlanPriceResponse struct {
	ID           string             `json:"id"`
	BillingCycle types.BillingCycle `json:"billing_cycle"`
	Amount       int64              `json:"amount"`
	Currency     string             `json:"currency"`
	TrialDays    int                `json:"trial_days"`
}

type PlanFeatureResponse struct {
	ID    string            `json:"id"`
	Key   string            `json:"key"`
	Value string            `json:"value"`
	Type  types.FeatureType `json:"type"`
}

type PlanVersionResponse struct {
	ID        string                  `json:"id"`
	PlanID    string                  `json:"plan_id"`
	Version   int                     `json:"version"`
	Status    types.PlanVersionStatus `json:"status"`
	Prices    []PlanPriceResponse     `json:"prices"`
	Features  []PlanFeatureResponse   `json:"features"`
	CreatedAt string                  `json:"created_at"`
}

func NewPlanVersionResponse(v *plan.Version, prices []*plan.Price, features []*plan.Feature) *PlanVersionResponse {
	return &PlanVersionResponse{
		ID:      v.ID,
		PlanID:  v.PlanID,
		Version: v.Version,
		Status:  v.Status,
		Prices: lo.Map(prices, func(p *plan.Price, _ int) PlanPriceResponse {
			return PlanPriceResponse{
				ID:           p.ID,
				BillingCycle: p.BillingCycle,
				Amount:       p.Price.Amount(),
				Currency:     p.Price.Currency(),
				TrialDays:    p.TrialDays,
			}
		}),
		Features: lo.Map(features, func(f *plan.Feature, _ int) PlanFeatureResponse {
			return PlanFeatureResponse{ID: f.ID, Key: f.Key, Value: f.Value, Type: f.Type}
		}),
		CreatedAt: types.FormatTime(v.CreatedAt),
	}
}
