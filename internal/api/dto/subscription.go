package dto

import (
	"github.com/condohub/billing/internal/domain/subscription"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
)

type CreateSubscriptionRequest struct {
	TenantID      string             `json:"tenant_id" validate:"required"`
	PlanVersionID string             `json:"plan_version_id" validate:"required"`
	BillingCycle  types.BillingCycle `json:"billing_cycle" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.BillingCycle.Validate()
}

type ChangeSubscriptionPlanRequest struct {
	PlanVersionID string `json:"plan_version_id" validate:"required"`
}

func (r *ChangeSubscriptionPlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type SubscriptionResponse struct {
	ID                 string                   `json:"id"`
	TenantID           string                   `json:"tenant_id"`
	PlanVersionID      string                   `json:"plan_version_id"`
	Status             types.SubscriptionStatus `json:"status"`
	BillingCycle       types.BillingCycle       `json:"billing_cycle"`
	CurrentPeriodStart string                   `json:"current_period_start"`
	CurrentPeriodEnd   string                   `json:"current_period_end"`
	TrialEnd           *string                  `json:"trial_end,omitempty"`
	GracePeriodEnd     *string                  `json:"grace_period_end,omitempty"`
	CanceledAt         *string                  `json:"canceled_at,omitempty"`
	CreatedAt          string                   `json:"created_at"`
	UpdatedAt          string                   `json:"updated_at"`
}

func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                 s.ID,
		TenantID:           s.TenantID,
		PlanVersionID:      s.PlanVersionID,
		Status:             s.Status,
		BillingCycle:       s.BillingCycle,
		CurrentPeriodStart: types.FormatTime(s.CurrentPeriod.Start),
		CurrentPeriodEnd:   types.FormatTime(s.CurrentPeriod.End),
		TrialEnd:           types.FormatTimePtr(s.TrialEnd),
		GracePeriodEnd:     types.FormatTimePtr(s.GracePeriodEnd),
		CanceledAt:         types.FormatTimePtr(s.CanceledAt),
		CreatedAt:          types.FormatTime(s.CreatedAt),
		UpdatedAt:          types.FormatTime(s.UpdatedAt),
	}
}
