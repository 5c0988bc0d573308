package subscription

import (
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/period"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

const aggregateType = "subscription"

// Subscription binds a tenant to one plan version across billing periods
type Subscription struct {
	ID             string                   `json:"id"`
	TenantID       string                   `json:"tenant_id"`
	PlanVersionID  string                   `json:"plan_version_id"`
	Status         types.SubscriptionStatus `json:"status"`
	BillingCycle   types.BillingCycle       `json:"billing_cycle"`
	CurrentPeriod  period.Period            `json:"current_period"`
	TrialEnd       *time.Time               `json:"trial_end,omitempty"`
	GracePeriodEnd *time.Time               `json:"grace_period_end,omitempty"`
	CanceledAt     *time.Time               `json:"canceled_at,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`

	events.Outbox `json:"-"`
}

// New starts a subscription at now. A positive trial makes the first period
// the trial window and the subscription starts Trialing.
func New(tenantID, planVersionID string, cycle types.BillingCycle, trialDays int, now time.Time) *Subscription {
	now = now.UTC()
	s := &Subscription{
		ID:            types.GenerateUUID(),
		TenantID:      tenantID,
		PlanVersionID: planVersionID,
		Status:        types.SubscriptionStatusActive,
		BillingCycle:  cycle,
		CurrentPeriod: period.ForCycle(now, cycle),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if trialDays > 0 {
		trialEnd := now.AddDate(0, 0, trialDays)
		s.Status = types.SubscriptionStatusTrialing
		s.TrialEnd = &trialEnd
		s.CurrentPeriod = period.Period{Start: now, End: trialEnd}
	}
	s.record(events.SubscriptionCreated, map[string]any{
		"plan_version_id": planVersionID,
		"status":          s.Status,
		"billing_cycle":   cycle,
	})
	return s
}

// Activate converts a trial or reinstates a subscription that was in grace
// period or suspended
func (s *Subscription) Activate() error {
	from := s.Status
	if err := s.transitionTo(types.SubscriptionStatusActive); err != nil {
		return err
	}
	s.GracePeriodEnd = nil
	s.record(events.SubscriptionActivated, map[string]any{"from": from})
	return nil
}

// MarkPastDue flags an Active subscription with an unpaid invoice
func (s *Subscription) MarkPastDue() error {
	if err := s.transitionTo(types.SubscriptionStatusPastDue); err != nil {
		return err
	}
	s.record(events.SubscriptionPastDue, nil)
	return nil
}

// StartGracePeriod keeps service running until end
func (s *Subscription) StartGracePeriod(end time.Time) error {
	if err := s.transitionTo(types.SubscriptionStatusGracePeriod); err != nil {
		return err
	}
	end = end.UTC()
	s.GracePeriodEnd = &end
	s.record(events.SubscriptionGracePeriodStarted, map[string]any{"grace_period_end": end})
	return nil
}

func (s *Subscription) Suspend() error {
	if err := s.transitionTo(types.SubscriptionStatusSuspended); err != nil {
		return err
	}
	s.record(events.SubscriptionSuspended, nil)
	return nil
}

// Cancel ends the subscription. canceled_at is written once since Canceled
// is terminal.
func (s *Subscription) Cancel(now time.Time) error {
	if err := s.transitionTo(types.SubscriptionStatusCanceled); err != nil {
		return err
	}
	now = now.UTC()
	s.CanceledAt = &now
	s.record(events.SubscriptionCanceled, map[string]any{"canceled_at": now})
	return nil
}

func (s *Subscription) Expire() error {
	if err := s.transitionTo(types.SubscriptionStatusExpired); err != nil {
		return err
	}
	s.record(events.SubscriptionExpired, nil)
	return nil
}

// Renew moves an Active subscription into newPeriod
func (s *Subscription) Renew(newPeriod period.Period) error {
	if s.Status != types.SubscriptionStatusActive {
		return ierr.NewError("only active subscriptions can be renewed").
			WithHint("Subscription must be active to renew").
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
				"status":          s.Status,
			}).
			Mark(ierr.ErrSubscriptionNotActive)
	}
	s.CurrentPeriod = newPeriod
	s.GracePeriodEnd = nil
	s.touch()
	s.record(events.SubscriptionRenewed, map[string]any{
		"period_start": newPeriod.Start,
		"period_end":   newPeriod.End,
	})
	return nil
}

// ChangePlan rebinds the plan version. The billing period is kept.
func (s *Subscription) ChangePlan(planVersionID string) error {
	if !s.Status.IsOperational() {
		return ierr.NewError("subscription is not operational").
			WithHint("Plan can only be changed on an operational subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
				"status":          s.Status,
			}).
			Mark(ierr.ErrSubscriptionNotOperational)
	}
	if s.PlanVersionID == planVersionID {
		return ierr.NewError("subscription already on plan version").
			WithHint("Subscription is already on this plan version").
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
				"plan_version_id": planVersionID,
			}).
			Mark(ierr.ErrPlanVersionSame)
	}
	from := s.PlanVersionID
	s.PlanVersionID = planVersionID
	s.touch()
	s.record(events.SubscriptionPlanChanged, map[string]any{
		"from_plan_version_id": from,
		"to_plan_version_id":   planVersionID,
	})
	return nil
}

func (s *Subscription) transitionTo(target types.SubscriptionStatus) error {
	if err := types.SubscriptionTransitions.Check(s.Status, target, ierr.ErrInvalidSubscriptionTransition); err != nil {
		return err
	}
	s.Status = target
	s.touch()
	return nil
}

func (s *Subscription) touch() {
	s.UpdatedAt = time.Now().UTC()
}

func (s *Subscription) record(name string, payload map[string]any) {
	s.Record(events.NewDomainEvent(name, s.TenantID, aggregateType, s.ID, payload))
}
