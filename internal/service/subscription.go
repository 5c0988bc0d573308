package service

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/plan"
	"github.com/condohub/billing/internal/domain/subscription"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
)

type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	RenewSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ChangeSubscriptionPlan(ctx context.Context, id string, req dto.ChangeSubscriptionPlanRequest) (*dto.SubscriptionResponse, error)
	ActivateSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ReactivateSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

// CreateSubscription binds a tenant to a sellable plan version. A tenant has
// at most one active or trialing subscription: when one exists it is
// returned as is.
func (s *subscriptionService) CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.SubRepo.GetActiveByTenantID(ctx, req.TenantID)
	if err == nil {
		s.Logger.Infow("tenant already subscribed, returning existing subscription",
			"tenant_id", req.TenantID,
			"subscription_id", existing.ID,
		)
		return dto.NewSubscriptionResponse(existing), nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	price, err := s.sellablePrice(ctx, req.PlanVersionID, req.BillingCycle)
	if err != nil {
		return nil, err
	}

	sub := subscription.New(req.TenantID, req.PlanVersionID, req.BillingCycle, price.TrialDays, time.Now())
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		if ierr.IsAlreadyExists(err) {
			// lost a race against a concurrent create for the same tenant
			existing, getErr := s.SubRepo.GetActiveByTenantID(ctx, req.TenantID)
			if getErr != nil {
				return nil, getErr
			}
			return dto.NewSubscriptionResponse(existing), nil
		}
		return nil, err
	}

	s.Logger.Infow("subscription created",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"plan_version_id", sub.PlanVersionID,
		"status", sub.Status,
	)
	s.invalidateTenantFeatures(ctx, sub.TenantID)
	s.publishEvents(ctx, sub.PullEvents())
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, func(sub *subscription.Subscription) error {
		return sub.Cancel(time.Now())
	})
}

// RenewSubscription advances an active subscription to its next period
func (s *subscriptionService) RenewSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, func(sub *subscription.Subscription) error {
		return sub.Renew(sub.CurrentPeriod.Next(sub.BillingCycle))
	})
}

func (s *subscriptionService) ChangeSubscriptionPlan(ctx context.Context, id string, req dto.ChangeSubscriptionPlanRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(sub *subscription.Subscription) error {
		if sub.PlanVersionID != req.PlanVersionID {
			if _, err := s.sellablePrice(ctx, req.PlanVersionID, sub.BillingCycle); err != nil {
				return err
			}
		}
		return sub.ChangePlan(req.PlanVersionID)
	})
}

// ActivateSubscription converts a trial into a paying subscription
func (s *subscriptionService) ActivateSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, func(sub *subscription.Subscription) error {
		if sub.Status != types.SubscriptionStatusTrialing {
			return invalidSubscriptionActivation(sub, types.SubscriptionStatusTrialing)
		}
		return sub.Activate()
	})
}

// ReactivateSubscription reinstates a subscription held in grace period or
// suspended, typically once the overdue invoice is settled
func (s *subscriptionService) ReactivateSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, func(sub *subscription.Subscription) error {
		if sub.Status != types.SubscriptionStatusGracePeriod && sub.Status != types.SubscriptionStatusSuspended {
			return invalidSubscriptionActivation(sub,
				types.SubscriptionStatusGracePeriod,
				types.SubscriptionStatusSuspended,
			)
		}
		return sub.Activate()
	})
}

// mutate loads, applies fn and persists a subscription in one transaction.
// Events are published and the tenant's feature cache dropped after commit.
func (s *subscriptionService) mutate(ctx context.Context, id string, fn func(sub *subscription.Subscription) error) (*dto.SubscriptionResponse, error) {
	var sub *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.SubRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(sub); err != nil {
			return err
		}
		return s.SubRepo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	evts := sub.PullEvents()
	s.Logger.Infow("subscription updated",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"status", sub.Status,
		"events", len(evts),
	)
	s.invalidateTenantFeatures(ctx, sub.TenantID)
	s.publishEvents(ctx, evts)
	return dto.NewSubscriptionResponse(sub), nil
}

// sellablePrice returns the price of an active version of a sellable plan
// for the cycle, or ErrPlanVersionNotAvailable
func (s *subscriptionService) sellablePrice(ctx context.Context, versionID string, cycle types.BillingCycle) (*plan.Price, error) {
	version, err := s.PlanVersionRepo.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	p, err := s.PlanRepo.Get(ctx, version.PlanID)
	if err != nil {
		return nil, err
	}
	if !version.IsActive() || !p.IsSellable() {
		return nil, ierr.NewError("plan version is not available").
			WithHint("The selected plan version is no longer available for new subscriptions").
			WithReportableDetails(map[string]any{
				"plan_id":         p.ID,
				"plan_version_id": version.ID,
				"plan_status":     p.Status,
				"version_status":  version.Status,
			}).
			Mark(ierr.ErrPlanVersionNotAvailable)
	}
	return s.PlanPriceRepo.GetByVersionAndCycle(ctx, version.ID, cycle)
}

func invalidSubscriptionActivation(sub *subscription.Subscription, from ...types.SubscriptionStatus) error {
	return ierr.NewError("subscription cannot be activated from its current status").
		WithHintf("Subscription in status %s cannot be activated", sub.Status).
		WithReportableDetails(map[string]any{
			"subscription_id": sub.ID,
			"current":         sub.Status,
			"target":          types.SubscriptionStatusActive,
			"allowed_from":    lo.Map(from, func(st types.SubscriptionStatus, _ int) string { return st.String() }),
		}).
		Mark(ierr.ErrInvalidSubscriptionTransition)
}
