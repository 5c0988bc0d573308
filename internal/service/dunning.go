package service

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/dunning"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/subscription"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

type DunningService interface {
	ProcessDunning(ctx context.Context, now time.Time) (*dto.DunningResult, error)
}

type dunningService struct {
	ServiceParams
}

func NewDunningService(params ServiceParams) DunningService {
	return &dunningService{ServiceParams: params}
}

// ProcessDunning escalates the subscriptions of past due invoices according
// to the default policy. A failing invoice is recorded in the result and the
// run moves on to the next one.
func (s *dunningService) ProcessDunning(ctx context.Context, now time.Time) (*dto.DunningResult, error) {
	span, ctx := s.Sentry.StartJobSpan(ctx, "dunning")
	if span != nil {
		defer span.Finish()
	}

	result := &dto.DunningResult{}

	policy, err := s.DunningPolicyRepo.GetDefault(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Infow("no default dunning policy, skipping run")
			return result, nil
		}
		return nil, err
	}

	invoices, err := s.InvoiceRepo.ListPastDue(ctx)
	if err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		result.Processed++

		suspended, err := s.processInvoice(ctx, policy, inv, now)
		if err != nil {
			s.Logger.Errorw("dunning failed for invoice",
				"invoice_id", inv.ID,
				"subscription_id", inv.SubscriptionID,
				"tenant_id", inv.TenantID,
				"error", err,
			)
			s.Sentry.CaptureExceptionWithTags(err, map[string]string{
				"job":             "dunning",
				"invoice_id":      inv.ID,
				"subscription_id": inv.SubscriptionID,
				"tenant_id":       inv.TenantID,
			})
			result.Failed = append(result.Failed, inv.ID)
			continue
		}
		if suspended {
			result.Suspended++
		}
	}

	s.Logger.Infow("dunning run completed",
		"policy", policy.Name,
		"processed", result.Processed,
		"suspended", result.Suspended,
		"failed", len(result.Failed),
	)
	return result, nil
}

// processInvoice reports whether the invoice's subscription was freshly
// suspended
func (s *dunningService) processInvoice(ctx context.Context, policy *dunning.Policy, inv *invoice.Invoice, now time.Time) (bool, error) {
	daysPastDue := inv.DaysPastDue(now)

	failedAttempts, err := s.PaymentRepo.CountFailedByInvoiceID(ctx, inv.ID)
	if err != nil {
		return false, err
	}
	s.Logger.Debugw("dunning invoice",
		"invoice_id", inv.ID,
		"days_past_due", daysPastDue,
		"failed_attempts", failedAttempts,
	)

	if !policy.ShouldSuspend(daysPastDue) {
		return false, nil
	}

	var sub *subscription.Subscription
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.SubRepo.Get(ctx, inv.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status == types.SubscriptionStatusSuspended {
			return nil
		}
		if err := s.escalate(sub, now); err != nil {
			return err
		}
		if sub.Status != types.SubscriptionStatusSuspended {
			return nil
		}
		return s.SubRepo.Update(ctx, sub)
	})
	if err != nil {
		return false, err
	}

	evts := sub.PullEvents()
	if sub.Status != types.SubscriptionStatusSuspended || len(evts) == 0 {
		return false, nil
	}

	s.Logger.Infow("subscription suspended by dunning",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"invoice_id", inv.ID,
		"days_past_due", daysPastDue,
	)
	s.invalidateTenantFeatures(ctx, sub.TenantID)
	s.publishEvents(ctx, evts)
	return true, nil
}

// escalate walks Active -> PastDue -> GracePeriod -> Suspended, applying
// each step only from the state it starts at
func (s *dunningService) escalate(sub *subscription.Subscription, now time.Time) error {
	if sub.Status == types.SubscriptionStatusActive {
		if err := sub.MarkPastDue(); err != nil {
			return err
		}
	}
	if sub.Status == types.SubscriptionStatusPastDue {
		graceEnd := now.AddDate(0, 0, s.gracePeriodDays())
		if err := sub.StartGracePeriod(graceEnd); err != nil {
			return err
		}
	}
	if sub.Status == types.SubscriptionStatusGracePeriod {
		return sub.Suspend()
	}
	return nil
}

func (s *dunningService) gracePeriodDays() int {
	if s.Config.Billing.GracePeriodDays > 0 {
		return s.Config.Billing.GracePeriodDays
	}
	return 7
}
