package types

import (
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the lifecycle state of a tenant subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing    SubscriptionStatus = "trialing"
	SubscriptionStatusActive      SubscriptionStatus = "active"
	SubscriptionStatusPastDue     SubscriptionStatus = "past_due"
	SubscriptionStatusGracePeriod SubscriptionStatus = "grace_period"
	SubscriptionStatusSuspended   SubscriptionStatus = "suspended"
	SubscriptionStatusCanceled    SubscriptionStatus = "canceled"
	SubscriptionStatusExpired     SubscriptionStatus = "expired"
)

// SubscriptionTransitions lists the legal next states per subscription status.
// Canceled and Expired are terminal.
var SubscriptionTransitions = StateTransitions[SubscriptionStatus]{
	SubscriptionStatusTrialing: {SubscriptionStatusActive},
	SubscriptionStatusActive: {
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusPastDue: {
		SubscriptionStatusGracePeriod,
		SubscriptionStatusCanceled,
	},
	SubscriptionStatusGracePeriod: {
		SubscriptionStatusSuspended,
		SubscriptionStatusActive,
		SubscriptionStatusCanceled,
	},
	SubscriptionStatusSuspended: {
		SubscriptionStatusActive,
		SubscriptionStatusCanceled,
	},
	SubscriptionStatusCanceled: {},
	SubscriptionStatusExpired:  {},
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusGracePeriod,
		SubscriptionStatusSuspended,
		SubscriptionStatusCanceled,
		SubscriptionStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Please provide a valid subscription status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsOperational reports whether the subscription still accepts plan changes
func (s SubscriptionStatus) IsOperational() bool {
	return lo.Contains([]SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusTrialing,
		SubscriptionStatusPastDue,
		SubscriptionStatusGracePeriod,
	}, s)
}

// IsActiveOrTrialing reports whether the subscription counts towards the one
// live subscription a tenant may hold
func (s SubscriptionStatus) IsActiveOrTrialing() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// BillingCycle is the recurrence unit of a subscription period
type BillingCycle string

const (
	BillingCycleMonthly    BillingCycle = "monthly"
	BillingCycleQuarterly  BillingCycle = "quarterly"
	BillingCycleSemiannual BillingCycle = "semiannual"
	BillingCycleYearly     BillingCycle = "yearly"
)

func (b BillingCycle) String() string {
	return string(b)
}

func (b BillingCycle) Validate() error {
	allowed := []BillingCycle{
		BillingCycleMonthly,
		BillingCycleQuarterly,
		BillingCycleSemiannual,
		BillingCycleYearly,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid billing cycle").
			WithHint("Please provide a valid billing cycle").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Months returns the calendar length of the cycle in months
func (b BillingCycle) Months() int {
	switch b {
	case BillingCycleQuarterly:
		return 3
	case BillingCycleSemiannual:
		return 6
	case BillingCycleYearly:
		return 12
	default:
		return 1
	}
}
