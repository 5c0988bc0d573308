package subscription

import (
	"fmt"
	"testing"
	"time"

	"github.com/condohub/billing/internal/domain/events"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SubscriptionModelSuite struct {
	suite.Suite
	now time.Time
}

func TestSubscriptionModel(t *testing.T) {
	suite.Run(t, new(SubscriptionModelSuite))
}

func (s *SubscriptionModelSuite) SetupTest() {
	s.now = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func (s *SubscriptionModelSuite) newWithStatus(status types.SubscriptionStatus) *Subscription {
	sub := New("tenant", "pv1", types.BillingCycleMonthly, 0, s.now)
	sub.Status = status
	sub.PullEvents()
	return sub
}

// transition invokes the method that targets the given status
func (s *SubscriptionModelSuite) transition(sub *Subscription, target types.SubscriptionStatus) error {
	switch target {
	case types.SubscriptionStatusActive:
		return sub.Activate()
	case types.SubscriptionStatusPastDue:
		return sub.MarkPastDue()
	case types.SubscriptionStatusGracePeriod:
		return sub.StartGracePeriod(s.now.AddDate(0, 0, 7))
	case types.SubscriptionStatusSuspended:
		return sub.Suspend()
	case types.SubscriptionStatusCanceled:
		return sub.Cancel(s.now)
	case types.SubscriptionStatusExpired:
		return sub.Expire()
	}
	return fmt.Errorf("no transition to %s", target)
}

func (s *SubscriptionModelSuite) TestNewWithoutTrialStartsActive() {
	sub := New("tenant", "pv1", types.BillingCycleMonthly, 0, s.now)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Equal(s.now.AddDate(0, 1, 0), sub.CurrentPeriod.End)

	evts := sub.PullEvents()
	s.Require().Len(evts, 1)
	s.Equal(events.SubscriptionCreated, evts[0].Name)
}

func (s *SubscriptionModelSuite) TestNewWithTrialStartsTrialing() {
	sub := New("tenant", "pv1", types.BillingCycleMonthly, 14, s.now)
	s.Equal(types.SubscriptionStatusTrialing, sub.Status)
	s.Equal(s.now.AddDate(0, 0, 14), sub.CurrentPeriod.End)
	s.Require().NotNil(sub.TrialEnd)
}

func (s *SubscriptionModelSuite) TestTransitionLegalityOverAllPairs() {
	states := []types.SubscriptionStatus{
		types.SubscriptionStatusTrialing,
		types.SubscriptionStatusActive,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusGracePeriod,
		types.SubscriptionStatusSuspended,
		types.SubscriptionStatusCanceled,
		types.SubscriptionStatusExpired,
	}
	targets := []types.SubscriptionStatus{
		types.SubscriptionStatusActive,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusGracePeriod,
		types.SubscriptionStatusSuspended,
		types.SubscriptionStatusCanceled,
		types.SubscriptionStatusExpired,
	}

	for _, from := range states {
		for _, to := range targets {
			sub := s.newWithStatus(from)
			err := s.transition(sub, to)

			if types.SubscriptionTransitions.CanTransition(from, to) {
				s.NoError(err, "%s -> %s", from, to)
				s.Equal(to, sub.Status, "%s -> %s", from, to)
				s.Len(sub.PullEvents(), 1, "%s -> %s emits one event", from, to)
				continue
			}

			s.Require().Error(err, "%s -> %s", from, to)
			s.Equal(ierr.CodeInvalidSubscriptionTransition, ierr.Code(err), "%s -> %s", from, to)
			s.Equal(from, sub.Status, "state untouched on %s -> %s", from, to)
			s.Empty(sub.PullEvents())

			details := ierr.Details(err)
			s.Equal(string(from), details["current"])
			s.Equal(string(to), details["target"])
		}
	}
}

func (s *SubscriptionModelSuite) TestCancelFixesCanceledAt() {
	sub := s.newWithStatus(types.SubscriptionStatusActive)
	s.Require().NoError(sub.Cancel(s.now))
	s.Require().NotNil(sub.CanceledAt)
	s.Equal(s.now, *sub.CanceledAt)

	s.Error(sub.Cancel(s.now.Add(time.Hour)))
	s.Equal(s.now, *sub.CanceledAt)
}

func (s *SubscriptionModelSuite) TestRenewOnlyFromActive() {
	sub := s.newWithStatus(types.SubscriptionStatusActive)
	grace := s.now
	sub.GracePeriodEnd = &grace

	next := sub.CurrentPeriod.Next(sub.BillingCycle)
	s.Require().NoError(sub.Renew(next))
	s.True(sub.CurrentPeriod.Equal(next))
	s.Nil(sub.GracePeriodEnd)
	evts := sub.PullEvents()
	s.Require().Len(evts, 1)
	s.Equal(events.SubscriptionRenewed, evts[0].Name)

	past := s.newWithStatus(types.SubscriptionStatusPastDue)
	err := past.Renew(next)
	s.Equal(ierr.CodeSubscriptionNotActive, ierr.Code(err))
}

func (s *SubscriptionModelSuite) TestChangePlanKeepsPeriod() {
	sub := s.newWithStatus(types.SubscriptionStatusGracePeriod)
	before := sub.CurrentPeriod

	s.Require().NoError(sub.ChangePlan("pv2"))
	s.Equal("pv2", sub.PlanVersionID)
	s.True(sub.CurrentPeriod.Equal(before))

	s.Equal(ierr.CodePlanVersionSame, ierr.Code(sub.ChangePlan("pv2")))

	suspended := s.newWithStatus(types.SubscriptionStatusSuspended)
	s.Equal(ierr.CodeSubscriptionNotOperational, ierr.Code(suspended.ChangePlan("pv3")))
}

func TestGracePeriodEndClearedOnReactivation(t *testing.T) {
	now := time.Now().UTC()
	sub := New("tenant", "pv1", types.BillingCycleMonthly, 0, now)
	require.NoError(t, sub.MarkPastDue())
	require.NoError(t, sub.StartGracePeriod(now.AddDate(0, 0, 7)))
	require.NotNil(t, sub.GracePeriodEnd)

	require.NoError(t, sub.Activate())
	assert.Nil(t, sub.GracePeriodEnd)
}
