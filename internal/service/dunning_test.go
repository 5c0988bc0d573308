package service

import (
	"testing"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/subscription"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type DunningServiceSuite struct {
	serviceTestSuite
	service DunningService
	basic   planFixture
}

func TestDunningService(t *testing.T) {
	suite.Run(t, new(DunningServiceSuite))
}

func (s *DunningServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewDunningService(s.params())
	s.basic = s.seedPlan("basic", types.BillingCycleMonthly, 9900, 0)
}

func (s *DunningServiceSuite) subscriptionStatus(id string) types.SubscriptionStatus {
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return sub.Status
}

func (s *DunningServiceSuite) TestSuspendThreshold() {
	s.seedDefaultPolicy(15)
	early := s.seedSubscription("tenant-early", s.basic, types.SubscriptionStatusActive)
	late := s.seedSubscription("tenant-late", s.basic, types.SubscriptionStatusActive)
	s.seedPastDueInvoice(early, "INV-EARLY", 14)
	s.seedPastDueInvoice(late, "INV-LATE", 15)

	result, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(2, result.Processed)
	s.Equal(1, result.Suspended)
	s.Empty(result.Failed)

	s.Equal(types.SubscriptionStatusActive, s.subscriptionStatus(early.ID))
	s.Equal(types.SubscriptionStatusSuspended, s.subscriptionStatus(late.ID))
	s.Equal([]string{
		events.SubscriptionPastDue,
		events.SubscriptionGracePeriodStarted,
		events.SubscriptionSuspended,
	}, s.GetPublisher().Names())

	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), late.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.GracePeriodEnd)
	s.Equal(s.GetNow().AddDate(0, 0, s.GetConfig().Billing.GracePeriodDays).Unix(), stored.GracePeriodEnd.Unix())
}

func (s *DunningServiceSuite) TestEscalatesFromCurrentState() {
	s.seedDefaultPolicy(15)
	grace := s.seedSubscription("tenant-1", s.basic, types.SubscriptionStatusGracePeriod)
	s.seedPastDueInvoice(grace, "INV-1", 20)

	result, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(1, result.Suspended)
	s.Equal([]string{events.SubscriptionSuspended}, s.GetPublisher().Names())
}

func (s *DunningServiceSuite) TestSuspendedSubscriptionIsLeftAlone() {
	s.seedDefaultPolicy(15)
	sub := s.seedSubscription("tenant-1", s.basic, types.SubscriptionStatusSuspended)
	s.seedPastDueInvoice(sub, "INV-1", 30)

	result, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(0, result.Suspended)
	s.Empty(s.GetPublisher().Names())
	s.Equal(types.SubscriptionStatusSuspended, s.subscriptionStatus(sub.ID))
}

func (s *DunningServiceSuite) TestRerunIsIdempotent() {
	s.seedDefaultPolicy(15)
	sub := s.seedSubscription("tenant-1", s.basic, types.SubscriptionStatusActive)
	s.seedPastDueInvoice(sub, "INV-1", 16)

	first, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(1, first.Suspended)

	s.GetPublisher().Clear()
	second, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(0, second.Suspended)
	s.Empty(s.GetPublisher().Names())
}

func (s *DunningServiceSuite) TestWithoutDefaultPolicy() {
	sub := s.seedSubscription("tenant-1", s.basic, types.SubscriptionStatusActive)
	s.seedPastDueInvoice(sub, "INV-1", 40)

	result, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(0, result.Processed)
	s.Equal(types.SubscriptionStatusActive, s.subscriptionStatus(sub.ID))
}

func (s *DunningServiceSuite) TestFailureDoesNotAbortRun() {
	s.seedDefaultPolicy(15)
	orphan := subscription.New("tenant-orphan", s.basic.version.ID, types.BillingCycleMonthly, 0, s.GetNow())
	broken := s.seedPastDueInvoice(orphan, "INV-ORPHAN", 30)

	sub := s.seedSubscription("tenant-1", s.basic, types.SubscriptionStatusActive)
	s.seedPastDueInvoice(sub, "INV-1", 20)

	result, err := s.service.ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(2, result.Processed)
	s.Equal(1, result.Suspended)
	s.Equal([]string{broken.ID}, result.Failed)
	s.Equal(types.SubscriptionStatusSuspended, s.subscriptionStatus(sub.ID))
}
