package service

import (
	"testing"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/cache"
	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/plan"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	serviceTestSuite
	service SubscriptionService
	basic   planFixture
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(s.params())
	s.basic = s.seedPlan("basic", types.BillingCycleMonthly, 9900, 0)
}

func (s *SubscriptionServiceSuite) create(tenantID string, fx planFixture) *dto.SubscriptionResponse {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		TenantID:      tenantID,
		PlanVersionID: fx.version.ID,
		BillingCycle:  fx.price.BillingCycle,
	})
	s.Require().NoError(err)
	return resp
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	resp := s.create("tenant-1", s.basic)
	s.Equal(types.SubscriptionStatusActive, resp.Status)
	s.Nil(resp.TrialEnd)
	s.Equal([]string{events.SubscriptionCreated}, s.GetPublisher().Names())

	s.Run("idempotent per tenant", func() {
		again := s.create("tenant-1", s.basic)
		s.Equal(resp.ID, again.ID)
		s.Equal(1, s.GetStores().SubscriptionRepo.Count(s.GetContext(), nil))
	})

	s.Run("trial", func() {
		trial := s.seedPlan("trial", types.BillingCycleMonthly, 9900, 14)
		resp := s.create("tenant-2", trial)
		s.Equal(types.SubscriptionStatusTrialing, resp.Status)
		s.NotNil(resp.TrialEnd)
		s.Equal(resp.CurrentPeriodEnd, *resp.TrialEnd)
	})
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRejectsUnavailableVersion() {
	s.Run("no price for cycle", func() {
		_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
			TenantID:      "tenant-1",
			PlanVersionID: s.basic.version.ID,
			BillingCycle:  types.BillingCycleYearly,
		})
		s.True(ierr.Is(err, ierr.ErrPlanVersionNotAvailable))
	})

	s.Run("inactive version", func() {
		next := plan.NewVersion(s.basic.plan.ID, 2)
		s.basic.version.Deactivate()
		s.Require().NoError(s.GetStores().PlanVersionRepo.Update(s.GetContext(), s.basic.version))
		s.Require().NoError(s.GetStores().PlanVersionRepo.Create(s.GetContext(), next))

		_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
			TenantID:      "tenant-1",
			PlanVersionID: s.basic.version.ID,
			BillingCycle:  types.BillingCycleMonthly,
		})
		s.True(ierr.Is(err, ierr.ErrPlanVersionNotAvailable))
		s.Equal(422, ierr.HTTPStatusFromErr(err))
	})

	s.Run("invalid cycle", func() {
		_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
			TenantID:      "tenant-1",
			PlanVersionID: s.basic.version.ID,
			BillingCycle:  "weekly",
		})
		s.True(ierr.IsValidation(err))
	})
}

func (s *SubscriptionServiceSuite) TestCancelSubscription() {
	sub := s.create("tenant-1", s.basic)
	s.GetPublisher().Clear()

	canceled, err := s.service.CancelSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, canceled.Status)
	s.Require().NotNil(canceled.CanceledAt)
	s.Equal([]string{events.SubscriptionCanceled}, s.GetPublisher().Names())

	_, err = s.service.CancelSubscription(s.GetContext(), sub.ID)
	s.True(ierr.Is(err, ierr.ErrInvalidSubscriptionTransition))
	s.Equal(409, ierr.HTTPStatusFromErr(err))

	_, err = s.service.CancelSubscription(s.GetContext(), "missing")
	s.True(ierr.Is(err, ierr.ErrSubscriptionNotFound))
}

func (s *SubscriptionServiceSuite) TestRenewSubscription() {
	sub := s.create("tenant-1", s.basic)

	renewed, err := s.service.RenewSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(sub.CurrentPeriodEnd, renewed.CurrentPeriodStart)

	s.Run("only active subscriptions renew", func() {
		stored := s.seedSubscription("tenant-2", s.basic, types.SubscriptionStatusPastDue)
		_, err := s.service.RenewSubscription(s.GetContext(), stored.ID)
		s.True(ierr.Is(err, ierr.ErrSubscriptionNotActive))
	})
}

func (s *SubscriptionServiceSuite) TestChangeSubscriptionPlan() {
	sub := s.create("tenant-1", s.basic)
	pro := s.seedPlan("pro", types.BillingCycleMonthly, 19900, 0)

	s.GetCache().Set(s.GetContext(), cache.GenerateKey(cache.PrefixFeature, "tenant-1", "max_units"), "{}", 0)

	s.Run("same version", func() {
		_, err := s.service.ChangeSubscriptionPlan(s.GetContext(), sub.ID, dto.ChangeSubscriptionPlanRequest{
			PlanVersionID: s.basic.version.ID,
		})
		s.True(ierr.Is(err, ierr.ErrPlanVersionSame))
	})

	changed, err := s.service.ChangeSubscriptionPlan(s.GetContext(), sub.ID, dto.ChangeSubscriptionPlanRequest{
		PlanVersionID: pro.version.ID,
	})
	s.Require().NoError(err)
	s.Equal(pro.version.ID, changed.PlanVersionID)
	s.Equal(sub.CurrentPeriodStart, changed.CurrentPeriodStart)
	s.Contains(s.GetPublisher().Names(), events.SubscriptionPlanChanged)

	_, cached := s.GetCache().Get(s.GetContext(), cache.GenerateKey(cache.PrefixFeature, "tenant-1", "max_units"))
	s.False(cached)

	s.Run("suspended subscription", func() {
		stored := s.seedSubscription("tenant-2", s.basic, types.SubscriptionStatusSuspended)
		_, err := s.service.ChangeSubscriptionPlan(s.GetContext(), stored.ID, dto.ChangeSubscriptionPlanRequest{
			PlanVersionID: pro.version.ID,
		})
		s.True(ierr.Is(err, ierr.ErrSubscriptionNotOperational))
	})
}

func (s *SubscriptionServiceSuite) TestActivateAndReactivate() {
	trial := s.seedPlan("trial", types.BillingCycleMonthly, 9900, 7)
	sub := s.create("tenant-1", trial)

	activated, err := s.service.ActivateSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, activated.Status)

	_, err = s.service.ActivateSubscription(s.GetContext(), sub.ID)
	s.True(ierr.Is(err, ierr.ErrInvalidSubscriptionTransition))

	_, err = s.service.ReactivateSubscription(s.GetContext(), sub.ID)
	s.True(ierr.Is(err, ierr.ErrInvalidSubscriptionTransition))

	suspended := s.seedSubscription("tenant-2", s.basic, types.SubscriptionStatusSuspended)
	reactivated, err := s.service.ReactivateSubscription(s.GetContext(), suspended.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, reactivated.Status)
	s.Nil(reactivated.GracePeriodEnd)
}

func (s *SubscriptionServiceSuite) TestGetSubscription() {
	sub := s.create("tenant-1", s.basic)

	got, err := s.service.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(sub, got)

	_, err = s.service.GetSubscription(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}
