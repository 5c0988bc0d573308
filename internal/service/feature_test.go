package service

import (
	"testing"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/feature"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type FeatureServiceSuite struct {
	serviceTestSuite
	service FeatureService
	pro     planFixture
	sub     string
}

func TestFeatureService(t *testing.T) {
	suite.Run(t, new(FeatureServiceSuite))
}

func (s *FeatureServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewFeatureService(s.params())
	s.pro = s.seedPlan("pro", types.BillingCycleMonthly, 19900, 0,
		s.newFeature("max_units", "200", types.FeatureTypeInteger),
		s.newFeature("boleto_enabled", "true", types.FeatureTypeBoolean),
	)
	s.sub = s.seedSubscription("tenant-1", s.pro, types.SubscriptionStatusActive).ID
}

func (s *FeatureServiceSuite) setOverride(value string, expiresAt *time.Time) *dto.FeatureOverrideResponse {
	resp, err := s.service.SetTenantFeatureOverride(s.GetContext(), dto.SetTenantFeatureOverrideRequest{
		TenantID:   "tenant-1",
		FeatureKey: "max_units",
		Value:      value,
		Reason:     "negotiated contract",
		ExpiresAt:  expiresAt,
	})
	s.Require().NoError(err)
	return resp
}

func (s *FeatureServiceSuite) TestOverridePrecedence() {
	resolved, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal("200", lo.FromPtr(resolved.Value))
	s.Equal(dto.FeatureValueSourcePlan, resolved.Source)

	override := s.setOverride("50", nil)
	s.Equal(feature.OverrideStatusActive, override.Status)
	s.Equal("max_units", override.FeatureKey)

	resolved, err = s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal("50", lo.FromPtr(resolved.Value))
	s.Equal(dto.FeatureValueSourceOverride, resolved.Source)

	removed, err := s.service.RemoveTenantFeatureOverride(s.GetContext(), dto.RemoveTenantFeatureOverrideRequest{
		TenantID:   "tenant-1",
		FeatureKey: "max_units",
	})
	s.Require().NoError(err)
	s.Equal(feature.OverrideStatusRemoved, removed.Status)
	s.NotNil(removed.RemovedAt)

	resolved, err = s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal("200", lo.FromPtr(resolved.Value))
	s.Equal(dto.FeatureValueSourcePlan, resolved.Source)
}

func (s *FeatureServiceSuite) TestOverrideIsReplacedInPlace() {
	first := s.setOverride("50", nil)
	second := s.setOverride("80", nil)
	s.Equal(first.ID, second.ID)
	s.Equal("80", second.Value)

	limit, err := s.service.FeatureLimit(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal(int64(80), lo.FromPtr(limit))
}

func (s *FeatureServiceSuite) TestResolveIsCached() {
	_, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)

	f, err := s.GetStores().PlanFeatureRepo.GetByVersionAndKey(s.GetContext(), s.pro.version.ID, "max_units")
	s.Require().NoError(err)
	direct, err := feature.NewOverride(s.GetContext(), "tenant-1", f.ID, "10", "written behind the service", nil)
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().FeatureOverrideRepo.Create(s.GetContext(), direct))

	cached, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal("200", lo.FromPtr(cached.Value))

	s.GetCache().Flush(s.GetContext())
	fresh, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal("10", lo.FromPtr(fresh.Value))
}

func (s *FeatureServiceSuite) TestExpiredOverrideFallsBackToPlan() {
	f, err := s.GetStores().PlanFeatureRepo.GetByVersionAndKey(s.GetContext(), s.pro.version.ID, "max_units")
	s.Require().NoError(err)
	expired := time.Now().Add(-time.Hour)
	o, err := feature.NewOverride(s.GetContext(), "tenant-1", f.ID, "10", "trial bump", &expired)
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().FeatureOverrideRepo.Create(s.GetContext(), o))

	resolved, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal("200", lo.FromPtr(resolved.Value))
	s.Equal(dto.FeatureValueSourcePlan, resolved.Source)
}

func (s *FeatureServiceSuite) TestFeatureLimit() {
	limit, err := s.service.FeatureLimit(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal(int64(200), lo.FromPtr(limit))

	s.Run("unknown key has no limit", func() {
		limit, err := s.service.FeatureLimit(s.GetContext(), "tenant-1", "max_towers")
		s.Require().NoError(err)
		s.Nil(limit)
	})

	s.Run("non integer feature", func() {
		_, err := s.service.FeatureLimit(s.GetContext(), "tenant-1", "boleto_enabled")
		s.True(ierr.IsValidation(err))
	})

	s.Run("tenant without subscription", func() {
		resolved, err := s.service.Resolve(s.GetContext(), "tenant-none", "max_units")
		s.Require().NoError(err)
		s.Nil(resolved.Value)
		s.Equal(dto.FeatureValueSourceNone, resolved.Source)
	})
}

func (s *FeatureServiceSuite) TestOverrideValueMustMatchType() {
	_, err := s.service.SetTenantFeatureOverride(s.GetContext(), dto.SetTenantFeatureOverrideRequest{
		TenantID:   "tenant-1",
		FeatureKey: "max_units",
		Value:      "unlimited",
		Reason:     "negotiated contract",
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.SetTenantFeatureOverride(s.GetContext(), dto.SetTenantFeatureOverrideRequest{
		TenantID:   "tenant-1",
		FeatureKey: "max_units",
		Value:      "10",
	})
	s.True(ierr.IsValidation(err))
}

func (s *FeatureServiceSuite) TestRemoveWithoutOverride() {
	_, err := s.service.RemoveTenantFeatureOverride(s.GetContext(), dto.RemoveTenantFeatureOverrideRequest{
		TenantID:   "tenant-1",
		FeatureKey: "max_units",
	})
	s.True(ierr.Is(err, ierr.ErrFeatureOverrideNotFound))
	s.Equal(ierr.CodeFeatureOverrideNotFound, ierr.Code(err))
}

func (s *FeatureServiceSuite) TestSuspensionInvalidatesCache() {
	_, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)

	s.seedDefaultPolicy(15)
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), s.sub)
	s.Require().NoError(err)
	s.seedPastDueInvoice(sub, "INV-1", 20)

	_, err = NewDunningService(s.params()).ProcessDunning(s.GetContext(), s.GetNow())
	s.Require().NoError(err)

	resolved, err := s.service.Resolve(s.GetContext(), "tenant-1", "max_units")
	s.Require().NoError(err)
	s.Equal(dto.FeatureValueSourceNone, resolved.Source)
}

func (s *FeatureServiceSuite) TestDunnedTenantHoldsNoEntitlement() {
	s.seedSubscription("tenant-2", s.pro, types.SubscriptionStatusPastDue)

	limit, err := s.service.FeatureLimit(s.GetContext(), "tenant-2", "max_units")
	s.Require().NoError(err)
	s.Nil(limit)

	resolved, err := s.service.Resolve(s.GetContext(), "tenant-2", "max_units")
	s.Require().NoError(err)
	s.Equal(dto.FeatureValueSourceNone, resolved.Source)
	s.Nil(resolved.Value)
}
