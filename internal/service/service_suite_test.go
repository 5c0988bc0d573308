package service

import (
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/dunning"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/plan"
	"github.com/condohub/billing/internal/domain/subscription"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/testutil"
	"github.com/condohub/billing/internal/types"
)

// serviceTestSuite adds billing fixtures on top of the shared base suite
type serviceTestSuite struct {
	testutil.BaseServiceTestSuite
}

func (s *serviceTestSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:              s.GetLogger(),
		Config:              s.GetConfig(),
		DB:                  s.GetDB(),
		Sentry:              s.GetSentry(),
		Cache:               s.GetCache(),
		PlanRepo:            stores.PlanRepo,
		PlanVersionRepo:     stores.PlanVersionRepo,
		PlanPriceRepo:       stores.PlanPriceRepo,
		PlanFeatureRepo:     stores.PlanFeatureRepo,
		FeatureOverrideRepo: stores.FeatureOverrideRepo,
		SubRepo:             stores.SubscriptionRepo,
		InvoiceRepo:         stores.InvoiceRepo,
		InvoiceSequenceRepo: stores.InvoiceSequenceRepo,
		PaymentRepo:         stores.PaymentRepo,
		NFSeRepo:            stores.NFSeRepo,
		DunningPolicyRepo:   stores.DunningPolicyRepo,
		GatewayEventRepo:    stores.GatewayEventRepo,
		Gateways:            s.GetGatewayResolver(),
		FiscalProvider:      s.GetFiscalProvider(),
		EventPublisher:      s.GetPublisher(),
		IdempGen:            idempotency.NewGenerator(),
	}
}

type planFixture struct {
	plan    *plan.Plan
	version *plan.Version
	price   *plan.Price
}

// seedPlan stores an active plan with one version priced for cycle
func (s *serviceTestSuite) seedPlan(slug string, cycle types.BillingCycle, amount int64, trialDays int, features ...*plan.Feature) planFixture {
	ctx := s.GetContext()
	stores := s.GetStores()

	p, err := plan.NewPlan(ctx, "Plan "+slug, slug, "")
	s.Require().NoError(err)
	s.Require().NoError(stores.PlanRepo.Create(ctx, p))

	version := plan.NewVersion(p.ID, 1)
	s.Require().NoError(stores.PlanVersionRepo.Create(ctx, version))

	price, err := plan.NewPrice(version.ID, cycle, money.New(amount, "BRL"), trialDays)
	s.Require().NoError(err)
	s.Require().NoError(stores.PlanPriceRepo.Create(ctx, price))

	for _, f := range features {
		f.PlanVersionID = version.ID
		s.Require().NoError(stores.PlanFeatureRepo.Create(ctx, f))
	}
	return planFixture{plan: p, version: version, price: price}
}

func (s *serviceTestSuite) newFeature(key, value string, featureType types.FeatureType) *plan.Feature {
	f, err := plan.NewFeature("", key, value, featureType)
	s.Require().NoError(err)
	return f
}

// seedSubscription stores a subscription directly in the given status
func (s *serviceTestSuite) seedSubscription(tenantID string, fx planFixture, status types.SubscriptionStatus) *subscription.Subscription {
	sub := subscription.New(tenantID, fx.version.ID, fx.price.BillingCycle, 0, s.GetNow())
	sub.Status = status
	sub.PullEvents()
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

// seedPastDueInvoice stores a past due invoice whose due date lies
// daysPastDue days before now
func (s *serviceTestSuite) seedPastDueInvoice(sub *subscription.Subscription, number string, daysPastDue int) *invoice.Invoice {
	due := s.GetNow().AddDate(0, 0, -daysPastDue)
	inv := invoice.New(sub.TenantID, sub.ID, number, "BRL", sub.CurrentPeriod, due)
	inv.IdempotencyKey = number
	_, err := inv.AddItem(types.InvoiceItemTypePlan, "Monthly", 1, money.New(9900, "BRL"))
	s.Require().NoError(err)
	s.Require().NoError(inv.CalculateTotals())
	s.Require().NoError(inv.Issue())
	s.Require().NoError(inv.MarkPastDue())
	inv.PullEvents()
	s.Require().NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func (s *serviceTestSuite) seedDefaultPolicy(suspendAfterDays int) *dunning.Policy {
	policy, err := dunning.NewPolicy("default", 3, []int{1, 3, 7}, suspendAfterDays, 30, true)
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().DunningPolicyRepo.Create(s.GetContext(), policy))
	return policy
}

func (s *serviceTestSuite) generateOpenInvoice(subscriptionID string) *dto.InvoiceResponse {
	resp, err := NewInvoiceService(s.params()).GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		SubscriptionID: subscriptionID,
	})
	s.Require().NoError(err)
	return resp
}

func currentInvoiceNumber(seq int) string {
	return invoice.FormatNumber(time.Now().UTC().Year(), int64(seq))
}
