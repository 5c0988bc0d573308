package service

import (
	"context"

	"github.com/condohub/billing/internal/cache"
	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/domain/dunning"
	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/feature"
	"github.com/condohub/billing/internal/domain/gatewayevent"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/nfse"
	"github.com/condohub/billing/internal/domain/payment"
	"github.com/condohub/billing/internal/domain/plan"
	"github.com/condohub/billing/internal/domain/subscription"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/publisher"
	"github.com/condohub/billing/internal/s3"
	"github.com/condohub/billing/internal/sentry"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	S3     s3.Service
	Sentry *sentry.Service
	Cache  cache.Cache

	// Repositories
	PlanRepo            plan.Repository
	PlanVersionRepo     plan.VersionRepository
	PlanPriceRepo       plan.PriceRepository
	PlanFeatureRepo     plan.FeatureRepository
	FeatureOverrideRepo feature.OverrideRepository
	SubRepo             subscription.Repository
	InvoiceRepo         invoice.Repository
	InvoiceSequenceRepo invoice.SequenceRepository
	PaymentRepo         payment.Repository
	NFSeRepo            nfse.Repository
	DunningPolicyRepo   dunning.Repository
	GatewayEventRepo    gatewayevent.Repository

	// Integrations
	Gateways       base.GatewayResolver
	FiscalProvider base.FiscalProvider
	EventPublisher publisher.EventPublisher
	IdempGen       *idempotency.Generator
}

// NewServiceParams creates a new ServiceParams instance
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	s3Service s3.Service,
	sentryService *sentry.Service,
	cacheBackend cache.Cache,
	planRepo plan.Repository,
	planVersionRepo plan.VersionRepository,
	planPriceRepo plan.PriceRepository,
	planFeatureRepo plan.FeatureRepository,
	featureOverrideRepo feature.OverrideRepository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	invoiceSequenceRepo invoice.SequenceRepository,
	paymentRepo payment.Repository,
	nfseRepo nfse.Repository,
	dunningPolicyRepo dunning.Repository,
	gatewayEventRepo gatewayevent.Repository,
	gateways base.GatewayResolver,
	fiscalProvider base.FiscalProvider,
	eventPublisher publisher.EventPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:              logger,
		Config:              config,
		DB:                  db,
		S3:                  s3Service,
		Sentry:              sentryService,
		Cache:               cacheBackend,
		PlanRepo:            planRepo,
		PlanVersionRepo:     planVersionRepo,
		PlanPriceRepo:       planPriceRepo,
		PlanFeatureRepo:     planFeatureRepo,
		FeatureOverrideRepo: featureOverrideRepo,
		SubRepo:             subRepo,
		InvoiceRepo:         invoiceRepo,
		InvoiceSequenceRepo: invoiceSequenceRepo,
		PaymentRepo:         paymentRepo,
		NFSeRepo:            nfseRepo,
		DunningPolicyRepo:   dunningPolicyRepo,
		GatewayEventRepo:    gatewayEventRepo,
		Gateways:            gateways,
		FiscalProvider:      fiscalProvider,
		EventPublisher:      eventPublisher,
		IdempGen:            idempotency.NewGenerator(),
	}
}

// Module provides ServiceParams and every billing service
func Module() fx.Option {
	return fx.Provide(
		NewServiceParams,
		NewPlanService,
		NewSubscriptionService,
		NewInvoiceService,
		NewInvoiceNumberGenerator,
		NewPaymentService,
		NewNFSeService,
		NewDunningService,
		NewFeatureService,
	)
}

// publishEvents drains the given outboxes and publishes the events. It runs
// after the mutation is persisted; a publish failure is logged and does not
// undo the committed state.
func (p ServiceParams) publishEvents(ctx context.Context, evts []events.DomainEvent) {
	if len(evts) == 0 || p.EventPublisher == nil {
		return
	}
	if err := p.EventPublisher.Publish(ctx, evts...); err != nil {
		p.Logger.Errorw("failed to publish domain events",
			"error", err,
			"count", len(evts),
			"first_event", evts[0].Name,
		)
		p.Sentry.CaptureException(err)
	}
}
