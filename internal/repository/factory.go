package repository

import (
	"github.com/condohub/billing/internal/domain/dunning"
	"github.com/condohub/billing/internal/domain/feature"
	"github.com/condohub/billing/internal/domain/gatewayevent"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/nfse"
	"github.com/condohub/billing/internal/domain/payment"
	"github.com/condohub/billing/internal/domain/plan"
	"github.com/condohub/billing/internal/domain/subscription"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	postgresRepo "github.com/condohub/billing/internal/repository/postgres"
	"go.uber.org/fx"
)

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewPlanVersionRepository(db *postgres.DB, logger *logger.Logger) plan.VersionRepository {
	return postgresRepo.NewPlanVersionRepository(db, logger)
}

func NewPlanPriceRepository(db *postgres.DB, logger *logger.Logger) plan.PriceRepository {
	return postgresRepo.NewPlanPriceRepository(db, logger)
}

func NewPlanFeatureRepository(db *postgres.DB, logger *logger.Logger) plan.FeatureRepository {
	return postgresRepo.NewPlanFeatureRepository(db, logger)
}

func NewFeatureOverrideRepository(db *postgres.DB, logger *logger.Logger) feature.OverrideRepository {
	return postgresRepo.NewFeatureOverrideRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewInvoiceSequenceRepository(db *postgres.DB, logger *logger.Logger) invoice.SequenceRepository {
	return postgresRepo.NewInvoiceSequenceRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewNFSeRepository(db *postgres.DB, logger *logger.Logger) nfse.Repository {
	return postgresRepo.NewNFSeRepository(db, logger)
}

func NewDunningPolicyRepository(db *postgres.DB, logger *logger.Logger) dunning.Repository {
	return postgresRepo.NewDunningPolicyRepository(db, logger)
}

func NewGatewayEventRepository(db *postgres.DB, logger *logger.Logger) gatewayevent.Repository {
	return postgresRepo.NewGatewayEventRepository(db, logger)
}

// Module provides every repository backed by the shared postgres pool
func Module() fx.Option {
	return fx.Provide(
		NewPlanRepository,
		NewPlanVersionRepository,
		NewPlanPriceRepository,
		NewPlanFeatureRepository,
		NewFeatureOverrideRepository,
		NewSubscriptionRepository,
		NewInvoiceRepository,
		NewInvoiceSequenceRepository,
		NewPaymentRepository,
		NewNFSeRepository,
		NewDunningPolicyRepository,
		NewGatewayEventRepository,
	)
}
