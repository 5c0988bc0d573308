package integration

import (
	"strings"

	"github.com/condohub/billing/internal/config"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/integration/nfse"
	"github.com/condohub/billing/internal/integration/stripe"
	"github.com/condohub/billing/internal/logger"
	"github.com/samber/lo"
	"go.uber.org/fx"
)

// Factory resolves payment gateways by name
type Factory struct {
	gateways map[string]base.PaymentGateway
	logger   *logger.Logger
}

// NewFactory registers every configured payment gateway
func NewFactory(cfg *config.Configuration, logger *logger.Logger) *Factory {
	return NewFactoryWithGateways(logger, stripe.NewGateway(cfg, logger))
}

func NewFactoryWithGateways(logger *logger.Logger, gateways ...base.PaymentGateway) *Factory {
	return &Factory{
		gateways: lo.SliceToMap(gateways, func(g base.PaymentGateway) (string, base.PaymentGateway) {
			return strings.ToLower(g.Name()), g
		}),
		logger: logger,
	}
}

func (f *Factory) GetPaymentGateway(name string) (base.PaymentGateway, error) {
	gateway, ok := f.gateways[strings.ToLower(name)]
	if !ok {
		return nil, ierr.NewError("payment gateway not supported").
			WithHintf("Unsupported payment gateway: %s", name).
			WithReportableDetails(map[string]any{
				"gateway":   name,
				"supported": lo.Keys(f.gateways),
			}).
			Mark(ierr.ErrValidation)
	}
	return gateway, nil
}

func provideFiscalProvider(cfg *config.Configuration, logger *logger.Logger) base.FiscalProvider {
	return nfse.NewClient(cfg, logger)
}

func provideGatewayResolver(f *Factory) base.GatewayResolver {
	return f
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewFactory,
			provideGatewayResolver,
			provideFiscalProvider,
		),
	)
}
