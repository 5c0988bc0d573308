package testutil

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/cache"
	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/sentry"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories used by service tests
type Stores struct {
	PlanRepo            *InMemoryPlanStore
	PlanVersionRepo     *InMemoryPlanVersionStore
	PlanPriceRepo       *InMemoryPlanPriceStore
	PlanFeatureRepo     *InMemoryPlanFeatureStore
	FeatureOverrideRepo *InMemoryFeatureOverrideStore
	SubscriptionRepo    *InMemorySubscriptionStore
	InvoiceRepo         *InMemoryInvoiceStore
	InvoiceSequenceRepo *InMemoryInvoiceSequenceStore
	PaymentRepo         *InMemoryPaymentStore
	NFSeRepo            *InMemoryNFSeStore
	DunningPolicyRepo   *InMemoryDunningPolicyStore
	GatewayEventRepo    *InMemoryGatewayEventStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx            context.Context
	stores         Stores
	publisher      *InMemoryEventPublisher
	gateway        *MockPaymentGateway
	fiscalProvider *MockFiscalProvider
	cache          cache.Cache
	db             *MockPostgresClient
	logger         *logger.Logger
	sentry         *sentry.Service
	config         *config.Configuration
	now            time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.NFSe.EmitterCNPJ = "12345678000199"
	cfg.NFSe.MunicipalCode = "3550308"
	cfg.NFSe.ServiceCode = "01.07"
	cfg.Billing.ServiceDescription = "Licenca de uso de software de gestao condominial"

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo:            NewInMemoryPlanStore(),
		PlanVersionRepo:     NewInMemoryPlanVersionStore(),
		PlanPriceRepo:       NewInMemoryPlanPriceStore(),
		PlanFeatureRepo:     NewInMemoryPlanFeatureStore(),
		FeatureOverrideRepo: NewInMemoryFeatureOverrideStore(),
		SubscriptionRepo:    NewInMemorySubscriptionStore(),
		InvoiceRepo:         NewInMemoryInvoiceStore(),
		InvoiceSequenceRepo: NewInMemoryInvoiceSequenceStore(),
		PaymentRepo:         NewInMemoryPaymentStore(),
		NFSeRepo:            NewInMemoryNFSeStore(),
		DunningPolicyRepo:   NewInMemoryDunningPolicyStore(),
		GatewayEventRepo:    NewInMemoryGatewayEventStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.publisher = NewInMemoryEventPublisher()
	s.gateway = NewMockPaymentGateway()
	s.fiscalProvider = NewMockFiscalProvider()
	s.cache = cache.NewInMemoryCache(s.config)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PlanRepo.Clear()
	s.stores.PlanVersionRepo.Clear()
	s.stores.PlanPriceRepo.Clear()
	s.stores.PlanFeatureRepo.Clear()
	s.stores.FeatureOverrideRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.InvoiceSequenceRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.NFSeRepo.Clear()
	s.stores.DunningPolicyRepo.Clear()
	s.stores.GatewayEventRepo.Clear()
	s.publisher.Clear()
	s.cache.Flush(context.Background())
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetPublisher() *InMemoryEventPublisher {
	return s.publisher
}

func (s *BaseServiceTestSuite) GetGateway() *MockPaymentGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetGatewayResolver() *MockGatewayResolver {
	return NewMockGatewayResolver(s.gateway)
}

func (s *BaseServiceTestSuite) GetFiscalProvider() *MockFiscalProvider {
	return s.fiscalProvider
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetNow returns the time captured when the test started
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
