package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	pgrepo "github.com/condohub/billing/internal/repository/postgres"
	"github.com/condohub/billing/internal/sentry"
	"github.com/condohub/billing/internal/testutil"
	"github.com/condohub/billing/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

// WebhookLedgerSuite runs the webhook use cases against the SQL ledger so a
// replay goes through the same transaction the server opens
type WebhookLedgerSuite struct {
	suite.Suite
	ctx      context.Context
	mock     sqlmock.Sqlmock
	gateway  *testutil.MockPaymentGateway
	provider *testutil.MockFiscalProvider
	payments PaymentService
	nfse     NFSeService
}

func TestWebhookLedger(t *testing.T) {
	suite.Run(t, new(WebhookLedgerSuite))
}

func (s *WebhookLedgerSuite) SetupTest() {
	mockDB, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.mock = mock
	s.ctx = testutil.SetupContext()

	cfg := config.GetDefaultConfig()
	log := logger.NewNoopLogger()
	db := postgres.NewFromSQLX(sqlx.NewDb(mockDB, "postgres"), log)

	s.gateway = testutil.NewMockPaymentGateway()
	s.provider = testutil.NewMockFiscalProvider()
	params := ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               db,
		Sentry:           sentry.NewSentryService(cfg, log),
		PaymentRepo:      testutil.NewInMemoryPaymentStore(),
		InvoiceRepo:      testutil.NewInMemoryInvoiceStore(),
		SubRepo:          testutil.NewInMemorySubscriptionStore(),
		NFSeRepo:         testutil.NewInMemoryNFSeStore(),
		GatewayEventRepo: pgrepo.NewGatewayEventRepository(db, log),
		Gateways:         testutil.NewMockGatewayResolver(s.gateway),
		FiscalProvider:   s.provider,
		EventPublisher:   testutil.NewInMemoryEventPublisher(),
	}
	s.payments = NewPaymentService(params)
	s.nfse = NewNFSeService(params)
}

func (s *WebhookLedgerSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *WebhookLedgerSuite) expectLedgerInsert(inserted int64) {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gateway_events")).
		WillReturnResult(sqlmock.NewResult(0, inserted))
	s.mock.ExpectCommit()
}

func (s *WebhookLedgerSuite) TestPaymentWebhookReplayCommits() {
	s.gateway.WebhookEvent = &base.PaymentWebhookEvent{
		EventType:     types.WebhookEventPaymentSucceeded,
		TransactionID: "pi_replayed",
	}
	payload := []byte(`{"id":"evt_1"}`)

	s.expectLedgerInsert(1)
	first, err := s.payments.HandlePaymentWebhook(s.ctx, types.PaymentGatewayTypeStripe.String(), payload, "sig")
	s.Require().NoError(err)
	s.False(first.Duplicate)
	s.True(first.Ignored)

	s.expectLedgerInsert(0)
	replay, err := s.payments.HandlePaymentWebhook(s.ctx, types.PaymentGatewayTypeStripe.String(), payload, "sig")
	s.Require().NoError(err)
	s.True(replay.Duplicate)
}

func (s *WebhookLedgerSuite) TestNFSeWebhookReplayCommits() {
	s.provider.WebhookEvent = &base.FiscalWebhookEvent{
		EventType:   types.WebhookEventNFSeDenied,
		ProviderRef: "prov_replayed",
	}
	payload := []byte(`{"event":"denied"}`)

	s.expectLedgerInsert(0)
	resp, err := s.nfse.HandleNFSeWebhook(s.ctx, payload, "sig")
	s.Require().NoError(err)
	s.True(resp.Duplicate)
}
