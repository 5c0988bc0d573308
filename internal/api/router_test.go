package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/condohub/billing/internal/api/cron"
	"github.com/condohub/billing/internal/api/dto"
	v1 "github.com/condohub/billing/internal/api/v1"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/service"
	"github.com/condohub/billing/internal/testutil"
	"github.com/condohub/billing/internal/types"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	stores := s.GetStores()
	params := service.ServiceParams{
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

	handlers := NewHandlers(
		v1.NewHealthHandler(),
		v1.NewWebhookHandler(service.NewPaymentService(params), service.NewNFSeService(params), s.GetLogger()),
		cron.NewDunningHandler(service.NewInvoiceService(params), service.NewDunningService(params), s.GetLogger()),
	)
	s.router = NewRouter(handlers, s.GetConfig(), s.GetLogger())
}

func (s *RouterSuite) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil, map[string]string{types.HeaderRequestID: "req-1"})
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("req-1", rec.Header().Get(types.HeaderRequestID))
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/health", nil, nil)
	s.NotEmpty(rec.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestPaymentWebhookRejectsMissingSignature() {
	rec := s.do(http.MethodPost, "/v1/webhooks/payments/stripe", []byte(`{"id":"evt_1"}`), nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	var resp ierr.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Success)
	s.Equal(ierr.CodeInvalidWebhookSignature, resp.Error.Code)
	s.Equal(0, s.GetStores().GatewayEventRepo.Len())
}

func (s *RouterSuite) TestPaymentWebhookAccepted() {
	s.GetGateway().WebhookEvent = &base.PaymentWebhookEvent{
		EventType:     types.WebhookEventPaymentSucceeded,
		TransactionID: "txn_unknown",
	}

	rec := s.do(http.MethodPost, "/v1/webhooks/payments/stripe", []byte(`{"id":"evt_1"}`), map[string]string{
		types.HeaderStripeSignature: "t=1,v1=abc",
	})
	s.Equal(http.StatusOK, rec.Code)

	var resp dto.WebhookResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Received)
	s.True(resp.Ignored)
	s.Equal(types.WebhookEventPaymentSucceeded, resp.EventType)
}

func (s *RouterSuite) TestUnsupportedGateway() {
	rec := s.do(http.MethodPost, "/v1/webhooks/payments/paypal", []byte(`{}`), map[string]string{
		types.HeaderStripeSignature: "sig",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestNFSeWebhookEmptyBody() {
	rec := s.do(http.MethodPost, "/v1/webhooks/nfse", nil, map[string]string{
		types.HeaderNFSeSignature: "sig",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestCronDunning() {
	rec := s.do(http.MethodPost, "/v1/cron/dunning", nil, nil)
	s.Equal(http.StatusOK, rec.Code)

	var resp dto.CronJobResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotNil(resp.Overdue)
	s.Require().NotNil(resp.Dunning)
	s.Equal(0, resp.Overdue.Processed)
	s.Equal(0, resp.Dunning.Processed)
}
