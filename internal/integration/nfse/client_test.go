package nfse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/condohub/billing/internal/config"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "nfse-secret"

func newTestClient(baseURL string) *Client {
	cfg := config.GetDefaultConfig()
	cfg.NFSe.BaseURL = baseURL
	cfg.NFSe.APIKey = "key"
	cfg.NFSe.WebhookSecret = secret
	cfg.NFSe.SignatureMaxSkew = 300
	cfg.NFSe.MaxRetries = 0
	cfg.NFSe.RequestsPerSec = 0
	return NewClient(cfg, logger.NewNoopLogger())
}

func emitRequest() base.EmitRequest {
	return base.EmitRequest{
		DocumentID:     "doc_1",
		TenantID:       "tenant_1",
		InvoiceID:      "inv_1",
		EmitterCNPJ:    "12345678000199",
		CompetenceDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:    19900,
		Currency:       "BRL",
		ISSRate:        decimal.RequireFromString("5.00"),
		ISSAmount:      995,
		IdempotencyKey: "nfse:inv_1",
	}
}

func TestEmitAsynchronous(t *testing.T) {
	var got emitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/nfse", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "nfse:inv_1", r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"prov_1","status":"processing"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Emit(context.Background(), emitRequest())
	require.NoError(t, err)
	assert.Equal(t, "prov_1", res.ProviderRef)
	assert.Nil(t, res.Authorized)
	assert.Empty(t, res.DenialReason)

	assert.Equal(t, "199.00", got.ServiceAmount)
	assert.Equal(t, "9.95", got.ISSAmount)
	assert.Equal(t, "5.00", got.ISSRate)
	assert.Equal(t, "2026-01-15", got.CompetenceDate)
}

func TestEmitSynchronousAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"prov_2","status":"authorized","number":"2026/77","verification_code":"AB12","xml":"<nfse/>"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Emit(context.Background(), emitRequest())
	require.NoError(t, err)
	require.NotNil(t, res.Authorized)
	assert.Equal(t, "2026/77", res.Authorized.Number)
	assert.Equal(t, "<nfse/>", res.Authorized.XMLContent)
}

func TestEmitProviderErrorIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Emit(context.Background(), emitRequest())
	require.Error(t, err)
	assert.True(t, ierr.IsExternal(err))
	assert.EqualValues(t, http.StatusUnprocessableEntity, ierr.Details(err)["status_code"])
}

func TestCancelFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/nfse/prov_1/cancel", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Cancel(context.Background(), "prov_1", "duplicate")
	assert.Equal(t, ierr.CodeNFSeCancelFailed, ierr.Code(err))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := newTestClient("http://unused")
	payload := []byte(`{"event":"nfse.authorized","document":{"id":"prov_1"}}`)

	require.NoError(t, c.VerifyWebhookSignature(payload, SignatureHeader(secret, payload, time.Now())))

	cases := map[string]string{
		"wrong secret": SignatureHeader("other", payload, time.Now()),
		"stale":        SignatureHeader(secret, payload, time.Now().Add(-10*time.Minute)),
		"malformed":    "v1=abc",
		"empty":        "",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			err := c.VerifyWebhookSignature(payload, header)
			assert.Equal(t, ierr.CodeInvalidWebhookSignature, ierr.Code(err))
		})
	}
}

func TestParseWebhookEvent(t *testing.T) {
	c := newTestClient("http://unused")

	event, err := c.ParseWebhookEvent([]byte(`{"event":"nfse.authorized","document":{"id":"prov_1","number":"10","verification_code":"X9","pdf_url":"https://p/1.pdf"}}`))
	require.NoError(t, err)
	assert.Equal(t, types.WebhookEventNFSeAuthorized, event.EventType)
	assert.Equal(t, "prov_1", event.ProviderRef)
	assert.Equal(t, "10", event.Authorization.Number)

	event, err = c.ParseWebhookEvent([]byte(`{"event":"nfse.denied","document":{"id":"prov_1","error_message":"invalid cnpj"}}`))
	require.NoError(t, err)
	assert.Equal(t, "invalid cnpj", event.ErrorMessage)
	assert.Nil(t, event.Authorization)

	event, err = c.ParseWebhookEvent([]byte(`{"event":"nfse.queued","document":{"id":"prov_1"}}`))
	require.NoError(t, err)
	assert.Nil(t, event)

	_, err = c.ParseWebhookEvent([]byte(`{"event":"nfse.denied","document":{}}`))
	assert.True(t, ierr.IsValidation(err))
}
