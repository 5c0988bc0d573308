package nfse

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/httpclient"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	providerStatusProcessing = "processing"
	providerStatusAuthorized = "authorized"
	providerStatusDenied     = "denied"
)

// Client talks to the municipal NFSe provider REST API
type Client struct {
	http          httpclient.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	maxSkew       time.Duration
	logger        *logger.Logger
}

// NewClient builds a provider client from the nfse config section
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return NewClientWithHTTP(cfg, httpclient.NewDefaultClient(httpclient.ClientConfig{
		Timeout:           time.Duration(cfg.NFSe.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.NFSe.MaxRetries,
		RequestsPerSecond: cfg.NFSe.RequestsPerSec,
	}, logger), logger)
}

func NewClientWithHTTP(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) *Client {
	return &Client{
		http:          client,
		baseURL:       strings.TrimRight(cfg.NFSe.BaseURL, "/"),
		apiKey:        cfg.NFSe.APIKey,
		webhookSecret: cfg.NFSe.WebhookSecret,
		maxSkew:       time.Duration(cfg.NFSe.SignatureMaxSkew) * time.Second,
		logger:        logger,
	}
}

type emitPayload struct {
	Reference          string `json:"reference"`
	EmitterCNPJ        string `json:"emitter_cnpj"`
	MunicipalCode      string `json:"municipal_code"`
	ServiceCode        string `json:"service_code"`
	ServiceDescription string `json:"service_description"`
	CompetenceDate     string `json:"competence_date"`
	ServiceAmount      string `json:"service_amount"`
	ISSRate            string `json:"iss_rate"`
	ISSAmount          string `json:"iss_amount"`
}

// document is the provider's representation in API responses and callbacks
type document struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Number           string `json:"number"`
	VerificationCode string `json:"verification_code"`
	PDFURL           string `json:"pdf_url"`
	XML              string `json:"xml"`
	ErrorMessage     string `json:"error_message"`
}

func (d document) authorization(raw []byte) *base.FiscalAuthorization {
	return &base.FiscalAuthorization{
		Number:           d.Number,
		VerificationCode: d.VerificationCode,
		PDFURL:           d.PDFURL,
		XMLContent:       d.XML,
		ProviderResponse: string(raw),
	}
}

type webhookPayload struct {
	Event    string   `json:"event"`
	Document document `json:"document"`
}

// Emit submits a document. Most municipalities answer asynchronously and the
// result arrives later through the webhook.
func (c *Client) Emit(ctx context.Context, req base.EmitRequest) (*base.EmitResult, error) {
	body, err := json.Marshal(emitPayload{
		Reference:          req.DocumentID,
		EmitterCNPJ:        req.EmitterCNPJ,
		MunicipalCode:      req.MunicipalCode,
		ServiceCode:        req.ServiceCode,
		ServiceDescription: req.ServiceDescription,
		CompetenceDate:     req.CompetenceDate.Format(time.DateOnly),
		ServiceAmount:      money.New(req.TotalAmount, req.Currency).Decimal().StringFixed(2),
		ISSRate:            req.ISSRate.StringFixed(2),
		ISSAmount:          money.New(req.ISSAmount, req.Currency).Decimal().StringFixed(2),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not encode the fiscal document").
			Mark(ierr.ErrSystem)
	}

	c.logger.Infow("emitting nfse",
		"nfse_id", req.DocumentID,
		"invoice_id", req.InvoiceID,
		"tenant_id", req.TenantID,
		"iss_amount", req.ISSAmount,
	)

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/v1/nfse",
		Headers: c.headers(req.IdempotencyKey),
		Body:    body,
	})
	if err != nil {
		c.logger.Errorw("nfse emission failed", "nfse_id", req.DocumentID, "error", err)
		return nil, externalError(err, "Fiscal provider rejected the emission", req.DocumentID)
	}

	var doc document
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, externalError(err, "Fiscal provider returned an unreadable response", req.DocumentID)
	}

	result := &base.EmitResult{ProviderRef: doc.ID, Response: string(resp.Body)}
	switch doc.Status {
	case providerStatusAuthorized:
		result.Authorized = doc.authorization(resp.Body)
	case providerStatusDenied:
		result.DenialReason = doc.ErrorMessage
	}
	return result, nil
}

// Cancel asks the municipality to cancel an authorized document
func (c *Client) Cancel(ctx context.Context, providerRef, reason string) error {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	_, err = c.http.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/v1/nfse/%s/cancel", c.baseURL, url.PathEscape(providerRef)),
		Headers: c.headers(""),
		Body:    body,
	})
	if err != nil {
		c.logger.Errorw("nfse cancellation failed", "provider_ref", providerRef, "error", err)
		details := map[string]any{"provider_ref": providerRef}
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			details["status_code"] = httpErr.StatusCode
		}
		return ierr.WithError(err).
			WithHint("Fiscal provider could not cancel the document").
			WithReportableDetails(details).
			Mark(ierr.ErrNFSeCancelFailed)
	}
	return nil
}

func (c *Client) headers(idempotencyKey string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Accept":        "application/json",
	}
	if idempotencyKey != "" {
		h["Idempotency-Key"] = idempotencyKey
	}
	return h
}

// VerifyWebhookSignature checks a "t=<unix>,v1=<hex hmac>" header where the
// hmac covers "<unix>.<payload>"
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) error {
	ts, sig, err := parseSignature(signature)
	if err != nil {
		return invalidSignature(err)
	}

	if c.maxSkew > 0 {
		skew := time.Since(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > c.maxSkew {
			return invalidSignature(fmt.Errorf("signature timestamp outside tolerance: %s", skew))
		}
	}

	expected := Sign(c.webhookSecret, payload, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return invalidSignature(fmt.Errorf("signature mismatch"))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of "<ts>.<payload>"
func Sign(secret string, payload []byte, ts int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte("."))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureHeader builds the header value the provider sends with callbacks
func SignatureHeader(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, Sign(secret, payload, ts))
}

func parseSignature(header string) (int64, string, error) {
	var (
		ts  int64
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid signature timestamp")
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", fmt.Errorf("malformed signature header")
	}
	return ts, sig, nil
}

// ParseWebhookEvent returns nil for events other than authorized, denied
// and cancelled
func (c *Client) ParseWebhookEvent(payload []byte) (*base.FiscalWebhookEvent, error) {
	var wp webhookPayload
	if err := json.Unmarshal(payload, &wp); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload could not be parsed").
			Mark(ierr.ErrValidation)
	}
	if wp.Document.ID == "" {
		return nil, ierr.NewError("webhook document has no id").
			WithHint("Webhook payload could not be parsed").
			Mark(ierr.ErrValidation)
	}

	event := &base.FiscalWebhookEvent{
		EventType:   wp.Event,
		ProviderRef: wp.Document.ID,
		Response:    string(payload),
	}
	switch wp.Event {
	case types.WebhookEventNFSeAuthorized:
		event.Authorization = wp.Document.authorization(payload)
	case types.WebhookEventNFSeDenied:
		event.ErrorMessage = wp.Document.ErrorMessage
	case types.WebhookEventNFSeCancelled:
	default:
		c.logger.Debugw("ignoring nfse event", "event", wp.Event, "provider_ref", wp.Document.ID)
		return nil, nil
	}
	return event, nil
}

func invalidSignature(err error) error {
	return ierr.WithError(err).
		WithHint("Invalid webhook signature").
		WithReportableDetails(map[string]any{"gateway": types.FiscalGateway}).
		Mark(ierr.ErrInvalidWebhookSignature)
}

func externalError(err error, hint, documentID string) error {
	details := map[string]any{"nfse_id": documentID}
	if httpErr, ok := httpclient.IsHTTPError(err); ok {
		details["status_code"] = httpErr.StatusCode
	}
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(details).
		Mark(ierr.ErrExternal)
}
