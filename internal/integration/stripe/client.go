package stripe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/condohub/billing/internal/config"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	eventPaymentIntentSucceeded = "payment_intent.succeeded"
	eventPaymentIntentFailed    = "payment_intent.payment_failed"
	eventChargeRefunded         = "charge.refunded"
)

// Gateway implements base.PaymentGateway with Stripe PaymentIntents
type Gateway struct {
	client        *stripe.Client
	webhookSecret string
	logger        *logger.Logger
}

// NewGateway creates a Stripe gateway from the stripe config section
func NewGateway(cfg *config.Configuration, logger *logger.Logger) *Gateway {
	return &Gateway{
		client:        stripe.NewClient(cfg.Stripe.SecretKey, nil),
		webhookSecret: cfg.Stripe.WebhookSecret,
		logger:        logger,
	}
}

func (g *Gateway) Name() string {
	return types.PaymentGatewayTypeStripe.String()
}

// Charge creates a PaymentIntent. When a payment method is given the intent
// is confirmed off session, otherwise it stays pending until the webhook.
func (g *Gateway) Charge(ctx context.Context, req base.ChargeRequest) (*base.ChargeResult, error) {
	metadata := lo.Assign(req.Metadata, map[string]string{
		"payment_id": req.PaymentID,
		"invoice_id": req.InvoiceID,
		"tenant_id":  req.TenantID,
	})

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		Metadata: metadata,
	}
	if req.Method != nil && *req.Method != "" {
		params.PaymentMethod = req.Method
		params.OffSession = stripe.Bool(true)
		params.Confirm = stripe.Bool(true)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	g.logger.Infow("creating stripe payment intent",
		"payment_id", req.PaymentID,
		"invoice_id", req.InvoiceID,
		"amount", req.Amount,
		"currency", req.Currency,
	)

	intent, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeCardDeclined {
			result := &base.ChargeResult{
				Status:        types.PaymentStatusFailed,
				FailureReason: stripeErr.Msg,
			}
			if stripeErr.PaymentIntent != nil {
				result.TransactionID = stripeErr.PaymentIntent.ID
			}
			return result, nil
		}

		g.logger.Errorw("stripe charge failed",
			"payment_id", req.PaymentID,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint("Payment gateway rejected the charge").
			WithReportableDetails(map[string]any{
				"gateway":    g.Name(),
				"payment_id": req.PaymentID,
			}).
			Mark(ierr.ErrExternal)
	}

	return &base.ChargeResult{
		TransactionID: intent.ID,
		Status:        statusFromIntent(intent),
		FailureReason: failureReason(intent),
	}, nil
}

func statusFromIntent(intent *stripe.PaymentIntent) types.PaymentStatus {
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return types.PaymentStatusPaid
	case stripe.PaymentIntentStatusRequiresCapture:
		return types.PaymentStatusAuthorized
	case stripe.PaymentIntentStatusCanceled:
		return types.PaymentStatusCanceled
	default:
		return types.PaymentStatusPending
	}
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil {
		return intent.LastPaymentError.Msg
	}
	if intent.Status == stripe.PaymentIntentStatusCanceled {
		return string(intent.CancellationReason)
	}
	return ""
}

// Refund refunds part or all of the PaymentIntent behind TransactionID
func (g *Gateway) Refund(ctx context.Context, req base.RefundRequest) (*base.RefundResult, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(req.Amount),
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	refund, err := g.client.V1Refunds.Create(ctx, params)
	if err != nil {
		g.logger.Errorw("stripe refund failed",
			"payment_id", req.PaymentID,
			"transaction_id", req.TransactionID,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint("Payment gateway rejected the refund").
			WithReportableDetails(map[string]any{
				"gateway":        g.Name(),
				"transaction_id": req.TransactionID,
			}).
			Mark(ierr.ErrExternal)
	}

	return &base.RefundResult{RefundID: refund.ID}, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header
func (g *Gateway) VerifyWebhookSignature(payload []byte, signature string) error {
	_, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.logger.Warnw("stripe webhook verification failed", "error", err)
		return ierr.WithError(err).
			WithHint("Invalid webhook signature").
			WithReportableDetails(map[string]any{"gateway": g.Name()}).
			Mark(ierr.ErrInvalidWebhookSignature)
	}
	return nil
}

// ParseWebhookEvent maps the Stripe events we act on. Others return nil.
func (g *Gateway) ParseWebhookEvent(payload []byte) (*base.PaymentWebhookEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, invalidPayload(err)
	}
	if event.Data == nil {
		return nil, invalidPayload(errors.New("event has no data"))
	}

	occurredAt := time.Unix(event.Created, 0).UTC()

	switch string(event.Type) {
	case eventPaymentIntentSucceeded, eventPaymentIntentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, invalidPayload(err)
		}
		parsed := &base.PaymentWebhookEvent{
			EventType:     types.WebhookEventPaymentSucceeded,
			TransactionID: intent.ID,
			OccurredAt:    occurredAt,
		}
		if string(event.Type) == eventPaymentIntentFailed {
			parsed.EventType = types.WebhookEventPaymentFailed
			parsed.FailureReason = failureReason(&intent)
		}
		return parsed, nil

	case eventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, invalidPayload(err)
		}
		if charge.PaymentIntent == nil {
			return nil, invalidPayload(errors.New("refunded charge has no payment intent"))
		}
		return &base.PaymentWebhookEvent{
			EventType:     types.WebhookEventPaymentRefunded,
			TransactionID: charge.PaymentIntent.ID,
			OccurredAt:    occurredAt,
		}, nil
	}

	g.logger.Debugw("ignoring stripe event", "type", event.Type, "id", event.ID)
	return nil, nil
}

func invalidPayload(err error) error {
	return ierr.WithError(err).
		WithHint("Webhook payload could not be parsed").
		Mark(ierr.ErrValidation)
}
