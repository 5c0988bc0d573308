package stripe

import (
	"testing"
	"time"

	"github.com/condohub/billing/internal/config"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

func newTestGateway() *Gateway {
	cfg := config.GetDefaultConfig()
	cfg.Stripe = config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: testSecret}
	return NewGateway(cfg, logger.NewNoopLogger())
}

func TestVerifyWebhookSignature(t *testing.T) {
	g := newTestGateway()
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	require.NoError(t, g.VerifyWebhookSignature(payload, signed.Header))

	err := g.VerifyWebhookSignature(payload, "t=1,v1=deadbeef")
	assert.Equal(t, ierr.CodeInvalidWebhookSignature, ierr.Code(err))
	assert.True(t, ierr.IsUnauthorized(err))
}

func TestParseWebhookEvent(t *testing.T) {
	g := newTestGateway()

	cases := []struct {
		name      string
		payload   string
		eventType string
		txn       string
		reason    string
	}{
		{
			name:      "succeeded",
			payload:   `{"id":"evt_1","type":"payment_intent.succeeded","created":1767225600,"data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded"}}}`,
			eventType: types.WebhookEventPaymentSucceeded,
			txn:       "pi_1",
		},
		{
			name:      "failed",
			payload:   `{"id":"evt_2","type":"payment_intent.payment_failed","created":1767225600,"data":{"object":{"id":"pi_2","object":"payment_intent","status":"requires_payment_method","last_payment_error":{"message":"card declined"}}}}`,
			eventType: types.WebhookEventPaymentFailed,
			txn:       "pi_2",
			reason:    "card declined",
		},
		{
			name:      "refunded",
			payload:   `{"id":"evt_3","type":"charge.refunded","created":1767225600,"data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_3"}}}`,
			eventType: types.WebhookEventPaymentRefunded,
			txn:       "pi_3",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := g.ParseWebhookEvent([]byte(tc.payload))
			require.NoError(t, err)
			require.NotNil(t, event)
			assert.Equal(t, tc.eventType, event.EventType)
			assert.Equal(t, tc.txn, event.TransactionID)
			assert.Equal(t, tc.reason, event.FailureReason)
			assert.Equal(t, time.Unix(1767225600, 0).UTC(), event.OccurredAt)
		})
	}
}

func TestParseWebhookEventIgnoresUnknownTypes(t *testing.T) {
	event, err := newTestGateway().ParseWebhookEvent(
		[]byte(`{"id":"evt_9","type":"customer.created","data":{"object":{"id":"cus_1"}}}`))
	require.NoError(t, err)
	assert.Nil(t, event)

	_, err = newTestGateway().ParseWebhookEvent([]byte(`not json`))
	assert.True(t, ierr.IsValidation(err))
}
