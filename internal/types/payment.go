package types

import (
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/samber/lo"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentTransitions lists the legal next states per payment status.
// Failed, Canceled and Refunded are terminal.
var PaymentTransitions = StateTransitions[PaymentStatus]{
	PaymentStatusPending: {
		PaymentStatusAuthorized,
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusCanceled,
	},
	PaymentStatusAuthorized: {
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusCanceled,
	},
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusFailed:   {},
	PaymentStatusCanceled: {},
	PaymentStatusRefunded: {},
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusAuthorized,
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusCanceled,
		PaymentStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentGatewayType names a payment gateway integration
type PaymentGatewayType string

const (
	PaymentGatewayTypeStripe PaymentGatewayType = "stripe"
)

func (g PaymentGatewayType) String() string {
	return string(g)
}

// Webhook event types accepted from payment gateways after normalization
const (
	WebhookEventPaymentSucceeded = "payment.succeeded"
	WebhookEventPaymentFailed    = "payment.failed"
	WebhookEventPaymentRefunded  = "payment.refunded"
)
