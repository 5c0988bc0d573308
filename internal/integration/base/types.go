package base

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/types"
	"github.com/shopspring/decimal"
)

// ChargeRequest asks a gateway to collect amount minor units for a payment
type ChargeRequest struct {
	PaymentID      string
	InvoiceID      string
	TenantID       string
	Amount         int64
	Currency       string
	Method         *string
	IdempotencyKey string
	Metadata       map[string]string
}

// ChargeResult is the gateway's synchronous answer. A declined charge is a
// result with Status Failed, not an error.
type ChargeResult struct {
	TransactionID string
	Status        types.PaymentStatus
	FailureReason string
}

// RefundRequest asks the gateway to return amount minor units of a captured
// transaction
type RefundRequest struct {
	PaymentID      string
	TransactionID  string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

type RefundResult struct {
	RefundID string
}

// PaymentWebhookEvent is a gateway callback normalized to our event types
type PaymentWebhookEvent struct {
	EventType     string
	TransactionID string
	FailureReason string
	OccurredAt    time.Time
}

// PaymentGateway collects and refunds money
type PaymentGateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	// VerifyWebhookSignature must be called before the payload is trusted
	VerifyWebhookSignature(payload []byte, signature string) error
	// ParseWebhookEvent returns nil for event types we do not handle
	ParseWebhookEvent(payload []byte) (*PaymentWebhookEvent, error)
}

// GatewayResolver picks the gateway named in a webhook route or config
type GatewayResolver interface {
	GetPaymentGateway(name string) (PaymentGateway, error)
}

// EmitRequest carries everything a municipal provider needs for one NFSe
type EmitRequest struct {
	DocumentID         string
	TenantID           string
	InvoiceID          string
	EmitterCNPJ        string
	MunicipalCode      string
	ServiceCode        string
	ServiceDescription string
	CompetenceDate     time.Time
	TotalAmount        int64
	Currency           string
	ISSRate            decimal.Decimal
	ISSAmount          int64
	IdempotencyKey     string
}

// EmitResult returns the provider reference. Authorized or DenialReason is
// set when the municipality answered synchronously.
type EmitResult struct {
	ProviderRef  string
	Authorized   *FiscalAuthorization
	DenialReason string
	Response     string
}

type FiscalAuthorization struct {
	Number           string
	VerificationCode string
	PDFURL           string
	XMLContent       string
	ProviderResponse string
}

// FiscalWebhookEvent is a provider callback about a previously emitted document
type FiscalWebhookEvent struct {
	EventType     string
	ProviderRef   string
	Authorization *FiscalAuthorization
	ErrorMessage  string
	Response      string
}

// FiscalProvider issues and cancels NFSe documents
type FiscalProvider interface {
	Emit(ctx context.Context, req EmitRequest) (*EmitResult, error)
	Cancel(ctx context.Context, providerRef, reason string) error
	VerifyWebhookSignature(payload []byte, signature string) error
	ParseWebhookEvent(payload []byte) (*FiscalWebhookEvent, error)
}
