package testutil

import (
	"context"
	"sync"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
)

var _ base.PaymentGateway = (*MockPaymentGateway)(nil)

// MockPaymentGateway is a scriptable payment gateway. Charges succeed with a
// fresh transaction id unless ChargeResult or ChargeErr is set.
type MockPaymentGateway struct {
	mu sync.Mutex

	ChargeResult  *base.ChargeResult
	ChargeErr     error
	RefundErr     error
	SignatureErr  error
	WebhookEvent  *base.PaymentWebhookEvent
	WebhookErr    error
	ChargeCalls   []base.ChargeRequest
	RefundCalls   []base.RefundRequest
	VerifiedCount int
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (g *MockPaymentGateway) Name() string {
	return types.PaymentGatewayTypeStripe.String()
}

func (g *MockPaymentGateway) Charge(_ context.Context, req base.ChargeRequest) (*base.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ChargeCalls = append(g.ChargeCalls, req)
	if g.ChargeErr != nil {
		return nil, g.ChargeErr
	}
	if g.ChargeResult != nil {
		result := *g.ChargeResult
		return &result, nil
	}
	return &base.ChargeResult{
		TransactionID: "txn_" + types.GenerateUUID(),
		Status:        types.PaymentStatusPaid,
	}, nil
}

func (g *MockPaymentGateway) Refund(_ context.Context, req base.RefundRequest) (*base.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.RefundCalls = append(g.RefundCalls, req)
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	return &base.RefundResult{RefundID: "re_" + types.GenerateUUID()}, nil
}

func (g *MockPaymentGateway) VerifyWebhookSignature(_ []byte, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.VerifiedCount++
	if g.SignatureErr != nil {
		return g.SignatureErr
	}
	if signature == "" {
		return ierr.NewError("missing signature").Mark(ierr.ErrInvalidWebhookSignature)
	}
	return nil
}

func (g *MockPaymentGateway) ParseWebhookEvent(_ []byte) (*base.PaymentWebhookEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.WebhookErr != nil {
		return nil, g.WebhookErr
	}
	return g.WebhookEvent, nil
}

// Refunds returns how many refunds reached the gateway
func (g *MockPaymentGateway) Refunds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.RefundCalls)
}

// MockGatewayResolver resolves every registered mock by name
type MockGatewayResolver struct {
	gateways map[string]base.PaymentGateway
}

func NewMockGatewayResolver(gateways ...base.PaymentGateway) *MockGatewayResolver {
	return &MockGatewayResolver{
		gateways: lo.SliceToMap(gateways, func(g base.PaymentGateway) (string, base.PaymentGateway) {
			return g.Name(), g
		}),
	}
}

func (r *MockGatewayResolver) GetPaymentGateway(name string) (base.PaymentGateway, error) {
	if g, ok := r.gateways[name]; ok {
		return g, nil
	}
	return nil, ierr.NewError("payment gateway not supported").
		WithReportableDetails(map[string]any{"gateway": name}).
		Mark(ierr.ErrValidation)
}
