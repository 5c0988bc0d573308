package testutil

import (
	"context"
	"sync"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/types"
)

var _ base.FiscalProvider = (*MockFiscalProvider)(nil)

// MockFiscalProvider answers emissions asynchronously with a fresh provider
// reference unless EmitResult or EmitErr is set
type MockFiscalProvider struct {
	mu sync.Mutex

	EmitResult   *base.EmitResult
	EmitErr      error
	CancelErr    error
	SignatureErr error
	WebhookEvent *base.FiscalWebhookEvent
	EmitCalls    []base.EmitRequest
	CancelCalls  []string
}

func NewMockFiscalProvider() *MockFiscalProvider {
	return &MockFiscalProvider{}
}

func (p *MockFiscalProvider) Emit(_ context.Context, req base.EmitRequest) (*base.EmitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.EmitCalls = append(p.EmitCalls, req)
	if p.EmitErr != nil {
		return nil, p.EmitErr
	}
	if p.EmitResult != nil {
		result := *p.EmitResult
		return &result, nil
	}
	return &base.EmitResult{ProviderRef: "prov_" + types.GenerateUUID()}, nil
}

func (p *MockFiscalProvider) Cancel(_ context.Context, providerRef, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CancelCalls = append(p.CancelCalls, providerRef)
	return p.CancelErr
}

func (p *MockFiscalProvider) VerifyWebhookSignature(_ []byte, signature string) error {
	if p.SignatureErr != nil {
		return p.SignatureErr
	}
	if signature == "" {
		return ierr.NewError("missing signature").Mark(ierr.ErrInvalidWebhookSignature)
	}
	return nil
}

func (p *MockFiscalProvider) ParseWebhookEvent(_ []byte) (*base.FiscalWebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.WebhookEvent, nil
}

// Emissions returns how many emissions reached the provider
func (p *MockFiscalProvider) Emissions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.EmitCalls)
}
