package payment

import (
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

const aggregateType = "payment"

// Payment is one attempt to collect an invoice through a gateway
type Payment struct {
	ID                   string              `json:"id"`
	TenantID             string              `json:"tenant_id"`
	InvoiceID            string              `json:"invoice_id"`
	Gateway              string              `json:"gateway"`
	GatewayTransactionID *string             `json:"gateway_transaction_id,omitempty"`
	Amount               money.Money         `json:"-"`
	Status               types.PaymentStatus `json:"status"`
	Method               *string             `json:"method,omitempty"`
	FailureReason        *string             `json:"failure_reason,omitempty"`
	RefundedAmount       *money.Money        `json:"-"`
	PaidAt               *time.Time          `json:"paid_at,omitempty"`
	FailedAt             *time.Time          `json:"failed_at,omitempty"`
	RefundedAt           *time.Time          `json:"refunded_at,omitempty"`
	Metadata             map[string]string   `json:"metadata,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`

	events.Outbox `json:"-"`
}

// New creates a Pending payment attempt
func New(tenantID, invoiceID, gateway string, amount money.Money, method *string, metadata map[string]string) *Payment {
	now := time.Now().UTC()
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &Payment{
		ID:        types.GenerateUUID(),
		TenantID:  tenantID,
		InvoiceID: invoiceID,
		Gateway:   gateway,
		Amount:    amount,
		Status:    types.PaymentStatusPending,
		Method:    method,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Authorize binds the gateway transaction: Pending -> Authorized
func (p *Payment) Authorize(gatewayTransactionID string) error {
	if err := p.transitionTo(types.PaymentStatusAuthorized); err != nil {
		return err
	}
	p.GatewayTransactionID = &gatewayTransactionID
	return nil
}

// BindTransaction records the gateway transaction id without changing status
func (p *Payment) BindTransaction(gatewayTransactionID string) {
	if gatewayTransactionID == "" {
		return
	}
	p.GatewayTransactionID = &gatewayTransactionID
}

// ConfirmPayment marks the funds as captured
func (p *Payment) ConfirmPayment(paidAt time.Time) error {
	if err := p.transitionTo(types.PaymentStatusPaid); err != nil {
		return err
	}
	paidAt = paidAt.UTC()
	p.PaidAt = &paidAt
	p.record(events.PaymentConfirmed, map[string]any{
		"invoice_id": p.InvoiceID,
		"amount":     p.Amount.Amount(),
		"currency":   p.Amount.Currency(),
		"paid_at":    paidAt,
	})
	return nil
}

func (p *Payment) Fail(failedAt time.Time, reason string) error {
	if err := p.transitionTo(types.PaymentStatusFailed); err != nil {
		return err
	}
	failedAt = failedAt.UTC()
	p.FailedAt = &failedAt
	if reason != "" {
		p.FailureReason = &reason
	}
	p.record(events.PaymentFailed, map[string]any{
		"invoice_id": p.InvoiceID,
		"reason":     reason,
	})
	return nil
}

// Refund records a gateway refund of amount: Paid -> Refunded. Amount bounds
// are checked by the caller before the gateway is contacted.
func (p *Payment) Refund(amount money.Money, at time.Time) error {
	if err := p.transitionTo(types.PaymentStatusRefunded); err != nil {
		return err
	}
	at = at.UTC()
	p.RefundedAmount = &amount
	p.RefundedAt = &at
	p.record(events.PaymentRefunded, map[string]any{
		"invoice_id": p.InvoiceID,
		"amount":     amount.Amount(),
	})
	return nil
}

func (p *Payment) Cancel() error {
	return p.transitionTo(types.PaymentStatusCanceled)
}

func (p *Payment) transitionTo(target types.PaymentStatus) error {
	if err := types.PaymentTransitions.Check(p.Status, target, ierr.ErrInvalidPaymentTransition); err != nil {
		return err
	}
	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Payment) record(name string, payload map[string]any) {
	p.Record(events.NewDomainEvent(name, p.TenantID, aggregateType, p.ID, payload))
}
