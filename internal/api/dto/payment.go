package dto

import (
	"github.com/condohub/billing/internal/domain/payment"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
)

// ProcessPaymentRequest charges the open balance of an invoice
type ProcessPaymentRequest struct {
	InvoiceID string            `json:"invoice_id" validate:"required"`
	Gateway   string            `json:"gateway,omitempty"`
	Method    *string           `json:"method,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (r *ProcessPaymentRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type IssueRefundRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Reason    string `json:"reason"`
}

func (r *IssueRefundRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type PaymentResponse struct {
	ID                   string              `json:"id"`
	TenantID             string              `json:"tenant_id"`
	InvoiceID            string              `json:"invoice_id"`
	Gateway              string              `json:"gateway"`
	GatewayTransactionID *string             `json:"gateway_transaction_id,omitempty"`
	Amount               int64               `json:"amount"`
	Currency             string              `json:"currency"`
	Status               types.PaymentStatus `json:"status"`
	Method               *string             `json:"method,omitempty"`
	FailureReason        *string             `json:"failure_reason,omitempty"`
	RefundedAmount       *int64              `json:"refunded_amount,omitempty"`
	PaidAt               *string             `json:"paid_at,omitempty"`
	FailedAt             *string             `json:"failed_at,omitempty"`
	RefundedAt           *string             `json:"refunded_at,omitempty"`
	Metadata             map[string]string   `json:"metadata,omitempty"`
	CreatedAt            string              `json:"created_at"`
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	resp := &PaymentResponse{
		ID:                   p.ID,
		TenantID:             p.TenantID,
		InvoiceID:            p.InvoiceID,
		Gateway:              p.Gateway,
		GatewayTransactionID: p.GatewayTransactionID,
		Amount:               p.Amount.Amount(),
		Currency:             p.Amount.Currency(),
		Status:               p.Status,
		Method:               p.Method,
		FailureReason:        p.FailureReason,
		PaidAt:               types.FormatTimePtr(p.PaidAt),
		FailedAt:             types.FormatTimePtr(p.FailedAt),
		RefundedAt:           types.FormatTimePtr(p.RefundedAt),
		Metadata:             p.Metadata,
		CreatedAt:            types.FormatTime(p.CreatedAt),
	}
	if p.RefundedAmount != nil {
		amount := p.RefundedAmount.Amount()
		resp.RefundedAmount = &amount
	}
	return resp
}
