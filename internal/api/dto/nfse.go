package dto

import (
	"github.com/condohub/billing/internal/domain/nfse"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
)

type CancelNFSeRequest struct {
	Reason string `json:"reason" validate:"required,min=15"`
}

func (r *CancelNFSeRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type NFSeResponse struct {
	ID                 string           `json:"id"`
	TenantID           string           `json:"tenant_id"`
	InvoiceID          string           `json:"invoice_id"`
	Status             types.NFSeStatus `json:"status"`
	ProviderRef        *string          `json:"provider_ref,omitempty"`
	Number             *string          `json:"number,omitempty"`
	VerificationCode   *string          `json:"verification_code,omitempty"`
	ServiceDescription string           `json:"service_description"`
	CompetenceDate     string           `json:"competence_date"`
	TotalAmount        int64            `json:"total_amount"`
	Currency           string           `json:"currency"`
	ISSRate            string           `json:"iss_rate"`
	ISSAmount          int64            `json:"iss_amount"`
	PDFURL             *string          `json:"pdf_url,omitempty"`
	AuthorizedAt       *string          `json:"authorized_at,omitempty"`
	CancelledAt        *string          `json:"cancelled_at,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	IdempotencyKey     string           `json:"idempotency_key"`
	CreatedAt          string           `json:"created_at"`
}

func NewNFSeResponse(d *nfse.Document) *NFSeResponse {
	return &NFSeResponse{
		ID:                 d.ID,
		TenantID:           d.TenantID,
		InvoiceID:          d.InvoiceID,
		Status:             d.Status,
		ProviderRef:        d.ProviderRef,
		Number:             d.Number,
		VerificationCode:   d.VerificationCode,
		ServiceDescription: d.ServiceDescription,
		CompetenceDate:     types.FormatTime(d.CompetenceDate),
		TotalAmount:        d.TotalAmount.Amount(),
		Currency:           d.TotalAmount.Currency(),
		ISSRate:            d.ISSRate.StringFixed(2),
		ISSAmount:          d.ISSAmount.Amount(),
		PDFURL:             d.PDFURL,
		AuthorizedAt:       types.FormatTimePtr(d.AuthorizedAt),
		CancelledAt:        types.FormatTimePtr(d.CancelledAt),
		ErrorMessage:       d.ErrorMessage,
		IdempotencyKey:     d.IdempotencyKey,
		CreatedAt:          types.FormatTime(d.CreatedAt),
	}
}
