package dto

import (
	"time"

	"github.com/condohub/billing/internal/domain/invoice"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
	"github.com/samber/lo"
)

// GenerateInvoiceRequest bills one period of a subscription. Without an
// explicit period the subscription's current period is used. The invoice is
// issued right away unless Draft is set.
type GenerateInvoiceRequest struct {
	SubscriptionID string     `json:"subscription_id" validate:"required"`
	PeriodStart    *time.Time `json:"period_start,omitempty"`
	PeriodEnd      *time.Time `json:"period_end,omitempty"`
	Tax            int64      `json:"tax" validate:"gte=0"`
	Discount       int64      `json:"discount" validate:"gte=0"`
	Draft          bool       `json:"draft"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if (r.PeriodStart == nil) != (r.PeriodEnd == nil) {
		return ierr.NewError("period start and end must be given together").
			WithHint("Provide both period start and period end, or neither").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type InvoiceItemResponse struct {
	ID          string                `json:"id"`
	Type        types.InvoiceItemType `json:"type"`
	Description string                `json:"description"`
	Quantity    int64                 `json:"quantity"`
	UnitPrice   int64                 `json:"unit_price"`
	Total       int64                 `json:"total"`
}

type InvoiceResponse struct {
	ID             string                `json:"id"`
	TenantID       string                `json:"tenant_id"`
	SubscriptionID string                `json:"subscription_id"`
	Number         string                `json:"number"`
	Status         types.InvoiceStatus   `json:"status"`
	Currency       string                `json:"currency"`
	Subtotal       int64                 `json:"subtotal"`
	Tax            int64                 `json:"tax"`
	Discount       int64                 `json:"discount"`
	Total          int64                 `json:"total"`
	PeriodStart    string                `json:"period_start"`
	PeriodEnd      string                `json:"period_end"`
	DueDate        string                `json:"due_date"`
	PaidAt         *string               `json:"paid_at,omitempty"`
	VoidedAt       *string               `json:"voided_at,omitempty"`
	Items          []InvoiceItemResponse `json:"items"`
	CreatedAt      string                `json:"created_at"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:             inv.ID,
		TenantID:       inv.TenantID,
		SubscriptionID: inv.SubscriptionID,
		Number:         inv.Number,
		Status:         inv.Status,
		Currency:       inv.Currency,
		Subtotal:       inv.Subtotal.Amount(),
		Tax:            inv.Tax.Amount(),
		Discount:       inv.Discount.Amount(),
		Total:          inv.Total.Amount(),
		PeriodStart:    types.FormatTime(inv.Period.Start),
		PeriodEnd:      types.FormatTime(inv.Period.End),
		DueDate:        types.FormatTime(inv.DueDate),
		PaidAt:         types.FormatTimePtr(inv.PaidAt),
		VoidedAt:       types.FormatTimePtr(inv.VoidedAt),
		Items: lo.Map(inv.Items, func(item *invoice.Item, _ int) InvoiceItemResponse {
			return InvoiceItemResponse{
				ID:          item.ID,
				Type:        item.Type,
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice.Amount(),
				Total:       item.Total.Amount(),
			}
		}),
		CreatedAt: types.FormatTime(inv.CreatedAt),
	}
}

// MarkOverdueResponse summarizes one overdue sweep
type MarkOverdueResponse struct {
	Processed int      `json:"processed"`
	MarkedIDs []string `json:"marked_ids"`
	Failed    []string `json:"failed,omitempty"`
}
