package nfse

import (
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/types"
	"github.com/shopspring/decimal"
)

const aggregateType = "nfse"

// Document is the municipal service invoice issued for a paid invoice
type Document struct {
	ID                 string           `json:"id"`
	TenantID           string           `json:"tenant_id"`
	InvoiceID          string           `json:"invoice_id"`
	Status             types.NFSeStatus `json:"status"`
	ProviderRef        *string          `json:"provider_ref,omitempty"`
	Number             *string          `json:"number,omitempty"`
	VerificationCode   *string          `json:"verification_code,omitempty"`
	ServiceDescription string           `json:"service_description"`
	CompetenceDate     time.Time        `json:"competence_date"`
	TotalAmount        money.Money      `json:"-"`
	ISSRate            decimal.Decimal  `json:"iss_rate"`
	ISSAmount          money.Money      `json:"-"`
	PDFURL             *string          `json:"pdf_url,omitempty"`
	XMLContent         *string          `json:"-"`
	ProviderResponse   *string          `json:"-"`
	AuthorizedAt       *time.Time       `json:"authorized_at,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason       *string          `json:"cancel_reason,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	IdempotencyKey     string           `json:"idempotency_key"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`

	events.Outbox `json:"-"`
}

// Authorization is what the fiscal provider returns for an authorized document
type Authorization struct {
	Number           string
	VerificationCode string
	PDFURL           string
	XMLContent       string
	ProviderResponse string
}

// ComputeISS returns round(total x rate / 100) in minor units, rounding half
// away from zero. rate is a percentage such as 5.00.
func ComputeISS(total money.Money, rate decimal.Decimal) money.Money {
	iss := decimal.NewFromInt(total.Amount()).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return money.New(iss.IntPart(), total.Currency())
}

// New creates a Draft document and records the request
func New(tenantID, invoiceID, description string, competence time.Time, total money.Money, issRate decimal.Decimal) (*Document, error) {
	if issRate.IsNegative() || issRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ierr.NewError("iss rate out of range").
			WithHint("ISS rate must be a percentage between 0 and 100").
			WithReportableDetails(map[string]any{
				"iss_rate": issRate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	now := time.Now().UTC()
	d := &Document{
		ID:                 types.GenerateUUID(),
		TenantID:           tenantID,
		InvoiceID:          invoiceID,
		Status:             types.NFSeStatusDraft,
		ServiceDescription: description,
		CompetenceDate:     competence.UTC(),
		TotalAmount:        total,
		ISSRate:            issRate,
		ISSAmount:          ComputeISS(total, issRate),
		IdempotencyKey:     idempotency.NFSeKey(invoiceID),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	d.record(events.NFSeRequested, map[string]any{
		"invoice_id":   invoiceID,
		"total_amount": total.Amount(),
		"iss_amount":   d.ISSAmount.Amount(),
	})
	return d, nil
}

// MarkProcessing records the provider reference of an asynchronous emission
func (d *Document) MarkProcessing(providerRef string) error {
	if err := d.transitionTo(types.NFSeStatusProcessing); err != nil {
		return err
	}
	d.ProviderRef = &providerRef
	return nil
}

// MarkAuthorized is reached from Processing or directly from Draft when the
// provider authorizes synchronously
func (d *Document) MarkAuthorized(auth Authorization, at time.Time) error {
	if err := d.transitionTo(types.NFSeStatusAuthorized); err != nil {
		return err
	}
	at = at.UTC()
	d.Number = optional(auth.Number)
	d.VerificationCode = optional(auth.VerificationCode)
	d.PDFURL = optional(auth.PDFURL)
	d.XMLContent = optional(auth.XMLContent)
	d.ProviderResponse = optional(auth.ProviderResponse)
	d.AuthorizedAt = &at
	d.ErrorMessage = ""
	d.record(events.NFSeAuthorized, map[string]any{
		"invoice_id": d.InvoiceID,
		"number":     auth.Number,
	})
	return nil
}

func (d *Document) MarkDenied(errorMessage, providerResponse string) error {
	if err := d.transitionTo(types.NFSeStatusDenied); err != nil {
		return err
	}
	d.ErrorMessage = errorMessage
	d.ProviderResponse = optional(providerResponse)
	d.record(events.NFSeDenied, map[string]any{
		"invoice_id": d.InvoiceID,
		"error":      errorMessage,
	})
	return nil
}

// Cancel is only legal for an Authorized document
func (d *Document) Cancel(reason string, at time.Time) error {
	if err := d.transitionTo(types.NFSeStatusCancelled); err != nil {
		return err
	}
	at = at.UTC()
	d.CancelledAt = &at
	d.CancelReason = optional(reason)
	d.record(events.NFSeCancelled, map[string]any{
		"invoice_id": d.InvoiceID,
		"reason":     reason,
	})
	return nil
}

// ResetForRetry returns a Denied document to Draft and clears the previous
// attempt's provider state
func (d *Document) ResetForRetry() error {
	if !d.Status.CanRetry() {
		return ierr.NewError("nfse document cannot be retried").
			WithHint("Only denied fiscal documents can be retried").
			WithReportableDetails(map[string]any{
				"nfse_id": d.ID,
				"status":  d.Status,
			}).
			Mark(ierr.ErrNFSeCannotRetry)
	}
	if err := d.transitionTo(types.NFSeStatusDraft); err != nil {
		return err
	}
	d.ProviderRef = nil
	d.ProviderResponse = nil
	d.ErrorMessage = ""
	return nil
}

func (d *Document) transitionTo(target types.NFSeStatus) error {
	if err := types.NFSeTransitions.Check(d.Status, target, ierr.ErrInvalidNFSeTransition); err != nil {
		return err
	}
	d.Status = target
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *Document) record(name string, payload map[string]any) {
	d.Record(events.NewDomainEvent(name, d.TenantID, aggregateType, d.ID, payload))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
