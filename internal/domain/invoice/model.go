package invoice

import (
	"fmt"
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/period"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

const aggregateType = "invoice"

// Invoice settles one billing period of a subscription
type Invoice struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenant_id"`
	SubscriptionID string              `json:"subscription_id"`
	Number         string              `json:"number"`
	IdempotencyKey string              `json:"idempotency_key"`
	Status         types.InvoiceStatus `json:"status"`
	Currency       string              `json:"currency"`
	Subtotal       money.Money         `json:"-"`
	Tax            money.Money         `json:"-"`
	Discount       money.Money         `json:"-"`
	Total          money.Money         `json:"-"`
	Period         period.Period       `json:"period"`
	DueDate        time.Time           `json:"due_date"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	VoidedAt       *time.Time          `json:"voided_at,omitempty"`
	Items          []*Item             `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	events.Outbox `json:"-"`
}

// Item is a single invoice line. total = unit price x quantity.
type Item struct {
	ID          string                `json:"id"`
	InvoiceID   string                `json:"invoice_id"`
	Type        types.InvoiceItemType `json:"type"`
	Description string                `json:"description"`
	Quantity    int64                 `json:"quantity"`
	UnitPrice   money.Money           `json:"-"`
	Total       money.Money           `json:"-"`
	Position    int                   `json:"position"`
}

// New creates a Draft invoice with zero totals
func New(tenantID, subscriptionID, number, currency string, p period.Period, dueDate time.Time) *Invoice {
	now := time.Now().UTC()
	zero := money.Zero(currency)
	return &Invoice{
		ID:             types.GenerateUUID(),
		TenantID:       tenantID,
		SubscriptionID: subscriptionID,
		Number:         number,
		Status:         types.InvoiceStatusDraft,
		Currency:       zero.Currency(),
		Subtotal:       zero,
		Tax:            zero,
		Discount:       zero,
		Total:          zero,
		Period:         p,
		DueDate:        dueDate.UTC(),
		Items:          []*Item{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddItem appends a line while the invoice is Draft
func (inv *Invoice) AddItem(itemType types.InvoiceItemType, description string, quantity int64, unitPrice money.Money) (*Item, error) {
	if err := inv.ensureDraft("add item"); err != nil {
		return nil, err
	}
	if err := itemType.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, ierr.NewError("quantity must be at least 1").
			WithHint("Invoice item quantity must be at least 1").
			WithReportableDetails(map[string]any{
				"quantity": quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	if unitPrice.Currency() != inv.Currency {
		_, err := money.Zero(inv.Currency).Add(unitPrice)
		return nil, err
	}

	item := &Item{
		ID:          types.GenerateUUID(),
		InvoiceID:   inv.ID,
		Type:        itemType,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       unitPrice.Multiply(quantity),
		Position:    len(inv.Items),
	}
	inv.Items = append(inv.Items, item)
	inv.touch()
	return item, nil
}

// SetTax replaces the tax amount while Draft
func (inv *Invoice) SetTax(tax money.Money) error {
	if err := inv.ensureDraft("set tax"); err != nil {
		return err
	}
	if _, err := money.Zero(inv.Currency).Add(tax); err != nil {
		return err
	}
	inv.Tax = tax
	return nil
}

// SetDiscount replaces the discount amount while Draft
func (inv *Invoice) SetDiscount(discount money.Money) error {
	if err := inv.ensureDraft("set discount"); err != nil {
		return err
	}
	if _, err := money.Zero(inv.Currency).Add(discount); err != nil {
		return err
	}
	inv.Discount = discount
	return nil
}

// CalculateTotals recomputes subtotal from the items and
// total = subtotal + tax - discount
func (inv *Invoice) CalculateTotals() error {
	if err := inv.ensureDraft("calculate totals"); err != nil {
		return err
	}
	subtotal := money.Zero(inv.Currency)
	for _, item := range inv.Items {
		var err error
		if subtotal, err = subtotal.Add(item.Total); err != nil {
			return err
		}
	}
	total, err := subtotal.Add(inv.Tax)
	if err != nil {
		return err
	}
	if total, err = total.Subtract(inv.Discount); err != nil {
		return err
	}
	inv.Subtotal = subtotal
	inv.Total = total
	inv.touch()
	return nil
}

// Issue finalizes the invoice: Draft -> Open
func (inv *Invoice) Issue() error {
	if err := inv.transitionTo(types.InvoiceStatusOpen); err != nil {
		return err
	}
	inv.record(events.InvoiceIssued, map[string]any{
		"number":   inv.Number,
		"total":    inv.Total.Amount(),
		"currency": inv.Currency,
		"due_date": inv.DueDate,
	})
	return nil
}

func (inv *Invoice) MarkPaid(paidAt time.Time) error {
	if err := inv.transitionTo(types.InvoiceStatusPaid); err != nil {
		return err
	}
	paidAt = paidAt.UTC()
	inv.PaidAt = &paidAt
	inv.record(events.InvoicePaid, map[string]any{
		"total":   inv.Total.Amount(),
		"paid_at": paidAt,
	})
	return nil
}

func (inv *Invoice) MarkPastDue() error {
	if err := inv.transitionTo(types.InvoiceStatusPastDue); err != nil {
		return err
	}
	inv.record(events.InvoicePastDue, map[string]any{"due_date": inv.DueDate})
	return nil
}

func (inv *Invoice) Void(at time.Time) error {
	if err := inv.transitionTo(types.InvoiceStatusVoid); err != nil {
		return err
	}
	at = at.UTC()
	inv.VoidedAt = &at
	inv.record(events.InvoiceVoided, map[string]any{"voided_at": at})
	return nil
}

// MarkUncollectible writes the invoice off
func (inv *Invoice) MarkUncollectible() error {
	if err := inv.transitionTo(types.InvoiceStatusUncollectible); err != nil {
		return err
	}
	inv.record(events.InvoiceUncollectible, map[string]any{"total": inv.Total.Amount()})
	return nil
}

// IsOverdue reports whether an Open invoice passed its due date at now
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return inv.Status == types.InvoiceStatusOpen && now.After(inv.DueDate)
}

// DaysPastDue is the whole number of days elapsed since the due date
func (inv *Invoice) DaysPastDue(now time.Time) int {
	days := types.DaysBetween(inv.DueDate, now)
	if days < 0 {
		return 0
	}
	return days
}

func (inv *Invoice) ensureDraft(op string) error {
	if inv.Status == types.InvoiceStatusDraft {
		return nil
	}
	return ierr.NewError(fmt.Sprintf("cannot %s on a %s invoice", op, inv.Status)).
		WithHint("Invoice can only be changed while in draft").
		WithReportableDetails(map[string]any{
			"invoice_id": inv.ID,
			"status":     inv.Status,
			"operation":  op,
		}).
		Mark(ierr.ErrInvoiceNotDraft)
}

func (inv *Invoice) transitionTo(target types.InvoiceStatus) error {
	if err := types.InvoiceTransitions.Check(inv.Status, target, ierr.ErrInvalidInvoiceTransition); err != nil {
		return err
	}
	inv.Status = target
	inv.touch()
	return nil
}

func (inv *Invoice) touch() {
	inv.UpdatedAt = time.Now().UTC()
}

func (inv *Invoice) record(name string, payload map[string]any) {
	inv.Record(events.NewDomainEvent(name, inv.TenantID, aggregateType, inv.ID, payload))
}
