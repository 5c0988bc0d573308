package events

import (
	"time"

	"github.com/condohub/billing/internal/types"
)

// Event names emitted by the billing aggregates
const (
	SubscriptionCreated            = "subscription.created"
	SubscriptionActivated          = "subscription.activated"
	SubscriptionPastDue            = "subscription.past_due"
	SubscriptionGracePeriodStarted = "subscription.grace_period_started"
	SubscriptionSuspended          = "subscription.suspended"
	SubscriptionCanceled           = "subscription.canceled"
	SubscriptionExpired            = "subscription.expired"
	SubscriptionRenewed            = "subscription.renewed"
	SubscriptionPlanChanged        = "subscription.plan_changed"

	InvoiceIssued        = "invoice.issued"
	InvoicePaid          = "invoice.paid"
	InvoicePastDue       = "invoice.past_due"
	InvoiceVoided        = "invoice.voided"
	InvoiceUncollectible = "invoice.uncollectible"

	PaymentConfirmed = "payment.confirmed"
	PaymentFailed    = "payment.failed"
	PaymentRefunded  = "payment.refunded"

	NFSeRequested  = "nfse.requested"
	NFSeAuthorized = "nfse.authorized"
	NFSeDenied     = "nfse.denied"
	NFSeCancelled  = "nfse.cancelled"
)

// DomainEvent is a fact recorded by an aggregate transition. It is collected
// in the aggregate's Outbox and drained by the service after the mutation is
// persisted.
type DomainEvent struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	TenantID      string         `json:"tenant_id"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// NewDomainEvent builds an event stamped with a fresh id and the current time
func NewDomainEvent(name, tenantID, aggregateType, aggregateID string, payload map[string]any) DomainEvent {
	return DomainEvent{
		ID:            types.GenerateUUID(),
		Name:          name,
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
}

// Outbox is embedded by aggregates. It is not persisted.
type Outbox struct {
	pending []DomainEvent
}

// Record appends an event to the outbox
func (o *Outbox) Record(e DomainEvent) {
	o.pending = append(o.pending, e)
}

// PendingEvents returns the recorded events without draining them
func (o *Outbox) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), o.pending...)
}

// PullEvents drains the outbox
func (o *Outbox) PullEvents() []DomainEvent {
	drained := o.pending
	o.pending = nil
	return drained
}
