package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/invoice"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrInvoiceNotFound, copyInvoice),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	c := *inv
	c.Outbox = events.Outbox{}
	c.Items = make([]*invoice.Item, 0, len(inv.Items))
	for _, item := range inv.Items {
		ic := *item
		c.Items = append(c.Items, &ic)
	}
	return &c
}

// Create enforces one invoice per subscription period, the idempotency key
// and the per tenant number
func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	return s.CreateUnique(ctx, inv.ID, inv, func(existing *invoice.Invoice) bool {
		samePeriod := existing.SubscriptionID == inv.SubscriptionID &&
			existing.Period.Start.Equal(inv.Period.Start) &&
			existing.Period.End.Equal(inv.Period.End)
		sameKey := inv.IdempotencyKey != "" && existing.IdempotencyKey == inv.IdempotencyKey
		sameNumber := existing.TenantID == inv.TenantID && existing.Number == inv.Number
		return samePeriod || sameKey || sameNumber
	})
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Update(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) GetBySubscriptionAndPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	return s.Find(ctx, func(inv *invoice.Invoice) bool {
		return inv.SubscriptionID == subscriptionID &&
			inv.Period.Start.Equal(periodStart) &&
			inv.Period.End.Equal(periodEnd)
	}, nil)
}

func (s *InMemoryInvoiceStore) ListPastDue(ctx context.Context) ([]*invoice.Invoice, error) {
	return s.List(ctx, func(inv *invoice.Invoice) bool {
		return inv.Status == types.InvoiceStatusPastDue
	}, byDueDate), nil
}

func (s *InMemoryInvoiceStore) ListOverdue(ctx context.Context, now time.Time) ([]*invoice.Invoice, error) {
	return s.List(ctx, func(inv *invoice.Invoice) bool {
		return inv.IsOverdue(now)
	}, byDueDate), nil
}

func byDueDate(i, j *invoice.Invoice) bool {
	if i.DueDate.Equal(j.DueDate) {
		return i.ID < j.ID
	}
	return i.DueDate.Before(j.DueDate)
}

// InMemoryInvoiceSequenceStore implements invoice.SequenceRepository with a
// mutex guarded counter per (tenant, year)
type InMemoryInvoiceSequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewInMemoryInvoiceSequenceStore() *InMemoryInvoiceSequenceStore {
	return &InMemoryInvoiceSequenceStore{counters: make(map[string]int64)}
}

func (s *InMemoryInvoiceSequenceStore) Next(_ context.Context, tenantID string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sequenceKey(tenantID, year)
	s.counters[key]++
	return s.counters[key], nil
}

func (s *InMemoryInvoiceSequenceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = make(map[string]int64)
}

func sequenceKey(tenantID string, year int) string {
	return tenantID + ":" + strconv.Itoa(year)
}
