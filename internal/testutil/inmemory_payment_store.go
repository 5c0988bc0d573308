package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/payment"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrPaymentNotFound, copyPayment),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	c := *p
	c.Outbox = events.Outbox{}
	c.Metadata = lo.Assign(p.Metadata)
	return &c
}

// conflicts mirrors the partial unique indexes: one Paid payment per invoice
// and one payment per gateway transaction
func paymentConflicts(p *payment.Payment) FilterFunc[*payment.Payment] {
	return func(existing *payment.Payment) bool {
		bothPaid := existing.InvoiceID == p.InvoiceID &&
			existing.Status == types.PaymentStatusPaid &&
			p.Status == types.PaymentStatusPaid
		sameTxn := p.GatewayTransactionID != nil && existing.GatewayTransactionID != nil &&
			existing.Gateway == p.Gateway &&
			*existing.GatewayTransactionID == *p.GatewayTransactionID
		return bothPaid || sameTxn
	}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	return s.CreateUnique(ctx, p.ID, p, paymentConflicts(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	return s.UpdateUnique(ctx, p.ID, p, paymentConflicts(p))
}

func (s *InMemoryPaymentStore) GetByGatewayTransactionID(ctx context.Context, gateway, transactionID string) (*payment.Payment, error) {
	return s.Find(ctx, func(p *payment.Payment) bool {
		return p.Gateway == gateway && p.GatewayTransactionID != nil && *p.GatewayTransactionID == transactionID
	}, nil)
}

func (s *InMemoryPaymentStore) ListByInvoiceID(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	return s.List(ctx, func(p *payment.Payment) bool { return p.InvoiceID == invoiceID },
		func(i, j *payment.Payment) bool { return i.CreatedAt.Before(j.CreatedAt) }), nil
}

func (s *InMemoryPaymentStore) CountFailedByInvoiceID(ctx context.Context, invoiceID string) (int, error) {
	return s.Count(ctx, func(p *payment.Payment) bool {
		return p.InvoiceID == invoiceID && p.Status == types.PaymentStatusFailed
	}), nil
}
