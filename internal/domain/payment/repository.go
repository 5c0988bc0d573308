package payment

import "context"

// Repository defines the interface for payment persistence operations
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	// Update fails with ErrAlreadyExists when a second payment of the same
	// invoice would reach Paid
	Update(ctx context.Context, p *Payment) error
	GetByGatewayTransactionID(ctx context.Context, gateway, transactionID string) (*Payment, error)
	ListByInvoiceID(ctx context.Context, invoiceID string) ([]*Payment, error)
	CountFailedByInvoiceID(ctx context.Context, invoiceID string) (int, error)
}
