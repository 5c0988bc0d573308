package invoice

import (
	"context"
	"time"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create persists the invoice with its items. It fails with
	// ErrAlreadyExists when the subscription period is already invoiced.
	Create(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice with its items
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update persists status, totals and timestamps
	Update(ctx context.Context, inv *Invoice) error

	// GetBySubscriptionAndPeriod returns the invoice for the exact period
	GetBySubscriptionAndPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*Invoice, error)

	// ListPastDue returns every invoice in PastDue across tenants, oldest due first
	ListPastDue(ctx context.Context) ([]*Invoice, error)

	// ListOverdue returns Open invoices whose due date is before now
	ListOverdue(ctx context.Context, now time.Time) ([]*Invoice, error)
}

// SequenceRepository hands out invoice sequence values
type SequenceRepository interface {
	// Next atomically increments and returns the counter of (tenant, year),
	// starting at 1
	Next(ctx context.Context, tenantID string, year int) (int64, error)
}
