package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/period"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type invoiceRow struct {
	ID             string          `db:"id"`
	TenantID       string          `db:"tenant_id"`
	SubscriptionID string          `db:"subscription_id"`
	Number         string          `db:"number"`
	IdempotencyKey string          `db:"idempotency_key"`
	Status         string          `db:"status"`
	Currency       string          `db:"currency"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	Tax            decimal.Decimal `db:"tax"`
	Discount       decimal.Decimal `db:"discount"`
	Total          decimal.Decimal `db:"total"`
	PeriodStart    time.Time       `db:"period_start"`
	PeriodEnd      time.Time       `db:"period_end"`
	DueDate        time.Time       `db:"due_date"`
	PaidAt         *time.Time      `db:"paid_at"`
	VoidedAt       *time.Time      `db:"voided_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func invoiceRowFrom(inv *invoice.Invoice) invoiceRow {
	return invoiceRow{
		ID:             inv.ID,
		TenantID:       inv.TenantID,
		SubscriptionID: inv.SubscriptionID,
		Number:         inv.Number,
		IdempotencyKey: inv.IdempotencyKey,
		Status:         string(inv.Status),
		Currency:       inv.Currency,
		Subtotal:       inv.Subtotal.Decimal(),
		Tax:            inv.Tax.Decimal(),
		Discount:       inv.Discount.Decimal(),
		Total:          inv.Total.Decimal(),
		PeriodStart:    inv.Period.Start,
		PeriodEnd:      inv.Period.End,
		DueDate:        inv.DueDate,
		PaidAt:         inv.PaidAt,
		VoidedAt:       inv.VoidedAt,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func (r invoiceRow) toDomain() *invoice.Invoice {
	return &invoice.Invoice{
		ID:             r.ID,
		TenantID:       r.TenantID,
		SubscriptionID: r.SubscriptionID,
		Number:         r.Number,
		IdempotencyKey: r.IdempotencyKey,
		Status:         types.InvoiceStatus(r.Status),
		Currency:       r.Currency,
		Subtotal:       money.FromDecimal(r.Subtotal, r.Currency),
		Tax:            money.FromDecimal(r.Tax, r.Currency),
		Discount:       money.FromDecimal(r.Discount, r.Currency),
		Total:          money.FromDecimal(r.Total, r.Currency),
		Period:         period.Period{Start: r.PeriodStart.UTC(), End: r.PeriodEnd.UTC()},
		DueDate:        r.DueDate.UTC(),
		PaidAt:         r.PaidAt,
		VoidedAt:       r.VoidedAt,
		Items:          []*invoice.Item{},
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type invoiceItemRow struct {
	ID          string          `db:"id"`
	InvoiceID   string          `db:"invoice_id"`
	Position    int             `db:"position"`
	Type        string          `db:"type"`
	Description string          `db:"description"`
	Quantity    int64           `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Total       decimal.Decimal `db:"total"`
}

func (r invoiceItemRow) toDomain(currency string) *invoice.Item {
	return &invoice.Item{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		Position:    r.Position,
		Type:        types.InvoiceItemType(r.Type),
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   money.FromDecimal(r.UnitPrice, currency),
		Total:       money.FromDecimal(r.Total, currency),
	}
}

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"tenant_id", inv.TenantID,
		"subscription_id", inv.SubscriptionID,
		"number", inv.Number,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO invoices (
				id, tenant_id, subscription_id, number, idempotency_key, status, currency,
				subtotal, tax, discount, total, period_start, period_end, due_date,
				paid_at, voided_at, created_at, updated_at
			) VALUES (
				:id, :tenant_id, :subscription_id, :number, :idempotency_key, :status, :currency,
				:subtotal, :tax, :discount, :total, :period_start, :period_end, :due_date,
				:paid_at, :voided_at, :created_at, :updated_at
			)`

		details := map[string]any{
			"subscription_id": inv.SubscriptionID,
			"period_start":    types.FormatTime(inv.Period.Start),
			"period_end":      types.FormatTime(inv.Period.End),
		}
		if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, invoiceRowFrom(inv)); err != nil {
			return wrapError(err, ierr.ErrInvoiceNotFound, details)
		}
		return r.insertItems(ctx, inv.Items)
	})
}

func (r *invoiceRepository) insertItems(ctx context.Context, items []*invoice.Item) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, position, type, description, quantity, unit_price, total)
		VALUES (:id, :invoice_id, :position, :type, :description, :quantity, :unit_price, :total)`

	for _, item := range items {
		row := invoiceItemRow{
			ID:          item.ID,
			InvoiceID:   item.InvoiceID,
			Position:    item.Position,
			Type:        string(item.Type),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Decimal(),
			Total:       item.Total.Decimal(),
		}
		if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row); err != nil {
			return wrapError(err, ierr.ErrInvoiceNotFound, map[string]any{
				"invoice_id": item.InvoiceID,
				"position":   item.Position,
			})
		}
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var row invoiceRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM invoices WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError(err, ierr.ErrInvoiceNotFound, map[string]any{"invoice_id": id})
	}
	return r.withItems(ctx, row.toDomain())
}

// Update persists header fields and appends items not stored yet. Items are
// immutable once written.
func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("updating invoice",
		"invoice_id", inv.ID,
		"status", inv.Status,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE invoices SET
				status = :status,
				subtotal = :subtotal,
				tax = :tax,
				discount = :discount,
				total = :total,
				paid_at = :paid_at,
				voided_at = :voided_at,
				updated_at = :updated_at
			WHERE id = :id`

		details := map[string]any{"invoice_id": inv.ID}
		res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, invoiceRowFrom(inv))
		if err != nil {
			return wrapError(err, ierr.ErrInvoiceNotFound, details)
		}
		if err := requireRows(res, ierr.ErrInvoiceNotFound, details); err != nil {
			return err
		}

		var stored []int
		if err := r.db.GetQuerier(ctx).SelectContext(ctx, &stored,
			`SELECT position FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return wrapError(err, ierr.ErrInvoiceNotFound, details)
		}
		pending := lo.Filter(inv.Items, func(item *invoice.Item, _ int) bool {
			return !lo.Contains(stored, item.Position)
		})
		return r.insertItems(ctx, pending)
	})
}

func (r *invoiceRepository) GetBySubscriptionAndPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	var row invoiceRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT * FROM invoices
		WHERE subscription_id = $1 AND period_start = $2 AND period_end = $3`,
		subscriptionID, periodStart, periodEnd)
	if err != nil {
		return nil, wrapError(err, ierr.ErrInvoiceNotFound, map[string]any{
			"subscription_id": subscriptionID,
			"period_start":    types.FormatTime(periodStart),
			"period_end":      types.FormatTime(periodEnd),
		})
	}
	return r.withItems(ctx, row.toDomain())
}

func (r *invoiceRepository) ListPastDue(ctx context.Context) ([]*invoice.Invoice, error) {
	return r.list(ctx, `
		SELECT * FROM invoices
		WHERE status = $1
		ORDER BY due_date ASC, id ASC`,
		string(types.InvoiceStatusPastDue))
}

func (r *invoiceRepository) ListOverdue(ctx context.Context, now time.Time) ([]*invoice.Invoice, error) {
	return r.list(ctx, `
		SELECT * FROM invoices
		WHERE status = $1 AND due_date < $2
		ORDER BY due_date ASC, id ASC`,
		string(types.InvoiceStatusOpen), now)
}

func (r *invoiceRepository) list(ctx context.Context, query string, args ...any) ([]*invoice.Invoice, error) {
	var rows []invoiceRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapError(err, ierr.ErrInvoiceNotFound, nil)
	}

	invoices := make([]*invoice.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := r.withItems(ctx, row.toDomain())
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (r *invoiceRepository) withItems(ctx context.Context, inv *invoice.Invoice) (*invoice.Invoice, error) {
	var rows []invoiceItemRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, inv.ID)
	if err != nil {
		return nil, wrapError(err, ierr.ErrInvoiceNotFound, map[string]any{"invoice_id": inv.ID})
	}
	inv.Items = lo.Map(rows, func(row invoiceItemRow, _ int) *invoice.Item {
		return row.toDomain(inv.Currency)
	})
	return inv, nil
}

type invoiceSequenceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceSequenceRepository(db *postgres.DB, logger *logger.Logger) invoice.SequenceRepository {
	return &invoiceSequenceRepository{db: db, logger: logger}
}

// Next bumps the (tenant, year) counter in a single statement so concurrent
// callers never observe the same value
func (r *invoiceSequenceRepository) Next(ctx context.Context, tenantID string, year int) (int64, error) {
	query := `
		INSERT INTO invoice_sequences (tenant_id, year, last_value, created_at, updated_at)
		VALUES ($1, $2, 1, now(), now())
		ON CONFLICT (tenant_id, year) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1,
			updated_at = now()
		RETURNING last_value`

	var value int64
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &value, query, tenantID, year); err != nil {
		return 0, wrapError(err, ierr.ErrInvoiceNotFound, map[string]any{
			"tenant_id": tenantID,
			"year":      year,
		})
	}

	r.logger.Debugw("allocated invoice sequence",
		"tenant_id", tenantID,
		"year", year,
		"value", value,
	)
	return value, nil
}
