package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/payment"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type paymentRow struct {
	ID                   string              `db:"id"`
	TenantID             string              `db:"tenant_id"`
	InvoiceID            string              `db:"invoice_id"`
	Gateway              string              `db:"gateway"`
	GatewayTransactionID *string             `db:"gateway_transaction_id"`
	Amount               decimal.Decimal     `db:"amount"`
	Currency             string              `db:"currency"`
	Status               string              `db:"status"`
	Method               *string             `db:"method"`
	FailureReason        *string             `db:"failure_reason"`
	RefundedAmount       decimal.NullDecimal `db:"refunded_amount"`
	PaidAt               *time.Time          `db:"paid_at"`
	FailedAt             *time.Time          `db:"failed_at"`
	RefundedAt           *time.Time          `db:"refunded_at"`
	Metadata             []byte              `db:"metadata"`
	CreatedAt            time.Time           `db:"created_at"`
	UpdatedAt            time.Time           `db:"updated_at"`
}

func paymentRowFrom(p *payment.Payment) (paymentRow, error) {
	metadata, err := json.Marshal(lo.Ternary(p.Metadata == nil, map[string]string{}, p.Metadata))
	if err != nil {
		return paymentRow{}, ierr.WithError(err).
			WithHint("Payment metadata could not be encoded").
			Mark(ierr.ErrValidation)
	}

	row := paymentRow{
		ID:                   p.ID,
		TenantID:             p.TenantID,
		InvoiceID:            p.InvoiceID,
		Gateway:              p.Gateway,
		GatewayTransactionID: p.GatewayTransactionID,
		Amount:               p.Amount.Decimal(),
		Currency:             p.Amount.Currency(),
		Status:               string(p.Status),
		Method:               p.Method,
		FailureReason:        p.FailureReason,
		PaidAt:               p.PaidAt,
		FailedAt:             p.FailedAt,
		RefundedAt:           p.RefundedAt,
		Metadata:             metadata,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.RefundedAmount != nil {
		row.RefundedAmount = decimal.NewNullDecimal(p.RefundedAmount.Decimal())
	}
	return row, nil
}

func (r paymentRow) toDomain() (*payment.Payment, error) {
	metadata := map[string]string{}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Stored payment metadata is corrupt").
				WithReportableDetails(map[string]any{"payment_id": r.ID}).
				Mark(ierr.ErrDatabase)
		}
	}

	p := &payment.Payment{
		ID:                   r.ID,
		TenantID:             r.TenantID,
		InvoiceID:            r.InvoiceID,
		Gateway:              r.Gateway,
		GatewayTransactionID: r.GatewayTransactionID,
		Amount:               money.FromDecimal(r.Amount, r.Currency),
		Status:               types.PaymentStatus(r.Status),
		Method:               r.Method,
		FailureReason:        r.FailureReason,
		PaidAt:               r.PaidAt,
		FailedAt:             r.FailedAt,
		RefundedAt:           r.RefundedAt,
		Metadata:             metadata,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.RefundedAmount.Valid {
		p.RefundedAmount = lo.ToPtr(money.FromDecimal(r.RefundedAmount.Decimal, r.Currency))
	}
	return p, nil
}

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	row, err := paymentRowFrom(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, tenant_id, invoice_id, gateway, gateway_transaction_id, amount, currency,
			status, method, failure_reason, refunded_amount, paid_at, failed_at, refunded_at,
			metadata, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :invoice_id, :gateway, :gateway_transaction_id, :amount, :currency,
			:status, :method, :failure_reason, :refunded_amount, :paid_at, :failed_at, :refunded_at,
			:metadata, :created_at, :updated_at
		)`

	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"gateway", p.Gateway,
	)

	_, err = r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row)
	return wrapError(err, ierr.ErrPaymentNotFound, map[string]any{"invoice_id": p.InvoiceID})
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var row paymentRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPaymentNotFound, map[string]any{"payment_id": id})
	}
	return row.toDomain()
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	row, err := paymentRowFrom(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE payments SET
			gateway_transaction_id = :gateway_transaction_id,
			status = :status,
			failure_reason = :failure_reason,
			refunded_amount = :refunded_amount,
			paid_at = :paid_at,
			failed_at = :failed_at,
			refunded_at = :refunded_at,
			metadata = :metadata,
			updated_at = :updated_at
		WHERE id = :id`

	r.logger.Debugw("updating payment",
		"payment_id", p.ID,
		"status", p.Status,
	)

	details := map[string]any{"payment_id": p.ID, "invoice_id": p.InvoiceID}
	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row)
	if err != nil {
		return wrapError(err, ierr.ErrPaymentNotFound, details)
	}
	return requireRows(res, ierr.ErrPaymentNotFound, details)
}

func (r *paymentRepository) GetByGatewayTransactionID(ctx context.Context, gateway, transactionID string) (*payment.Payment, error) {
	var row paymentRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row,
		`SELECT * FROM payments WHERE gateway = $1 AND gateway_transaction_id = $2`, gateway, transactionID)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPaymentNotFound, map[string]any{
			"gateway":                gateway,
			"gateway_transaction_id": transactionID,
		})
	}
	return row.toDomain()
}

func (r *paymentRepository) ListByInvoiceID(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	var rows []paymentRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM payments WHERE invoice_id = $1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPaymentNotFound, map[string]any{"invoice_id": invoiceID})
	}

	payments := make([]*payment.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (r *paymentRepository) CountFailedByInvoiceID(ctx context.Context, invoiceID string) (int, error) {
	var count int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &count,
		`SELECT COUNT(*) FROM payments WHERE invoice_id = $1 AND status = $2`,
		invoiceID, string(types.PaymentStatusFailed))
	if err != nil {
		return 0, wrapError(err, ierr.ErrPaymentNotFound, map[string]any{"invoice_id": invoiceID})
	}
	return count, nil
}
