package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/nfse"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/types"
	"github.com/shopspring/decimal"
)

type nfseRow struct {
	ID                 string          `db:"id"`
	TenantID           string          `db:"tenant_id"`
	InvoiceID          string          `db:"invoice_id"`
	Status             string          `db:"status"`
	ProviderRef        *string         `db:"provider_ref"`
	Number             *string         `db:"number"`
	VerificationCode   *string         `db:"verification_code"`
	ServiceDescription string          `db:"service_description"`
	CompetenceDate     time.Time       `db:"competence_date"`
	TotalAmount        decimal.Decimal `db:"total_amount"`
	Currency           string          `db:"currency"`
	ISSRate            decimal.Decimal `db:"iss_rate"`
	ISSAmount          decimal.Decimal `db:"iss_amount"`
	PDFURL             *string         `db:"pdf_url"`
	XMLContent         *string         `db:"xml_content"`
	ProviderResponse   *string         `db:"provider_response"`
	AuthorizedAt       *time.Time      `db:"authorized_at"`
	CancelledAt        *time.Time      `db:"cancelled_at"`
	CancelReason       *string         `db:"cancel_reason"`
	ErrorMessage       string          `db:"error_message"`
	IdempotencyKey     string          `db:"idempotency_key"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func nfseRowFrom(d *nfse.Document) nfseRow {
	return nfseRow{
		ID:                 d.ID,
		TenantID:           d.TenantID,
		InvoiceID:          d.InvoiceID,
		Status:             string(d.Status),
		ProviderRef:        d.ProviderRef,
		Number:             d.Number,
		VerificationCode:   d.VerificationCode,
		ServiceDescription: d.ServiceDescription,
		CompetenceDate:     d.CompetenceDate,
		TotalAmount:        d.TotalAmount.Decimal(),
		Currency:           d.TotalAmount.Currency(),
		ISSRate:            d.ISSRate,
		ISSAmount:          d.ISSAmount.Decimal(),
		PDFURL:             d.PDFURL,
		XMLContent:         d.XMLContent,
		ProviderResponse:   d.ProviderResponse,
		AuthorizedAt:       d.AuthorizedAt,
		CancelledAt:        d.CancelledAt,
		CancelReason:       d.CancelReason,
		ErrorMessage:       d.ErrorMessage,
		IdempotencyKey:     d.IdempotencyKey,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func (r nfseRow) toDomain() *nfse.Document {
	return &nfse.Document{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		InvoiceID:          r.InvoiceID,
		Status:             types.NFSeStatus(r.Status),
		ProviderRef:        r.ProviderRef,
		Number:             r.Number,
		VerificationCode:   r.VerificationCode,
		ServiceDescription: r.ServiceDescription,
		CompetenceDate:     r.CompetenceDate.UTC(),
		TotalAmount:        money.FromDecimal(r.TotalAmount, r.Currency),
		ISSRate:            r.ISSRate,
		ISSAmount:          money.FromDecimal(r.ISSAmount, r.Currency),
		PDFURL:             r.PDFURL,
		XMLContent:         r.XMLContent,
		ProviderResponse:   r.ProviderResponse,
		AuthorizedAt:       r.AuthorizedAt,
		CancelledAt:        r.CancelledAt,
		CancelReason:       r.CancelReason,
		ErrorMessage:       r.ErrorMessage,
		IdempotencyKey:     r.IdempotencyKey,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type nfseRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewNFSeRepository(db *postgres.DB, logger *logger.Logger) nfse.Repository {
	return &nfseRepository{db: db, logger: logger}
}

func (r *nfseRepository) Create(ctx context.Context, d *nfse.Document) error {
	query := `
		INSERT INTO nfse_documents (
			id, tenant_id, invoice_id, status, provider_ref, number, verification_code,
			service_description, competence_date, total_amount, currency, iss_rate, iss_amount,
			pdf_url, xml_content, provider_response, authorized_at, cancelled_at, cancel_reason,
			error_message, idempotency_key, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :invoice_id, :status, :provider_ref, :number, :verification_code,
			:service_description, :competence_date, :total_amount, :currency, :iss_rate, :iss_amount,
			:pdf_url, :xml_content, :provider_response, :authorized_at, :cancelled_at, :cancel_reason,
			:error_message, :idempotency_key, :created_at, :updated_at
		)`

	r.logger.Debugw("creating nfse document",
		"nfse_id", d.ID,
		"invoice_id", d.InvoiceID,
	)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, nfseRowFrom(d))
	return wrapError(err, ierr.ErrNFSeNotFound, map[string]any{
		"invoice_id":      d.InvoiceID,
		"idempotency_key": d.IdempotencyKey,
	})
}

func (r *nfseRepository) Get(ctx context.Context, id string) (*nfse.Document, error) {
	return r.getBy(ctx, "id", id)
}

func (r *nfseRepository) Update(ctx context.Context, d *nfse.Document) error {
	query := `
		UPDATE nfse_documents SET
			status = :status,
			provider_ref = :provider_ref,
			number = :number,
			verification_code = :verification_code,
			pdf_url = :pdf_url,
			xml_content = :xml_content,
			provider_response = :provider_response,
			authorized_at = :authorized_at,
			cancelled_at = :cancelled_at,
			cancel_reason = :cancel_reason,
			error_message = :error_message,
			updated_at = :updated_at
		WHERE id = :id`

	r.logger.Debugw("updating nfse document",
		"nfse_id", d.ID,
		"status", d.Status,
	)

	details := map[string]any{"nfse_id": d.ID}
	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, nfseRowFrom(d))
	if err != nil {
		return wrapError(err, ierr.ErrNFSeNotFound, details)
	}
	return requireRows(res, ierr.ErrNFSeNotFound, details)
}

func (r *nfseRepository) GetByIdempotencyKey(ctx context.Context, key string) (*nfse.Document, error) {
	return r.getBy(ctx, "idempotency_key", key)
}

func (r *nfseRepository) GetByProviderRef(ctx context.Context, providerRef string) (*nfse.Document, error) {
	return r.getBy(ctx, "provider_ref", providerRef)
}

// getBy only receives column names from this file
func (r *nfseRepository) getBy(ctx context.Context, column, value string) (*nfse.Document, error) {
	var row nfseRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row,
		`SELECT * FROM nfse_documents WHERE `+column+` = $1`, value)
	if err != nil {
		return nil, wrapError(err, ierr.ErrNFSeNotFound, map[string]any{column: value})
	}
	return row.toDomain(), nil
}
