package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/condohub/billing/internal/domain/gatewayevent"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/period"
	"github.com/condohub/billing/internal/domain/plan"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	ctx  context.Context
	mock sqlmock.Sqlmock
	db   *postgres.DB
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	mockDB, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.mock = mock
	s.db = postgres.NewFromSQLX(sqlx.NewDb(mockDB, "postgres"), logger.NewNoopLogger())
}

func (s *RepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *RepositorySuite) TestWrapError() {
	s.Nil(wrapError(nil, ierr.ErrPlanNotFound, nil))

	err := wrapError(sql.ErrNoRows, ierr.ErrPlanNotFound, map[string]any{"plan_id": "p1"})
	s.True(ierr.IsNotFound(err))
	s.Equal(ierr.CodePlanNotFound, ierr.Code(err))
	s.Equal("p1", ierr.Details(err)["plan_id"])

	err = wrapError(&pq.Error{Code: "23505", Constraint: "plans_slug_key"}, ierr.ErrPlanNotFound, nil)
	s.True(ierr.IsAlreadyExists(err))
	s.Equal("plans_slug_key", ierr.Details(err)["constraint"])

	err = wrapError(&pq.Error{Code: "40001"}, ierr.ErrPlanNotFound, nil)
	s.True(ierr.Is(err, ierr.ErrDatabase))
	s.False(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestPlanCreateDuplicateSlug() {
	p, err := plan.NewPlan(s.ctx, "Basic", "basic", "")
	s.Require().NoError(err)

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plans")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "plans_slug_key"})

	err = NewPlanRepository(s.db, logger.NewNoopLogger()).Create(s.ctx, p)
	s.True(ierr.IsAlreadyExists(err))
	s.Equal("basic", ierr.Details(err)["slug"])
}

func (s *RepositorySuite) TestPlanPriceRoundTripsMinorUnits() {
	rows := sqlmock.NewRows([]string{"id", "plan_version_id", "billing_cycle", "amount", "currency", "trial_days"}).
		AddRow("price-1", "version-1", "monthly", "99.0000", "BRL", 14)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM plan_prices WHERE plan_version_id = $1 AND billing_cycle = $2")).
		WithArgs("version-1", "monthly").
		WillReturnRows(rows)

	price, err := NewPlanPriceRepository(s.db, logger.NewNoopLogger()).
		GetByVersionAndCycle(s.ctx, "version-1", types.BillingCycleMonthly)
	s.Require().NoError(err)
	s.Equal(int64(9900), price.Price.Amount())
	s.Equal("BRL", price.Price.Currency())
	s.Equal(14, price.TrialDays)
}

func (s *RepositorySuite) TestPlanPriceMissingIsNotAvailable() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM plan_prices")).
		WillReturnError(sql.ErrNoRows)

	_, err := NewPlanPriceRepository(s.db, logger.NewNoopLogger()).
		GetByVersionAndCycle(s.ctx, "version-1", types.BillingCycleYearly)
	s.True(ierr.Is(err, ierr.ErrPlanVersionNotAvailable))
}

func (s *RepositorySuite) TestSubscriptionGetNotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM subscriptions WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := NewSubscriptionRepository(s.db, logger.NewNoopLogger()).Get(s.ctx, "missing")
	s.Equal(ierr.CodeSubscriptionNotFound, ierr.Code(err))
}

func (s *RepositorySuite) TestSubscriptionUpdateWithoutRowsIsNotFound() {
	now := time.Now().UTC()
	sub := subscriptionRow{ID: "sub-1", Status: "active", PeriodStart: now, PeriodEnd: now.AddDate(0, 1, 0)}.toDomain()

	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE subscriptions SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewSubscriptionRepository(s.db, logger.NewNoopLogger()).Update(s.ctx, sub)
	s.Equal(ierr.CodeSubscriptionNotFound, ierr.Code(err))
}

func (s *RepositorySuite) TestInvoiceSequenceNext() {
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoice_sequences")).
		WithArgs("tenant-1", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(3))

	value, err := NewInvoiceSequenceRepository(s.db, logger.NewNoopLogger()).Next(s.ctx, "tenant-1", 2026)
	s.Require().NoError(err)
	s.Equal(int64(3), value)
}

func (s *RepositorySuite) TestInvoiceCreateWritesItemsInOneTransaction() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := invoice.New("tenant-1", "sub-1", "INV-2026-0001", "BRL",
		period.ForCycle(start, types.BillingCycleMonthly), start.AddDate(0, 0, 5))
	_, err := inv.AddItem(types.InvoiceItemTypePlan, "Basic", 1, money.New(9900, "BRL"))
	s.Require().NoError(err)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invoices")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invoice_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectCommit()

	s.NoError(NewInvoiceRepository(s.db, logger.NewNoopLogger()).Create(s.ctx, inv))
}

func (s *RepositorySuite) TestInvoiceCreateDuplicatePeriodRollsBack() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := invoice.New("tenant-1", "sub-1", "INV-2026-0002", "BRL",
		period.ForCycle(start, types.BillingCycleMonthly), start)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invoices")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "invoices_subscription_period_key"})
	s.mock.ExpectRollback()

	err := NewInvoiceRepository(s.db, logger.NewNoopLogger()).Create(s.ctx, inv)
	s.True(ierr.IsAlreadyExists(err))
	s.Equal("invoices_subscription_period_key", ierr.Details(err)["constraint"])
}

func (s *RepositorySuite) TestPaymentGetDecodesMetadata() {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "invoice_id", "gateway", "gateway_transaction_id", "amount", "currency",
		"status", "method", "failure_reason", "refunded_amount", "paid_at", "failed_at", "refunded_at",
		"metadata", "created_at", "updated_at",
	}).AddRow(
		"pay-1", "tenant-1", "inv-1", "stripe", "pi_123", "99.00", "BRL",
		"paid", nil, nil, nil, now, nil, nil,
		[]byte(`{"source":"checkout"}`), now, now,
	)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM payments WHERE id = $1")).
		WithArgs("pay-1").
		WillReturnRows(rows)

	p, err := NewPaymentRepository(s.db, logger.NewNoopLogger()).Get(s.ctx, "pay-1")
	s.Require().NoError(err)
	s.Equal(int64(9900), p.Amount.Amount())
	s.Equal(types.PaymentStatusPaid, p.Status)
	s.Equal("pi_123", *p.GatewayTransactionID)
	s.Equal("checkout", p.Metadata["source"])
	s.Nil(p.RefundedAmount)
}

func (s *RepositorySuite) TestDunningDefaultMissing() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM dunning_policies WHERE is_default")).
		WillReturnError(sql.ErrNoRows)

	_, err := NewDunningPolicyRepository(s.db, logger.NewNoopLogger()).GetDefault(s.ctx)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestGatewayEventReplayIsAlreadyExists() {
	record := gatewayevent.NewRecord("stripe", types.WebhookEventPaymentSucceeded, "pi_123", []byte(`{}`))

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gateway_events")).
		WithArgs(record.ID, "stripe", types.WebhookEventPaymentSucceeded, "pi_123",
			[]byte(`{}`), "stripe:pi_123:payment.succeeded", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewGatewayEventRepository(s.db, logger.NewNoopLogger()).Create(s.ctx, record)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestGatewayEventReplayKeepsTransactionUsable() {
	record := gatewayevent.NewRecord("stripe", types.WebhookEventPaymentSucceeded, "pi_123", []byte(`{}`))
	repo := NewGatewayEventRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (idempotency_key) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.db.WithTx(s.ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, record); !ierr.IsAlreadyExists(err) {
			return err
		}
		return nil
	})
	s.NoError(err)
}
