package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/period"
	"github.com/condohub/billing/internal/domain/subscription"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/types"
)

type subscriptionRow struct {
	ID             string     `db:"id"`
	TenantID       string     `db:"tenant_id"`
	PlanVersionID  string     `db:"plan_version_id"`
	Status         string     `db:"status"`
	BillingCycle   string     `db:"billing_cycle"`
	PeriodStart    time.Time  `db:"period_start"`
	PeriodEnd      time.Time  `db:"period_end"`
	TrialEnd       *time.Time `db:"trial_end"`
	GracePeriodEnd *time.Time `db:"grace_period_end"`
	CanceledAt     *time.Time `db:"canceled_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func subscriptionRowFrom(s *subscription.Subscription) subscriptionRow {
	return subscriptionRow{
		ID:             s.ID,
		TenantID:       s.TenantID,
		PlanVersionID:  s.PlanVersionID,
		Status:         string(s.Status),
		BillingCycle:   string(s.BillingCycle),
		PeriodStart:    s.CurrentPeriod.Start,
		PeriodEnd:      s.CurrentPeriod.End,
		TrialEnd:       s.TrialEnd,
		GracePeriodEnd: s.GracePeriodEnd,
		CanceledAt:     s.CanceledAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (r subscriptionRow) toDomain() *subscription.Subscription {
	return &subscription.Subscription{
		ID:             r.ID,
		TenantID:       r.TenantID,
		PlanVersionID:  r.PlanVersionID,
		Status:         types.SubscriptionStatus(r.Status),
		BillingCycle:   types.BillingCycle(r.BillingCycle),
		CurrentPeriod:  period.Period{Start: r.PeriodStart.UTC(), End: r.PeriodEnd.UTC()},
		TrialEnd:       r.TrialEnd,
		GracePeriodEnd: r.GracePeriodEnd,
		CanceledAt:     r.CanceledAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, tenant_id, plan_version_id, status, billing_cycle,
			period_start, period_end, trial_end, grace_period_end, canceled_at,
			created_at, updated_at
		) VALUES (
			:id, :tenant_id, :plan_version_id, :status, :billing_cycle,
			:period_start, :period_end, :trial_end, :grace_period_end, :canceled_at,
			:created_at, :updated_at
		)`

	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"plan_version_id", sub.PlanVersionID,
	)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, subscriptionRowFrom(sub))
	return wrapError(err, ierr.ErrSubscriptionNotFound, map[string]any{"tenant_id": sub.TenantID})
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var row subscriptionRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError(err, ierr.ErrSubscriptionNotFound, map[string]any{"subscription_id": id})
	}
	return row.toDomain(), nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			plan_version_id = :plan_version_id,
			status = :status,
			period_start = :period_start,
			period_end = :period_end,
			trial_end = :trial_end,
			grace_period_end = :grace_period_end,
			canceled_at = :canceled_at,
			updated_at = :updated_at
		WHERE id = :id`

	r.logger.Debugw("updating subscription",
		"subscription_id", sub.ID,
		"status", sub.Status,
	)

	details := map[string]any{"subscription_id": sub.ID}
	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, subscriptionRowFrom(sub))
	if err != nil {
		return wrapError(err, ierr.ErrSubscriptionNotFound, details)
	}
	return requireRows(res, ierr.ErrSubscriptionNotFound, details)
}

func (r *subscriptionRepository) GetActiveByTenantID(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	var row subscriptionRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT * FROM subscriptions
		WHERE tenant_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1`,
		tenantID,
		string(types.SubscriptionStatusActive),
		string(types.SubscriptionStatusTrialing),
	)
	if err != nil {
		return nil, wrapError(err, ierr.ErrSubscriptionNotFound, map[string]any{"tenant_id": tenantID})
	}
	return row.toDomain(), nil
}
