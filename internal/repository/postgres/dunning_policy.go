package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/dunning"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

type dunningPolicyRow struct {
	ID                string        `db:"id"`
	Name              string        `db:"name"`
	MaxRetries        int           `db:"max_retries"`
	RetryIntervalDays pq.Int64Array `db:"retry_interval_days"`
	SuspendAfterDays  int           `db:"suspend_after_days"`
	CancelAfterDays   int           `db:"cancel_after_days"`
	IsDefault         bool          `db:"is_default"`
	CreatedAt         time.Time     `db:"created_at"`
}

func (r dunningPolicyRow) toDomain() *dunning.Policy {
	return &dunning.Policy{
		ID:         r.ID,
		Name:       r.Name,
		MaxRetries: r.MaxRetries,
		RetryIntervalDays: lo.Map(r.RetryIntervalDays, func(d int64, _ int) int {
			return int(d)
		}),
		SuspendAfterDays: r.SuspendAfterDays,
		CancelAfterDays:  r.CancelAfterDays,
		IsDefault:        r.IsDefault,
		CreatedAt:        r.CreatedAt,
	}
}

type dunningPolicyRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDunningPolicyRepository(db *postgres.DB, logger *logger.Logger) dunning.Repository {
	return &dunningPolicyRepository{db: db, logger: logger}
}

func (r *dunningPolicyRepository) Create(ctx context.Context, policy *dunning.Policy) error {
	row := dunningPolicyRow{
		ID:         policy.ID,
		Name:       policy.Name,
		MaxRetries: policy.MaxRetries,
		RetryIntervalDays: lo.Map(policy.RetryIntervalDays, func(d int, _ int) int64 {
			return int64(d)
		}),
		SuspendAfterDays: policy.SuspendAfterDays,
		CancelAfterDays:  policy.CancelAfterDays,
		IsDefault:        policy.IsDefault,
		CreatedAt:        policy.CreatedAt,
	}

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if policy.IsDefault {
			if _, err := r.db.GetQuerier(ctx).ExecContext(ctx,
				`UPDATE dunning_policies SET is_default = FALSE WHERE is_default`); err != nil {
				return wrapError(err, ierr.ErrNotFound, nil)
			}
		}

		query := `
			INSERT INTO dunning_policies (
				id, name, max_retries, retry_interval_days, suspend_after_days,
				cancel_after_days, is_default, created_at
			) VALUES (
				:id, :name, :max_retries, :retry_interval_days, :suspend_after_days,
				:cancel_after_days, :is_default, :created_at
			)`

		r.logger.Infow("creating dunning policy",
			"policy_id", policy.ID,
			"name", policy.Name,
			"is_default", policy.IsDefault,
		)

		_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row)
		return wrapError(err, ierr.ErrNotFound, map[string]any{"name": policy.Name})
	})
}

func (r *dunningPolicyRepository) GetDefault(ctx context.Context) (*dunning.Policy, error) {
	var row dunningPolicyRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row,
		`SELECT * FROM dunning_policies WHERE is_default LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, ierr.ErrNotFound, map[string]any{"is_default": true})
	}
	return row.toDomain(), nil
}
