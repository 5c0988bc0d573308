package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/feature"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
)

type overrideRow struct {
	ID        string     `db:"id"`
	TenantID  string     `db:"tenant_id"`
	FeatureID string     `db:"feature_id"`
	Value     string     `db:"value"`
	Reason    string     `db:"reason"`
	ExpiresAt *time.Time `db:"expires_at"`
	Status    string     `db:"status"`
	CreatedBy string     `db:"created_by"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	RemovedAt *time.Time `db:"removed_at"`
}

func overrideRowFrom(o *feature.Override) overrideRow {
	return overrideRow{
		ID:        o.ID,
		TenantID:  o.TenantID,
		FeatureID: o.FeatureID,
		Value:     o.Value,
		Reason:    o.Reason,
		ExpiresAt: o.ExpiresAt,
		Status:    string(o.Status),
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		RemovedAt: o.RemovedAt,
	}
}

func (r overrideRow) toDomain() *feature.Override {
	return &feature.Override{
		ID:        r.ID,
		TenantID:  r.TenantID,
		FeatureID: r.FeatureID,
		Value:     r.Value,
		Reason:    r.Reason,
		ExpiresAt: r.ExpiresAt,
		Status:    feature.OverrideStatus(r.Status),
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		RemovedAt: r.RemovedAt,
	}
}

type overrideRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewFeatureOverrideRepository(db *postgres.DB, logger *logger.Logger) feature.OverrideRepository {
	return &overrideRepository{db: db, logger: logger}
}

func (r *overrideRepository) Create(ctx context.Context, o *feature.Override) error {
	query := `
		INSERT INTO tenant_feature_overrides (
			id, tenant_id, feature_id, value, reason, expires_at, status,
			created_by, created_at, updated_at, removed_at
		) VALUES (
			:id, :tenant_id, :feature_id, :value, :reason, :expires_at, :status,
			:created_by, :created_at, :updated_at, :removed_at
		)`

	r.logger.Debugw("creating feature override",
		"tenant_id", o.TenantID,
		"feature_id", o.FeatureID,
	)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, overrideRowFrom(o))
	return wrapError(err, ierr.ErrFeatureOverrideNotFound, map[string]any{
		"tenant_id":  o.TenantID,
		"feature_id": o.FeatureID,
	})
}

func (r *overrideRepository) Update(ctx context.Context, o *feature.Override) error {
	query := `
		UPDATE tenant_feature_overrides SET
			value = :value,
			reason = :reason,
			expires_at = :expires_at,
			status = :status,
			updated_at = :updated_at,
			removed_at = :removed_at
		WHERE id = :id`

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, overrideRowFrom(o))
	details := map[string]any{"override_id": o.ID}
	if err != nil {
		return wrapError(err, ierr.ErrFeatureOverrideNotFound, details)
	}
	return requireRows(res, ierr.ErrFeatureOverrideNotFound, details)
}

func (r *overrideRepository) GetActive(ctx context.Context, tenantID, featureID string) (*feature.Override, error) {
	var row overrideRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT * FROM tenant_feature_overrides
		WHERE tenant_id = $1 AND feature_id = $2 AND status = $3`,
		tenantID, featureID, string(feature.OverrideStatusActive))
	if err != nil {
		return nil, wrapError(err, ierr.ErrFeatureOverrideNotFound, map[string]any{
			"tenant_id":  tenantID,
			"feature_id": featureID,
		})
	}
	return row.toDomain(), nil
}
