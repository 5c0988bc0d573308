package postgres

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/plan"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/types"
	"github.com/shopspring/decimal"
)

type planRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r planRow) toDomain() *plan.Plan {
	return &plan.Plan{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Status:      types.PlanStatus(r.Status),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func planRowFrom(p *plan.Plan) planRow {
	return planRow{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (id, name, slug, description, status, created_by, created_at, updated_at)
		VALUES (:id, :name, :slug, :description, :status, :created_by, :created_at, :updated_at)`

	r.logger.Debugw("creating plan", "plan_id", p.ID, "slug", p.Slug)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, planRowFrom(p))
	return wrapError(err, ierr.ErrPlanNotFound, map[string]any{"slug": p.Slug})
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var row planRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM plans WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPlanNotFound, map[string]any{"plan_id": id})
	}
	return row.toDomain(), nil
}

func (r *planRepository) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	var row planRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM plans WHERE slug = $1`, slug)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPlanNotFound, map[string]any{"slug": slug})
	}
	return row.toDomain(), nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	query := `
		UPDATE plans SET
			name = :name,
			description = :description,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, planRowFrom(p))
	if err != nil {
		return wrapError(err, ierr.ErrPlanNotFound, map[string]any{"plan_id": p.ID})
	}
	return requireRows(res, ierr.ErrPlanNotFound, map[string]any{"plan_id": p.ID})
}

type planVersionRow struct {
	ID        string    `db:"id"`
	PlanID    string    `db:"plan_id"`
	Version   int       `db:"version"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r planVersionRow) toDomain() *plan.Version {
	return &plan.Version{
		ID:        r.ID,
		PlanID:    r.PlanID,
		Version:   r.Version,
		Status:    types.PlanVersionStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

type planVersionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanVersionRepository(db *postgres.DB, logger *logger.Logger) plan.VersionRepository {
	return &planVersionRepository{db: db, logger: logger}
}

func (r *planVersionRepository) Create(ctx context.Context, v *plan.Version) error {
	query := `
		INSERT INTO plan_versions (id, plan_id, version, status, created_at)
		VALUES (:id, :plan_id, :version, :status, :created_at)`

	row := planVersionRow{ID: v.ID, PlanID: v.PlanID, Version: v.Version, Status: string(v.Status), CreatedAt: v.CreatedAt}
	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row)
	return wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{"plan_id": v.PlanID, "version": v.Version})
}

func (r *planVersionRepository) Get(ctx context.Context, id string) (*plan.Version, error) {
	var row planVersionRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM plan_versions WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{"plan_version_id": id})
	}
	return row.toDomain(), nil
}

func (r *planVersionRepository) Update(ctx context.Context, v *plan.Version) error {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE plan_versions SET status = $1 WHERE id = $2`, string(v.Status), v.ID)
	if err != nil {
		return wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{"plan_version_id": v.ID})
	}
	return requireRows(res, ierr.ErrPlanVersionNotFound, map[string]any{"plan_version_id": v.ID})
}

func (r *planVersionRepository) GetActiveByPlanID(ctx context.Context, planID string) (*plan.Version, error) {
	var row planVersionRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row,
		`SELECT * FROM plan_versions WHERE plan_id = $1 AND status = $2`, planID, string(types.PlanVersionStatusActive))
	if err != nil {
		return nil, wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{"plan_id": planID})
	}
	return row.toDomain(), nil
}

func (r *planVersionRepository) GetLatestNumber(ctx context.Context, planID string) (int, error) {
	var n int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &n,
		`SELECT COALESCE(MAX(version), 0) FROM plan_versions WHERE plan_id = $1`, planID)
	if err != nil {
		return 0, wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{"plan_id": planID})
	}
	return n, nil
}

type planPriceRow struct {
	ID            string          `db:"id"`
	PlanVersionID string          `db:"plan_version_id"`
	BillingCycle  string          `db:"billing_cycle"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	TrialDays     int             `db:"trial_days"`
}

func (r planPriceRow) toDomain() *plan.Price {
	return &plan.Price{
		ID:            r.ID,
		PlanVersionID: r.PlanVersionID,
		BillingCycle:  types.BillingCycle(r.BillingCycle),
		Price:         money.FromDecimal(r.Amount, r.Currency),
		TrialDays:     r.TrialDays,
	}
}

type planPriceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanPriceRepository(db *postgres.DB, logger *logger.Logger) plan.PriceRepository {
	return &planPriceRepository{db: db, logger: logger}
}

func (r *planPriceRepository) Create(ctx context.Context, p *plan.Price) error {
	query := `
		INSERT INTO plan_prices (id, plan_version_id, billing_cycle, amount, currency, trial_days)
		VALUES (:id, :plan_version_id, :billing_cycle, :amount, :currency, :trial_days)`

	row := planPriceRow{
		ID:            p.ID,
		PlanVersionID: p.PlanVersionID,
		BillingCycle:  string(p.BillingCycle),
		Amount:        p.Price.Decimal(),
		Currency:      p.Price.Currency(),
		TrialDays:     p.TrialDays,
	}
	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row)
	return wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{
		"plan_version_id": p.PlanVersionID,
		"billing_cycle":   p.BillingCycle,
	})
}

func (r *planPriceRepository) GetByVersionAndCycle(ctx context.Context, versionID string, cycle types.BillingCycle) (*plan.Price, error) {
	var row planPriceRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row,
		`SELECT * FROM plan_prices WHERE plan_version_id = $1 AND billing_cycle = $2`, versionID, string(cycle))
	if err != nil {
		return nil, wrapError(err, ierr.ErrPlanVersionNotAvailable, map[string]any{
			"plan_version_id": versionID,
			"billing_cycle":   cycle,
		})
	}
	return row.toDomain(), nil
}

func (r *planPriceRepository) ListByVersionID(ctx context.Context, versionID string) ([]*plan.Price, error) {
	var rows []planPriceRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM plan_prices WHERE plan_version_id = $1 ORDER BY billing_cycle`, versionID)
	if err != nil {
		return nil, wrapError(err, ierr.ErrPlanVersionNotFound, map[string]any{"plan_version_id": versionID})
	}
	prices := make([]*plan.Price, 0, len(rows))
	for _, row := range rows {
		prices = append(prices, row.toDomain())
	}
	return prices, nil
}

type planFeatureRow struct {
	ID            string `db:"id"`
	PlanVersionID string `db:"plan_version_id"`
	Key           string `db:"key"`
	Value         string `db:"value"`
	Type          string `db:"type"`
}

func (r planFeatureRow) toDomain() *plan.Feature {
	return &plan.Feature{
		ID:            r.ID,
		PlanVersionID: r.PlanVersionID,
		Key:           r.Key,
		Value:         r.Value,
		Type:          types.FeatureType(r.Type),
	}
}

type planFeatureRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanFeatureRepository(db *postgres.DB, logger *logger.Logger) plan.FeatureRepository {
	return &planFeatureRepository{db: db, logger: logger}
}

func (r *planFeatureRepository) Create(ctx context.Context, f *plan.Feature) error {
	query := `
		INSERT INTO plan_features (id, plan_version_id, key, value, type)
		VALUES (:id, :plan_version_id, :key, :value, :type)`

	row := planFeatureRow{ID: f.ID, PlanVersionID: f.PlanVersionID, Key: f.Key, Value: f.Value, Type: string(f.Type)}
	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, row)
	return wrapError(err, ierr.ErrFeatureNotFound, map[string]any{
		"plan_version_id": f.PlanVersionID,
		"key":             f.Key,
	})
}

func (r *planFeatureRepository) Get(ctx context.Context, id string) (*plan.Feature, error) {
	var row planFeatureRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT * FROM plan_features WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError(err, ierr.ErrFeatureNotFound, map[string]any{"feature_id": id})
	}
	return row.toDomain(), nil
}

func (r *planFeatureRepository) GetByVersionAndKey(ctx context.Context, versionID, key string) (*plan.Feature, error) {
	var row planFeatureRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row,
		`SELECT * FROM plan_features WHERE plan_version_id = $1 AND key = $2`, versionID, key)
	if err != nil {
		return nil, wrapError(err, ierr.ErrFeatureNotFound, map[string]any{
			"plan_version_id": versionID,
			"key":             key,
		})
	}
	return row.toDomain(), nil
}

func (r *planFeatureRepository) ListByVersionID(ctx context.Context, versionID string) ([]*plan.Feature, error) {
	var rows []planFeatureRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM plan_features WHERE plan_version_id = $1 ORDER BY key`, versionID)
	if err != nil {
		return nil, wrapError(err, ierr.ErrFeatureNotFound, map[string]any{"plan_version_id": versionID})
	}
	features := make([]*plan.Feature, 0, len(rows))
	for _, row := range rows {
		features = append(features, row.toDomain())
	}
	return features, nil
}
