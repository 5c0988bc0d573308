package service

import (
	"context"
	"strconv"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/cache"
	"github.com/condohub/billing/internal/domain/feature"
	"github.com/condohub/billing/internal/domain/plan"
	ierr "github.com/condohub/billing/internal/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FeatureService resolves tenant entitlements and manages per-tenant overrides
type FeatureService interface {
	Resolve(ctx context.Context, tenantID, key string) (*dto.FeatureValueResponse, error)
	FeatureLimit(ctx context.Context, tenantID, key string) (*int64, error)
	SetTenantFeatureOverride(ctx context.Context, req dto.SetTenantFeatureOverrideRequest) (*dto.FeatureOverrideResponse, error)
	RemoveTenantFeatureOverride(ctx context.Context, req dto.RemoveTenantFeatureOverrideRequest) (*dto.FeatureOverrideResponse, error)
}

type featureService struct {
	ServiceParams
}

func NewFeatureService(params ServiceParams) FeatureService {
	return &featureService{ServiceParams: params}
}

// Resolve returns the effective value of a feature for a tenant: a live
// override wins over the plan value of the tenant's active or trialing
// subscription. Results are cached per tenant and key.
func (s *featureService) Resolve(ctx context.Context, tenantID, key string) (*dto.FeatureValueResponse, error) {
	cacheKey := cache.GenerateKey(cache.PrefixFeature, tenantID, key)
	if s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, cacheKey); ok {
			var cached dto.FeatureValueResponse
			if err := json.UnmarshalFromString(raw, &cached); err == nil {
				return &cached, nil
			}
			s.Cache.Delete(ctx, cacheKey)
		}
	}

	resp, ttl, err := s.resolve(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if raw, err := json.MarshalToString(resp); err == nil {
			s.Cache.Set(ctx, cacheKey, raw, ttl)
		}
	}
	return resp, nil
}

// resolve also returns how long the answer may be cached; an expiring
// override bounds it
func (s *featureService) resolve(ctx context.Context, tenantID, key string) (*dto.FeatureValueResponse, time.Duration, error) {
	resp := &dto.FeatureValueResponse{
		TenantID: tenantID,
		Key:      key,
		Source:   dto.FeatureValueSourceNone,
	}

	f, err := s.tenantFeature(ctx, tenantID, key)
	if err != nil {
		if ierr.IsNotFound(err) {
			return resp, 0, nil
		}
		return nil, 0, err
	}

	now := time.Now().UTC()
	override, err := s.FeatureOverrideRepo.GetActive(ctx, tenantID, f.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, 0, err
	}
	if override != nil && override.IsEffective(now) {
		resp.Value = &override.Value
		resp.Source = dto.FeatureValueSourceOverride
		var ttl time.Duration
		if override.ExpiresAt != nil {
			ttl = override.ExpiresAt.Sub(now)
			if s.Config.Cache.TTL > 0 && s.Config.Cache.TTL < ttl {
				ttl = s.Config.Cache.TTL
			}
		}
		return resp, ttl, nil
	}

	value := f.Value
	resp.Value = &value
	resp.Source = dto.FeatureValueSourcePlan
	return resp, 0, nil
}

// FeatureLimit resolves an integer feature. nil means the tenant holds no
// entitlement to it: the plan lacks the key or the tenant has no active or
// trialing subscription. Callers deny on nil; it is never "unlimited".
func (s *featureService) FeatureLimit(ctx context.Context, tenantID, key string) (*int64, error) {
	resp, err := s.Resolve(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return nil, nil
	}

	limit, err := strconv.ParseInt(*resp.Value, 10, 64)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Feature %s is not an integer limit", key).
			WithReportableDetails(map[string]any{
				"tenant_id": tenantID,
				"key":       key,
				"value":     *resp.Value,
			}).
			Mark(ierr.ErrValidation)
	}
	return &limit, nil
}

// SetTenantFeatureOverride creates or replaces the tenant's live override
// of a feature of its current plan version
func (s *featureService) SetTenantFeatureOverride(ctx context.Context, req dto.SetTenantFeatureOverrideRequest) (*dto.FeatureOverrideResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := s.tenantFeature(ctx, req.TenantID, req.FeatureKey)
	if err != nil {
		return nil, err
	}
	if err := plan.ValidateFeatureValue(f.Type, req.Value); err != nil {
		return nil, err
	}

	var override *feature.Override
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.FeatureOverrideRepo.GetActive(ctx, req.TenantID, f.ID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			if err := existing.Replace(req.Value, req.Reason, req.ExpiresAt); err != nil {
				return err
			}
			override = existing
			return s.FeatureOverrideRepo.Update(ctx, override)
		}

		override, err = feature.NewOverride(ctx, req.TenantID, f.ID, req.Value, req.Reason, req.ExpiresAt)
		if err != nil {
			return err
		}
		return s.FeatureOverrideRepo.Create(ctx, override)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("feature override set",
		"tenant_id", req.TenantID,
		"feature_key", req.FeatureKey,
		"override_id", override.ID,
		"reason", req.Reason,
	)
	s.invalidateFeature(ctx, req.TenantID, req.FeatureKey)
	return dto.NewFeatureOverrideResponse(override, f.Key), nil
}

// RemoveTenantFeatureOverride retires the live override; the row is kept
func (s *featureService) RemoveTenantFeatureOverride(ctx context.Context, req dto.RemoveTenantFeatureOverrideRequest) (*dto.FeatureOverrideResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := s.tenantFeature(ctx, req.TenantID, req.FeatureKey)
	if err != nil {
		return nil, err
	}

	override, err := s.FeatureOverrideRepo.GetActive(ctx, req.TenantID, f.ID)
	if err != nil {
		return nil, err
	}
	override.Remove(time.Now().UTC())
	if err := s.FeatureOverrideRepo.Update(ctx, override); err != nil {
		return nil, err
	}

	s.Logger.Infow("feature override removed",
		"tenant_id", req.TenantID,
		"feature_key", req.FeatureKey,
		"override_id", override.ID,
	)
	s.invalidateFeature(ctx, req.TenantID, req.FeatureKey)
	return dto.NewFeatureOverrideResponse(override, f.Key), nil
}

// tenantFeature finds the feature by key on the plan version of the tenant's
// active or trialing subscription
func (s *featureService) tenantFeature(ctx context.Context, tenantID, key string) (*plan.Feature, error) {
	sub, err := s.SubRepo.GetActiveByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.PlanFeatureRepo.GetByVersionAndKey(ctx, sub.PlanVersionID, key)
}

func (s *featureService) invalidateFeature(ctx context.Context, tenantID, key string) {
	if s.Cache == nil {
		return
	}
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixFeature, tenantID, key))
}

// invalidateTenantFeatures drops every cached feature of a tenant
func (p ServiceParams) invalidateTenantFeatures(ctx context.Context, tenantID string) {
	if p.Cache == nil {
		return
	}
	p.Cache.DeleteByPrefix(ctx, cache.GenerateKey(cache.PrefixFeature, tenantID)+":")
}
