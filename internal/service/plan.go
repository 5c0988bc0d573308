package service

import (
	"context"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/plan"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// PlanService manages the global plan catalog
type PlanService interface {
	CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	CreatePlanVersion(ctx context.Context, req dto.CreatePlanVersionRequest) (*dto.PlanVersionResponse, error)
	ArchivePlan(ctx context.Context, id string) (*dto.PlanResponse, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := req.ToPlan(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.PlanRepo.Create(ctx, p); err != nil {
		if ierr.IsAlreadyExists(err) {
			return nil, ierr.WithError(err).
				WithHintf("A plan with slug %s already exists", p.Slug).
				WithReportableDetails(map[string]any{
					"slug": p.Slug,
				}).
				Mark(ierr.ErrPlanSlugDuplicate)
		}
		return nil, err
	}

	s.Logger.Infow("plan created", "plan_id", p.ID, "slug", p.Slug)
	return dto.NewPlanResponse(p), nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan_id is required").
			WithHint("Plan ID is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPlanResponse(p), nil
}

// CreatePlanVersion publishes the next version of a plan. The previously
// active version is deactivated so exactly one version stays sellable;
// existing subscriptions keep pointing at the version they were created on.
func (s *planService) CreatePlanVersion(ctx context.Context, req dto.CreatePlanVersionRequest) (*dto.PlanVersionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		version  *plan.Version
		prices   []*plan.Price
		features []*plan.Feature
	)

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.PlanRepo.Get(ctx, req.PlanID)
		if err != nil {
			return err
		}
		if p.Status == types.PlanStatusArchived {
			return ierr.NewError("plan is archived").
				WithHint("Archived plans cannot receive new versions").
				WithReportableDetails(map[string]any{
					"plan_id": p.ID,
					"status":  p.Status,
				}).
				Mark(ierr.ErrInvalidPlanTransition)
		}

		latest, err := s.PlanVersionRepo.GetLatestNumber(ctx, p.ID)
		if err != nil {
			return err
		}

		current, err := s.PlanVersionRepo.GetActiveByPlanID(ctx, p.ID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if current != nil {
			current.Deactivate()
			if err := s.PlanVersionRepo.Update(ctx, current); err != nil {
				return err
			}
		}

		version = plan.NewVersion(p.ID, latest+1)
		if err := s.PlanVersionRepo.Create(ctx, version); err != nil {
			return err
		}

		for _, priceReq := range req.Prices {
			price, err := priceReq.ToPrice(version.ID)
			if err != nil {
				return err
			}
			if err := s.PlanPriceRepo.Create(ctx, price); err != nil {
				return err
			}
			prices = append(prices, price)
		}

		for _, featureReq := range req.Features {
			f, err := featureReq.ToFeature(version.ID)
			if err != nil {
				return err
			}
			if err := s.PlanFeatureRepo.Create(ctx, f); err != nil {
				return err
			}
			features = append(features, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("plan version created",
		"plan_id", version.PlanID,
		"plan_version_id", version.ID,
		"version", version.Version,
		"prices", len(prices),
		"features", len(features),
	)
	return dto.NewPlanVersionResponse(version, prices, features), nil
}

func (s *planService) ArchivePlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Archive(); err != nil {
		return nil, err
	}
	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("plan archived", "plan_id", p.ID)
	return dto.NewPlanResponse(p), nil
}
