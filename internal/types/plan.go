package types

import (
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/samber/lo"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
	PlanStatusArchived PlanStatus = "archived"
)

// PlanTransitions lists the legal next states per plan status. Archived plans
// can never be reactivated.
var PlanTransitions = StateTransitions[PlanStatus]{
	PlanStatusActive:   {PlanStatusInactive, PlanStatusArchived},
	PlanStatusInactive: {PlanStatusActive, PlanStatusArchived},
	PlanStatusArchived: {},
}

func (s PlanStatus) String() string {
	return string(s)
}

type PlanVersionStatus string

const (
	PlanVersionStatusActive   PlanVersionStatus = "active"
	PlanVersionStatusInactive PlanVersionStatus = "inactive"
)

// FeatureType is the declared type of a plan feature value
type FeatureType string

const (
	FeatureTypeString  FeatureType = "string"
	FeatureTypeInteger FeatureType = "integer"
	FeatureTypeBoolean FeatureType = "boolean"
)

func (t FeatureType) String() string {
	return string(t)
}

func (t FeatureType) Validate() error {
	allowed := []FeatureType{
		FeatureTypeString,
		FeatureTypeInteger,
		FeatureTypeBoolean,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid feature type").
			WithHint("Please provide a valid feature type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
