package plan

import (
	"strconv"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// ValidateFeatureValue checks that value parses as the declared feature type
func ValidateFeatureValue(featureType types.FeatureType, value string) error {
	var err error
	switch featureType {
	case types.FeatureTypeInteger:
		_, err = strconv.ParseInt(value, 10, 64)
	case types.FeatureTypeBoolean:
		_, err = strconv.ParseBool(value)
	}
	if err != nil {
		return ierr.NewError("feature value does not match its type").
			WithHintf("Value %q is not a valid %s", value, featureType).
			WithReportableDetails(map[string]any{
				"type":  featureType,
				"value": value,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
