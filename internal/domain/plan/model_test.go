package plan

import (
	"context"
	"testing"

	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivedPlanCannotBeReactivated(t *testing.T) {
	p, err := NewPlan(context.Background(), "Pro", "pro", "")
	require.NoError(t, err)
	require.NoError(t, p.Deactivate())
	require.NoError(t, p.Activate())
	require.NoError(t, p.Archive())

	err = p.Activate()
	require.Error(t, err)
	assert.Equal(t, ierr.CodeInvalidPlanTransition, ierr.Code(err))
	assert.Equal(t, types.PlanStatusArchived, p.Status)
}

func TestNewPlanRequiresSlug(t *testing.T) {
	_, err := NewPlan(context.Background(), "Pro", "", "")
	assert.True(t, ierr.IsValidation(err))
}

func TestNewPrice(t *testing.T) {
	price, err := NewPrice("v1", types.BillingCycleMonthly, money.New(9900, "BRL"), 14)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), price.Price.Amount())

	_, err = NewPrice("v1", types.BillingCycleMonthly, money.New(9900, "BRL"), -1)
	assert.True(t, ierr.IsValidation(err))

	_, err = NewPrice("v1", types.BillingCycle("daily"), money.New(9900, "BRL"), 0)
	assert.True(t, ierr.IsValidation(err))
}

func TestNewFeatureChecksType(t *testing.T) {
	f, err := NewFeature("v1", "max_units", "50", types.FeatureTypeInteger)
	require.NoError(t, err)
	assert.Equal(t, "50", f.Value)

	_, err = NewFeature("v1", "max_units", "fifty", types.FeatureTypeInteger)
	assert.True(t, ierr.IsValidation(err))

	_, err = NewFeature("v1", "reports", "yes", types.FeatureTypeBoolean)
	assert.True(t, ierr.IsValidation(err))

	_, err = NewFeature("v1", "tier", "gold", types.FeatureTypeString)
	assert.NoError(t, err)
}
