package feature

import (
	"context"
	"testing"
	"time"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideLifecycle(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)

	o, err := NewOverride(context.Background(), "tenant", "feat", "200", "enterprise deal", &future)
	require.NoError(t, err)
	assert.True(t, o.IsEffective(now))
	assert.False(t, o.IsEffective(future.Add(time.Second)))

	require.NoError(t, o.Replace("300", "upsell", nil))
	assert.True(t, o.IsEffective(future.Add(time.Hour)))

	o.Remove(now)
	assert.False(t, o.IsEffective(now))
	assert.Equal(t, OverrideStatusRemoved, o.Status)
}

func TestOverrideRequiresReason(t *testing.T) {
	_, err := NewOverride(context.Background(), "tenant", "feat", "200", "", nil)
	assert.True(t, ierr.IsValidation(err))
}
