package period

import (
	"testing"
	"time"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	p := ForCycle(date(2025, time.January, 15), types.BillingCycleMonthly)
	assert.Equal(t, date(2025, time.February, 15), p.End)

	next := p.Next(types.BillingCycleMonthly)
	assert.Equal(t, date(2025, time.February, 15), next.Start)
	assert.Equal(t, date(2025, time.March, 15), next.End)

	yearly := p.Next(types.BillingCycleYearly)
	assert.Equal(t, date(2026, time.February, 15), yearly.End)

	semi := p.Next(types.BillingCycleSemiannual)
	assert.Equal(t, date(2025, time.August, 15), semi.End)

	quarterly := p.Next(types.BillingCycleQuarterly)
	assert.Equal(t, date(2025, time.May, 15), quarterly.End)
}

func TestNewRejectsInvertedPeriod(t *testing.T) {
	_, err := New(date(2025, time.March, 1), date(2025, time.February, 1))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	p, err := New(date(2025, time.March, 1), date(2025, time.April, 1))
	require.NoError(t, err)
	assert.True(t, p.Contains(date(2025, time.March, 31)))
	assert.False(t, p.Contains(date(2025, time.April, 1)))
}
