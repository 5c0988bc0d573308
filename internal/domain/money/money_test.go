package money

import (
	"testing"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	a := New(9900, "brl")
	b := New(100, "BRL")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), sum.Amount())
	assert.Equal(t, "BRL", sum.Currency())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(9800), diff.Amount())

	assert.Equal(t, int64(29700), a.Multiply(3).Amount())

	gt, err := a.GreaterThan(b)
	require.NoError(t, err)
	assert.True(t, gt)
}

func TestCurrencyMismatch(t *testing.T) {
	_, err := New(100, "BRL").Add(New(100, "USD"))
	require.Error(t, err)
	assert.Equal(t, ierr.CodeCurrencyMismatch, ierr.Code(err))
	assert.True(t, ierr.IsBusinessRule(err))

	_, err = New(100, "BRL").Subtract(New(100, "USD"))
	assert.True(t, ierr.Is(err, ierr.ErrCurrencyMismatch))
}

func TestDecimalConversion(t *testing.T) {
	m := New(19900, "BRL")
	assert.Equal(t, "199", m.Decimal().String())
	assert.Equal(t, "BRL 199.00", m.String())

	back := FromDecimal(decimal.RequireFromString("199.005"), "BRL")
	assert.Equal(t, int64(19901), back.Amount())

	assert.Equal(t, int64(500), FromDecimal(decimal.NewFromInt(500), "JPY").Amount())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New(1, "BRL").Validate())
	assert.True(t, ierr.IsValidation(New(1, "REAL").Validate()))
}
