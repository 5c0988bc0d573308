package money

import (
	"fmt"
	"strings"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/shopspring/decimal"
)

// minor unit exponents for currencies that do not use two decimal places
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"CLP": 0,
	"BHD": 3,
	"KWD": 3,
}

// Money is an amount in integer minor units of a currency
type Money struct {
	amount   int64
	currency string
}

// New builds Money from minor units. The currency code is upper-cased.
func New(amount int64, currency string) Money {
	return Money{amount: amount, currency: strings.ToUpper(currency)}
}

// Zero returns a zero amount in currency
func Zero(currency string) Money {
	return New(0, currency)
}

// FromDecimal converts a major-unit decimal (as stored in NUMERIC columns) to
// minor units, rounding half away from zero
func FromDecimal(d decimal.Decimal, currency string) Money {
	currency = strings.ToUpper(currency)
	minor := d.Shift(exponent(currency)).Round(0)
	return Money{amount: minor.IntPart(), currency: currency}
}

func exponent(currency string) int32 {
	if e, ok := exponents[currency]; ok {
		return e
	}
	return 2
}

// Validate checks that the currency looks like an ISO 4217 code
func (m Money) Validate() error {
	if len(m.currency) != 3 {
		return ierr.NewError("invalid currency code").
			WithHint("Currency must be a three letter ISO 4217 code").
			WithReportableDetails(map[string]any{
				"currency": m.currency,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (m Money) Amount() int64 {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -exponent(m.currency))
}

func (m Money) IsZero() bool {
	return m.amount == 0
}

func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Add returns m + other. Both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other, "add"); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns m - other. Both must share a currency.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other, "subtract"); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Multiply returns m scaled by an integer quantity
func (m Money) Multiply(quantity int64) Money {
	return Money{amount: m.amount * quantity, currency: m.currency}
}

// GreaterThan compares amounts of the same currency
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other, "compare"); err != nil {
		return false, err
	}
	return m.amount > other.amount, nil
}

func (m Money) Equal(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.Decimal().StringFixed(exponent(m.currency)))
}

func (m Money) sameCurrency(other Money, op string) error {
	if m.currency == other.currency {
		return nil
	}
	return ierr.NewError(fmt.Sprintf("cannot %s %s and %s", op, m.currency, other.currency)).
		WithHint("Amounts must be in the same currency").
		WithReportableDetails(map[string]any{
			"left":      m.currency,
			"right":     other.currency,
			"operation": op,
		}).
		Mark(ierr.ErrCurrencyMismatch)
}
