package payment

import (
	"testing"
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayment() *Payment {
	return New("tenant", "inv", "stripe", money.New(9900, "BRL"), nil, nil)
}

func TestAuthorizeThenConfirm(t *testing.T) {
	p := newPayment()
	require.NoError(t, p.Authorize("pi_123"))
	assert.Equal(t, "pi_123", *p.GatewayTransactionID)
	assert.Empty(t, p.PullEvents())

	paidAt := time.Now()
	require.NoError(t, p.ConfirmPayment(paidAt))
	assert.Equal(t, types.PaymentStatusPaid, p.Status)

	evts := p.PullEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, events.PaymentConfirmed, evts[0].Name)
}

func TestRefundOnlyFromPaid(t *testing.T) {
	p := newPayment()
	err := p.Refund(money.New(100, "BRL"), time.Now())
	require.Error(t, err)
	assert.Equal(t, ierr.CodeInvalidPaymentTransition, ierr.Code(err))

	require.NoError(t, p.ConfirmPayment(time.Now()))
	require.NoError(t, p.Refund(money.New(100, "BRL"), time.Now()))
	assert.Equal(t, types.PaymentStatusRefunded, p.Status)
	assert.Equal(t, int64(100), p.RefundedAmount.Amount())
}

func TestFailIsTerminal(t *testing.T) {
	p := newPayment()
	require.NoError(t, p.Fail(time.Now(), "card_declined"))
	assert.Equal(t, "card_declined", *p.FailureReason)

	err := p.ConfirmPayment(time.Now())
	assert.True(t, ierr.IsInvalidTransition(err))
	assert.Error(t, p.Cancel())
}

func TestCancelFromAuthorized(t *testing.T) {
	p := newPayment()
	require.NoError(t, p.Authorize("pi_1"))
	require.NoError(t, p.Cancel())
	assert.Equal(t, types.PaymentStatusCanceled, p.Status)
}
