package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkCarriesCodeAndCategory(t *testing.T) {
	err := NewError("subscription sub_1 not found").
		WithHint("Subscription not found").
		WithReportableDetails(map[string]any{"subscription_id": "sub_1"}).
		Mark(ErrSubscriptionNotFound)

	assert.True(t, Is(err, ErrSubscriptionNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsBusinessRule(err))
	assert.Equal(t, CodeSubscriptionNotFound, Code(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromErr(err))
	assert.Equal(t, "sub_1", Details(err)["subscription_id"])
	assert.Equal(t, "Subscription not found", Hint(err))
}

func TestCodeFallsBackToCategory(t *testing.T) {
	err := NewError("duplicate").Mark(ErrAlreadyExists)
	assert.Equal(t, ErrCodeAlreadyExists, Code(err))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromErr(err))

	assert.Equal(t, ErrCodeSystemError, Code(assertErr("boom")))
	assert.Equal(t, "", Code(nil))
}

func TestStatusPerCategory(t *testing.T) {
	cases := []struct {
		ref    error
		status int
	}{
		{ErrInvalidInvoiceTransition, http.StatusConflict},
		{ErrRefundExceedsPayment, http.StatusUnprocessableEntity},
		{ErrGatewayRefundFailed, http.StatusBadGateway},
		{ErrInvalidWebhookSignature, http.StatusUnauthorized},
		{ErrValidation, http.StatusBadRequest},
	}
	for _, tc := range cases {
		err := NewError("x").Mark(tc.ref)
		assert.Equal(t, tc.status, HTTPStatusFromErr(err), Code(err))
	}
}

func TestNewErrorResponse(t *testing.T) {
	err := NewError("refund too large").
		WithHint("Refund amount exceeds the captured amount").
		WithReportableDetails(map[string]any{"amount": 100, "refund": 200}).
		Mark(ErrRefundExceedsPayment)

	resp := NewErrorResponse(err)
	assert.False(t, resp.Success)
	assert.Equal(t, CodeRefundExceedsPayment, resp.Error.Code)
	assert.Equal(t, "Refund amount exceeds the captured amount", resp.Error.Display)
	assert.EqualValues(t, 200, resp.Error.Details["refund"])
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
