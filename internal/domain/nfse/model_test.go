package nfse

import (
	"testing"
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/money"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocument(t *testing.T) *Document {
	d, err := New("tenant", "inv_1", "Software license", time.Now(), money.New(19900, "BRL"), decimal.RequireFromString("5.00"))
	require.NoError(t, err)
	return d
}

func TestComputeISS(t *testing.T) {
	cases := []struct {
		total int64
		rate  string
		want  int64
	}{
		{19900, "5.00", 995},
		{9900, "2.00", 198},
		{10050, "5.00", 503}, // 502.5 rounds away from zero
		{10030, "5.00", 502}, // 501.5
		{10010, "5.00", 501}, // 500.5
		{9999, "3.33", 333},  // 332.9667
		{0, "5.00", 0},
	}
	for _, tc := range cases {
		got := ComputeISS(money.New(tc.total, "BRL"), decimal.RequireFromString(tc.rate))
		assert.Equal(t, tc.want, got.Amount(), "%d x %s%%", tc.total, tc.rate)
	}
}

func TestNewRecordsRequest(t *testing.T) {
	d := newDocument(t)
	assert.Equal(t, types.NFSeStatusDraft, d.Status)
	assert.Equal(t, int64(995), d.ISSAmount.Amount())
	assert.Equal(t, "nfse:inv_1", d.IdempotencyKey)

	evts := d.PullEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, events.NFSeRequested, evts[0].Name)
}

func TestNewRejectsRateOutOfRange(t *testing.T) {
	_, err := New("tenant", "inv_1", "x", time.Now(), money.New(100, "BRL"), decimal.NewFromInt(101))
	assert.True(t, ierr.IsValidation(err))
}

func TestAsyncAuthorization(t *testing.T) {
	d := newDocument(t)
	d.PullEvents()

	require.NoError(t, d.MarkProcessing("ref_1"))
	require.NoError(t, d.MarkAuthorized(Authorization{Number: "123", VerificationCode: "ABC"}, time.Now()))
	assert.Equal(t, "123", *d.Number)
	assert.Nil(t, d.PDFURL)

	evts := d.PullEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, events.NFSeAuthorized, evts[0].Name)
}

func TestSyncAuthorizationFromDraft(t *testing.T) {
	d := newDocument(t)
	require.NoError(t, d.MarkAuthorized(Authorization{Number: "9"}, time.Now()))
	assert.Equal(t, types.NFSeStatusAuthorized, d.Status)
}

func TestDeniedCanBeRetried(t *testing.T) {
	d := newDocument(t)
	require.NoError(t, d.MarkProcessing("ref_1"))
	require.NoError(t, d.MarkDenied("invalid CNAE", `{"code":"E10"}`))

	require.NoError(t, d.ResetForRetry())
	assert.Equal(t, types.NFSeStatusDraft, d.Status)
	assert.Nil(t, d.ProviderRef)
	assert.Nil(t, d.ProviderResponse)
	assert.Empty(t, d.ErrorMessage)
}

func TestResetRequiresDenied(t *testing.T) {
	d := newDocument(t)
	err := d.ResetForRetry()
	assert.Equal(t, ierr.CodeNFSeCannotRetry, ierr.Code(err))
}

func TestCancelOnlyFromAuthorized(t *testing.T) {
	d := newDocument(t)
	err := d.Cancel("wrong amount", time.Now())
	assert.Equal(t, ierr.CodeInvalidNFSeTransition, ierr.Code(err))

	require.NoError(t, d.MarkAuthorized(Authorization{Number: "1"}, time.Now()))
	require.NoError(t, d.Cancel("wrong amount", time.Now()))
	assert.NotNil(t, d.CancelledAt)

	assert.Error(t, d.MarkProcessing("ref"))
}

func TestDraftCannotBeDeniedDirectly(t *testing.T) {
	d := newDocument(t)
	err := d.MarkDenied("boom", "")
	assert.True(t, ierr.IsInvalidTransition(err))
}
