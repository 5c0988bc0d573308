package dunning

import (
	"context"
	"time"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// Policy drives escalation of past due invoices. CancelAfterDays and the
// retry schedule are stored but not actioned by the engine yet.
type Policy struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	MaxRetries        int       `json:"max_retries"`
	RetryIntervalDays []int     `json:"retry_interval_days"`
	SuspendAfterDays  int       `json:"suspend_after_days"`
	CancelAfterDays   int       `json:"cancel_after_days"`
	IsDefault         bool      `json:"is_default"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewPolicy validates and builds a policy
func NewPolicy(name string, maxRetries int, retryIntervalDays []int, suspendAfterDays, cancelAfterDays int, isDefault bool) (*Policy, error) {
	if name == "" || maxRetries < 0 || suspendAfterDays < 0 || cancelAfterDays < suspendAfterDays {
		return nil, ierr.NewError("invalid dunning policy").
			WithHint("Dunning policy needs a name and cancel after days must not precede suspend after days").
			WithReportableDetails(map[string]any{
				"name":               name,
				"max_retries":        maxRetries,
				"suspend_after_days": suspendAfterDays,
				"cancel_after_days":  cancelAfterDays,
			}).
			Mark(ierr.ErrValidation)
	}
	if retryIntervalDays == nil {
		retryIntervalDays = []int{}
	}
	return &Policy{
		ID:                types.GenerateUUID(),
		Name:              name,
		MaxRetries:        maxRetries,
		RetryIntervalDays: retryIntervalDays,
		SuspendAfterDays:  suspendAfterDays,
		CancelAfterDays:   cancelAfterDays,
		IsDefault:         isDefault,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// ShouldSuspend reports whether an invoice this many days late escalates the
// subscription to Suspended
func (p *Policy) ShouldSuspend(daysPastDue int) bool {
	return daysPastDue >= p.SuspendAfterDays
}

// Repository persists dunning policies. Create with IsDefault set demotes the
// previous default in the same statement batch.
type Repository interface {
	Create(ctx context.Context, policy *Policy) error
	// GetDefault returns ErrNotFound when no default policy exists
	GetDefault(ctx context.Context) (*Policy, error)
}
