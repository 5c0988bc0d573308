package period

import (
	"time"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
)

// Period is the half-open billing interval [Start, End)
type Period struct {
	Start time.Time
	End   time.Time
}

// New builds a period, rejecting empty or inverted intervals
func New(start, end time.Time) (Period, error) {
	if !end.After(start) {
		return Period{}, ierr.NewError("period end must be after start").
			WithHint("Billing period end must be after its start").
			WithReportableDetails(map[string]any{
				"start": start,
				"end":   end,
			}).
			Mark(ierr.ErrValidation)
	}
	return Period{Start: start.UTC(), End: end.UTC()}, nil
}

// ForCycle returns the period starting at start that spans one cycle
func ForCycle(start time.Time, cycle types.BillingCycle) Period {
	start = start.UTC()
	return Period{Start: start, End: start.AddDate(0, cycle.Months(), 0)}
}

// Next returns the period immediately following p for cycle. Calendar
// arithmetic is used so month length differences are absorbed by AddDate.
func (p Period) Next(cycle types.BillingCycle) Period {
	return ForCycle(p.End, cycle)
}

// Contains reports whether t falls inside [Start, End)
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}
