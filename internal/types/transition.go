package types

import (
	"fmt"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/samber/lo"
)

// StateTransitions is an adjacency list of legal next states. Every status
// enum owns one so the allowed list in error context is derived, never repeated.
type StateTransitions[S ~string] map[S][]S

// Allowed returns the legal next states of from, empty for terminal states
func (t StateTransitions[S]) Allowed(from S) []S {
	next := t[from]
	out := make([]S, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is in the table
func (t StateTransitions[S]) CanTransition(from, to S) bool {
	return lo.Contains(t[from], to)
}

// IsTerminal reports whether from has no outgoing transitions
func (t StateTransitions[S]) IsTerminal(from S) bool {
	return len(t[from]) == 0
}

// States returns every state that appears in the table
func (t StateTransitions[S]) States() []S {
	all := make([]S, 0, len(t))
	for from, next := range t {
		all = append(all, from)
		all = append(all, next...)
	}
	return lo.Uniq(all)
}

// Check returns nil when from -> to is legal, otherwise an error marked with
// reference carrying the current, target and allowed states.
func (t StateTransitions[S]) Check(from, to S, reference error) error {
	if t.CanTransition(from, to) {
		return nil
	}
	allowed := t.Allowed(from)
	return ierr.NewError(fmt.Sprintf("cannot transition from %s to %s", from, to)).
		WithHintf("Cannot move from %s to %s", from, to).
		WithReportableDetails(map[string]any{
			"current": from,
			"target":  to,
			"allowed": allowed,
		}).
		Mark(reference)
}
