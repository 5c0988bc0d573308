package testutil

import (
	"context"

	"github.com/condohub/billing/internal/domain/dunning"
	ierr "github.com/condohub/billing/internal/errors"
)

// InMemoryDunningPolicyStore implements dunning.Repository
type InMemoryDunningPolicyStore struct {
	*InMemoryStore[*dunning.Policy]
}

func NewInMemoryDunningPolicyStore() *InMemoryDunningPolicyStore {
	return &InMemoryDunningPolicyStore{
		InMemoryStore: NewInMemoryStore(ierr.ErrNotFound, func(p *dunning.Policy) *dunning.Policy {
			c := *p
			c.RetryIntervalDays = append([]int(nil), p.RetryIntervalDays...)
			return &c
		}),
	}
}

// Create demotes the current default when the new policy is the default
func (s *InMemoryDunningPolicyStore) Create(ctx context.Context, p *dunning.Policy) error {
	if p.IsDefault {
		if current, err := s.GetDefault(ctx); err == nil {
			current.IsDefault = false
			if err := s.InMemoryStore.Update(ctx, current.ID, current); err != nil {
				return err
			}
		}
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryDunningPolicyStore) GetDefault(ctx context.Context) (*dunning.Policy, error) {
	return s.Find(ctx, func(p *dunning.Policy) bool { return p.IsDefault }, nil)
}
