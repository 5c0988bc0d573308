package testutil

import (
	"context"
	"sync"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/publisher"
	"github.com/samber/lo"
)

var _ publisher.EventPublisher = (*InMemoryEventPublisher)(nil)

// InMemoryEventPublisher records every published domain event
type InMemoryEventPublisher struct {
	mu     sync.RWMutex
	events []events.DomainEvent
}

func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{}
}

func (p *InMemoryEventPublisher) Publish(_ context.Context, evts ...events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

// Events returns the published events in order
func (p *InMemoryEventPublisher) Events() []events.DomainEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]events.DomainEvent(nil), p.events...)
}

// Names returns the names of the published events in order
func (p *InMemoryEventPublisher) Names() []string {
	return lo.Map(p.Events(), func(e events.DomainEvent, _ int) string { return e.Name })
}

// Clear drops the recorded events
func (p *InMemoryEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
