package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/condohub/billing/internal/errors"
)

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(item T) bool

// SortFunc is a generic sort function type
type SortFunc[T any] func(i, j T) bool

// InMemoryStore implements a generic in-memory store. Items are cloned on the
// way in and out so callers never share state with the store.
type InMemoryStore[T any] struct {
	mu       sync.RWMutex
	items    map[string]T
	clone    func(T) T
	notFound error
}

// NewInMemoryStore creates a new InMemoryStore. notFound is the sentinel
// Get and Update mark missing items with.
func NewInMemoryStore[T any](notFound error, clone func(T) T) *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items:    make(map[string]T),
		clone:    clone,
		notFound: notFound,
	}
}

// Create adds a new item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	return s.CreateUnique(ctx, id, item, nil)
}

// CreateUnique adds item unless an existing item conflicts with it, the
// in-memory counterpart of a unique index
func (s *InMemoryStore[T]) CreateUnique(_ context.Context, id string, item T, conflicts FilterFunc[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return alreadyExists(id)
	}
	if conflicts != nil {
		for _, existing := range s.items {
			if conflicts(existing) {
				return alreadyExists(id)
			}
		}
	}

	s.items[id] = s.clone(item)
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[id]; exists {
		return s.clone(item), nil
	}

	var zero T
	return zero, ierr.NewError("item not found").
		WithReportableDetails(map[string]any{"id": id}).
		Mark(s.notFound)
}

// Find returns the first item matching filterFn in sort order
func (s *InMemoryStore[T]) Find(ctx context.Context, filterFn FilterFunc[T], sortFn SortFunc[T]) (T, error) {
	items := s.List(ctx, filterFn, sortFn)
	if len(items) == 0 {
		var zero T
		return zero, ierr.NewError("item not found").Mark(s.notFound)
	}
	return items[0], nil
}

// List retrieves items matching filterFn
func (s *InMemoryStore[T]) List(_ context.Context, filterFn FilterFunc[T], sortFn SortFunc[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0)
	for _, item := range s.items {
		if filterFn == nil || filterFn(item) {
			result = append(result, s.clone(item))
		}
	}

	if sortFn != nil {
		sort.Slice(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}
	return result
}

// Count returns the number of items matching filterFn
func (s *InMemoryStore[T]) Count(ctx context.Context, filterFn FilterFunc[T]) int {
	return len(s.List(ctx, filterFn, nil))
}

// Update updates an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	return s.UpdateUnique(ctx, id, item, nil)
}

// UpdateUnique replaces item unless another item conflicts with its new state
func (s *InMemoryStore[T]) UpdateUnique(_ context.Context, id string, item T, conflicts FilterFunc[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(s.notFound)
	}
	if conflicts != nil {
		for existingID, existing := range s.items {
			if existingID != id && conflicts(existing) {
				return alreadyExists(id)
			}
		}
	}

	s.items[id] = s.clone(item)
	return nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

func alreadyExists(id string) error {
	return ierr.NewError("item already exists").
		WithReportableDetails(map[string]any{"id": id}).
		Mark(ierr.ErrAlreadyExists)
}
