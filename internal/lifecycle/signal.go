// Package lifecycle holds the observer channels an orchestrator fires while
// modules move through their init phase.
package lifecycle

import (
	"fmt"
	"sync"

	"lifectl/pkg/logging"

	"github.com/google/uuid"
)

// Handler receives one emitted payload.
type Handler[T any] func(T)

// Signal is a named broadcast channel with zero or more subscribers.
// Emit is synchronous: it returns after every subscriber has run.
type Signal[T any] struct {
	name     string
	handlers map[string]Handler[T]
	order    []string
	mu       sync.RWMutex
}

// NewSignal creates a signal. name is only used in diagnostics.
func NewSignal[T any](name string) *Signal[T] {
	return &Signal[T]{
		name:     name,
		handlers: make(map[string]Handler[T]),
	}
}

// Name returns the signal's name.
func (s *Signal[T]) Name() string {
	return s.name
}

// Subscribe adds handler and returns a function that removes it again.
// Cancelling more than once is harmless.
func (s *Signal[T]) Subscribe(handler Handler[T]) (cancel func()) {
	if handler == nil {
		return func() {}
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.handlers[id] = handler
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Signal[T]) unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlers[id]; !ok {
		return
	}
	delete(s.handlers, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit delivers payload to a snapshot of the current subscribers in
// subscription order. Subscribers added or removed by a handler take
// effect from the next emission on. A panicking handler is logged and does
// not stop delivery to the rest.
func (s *Signal[T]) Emit(payload T) {
	s.mu.RLock()
	snapshot := make([]Handler[T], 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.handlers[id])
	}
	s.mu.RUnlock()

	for _, handler := range snapshot {
		s.deliver(handler, payload)
	}
}

func (s *Signal[T]) deliver(handler Handler[T], payload T) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Lifecycle", fmt.Errorf("%v", r), "Subscriber of %s panicked", s.name)
		}
	}()
	handler(payload)
}

// Len returns the number of active subscribers.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
