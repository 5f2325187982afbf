// Package memory records audit events in process for tests and local runs.
package memory

import (
	"context"
	"sync"

	id "phasegate/pkg/domain"
	audit "phasegate/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Emit(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID id.ProfileID) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ProfileID == profileID {
			out = append(out, e)
		}
	}
	return out
}

// Actions returns the recorded actions in emission order.
func (s *InMemoryStore) Actions() []audit.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.AuditEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}
