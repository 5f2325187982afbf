// Package store persists outreach records. Both stores reject a second record
// for the same (employer, candidate) pair with sentinel.ErrAlreadyUsed.
package store

import (
	"context"
	"sort"
	"sync"

	"phasegate/internal/outreach/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
)

type pairKey struct {
	employer  id.ProfileID
	candidate id.ProfileID
}

// InMemoryStore emulates the unique (employer, candidate) constraint under a mutex.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[pairKey]*models.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[pairKey]*models.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{rec.EmployerProfileID, rec.CandidateProfileID}
	if _, ok := s.records[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *rec
	s.records[key] = &c
	return nil
}

// ListByEmployer returns the employer's records newest first.
func (s *InMemoryStore) ListByEmployer(_ context.Context, employer id.ProfileID, limit int) ([]*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Record
	for key, rec := range s.records {
		if key.employer == employer {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}
