// Package store persists profiles and their role entities.
package store

import (
	"context"
	"sort"
	"sync"

	"phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in process. The mutex emulates the relational
// store's insert-if-absent semantics; it is for tests and local runs.
type InMemoryStore struct {
	mu         sync.Mutex
	profiles   map[id.ProfileID]*models.Profile
	employers  map[id.ProfileID]*models.Employer
	candidates map[id.ProfileID]*models.Candidate
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		profiles:   make(map[id.ProfileID]*models.Profile),
		employers:  make(map[id.ProfileID]*models.Employer),
		candidates: make(map[id.ProfileID]*models.Candidate),
	}
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, p *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.ID]; ok {
		c := *existing
		return &c, nil
	}
	c := *p
	s.profiles[p.ID] = &c
	out := c
	return &out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *InMemoryStore) SetAdmin(_ context.Context, profileID id.ProfileID, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.IsAdmin = isAdmin
	return nil
}

func (s *InMemoryStore) CreateEmployerIfAbsent(_ context.Context, e *models.Employer) (*models.Employer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.employers[e.ProfileID]; ok {
		c := *existing
		return &c, nil
	}
	c := *e
	s.employers[e.ProfileID] = &c
	out := c
	return &out, nil
}

func (s *InMemoryStore) CreateCandidateIfAbsent(_ context.Context, cand *models.Candidate) (*models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.candidates[cand.ProfileID]; ok {
		c := *existing
		return &c, nil
	}
	c := *cand
	s.candidates[cand.ProfileID] = &c
	out := c
	return &out, nil
}

func (s *InMemoryStore) FindEmployerByProfile(_ context.Context, profileID id.ProfileID) (*models.Employer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employers[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (s *InMemoryStore) FindCandidateByProfile(_ context.Context, profileID id.ProfileID) (*models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cand, ok := s.candidates[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *cand
	return &c, nil
}

// ListCandidates returns candidates newest first.
func (s *InMemoryStore) ListCandidates(_ context.Context, limit int) ([]*models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Candidate, 0, len(s.candidates))
	for _, cand := range s.candidates {
		c := *cand
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
