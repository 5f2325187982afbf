// Package store persists verification records and their evidence.
// Stores are pure I/O: state rules live in models and the service.
package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
)

type recordKey struct {
	profileID id.ProfileID
	vtype     models.VerificationType
}

// InMemoryStore keeps records in process. The mutex emulates the relational
// store's atomic constraint checks; it is for tests and local runs.
type InMemoryStore struct {
	mu       sync.Mutex
	byID     map[id.VerificationID]*models.Verification
	byKey    map[recordKey]id.VerificationID
	evidence map[id.VerificationID][]*models.Evidence
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[id.VerificationID]*models.Verification),
		byKey:    make(map[recordKey]id.VerificationID),
		evidence: make(map[id.VerificationID][]*models.Evidence),
	}
}

func copyRecord(v *models.Verification) *models.Verification {
	c := *v
	return &c
}

func copyEvidence(ev *models.Evidence) *models.Evidence {
	c := *ev
	c.Data = maps.Clone(ev.Data)
	return &c
}

// insertLocked adds rec unless (profile, vtype) exists. Returns the stored record.
func (s *InMemoryStore) insertLocked(rec *models.Verification) *models.Verification {
	key := recordKey{rec.ProfileID, rec.Type}
	if existing, ok := s.byKey[key]; ok {
		return s.byID[existing]
	}
	stored := copyRecord(rec)
	s.byID[stored.ID] = stored
	s.byKey[key] = stored.ID
	return stored
}

func (s *InMemoryStore) SeedIfAbsent(_ context.Context, profileID id.ProfileID, seeds []models.Seed, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seed := range seeds {
		s.insertLocked(models.NewSeeded(id.VerificationID(uuid.New()), profileID, seed, now))
	}
	return nil
}

func (s *InMemoryStore) Ensure(_ context.Context, rec *models.Verification) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(s.insertLocked(rec)), nil
}

func (s *InMemoryStore) Find(_ context.Context, profileID id.ProfileID, vtype models.VerificationType) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordID, ok := s.byKey[recordKey{profileID, vtype}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(s.byID[recordID]), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.VerificationID) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Verification
	for _, rec := range s.byID {
		if rec.ProfileID == profileID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (s *InMemoryStore) ListByProfiles(_ context.Context, profileIDs []id.ProfileID, vtype models.VerificationType) (map[id.ProfileID]*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[id.ProfileID]*models.Verification, len(profileIDs))
	for _, pid := range profileIDs {
		if recordID, ok := s.byKey[recordKey{pid, vtype}]; ok {
			out[pid] = copyRecord(s.byID[recordID])
		}
	}
	return out, nil
}

// ListByStatus returns records in any of statuses, most recently submitted
// first; never-submitted records sort last.
func (s *InMemoryStore) ListByStatus(_ context.Context, statuses []models.Status, limit int) ([]*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[models.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*models.Verification
	for _, rec := range s.byID {
		if want[rec.Status] {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SubmittedAt, out[j].SubmittedAt
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkSubmitted(_ context.Context, profileID id.ProfileID, vtype models.VerificationType, now time.Time) (*models.Verification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.insertLocked(&models.Verification{
		ID:        id.VerificationID(uuid.New()),
		ProfileID: profileID,
		Type:      vtype,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !rec.CanMarkSubmitted() {
		return copyRecord(rec), false, nil
	}
	rec.ApplySubmitted(now)
	return copyRecord(rec), true, nil
}

// Execute validates and mutates one record under the store lock and appends
// evidence in the same step. A validate error leaves the record untouched and
// is returned together with the current record.
func (s *InMemoryStore) Execute(_ context.Context, recordID id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification), evidence ...*models.Evidence) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := copyRecord(rec)
	if err := validate(working); err != nil {
		return copyRecord(rec), err
	}
	mutate(working)
	s.byID[recordID] = working
	for _, ev := range evidence {
		s.appendLocked(ev)
	}
	return copyRecord(working), nil
}

func (s *InMemoryStore) appendLocked(ev *models.Evidence) {
	s.evidence[ev.VerificationID] = append(s.evidence[ev.VerificationID], copyEvidence(ev))
}

func (s *InMemoryStore) AppendEvidence(_ context.Context, ev *models.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[ev.VerificationID]; !ok {
		return sentinel.ErrNotFound
	}
	s.appendLocked(ev)
	return nil
}

// LatestEvidence returns the newest evidence of kind for the record.
func (s *InMemoryStore) LatestEvidence(_ context.Context, recordID id.VerificationID, kind models.EvidenceKind) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Evidence
	for _, ev := range s.evidence[recordID] {
		if ev.Kind != kind {
			continue
		}
		if latest == nil || !ev.CreatedAt.Before(latest.CreatedAt) {
			latest = ev
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyEvidence(latest), nil
}

func (s *InMemoryStore) ListEvidence(_ context.Context, recordID id.VerificationID) ([]*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Evidence, 0, len(s.evidence[recordID]))
	for _, ev := range s.evidence[recordID] {
		out = append(out, copyEvidence(ev))
	}
	return out, nil
}
