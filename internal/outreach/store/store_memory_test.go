package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/outreach/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
)

func newRecord(employer, candidate id.ProfileID, at time.Time) *models.Record {
	return &models.Record{
		ID:                 id.OutreachID(uuid.New()),
		EmployerProfileID:  employer,
		CandidateProfileID: candidate,
		CreatedAt:          at,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("rejects a second record for the pair", func(t *testing.T) {
		s := NewInMemory()
		employer, candidate := id.ProfileID(uuid.New()), id.ProfileID(uuid.New())

		require.NoError(t, s.Create(ctx, newRecord(employer, candidate, base)))
		err := s.Create(ctx, newRecord(employer, candidate, base.Add(time.Minute)))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("lists newest first per employer", func(t *testing.T) {
		s := NewInMemory()
		employer, other := id.ProfileID(uuid.New()), id.ProfileID(uuid.New())
		older := newRecord(employer, id.ProfileID(uuid.New()), base)
		newer := newRecord(employer, id.ProfileID(uuid.New()), base.Add(time.Hour))
		require.NoError(t, s.Create(ctx, older))
		require.NoError(t, s.Create(ctx, newer))
		require.NoError(t, s.Create(ctx, newRecord(other, id.ProfileID(uuid.New()), base)))

		recs, err := s.ListByEmployer(ctx, employer, 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, newer.ID, recs[0].ID)
		assert.Equal(t, older.ID, recs[1].ID)

		recs, err = s.ListByEmployer(ctx, employer, 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})
}
