package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"phasegate/internal/outreach/models"
	"phasegate/internal/platform/postgres"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts rec. The unique (employer, candidate) index decides which of
// several concurrent sends wins.
func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO outreach (id, employer_profile_id, candidate_profile_id, message, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`
	_, err := s.db.ExecContext(ctx, query, uuid.UUID(rec.ID), uuid.UUID(rec.EmployerProfileID),
		uuid.UUID(rec.CandidateProfileID), rec.Message, rec.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert outreach: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEmployer(ctx context.Context, employer id.ProfileID, limit int) ([]*models.Record, error) {
	query := `
		SELECT id, employer_profile_id, candidate_profile_id, COALESCE(message, ''), created_at
		FROM outreach
		WHERE employer_profile_id = $1
		ORDER BY created_at DESC
	`
	args := []any{uuid.UUID(employer)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outreach: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var rec models.Record
		var recordID, employerID, candidateID uuid.UUID
		if err := rows.Scan(&recordID, &employerID, &candidateID, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outreach: %w", err)
		}
		rec.ID = id.OutreachID(recordID)
		rec.EmployerProfileID = id.ProfileID(employerID)
		rec.CandidateProfileID = id.ProfileID(candidateID)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outreach: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outreach`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outreach: %w", err)
	}
	return n, nil
}
