package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
)

// PostgresStore persists profiles, employers and candidates. Every create is
// INSERT ... ON CONFLICT DO NOTHING followed by a read, so concurrent callers
// converge on the first writer's row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, role, email, is_admin, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(p.ID), string(p.Role), p.Email, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return s.FindByID(ctx, p.ID)
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	query := `SELECT id, role, email, is_admin, created_at FROM profiles WHERE id = $1`
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, uuid.UUID(profileID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SetAdmin(ctx context.Context, profileID id.ProfileID, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET is_admin = $2 WHERE id = $1`, uuid.UUID(profileID), isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set admin rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateEmployerIfAbsent(ctx context.Context, e *models.Employer) (*models.Employer, error) {
	query := `
		INSERT INTO employers (id, profile_id, company_name, company_email, email_domain, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (profile_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(e.ID), uuid.UUID(e.ProfileID),
		e.CompanyName, e.CompanyEmail, e.EmailDomain, e.CreatedAt); err != nil {
		return nil, fmt.Errorf("create employer: %w", err)
	}
	return s.FindEmployerByProfile(ctx, e.ProfileID)
}

func (s *PostgresStore) CreateCandidateIfAbsent(ctx context.Context, c *models.Candidate) (*models.Candidate, error) {
	query := `
		INSERT INTO candidates (id, profile_id, full_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(c.ID), uuid.UUID(c.ProfileID), c.FullName, c.CreatedAt); err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	return s.FindCandidateByProfile(ctx, c.ProfileID)
}

func (s *PostgresStore) FindEmployerByProfile(ctx context.Context, profileID id.ProfileID) (*models.Employer, error) {
	query := `
		SELECT id, profile_id, company_name, company_email, email_domain, created_at
		FROM employers WHERE profile_id = $1
	`
	var e models.Employer
	var employerID, owner uuid.UUID
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(profileID)).
		Scan(&employerID, &owner, &e.CompanyName, &e.CompanyEmail, &e.EmailDomain, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find employer: %w", err)
	}
	e.ID = id.EmployerID(employerID)
	e.ProfileID = id.ProfileID(owner)
	return &e, nil
}

func (s *PostgresStore) FindCandidateByProfile(ctx context.Context, profileID id.ProfileID) (*models.Candidate, error) {
	query := `SELECT id, profile_id, full_name, created_at FROM candidates WHERE profile_id = $1`
	c, err := scanCandidate(s.db.QueryRowContext(ctx, query, uuid.UUID(profileID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find candidate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, limit int) ([]*models.Candidate, error) {
	query := `SELECT id, profile_id, full_name, created_at FROM candidates ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()
	var out []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanProfile(r row) (*models.Profile, error) {
	var p models.Profile
	var profileID uuid.UUID
	var role string
	if err := r.Scan(&profileID, &role, &p.Email, &p.IsAdmin, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = id.ProfileID(profileID)
	p.Role = id.Role(role)
	return &p, nil
}

func scanCandidate(r row) (*models.Candidate, error) {
	var c models.Candidate
	var candidateID, owner uuid.UUID
	if err := r.Scan(&candidateID, &owner, &c.FullName, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CandidateID(candidateID)
	c.ProfileID = id.ProfileID(owner)
	return &c, nil
}
