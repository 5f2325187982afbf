package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/sentinel"
	"phasegate/pkg/platform/tx"
)

const verificationColumns = `id, profile_id, vtype, status, submitted_at, verified_at, verified_by, created_at, updated_at`

// PostgresStore persists verification records in PostgreSQL. Uniqueness of
// (profile_id, vtype) is enforced by the table constraint.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SeedIfAbsent inserts every seed in one statement; existing rows win.
func (s *PostgresStore) SeedIfAbsent(ctx context.Context, profileID id.ProfileID, seeds []models.Seed, now time.Time) error {
	if len(seeds) == 0 {
		return nil
	}
	ids := make([]string, len(seeds))
	types := make([]string, len(seeds))
	statuses := make([]string, len(seeds))
	for i, seed := range seeds {
		ids[i] = uuid.NewString()
		types[i] = string(seed.Type)
		statuses[i] = string(seed.Status)
	}
	query := `
		INSERT INTO verifications (id, profile_id, vtype, status, verified_at, created_at, updated_at)
		SELECT u.id, $1::uuid, u.vtype, u.status,
			CASE WHEN u.status = 'APPROVED' THEN $2::timestamptz END, $2::timestamptz, $2::timestamptz
		FROM unnest($3::uuid[], $4::text[], $5::text[]) AS u(id, vtype, status)
		ON CONFLICT (profile_id, vtype) DO NOTHING
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(profileID), now, pq.Array(ids), pq.Array(types), pq.Array(statuses))
	if err != nil {
		return fmt.Errorf("seed verifications: %w", err)
	}
	return nil
}

// Ensure inserts rec if (profile, vtype) is free and returns whichever row is stored.
func (s *PostgresStore) Ensure(ctx context.Context, rec *models.Verification) (*models.Verification, error) {
	query := `
		INSERT INTO verifications (id, profile_id, vtype, status, submitted_at, verified_at, verified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (profile_id, vtype) DO NOTHING
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rec.ID), uuid.UUID(rec.ProfileID), string(rec.Type), string(rec.Status),
		rec.SubmittedAt, rec.VerifiedAt, nullableProfile(rec.VerifiedBy), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensure verification: %w", err)
	}
	return s.Find(ctx, rec.ProfileID, rec.Type)
}

func (s *PostgresStore) Find(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType) (*models.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE profile_id = $1 AND vtype = $2`
	rec, err := scanVerification(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(profileID), string(vtype)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.VerificationID) (*models.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE id = $1`
	rec, err := scanVerification(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification by id: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE profile_id = $1 ORDER BY vtype`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	return collectVerifications(rows)
}

// ListByProfiles returns the vtype record of each profile that has one.
func (s *PostgresStore) ListByProfiles(ctx context.Context, profileIDs []id.ProfileID, vtype models.VerificationType) (map[id.ProfileID]*models.Verification, error) {
	out := make(map[id.ProfileID]*models.Verification, len(profileIDs))
	if len(profileIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(profileIDs))
	for i, pid := range profileIDs {
		ids[i] = pid.String()
	}
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE profile_id = ANY($1::uuid[]) AND vtype = $2`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, pq.Array(ids), string(vtype))
	if err != nil {
		return nil, fmt.Errorf("list verifications by profiles: %w", err)
	}
	recs, err := collectVerifications(rows)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		out[rec.ProfileID] = rec
	}
	return out, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Verification, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	query := `
		SELECT ` + verificationColumns + ` FROM verifications
		WHERE status = ANY($1::text[])
		ORDER BY submitted_at DESC NULLS LAST, created_at DESC
	`
	args := []any{pq.Array(names)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verifications by status: %w", err)
	}
	return collectVerifications(rows)
}

// MarkSubmitted upserts the record to SUBMITTED unless it is APPROVED.
// changed is false when the row was approved and left untouched.
func (s *PostgresStore) MarkSubmitted(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType, now time.Time) (*models.Verification, bool, error) {
	query := `
		INSERT INTO verifications (id, profile_id, vtype, status, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'SUBMITTED', $4, $4, $4)
		ON CONFLICT (profile_id, vtype) DO UPDATE SET
			status = 'SUBMITTED',
			submitted_at = EXCLUDED.submitted_at,
			verified_at = NULL,
			verified_by = NULL,
			updated_at = EXCLUDED.updated_at
		WHERE verifications.status <> 'APPROVED'
		RETURNING ` + verificationColumns
	rec, err := scanVerification(tx.Conn(ctx, s.db).QueryRowContext(ctx, query,
		uuid.New(), uuid.UUID(profileID), string(vtype), now))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("mark verification submitted: %w", err)
	}
	// The conflicting row is approved; report it unchanged.
	rec, err = s.Find(ctx, profileID, vtype)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// Execute locks the record with FOR UPDATE, validates, mutates, writes it back
// and appends evidence, all in one transaction.
func (s *PostgresStore) Execute(ctx context.Context, recordID id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification), evidence ...*models.Evidence) (*models.Verification, error) {
	var result *models.Verification
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		query := `SELECT ` + verificationColumns + ` FROM verifications WHERE id = $1 FOR UPDATE`
		rec, err := scanVerification(conn.QueryRowContext(ctx, query, uuid.UUID(recordID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock verification: %w", err)
		}
		result = rec
		if err := validate(rec); err != nil {
			return err
		}
		mutate(rec)
		update := `
			UPDATE verifications
			SET status = $2, submitted_at = $3, verified_at = $4, verified_by = $5, updated_at = $6
			WHERE id = $1
		`
		if _, err := conn.ExecContext(ctx, update, uuid.UUID(rec.ID), string(rec.Status),
			rec.SubmittedAt, rec.VerifiedAt, nullableProfile(rec.VerifiedBy), rec.UpdatedAt); err != nil {
			return fmt.Errorf("update verification: %w", err)
		}
		for _, ev := range evidence {
			if err := s.AppendEvidence(ctx, ev); err != nil {
				return err
			}
		}
		result = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return result, err
	}
	return result, nil
}

func (s *PostgresStore) AppendEvidence(ctx context.Context, ev *models.Evidence) error {
	data := []byte(`{}`)
	if ev.Data != nil {
		var err error
		if data, err = json.Marshal(ev.Data); err != nil {
			return fmt.Errorf("marshal evidence data: %w", err)
		}
	}
	query := `
		INSERT INTO verification_evidence (id, verification_id, kind, value, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(ev.ID), uuid.UUID(ev.VerificationID), string(ev.Kind), ev.Value, string(data), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestEvidence(ctx context.Context, recordID id.VerificationID, kind models.EvidenceKind) (*models.Evidence, error) {
	query := `
		SELECT id, verification_id, kind, value, data, created_at
		FROM verification_evidence
		WHERE verification_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	ev, err := scanEvidence(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(recordID), string(kind)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest evidence: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListEvidence(ctx context.Context, recordID id.VerificationID) ([]*models.Evidence, error) {
	query := `
		SELECT id, verification_id, kind, value, data, created_at
		FROM verification_evidence
		WHERE verification_id = $1
		ORDER BY created_at
	`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()
	var out []*models.Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}

func nullableProfile(p *id.ProfileID) any {
	if p == nil {
		return nil
	}
	return uuid.UUID(*p)
}

type row interface {
	Scan(dest ...any) error
}

func scanVerification(r row) (*models.Verification, error) {
	var (
		rec                     models.Verification
		recordID, profileID     uuid.UUID
		vtype, status           string
		submittedAt, verifiedAt sql.NullTime
		verifiedBy              uuid.NullUUID
	)
	if err := r.Scan(&recordID, &profileID, &vtype, &status, &submittedAt, &verifiedAt, &verifiedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.ID = id.VerificationID(recordID)
	rec.ProfileID = id.ProfileID(profileID)
	rec.Type = models.VerificationType(vtype)
	rec.Status = models.Status(status)
	if submittedAt.Valid {
		rec.SubmittedAt = &submittedAt.Time
	}
	if verifiedAt.Valid {
		rec.VerifiedAt = &verifiedAt.Time
	}
	if verifiedBy.Valid {
		by := id.ProfileID(verifiedBy.UUID)
		rec.VerifiedBy = &by
	}
	return &rec, nil
}

func collectVerifications(rows *sql.Rows) ([]*models.Verification, error) {
	defer rows.Close()
	var out []*models.Verification
	for rows.Next() {
		rec, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}
	return out, nil
}

func scanEvidence(r row) (*models.Evidence, error) {
	var (
		ev                   models.Evidence
		evidenceID, recordID uuid.UUID
		kind                 string
		data                 []byte
	)
	if err := r.Scan(&evidenceID, &recordID, &kind, &ev.Value, &data, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.ID = id.EvidenceID(evidenceID)
	ev.VerificationID = id.VerificationID(recordID)
	ev.Kind = models.EvidenceKind(kind)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ev.Data); err != nil {
			return nil, fmt.Errorf("decode evidence data: %w", err)
		}
	}
	return &ev, nil
}
