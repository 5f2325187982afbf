// Package service runs the verification state machine: seeding, submissions,
// admin decisions and automatic approvals, plus the access view derived from
// a profile's statuses.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"phasegate/internal/verification/metrics"
	"phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/audit"
	"phasegate/pkg/platform/sentinel"
	"phasegate/pkg/requestcontext"
)

// QueueLimit caps the admin review queue.
const QueueLimit = 200

type Store interface {
	SeedIfAbsent(ctx context.Context, profileID id.ProfileID, seeds []models.Seed, now time.Time) error
	Ensure(ctx context.Context, rec *models.Verification) (*models.Verification, error)
	Find(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType) (*models.Verification, error)
	FindByID(ctx context.Context, recordID id.VerificationID) (*models.Verification, error)
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Verification, error)
	ListByProfiles(ctx context.Context, profileIDs []id.ProfileID, vtype models.VerificationType) (map[id.ProfileID]*models.Verification, error)
	ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Verification, error)
	MarkSubmitted(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType, now time.Time) (*models.Verification, bool, error)
	Execute(ctx context.Context, recordID id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification), evidence ...*models.Evidence) (*models.Verification, error)
	AppendEvidence(ctx context.Context, ev *models.Evidence) error
	LatestEvidence(ctx context.Context, recordID id.VerificationID, kind models.EvidenceKind) (*models.Evidence, error)
	ListEvidence(ctx context.Context, recordID id.VerificationID) ([]*models.Evidence, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// errAlreadyApproved aborts an Execute whose target is already approved. The
// caller reports success without writing.
var errAlreadyApproved = errors.New("verification already approved")

type Service struct {
	store   Store
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default(), auditor: audit.NewEmitter(nil, nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed creates the role's initial records, skipping any that already exist.
func (s *Service) Seed(ctx context.Context, profileID id.ProfileID, role id.Role) error {
	seeds := models.SeedsFor(role)
	if len(seeds) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	if err := s.store.SeedIfAbsent(ctx, profileID, seeds, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed verifications")
	}
	return nil
}

// Ensure returns the (profile, vtype) record, creating it PENDING when absent.
// An existing record is returned as is.
func (s *Service) Ensure(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType) (*models.Verification, error) {
	now := requestcontext.Now(ctx)
	rec, err := s.store.Ensure(ctx, &models.Verification{
		ID:        id.VerificationID(uuid.New()),
		ProfileID: profileID,
		Type:      vtype,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to ensure verification")
	}
	return rec, nil
}

// Find loads the (profile, vtype) record; NotFound when it was never created.
func (s *Service) Find(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType) (*models.Verification, error) {
	rec, err := s.store.Find(ctx, profileID, vtype)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, vtype.String()+" verification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	return rec, nil
}

// MarkSubmitted upserts the record to SUBMITTED. changed is false when the
// record was already approved, which is left untouched.
func (s *Service) MarkSubmitted(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType) (*models.Verification, bool, error) {
	rec, changed, err := s.store.MarkSubmitted(ctx, profileID, vtype, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark verification submitted")
	}
	return rec, changed, nil
}

// SubmitEvidence records an employer's self-service evidence for vtype and
// moves the record to SUBMITTED. The caller's role is checked by the handler.
func (s *Service) SubmitEvidence(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType, value string) (*models.Verification, error) {
	if !models.IsSubmittable(vtype) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "vtype must be EIN_LAST4, SOS_REGISTRATION or WEBSITE")
	}
	normalized, err := models.NormalizeSubmission(vtype, value)
	if err != nil {
		return nil, err
	}

	rec, changed, err := s.MarkSubmitted(ctx, profileID, vtype)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.InfoContext(ctx, "submission ignored for approved verification",
			"profile_id", profileID,
			"vtype", vtype,
			"request_id", requestcontext.RequestID(ctx),
		)
		return rec, nil
	}

	if err := s.store.AppendEvidence(ctx, &models.Evidence{
		ID:             id.EvidenceID(uuid.New()),
		VerificationID: rec.ID,
		Kind:           models.KindFor(vtype),
		Value:          normalized,
		CreatedAt:      requestcontext.Now(ctx),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evidence")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:           audit.EventVerificationSubmitted,
		ProfileID:        profileID,
		VerificationType: vtype.String(),
		Subject:          rec.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementSubmission(vtype.String())
	}
	return rec, nil
}

// Decide applies an admin decision. Approving an approved record again is a
// no-op success; rejecting it is a Conflict.
func (s *Service) Decide(ctx context.Context, actor id.ProfileID, recordID id.VerificationID, decision models.Status) (*models.Verification, error) {
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveDecide(start)
	}
	now := requestcontext.Now(ctx)

	rec, err := s.store.Execute(ctx, recordID,
		func(v *models.Verification) error {
			noop, err := v.CanDecide(decision)
			if err != nil {
				return err
			}
			if noop {
				return errAlreadyApproved
			}
			return nil
		},
		func(v *models.Verification) {
			v.ApplyDecision(decision, actor, now)
		},
	)
	if err != nil {
		if errors.Is(err, errAlreadyApproved) {
			return rec, nil
		}
		return nil, s.translate(err, "failed to apply decision")
	}

	action := audit.EventVerificationApproved
	if decision == models.StatusRejected {
		action = audit.EventVerificationRejected
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:           action,
		ProfileID:        rec.ProfileID,
		VerificationType: rec.Type.String(),
		Subject:          rec.ID.String(),
		Decision:         decision.String(),
		ActorID:          actor.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementDecision(decision.String())
	}
	return rec, nil
}

// ApproveAutomatic approves a record on behalf of its own subject and appends
// ev in the same store transaction. An already approved record is returned
// unchanged and ev is dropped.
func (s *Service) ApproveAutomatic(ctx context.Context, recordID id.VerificationID, ev *models.Evidence) (*models.Verification, error) {
	now := requestcontext.Now(ctx)
	if ev != nil {
		ev.VerificationID = recordID
		if ev.ID.IsNil() {
			ev.ID = id.EvidenceID(uuid.New())
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
	}
	var evidence []*models.Evidence
	if ev != nil {
		evidence = append(evidence, ev)
	}

	rec, err := s.store.Execute(ctx, recordID,
		func(v *models.Verification) error {
			if v.IsApproved() {
				return errAlreadyApproved
			}
			return nil
		},
		func(v *models.Verification) {
			v.ApplyAutomaticApproval(now)
		},
		evidence...,
	)
	if err != nil {
		if errors.Is(err, errAlreadyApproved) {
			return rec, nil
		}
		return nil, s.translate(err, "failed to approve verification")
	}
	if s.metrics != nil {
		s.metrics.IncrementAutoApproval(rec.Type.String())
	}
	return rec, nil
}

// AppendEvidence stores one evidence row for recordID.
func (s *Service) AppendEvidence(ctx context.Context, recordID id.VerificationID, ev *models.Evidence) error {
	ev.VerificationID = recordID
	if ev.ID.IsNil() {
		ev.ID = id.EvidenceID(uuid.New())
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = requestcontext.Now(ctx)
	}
	if err := s.store.AppendEvidence(ctx, ev); err != nil {
		return s.translate(err, "failed to store evidence")
	}
	return nil
}

// LatestEvidence returns the newest evidence of kind, or NotFound.
func (s *Service) LatestEvidence(ctx context.Context, recordID id.VerificationID, kind models.EvidenceKind) (*models.Evidence, error) {
	ev, err := s.store.LatestEvidence(ctx, recordID, kind)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no "+string(kind)+" evidence")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence")
	}
	return ev, nil
}

// Statuses returns the profile's current statuses keyed by vtype.
func (s *Service) Statuses(ctx context.Context, profileID id.ProfileID) (models.StatusMap, error) {
	records, err := s.store.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verifications")
	}
	return models.StatusMapOf(records), nil
}

// StatusesOf returns the vtype status of each profile. Profiles without a
// record map to PENDING.
func (s *Service) StatusesOf(ctx context.Context, profileIDs []id.ProfileID, vtype models.VerificationType) (map[id.ProfileID]models.Status, error) {
	records, err := s.store.ListByProfiles(ctx, profileIDs, vtype)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verifications")
	}
	out := make(map[id.ProfileID]models.Status, len(profileIDs))
	for _, pid := range profileIDs {
		out[pid] = models.StatusPending
		if rec, ok := records[pid]; ok {
			out[pid] = rec.Status
		}
	}
	return out, nil
}

// Access derives the profile's capabilities from freshly loaded statuses.
func (s *Service) Access(ctx context.Context, profileID id.ProfileID, role id.Role) (models.Access, error) {
	statuses, err := s.Statuses(ctx, profileID)
	if err != nil {
		return models.Access{}, err
	}
	return models.DeriveAccess(role, statuses), nil
}

// View is a profile's records together with the access they grant.
type View struct {
	Role          id.Role
	Verifications []*models.Verification
	Access        models.Access
}

func (s *Service) View(ctx context.Context, profileID id.ProfileID, role id.Role) (*View, error) {
	records, err := s.store.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verifications")
	}
	return &View{
		Role:          role,
		Verifications: records,
		Access:        models.DeriveAccess(role, models.StatusMapOf(records)),
	}, nil
}

// Queue lists records awaiting review, newest submission first.
func (s *Service) Queue(ctx context.Context) ([]*models.Verification, error) {
	records, err := s.store.ListByStatus(ctx, []models.Status{models.StatusPending, models.StatusSubmitted}, QueueLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review queue")
	}
	return records, nil
}

// translate maps store sentinels to domain errors and passes coded errors
// through.
func (s *Service) translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
