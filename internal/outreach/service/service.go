// Package service authorizes and records employer outreach to candidates.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"phasegate/internal/outreach/metrics"
	"phasegate/internal/outreach/models"
	profilemodels "phasegate/internal/profile/models"
	vmodels "phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/audit"
	"phasegate/pkg/platform/sentinel"
	"phasegate/pkg/requestcontext"
)

const (
	candidateListLimit = 100
	historyLimit       = 200
)

type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	ListByEmployer(ctx context.Context, employer id.ProfileID, limit int) ([]*models.Record, error)
}

type Profiles interface {
	Require(ctx context.Context, profileID id.ProfileID, role id.Role) (*profilemodels.Profile, error)
	ListCandidates(ctx context.Context, limit int) ([]*profilemodels.Candidate, error)
}

type Verifications interface {
	Statuses(ctx context.Context, profileID id.ProfileID) (vmodels.StatusMap, error)
	StatusesOf(ctx context.Context, profileIDs []id.ProfileID, vtype vmodels.VerificationType) (map[id.ProfileID]vmodels.Status, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store         Store
	profiles      Profiles
	verifications Verifications
	logger        *slog.Logger
	auditor       AuditPublisher
	metrics       *metrics.Metrics
	tracer        trace.Tracer
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

func New(store Store, profiles Profiles, verifications Verifications, opts ...Option) *Service {
	s := &Service{
		store:         store,
		profiles:      profiles,
		verifications: verifications,
		logger:        slog.Default(),
		auditor:       audit.NewEmitter(nil, nil),
		tracer:        otel.Tracer("phasegate/outreach"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

// Send records a contact from an Engage-tier employer to a phone-verified
// candidate. Each pair may be contacted once.
func (s *Service) Send(ctx context.Context, employerID, candidateID id.ProfileID, message string) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "outreach.send", trace.WithAttributes(
		attribute.String("outreach.employer_profile_id", employerID.String()),
		attribute.String("outreach.candidate_profile_id", candidateID.String()),
	))
	defer span.End()

	rec, err := s.send(ctx, employerID, candidateID, message)
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return rec, err
}

func (s *Service) send(ctx context.Context, employerID, candidateID id.ProfileID, message string) (*models.Record, error) {
	if _, err := s.profiles.Require(ctx, employerID, id.RoleEmployer); err != nil {
		return nil, err
	}
	if candidateID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidateProfileId is required")
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > models.MaxMessageLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "message is too long")
	}

	var employerStatuses vmodels.StatusMap
	var candidateStatuses map[id.ProfileID]vmodels.Status
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employerStatuses, err = s.verifications.Statuses(gctx, employerID)
		return err
	})
	g.Go(func() error {
		var err error
		candidateStatuses, err = s.verifications.StatusesOf(gctx, []id.ProfileID{candidateID}, vmodels.TypePhone)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !vmodels.DeriveAccess(id.RoleEmployer, employerStatuses).CanEngage {
		s.denied(ctx, employerID, candidateID, "engage_tier_required")
		return nil, dErrors.New(dErrors.CodeForbidden, "employer verification is incomplete")
	}
	candidateAccess := vmodels.DeriveAccess(id.RoleCandidate, vmodels.StatusMap{
		vmodels.TypePhone: candidateStatuses[candidateID],
	})
	if !candidateAccess.EligibleForOutreach {
		s.denied(ctx, employerID, candidateID, "candidate_phone_unverified")
		return nil, dErrors.New(dErrors.CodeForbidden, "candidate is not eligible for outreach")
	}

	rec := &models.Record{
		ID:                 id.OutreachID(uuid.New()),
		EmployerProfileID:  employerID,
		CandidateProfileID: candidateID,
		Message:            message,
		CreatedAt:          requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncrementSend(metrics.OutcomeDuplicate)
			return nil, dErrors.New(dErrors.CodeConflict, "candidate already contacted")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record outreach")
	}

	s.logger.InfoContext(ctx, "outreach sent",
		"request_id", requestcontext.RequestID(ctx),
		"employer_profile_id", employerID,
		"candidate_profile_id", candidateID,
	)
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.EventOutreachSent,
		ProfileID: employerID,
		Subject:   candidateID.String(),
	})
	s.metrics.IncrementSend(metrics.OutcomeSent)
	return rec, nil
}

func (s *Service) denied(ctx context.Context, employerID, candidateID id.ProfileID, reason string) {
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.EventOutreachDenied,
		ProfileID: employerID,
		Subject:   candidateID.String(),
		Reason:    reason,
	})
	s.metrics.IncrementSend(metrics.OutcomeDenied)
}

// ListCandidates lists candidates to an Explore-tier employer, each with
// its current outreach eligibility.
func (s *Service) ListCandidates(ctx context.Context, employerID id.ProfileID) ([]models.CandidateView, error) {
	if _, err := s.profiles.Require(ctx, employerID, id.RoleEmployer); err != nil {
		return nil, err
	}
	statuses, err := s.verifications.Statuses(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if !vmodels.DeriveAccess(id.RoleEmployer, statuses).CanExplore {
		return nil, dErrors.New(dErrors.CodeForbidden, "employer verification is incomplete")
	}

	candidates, err := s.profiles.ListCandidates(ctx, candidateListLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]id.ProfileID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ProfileID)
	}
	phones, err := s.verifications.StatusesOf(ctx, ids, vmodels.TypePhone)
	if err != nil {
		return nil, err
	}

	out := make([]models.CandidateView, 0, len(candidates))
	for _, c := range candidates {
		access := vmodels.DeriveAccess(id.RoleCandidate, vmodels.StatusMap{vmodels.TypePhone: phones[c.ProfileID]})
		out = append(out, models.CandidateView{
			ProfileID:           c.ProfileID,
			CandidateID:         c.ID,
			FullName:            c.FullName,
			EligibleForOutreach: access.EligibleForOutreach,
		})
	}
	return out, nil
}

// History lists the employer's outreach, newest first.
func (s *Service) History(ctx context.Context, employerID id.ProfileID) ([]*models.Record, error) {
	if _, err := s.profiles.Require(ctx, employerID, id.RoleEmployer); err != nil {
		return nil, err
	}
	records, err := s.store.ListByEmployer(ctx, employerID, historyLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load outreach history")
	}
	return records, nil
}
