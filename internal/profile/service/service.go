// Package service owns profile identity: the role claim made at bootstrap and
// the role gates every other module checks before acting.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/sentinel"
	"phasegate/pkg/requestcontext"
)

type Store interface {
	CreateIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, error)
	FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)
	SetAdmin(ctx context.Context, profileID id.ProfileID, isAdmin bool) error
	CreateEmployerIfAbsent(ctx context.Context, e *models.Employer) (*models.Employer, error)
	CreateCandidateIfAbsent(ctx context.Context, c *models.Candidate) (*models.Candidate, error)
	FindEmployerByProfile(ctx context.Context, profileID id.ProfileID) (*models.Employer, error)
	FindCandidateByProfile(ctx context.Context, profileID id.ProfileID) (*models.Candidate, error)
	ListCandidates(ctx context.Context, limit int) ([]*models.Candidate, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Claim creates the profile with role on first call. Later calls return the
// stored profile, failing with Conflict when they ask for the other role.
func (s *Service) Claim(ctx context.Context, profileID id.ProfileID, email string, role id.Role) (*models.Profile, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	p, err := s.store.CreateIfAbsent(ctx, &models.Profile{
		ID:        profileID,
		Role:      role,
		Email:     email,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}
	if p.Role != role {
		return nil, dErrors.New(dErrors.CodeConflict, "profile is already registered with role "+p.Role.String())
	}
	return p, nil
}

// Get loads a profile. A missing profile is NotFound.
func (s *Service) Get(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	p, err := s.store.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// Require loads the caller's profile and checks its role. A caller that never
// bootstrapped is Forbidden, like one holding the other role.
func (s *Service) Require(ctx context.Context, profileID id.ProfileID, role id.Role) (*models.Profile, error) {
	p, err := s.Get(ctx, profileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "profile is not onboarded")
		}
		return nil, err
	}
	if p.Role != role {
		return nil, dErrors.New(dErrors.CodeForbidden, "only "+role.String()+" profiles may do this")
	}
	return p, nil
}

func (s *Service) RequireAdmin(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	p, err := s.Get(ctx, profileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "admin access required")
		}
		return nil, err
	}
	if !p.IsAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin access required")
	}
	return p, nil
}

// SetAdmin grants or revokes the admin flag. Used by the operator CLI.
func (s *Service) SetAdmin(ctx context.Context, profileID id.ProfileID, isAdmin bool) error {
	if err := s.store.SetAdmin(ctx, profileID, isAdmin); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	s.logger.InfoContext(ctx, "admin flag updated",
		"profile_id", profileID,
		"is_admin", isAdmin,
	)
	return nil
}

// EnsureEmployer creates the employer row for p, or returns the existing one.
// Concurrent callers converge on the first writer's id.
func (s *Service) EnsureEmployer(ctx context.Context, p *models.Profile, companyName, domain string) (*models.Employer, error) {
	e, err := s.store.CreateEmployerIfAbsent(ctx, &models.Employer{
		ID:           id.EmployerID(uuid.New()),
		ProfileID:    p.ID,
		CompanyName:  companyName,
		CompanyEmail: p.Email,
		EmailDomain:  domain,
		CreatedAt:    requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save employer")
	}
	return e, nil
}

func (s *Service) EnsureCandidate(ctx context.Context, p *models.Profile, fullName string) (*models.Candidate, error) {
	c, err := s.store.CreateCandidateIfAbsent(ctx, &models.Candidate{
		ID:        id.CandidateID(uuid.New()),
		ProfileID: p.ID,
		FullName:  fullName,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save candidate")
	}
	return c, nil
}

func (s *Service) ListCandidates(ctx context.Context, limit int) ([]*models.Candidate, error) {
	out, err := s.store.ListCandidates(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	return out, nil
}
