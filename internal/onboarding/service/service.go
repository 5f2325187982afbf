// Package service bootstraps a signed-in subject into the marketplace: it
// fixes the profile role, creates the role entity and seeds the role's
// verification records. Every step is insert-if-absent, so repeated or
// concurrent bootstraps converge on the same rows.
package service

import (
	"context"
	"log/slog"
	"strings"

	profilemodels "phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/audit"
	"phasegate/pkg/requestcontext"
)

type Profiles interface {
	Claim(ctx context.Context, profileID id.ProfileID, email string, role id.Role) (*profilemodels.Profile, error)
	EnsureEmployer(ctx context.Context, p *profilemodels.Profile, companyName, domain string) (*profilemodels.Employer, error)
	EnsureCandidate(ctx context.Context, p *profilemodels.Profile, fullName string) (*profilemodels.Candidate, error)
}

type Verifications interface {
	Seed(ctx context.Context, profileID id.ProfileID, role id.Role) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Request carries the role specific bootstrap data.
type Request struct {
	Role        id.Role
	CompanyName string
	FullName    string
}

// Result identifies the role entity the profile is bound to.
type Result struct {
	Role     id.Role
	EntityID string
}

type Service struct {
	profiles      Profiles
	verifications Verifications
	logger        *slog.Logger
	auditor       AuditPublisher
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

func New(profiles Profiles, verifications Verifications, opts ...Option) *Service {
	s := &Service{
		profiles:      profiles,
		verifications: verifications,
		logger:        slog.Default(),
		auditor:       audit.NewEmitter(nil, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap onboards profileID with req.Role. Role data is validated before
// anything is written so a rejected request never fixes the role.
func (s *Service) Bootstrap(ctx context.Context, profileID id.ProfileID, email string, req Request) (*Result, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var result *Result
	var err error
	switch req.Role {
	case id.RoleEmployer:
		result, err = s.bootstrapEmployer(ctx, profileID, email, req)
	case id.RoleCandidate:
		result, err = s.bootstrapCandidate(ctx, profileID, email, req)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role must be EMPLOYER or CANDIDATE")
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile bootstrapped",
		"request_id", requestcontext.RequestID(ctx),
		"profile_id", profileID,
		"role", result.Role,
		"entity_id", result.EntityID,
	)
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.EventProfileBootstrapped,
		ProfileID: profileID,
		Subject:   result.EntityID,
		Decision:  result.Role.String(),
	})
	return result, nil
}

func (s *Service) bootstrapEmployer(ctx context.Context, profileID id.ProfileID, email string, req Request) (*Result, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company_name is required for employers")
	}
	domain, err := profilemodels.EmailDomain(email)
	if err != nil {
		return nil, err
	}

	p, err := s.profiles.Claim(ctx, profileID, strings.TrimSpace(email), id.RoleEmployer)
	if err != nil {
		return nil, err
	}
	employer, err := s.profiles.EnsureEmployer(ctx, p, companyName, domain)
	if err != nil {
		return nil, err
	}
	if err := s.verifications.Seed(ctx, profileID, id.RoleEmployer); err != nil {
		return nil, err
	}
	return &Result{Role: id.RoleEmployer, EntityID: employer.ID.String()}, nil
}

func (s *Service) bootstrapCandidate(ctx context.Context, profileID id.ProfileID, email string, req Request) (*Result, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = profilemodels.DefaultCandidateName
	}

	p, err := s.profiles.Claim(ctx, profileID, strings.TrimSpace(email), id.RoleCandidate)
	if err != nil {
		return nil, err
	}
	candidate, err := s.profiles.EnsureCandidate(ctx, p, fullName)
	if err != nil {
		return nil, err
	}
	if err := s.verifications.Seed(ctx, profileID, id.RoleCandidate); err != nil {
		return nil, err
	}
	return &Result{Role: id.RoleCandidate, EntityID: candidate.ID.String()}, nil
}
