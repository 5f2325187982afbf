// Package service applies admin decisions to verification records and serves
// the review queue.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Profiles,Verifications

import (
	"context"
	"log/slog"

	profilemodels "phasegate/internal/profile/models"
	vmodels "phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/requestcontext"
)

type Profiles interface {
	RequireAdmin(ctx context.Context, profileID id.ProfileID) (*profilemodels.Profile, error)
}

type Verifications interface {
	Decide(ctx context.Context, actor id.ProfileID, recordID id.VerificationID, decision vmodels.Status) (*vmodels.Verification, error)
	Queue(ctx context.Context) ([]*vmodels.Verification, error)
}

type Service struct {
	profiles      Profiles
	verifications Verifications
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(profiles Profiles, verifications Verifications, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "profiles service is required")
	}
	if verifications == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "verifications service is required")
	}
	s := &Service{
		profiles:      profiles,
		verifications: verifications,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Decide applies decision ("APPROVED" or "REJECTED") to recordID on behalf
// of adminID. The admin check runs before the decision is parsed.
func (s *Service) Decide(ctx context.Context, adminID id.ProfileID, recordID id.VerificationID, decision string) (*vmodels.Verification, error) {
	if _, err := s.profiles.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	status, err := vmodels.ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	rec, err := s.verifications.Decide(ctx, adminID, recordID, status)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "verification decided",
		"request_id", requestcontext.RequestID(ctx),
		"admin_profile_id", adminID,
		"verification_id", recordID,
		"decision", status,
		"status", rec.Status,
	)
	return rec, nil
}

// Queue returns the records awaiting review.
func (s *Service) Queue(ctx context.Context, adminID id.ProfileID) ([]*vmodels.Verification, error) {
	if _, err := s.profiles.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.verifications.Queue(ctx)
}
