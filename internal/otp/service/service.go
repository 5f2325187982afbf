// Package service runs the candidate phone verification workflow: send a
// one-time code, then confirm it and approve the PHONE record.
package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"phasegate/internal/otp/cooldown"
	"phasegate/internal/otp/metrics"
	"phasegate/internal/otp/phoneseal"
	"phasegate/internal/otp/provider"
	profilemodels "phasegate/internal/profile/models"
	vmodels "phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/audit"
	"phasegate/pkg/requestcontext"
)

// DefaultCooldown is the minimum gap between two sends for one candidate.
const DefaultCooldown = 45 * time.Second

const minCodeLength = 4

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// Verifications is the slice of the verification service the workflow drives.
type Verifications interface {
	Find(ctx context.Context, profileID id.ProfileID, vtype vmodels.VerificationType) (*vmodels.Verification, error)
	MarkSubmitted(ctx context.Context, profileID id.ProfileID, vtype vmodels.VerificationType) (*vmodels.Verification, bool, error)
	LatestEvidence(ctx context.Context, recordID id.VerificationID, kind vmodels.EvidenceKind) (*vmodels.Evidence, error)
	AppendEvidence(ctx context.Context, recordID id.VerificationID, ev *vmodels.Evidence) error
	ApproveAutomatic(ctx context.Context, recordID id.VerificationID, ev *vmodels.Evidence) (*vmodels.Verification, error)
}

type Profiles interface {
	Require(ctx context.Context, profileID id.ProfileID, role id.Role) (*profilemodels.Profile, error)
}

type Sealer interface {
	Seal(phone string) (string, error)
	Open(sealed string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// StartResult is the outcome of a successful Start.
type StartResult struct {
	AlreadyVerified bool
	Last4           string
}

type Service struct {
	verifications Verifications
	profiles      Profiles
	provider      provider.Provider
	sealer        Sealer
	gate          cooldown.Gate
	cooldown      time.Duration
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

// WithGate adds a cross-process send claim on top of the evidence cooldown.
func WithGate(gate cooldown.Gate) Option {
	return func(s *Service) {
		s.gate = gate
	}
}

func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

func New(verifications Verifications, profiles Profiles, p provider.Provider, sealer Sealer, opts ...Option) *Service {
	s := &Service{
		verifications: verifications,
		profiles:      profiles,
		provider:      p,
		sealer:        sealer,
		gate:          cooldown.Noop{},
		cooldown:      DefaultCooldown,
		logger:        slog.Default(),
		auditor:       audit.NewEmitter(nil, nil),
		tracer:        otel.Tracer("phasegate/otp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

// Start sends a verification code to phone for the candidate. A candidate
// whose PHONE is already approved gets AlreadyVerified without a send.
func (s *Service) Start(ctx context.Context, profileID id.ProfileID, phone string) (*StartResult, error) {
	if _, err := s.profiles.Require(ctx, profileID, id.RoleCandidate); err != nil {
		return nil, err
	}
	phone = strings.TrimSpace(phone)
	if !e164Pattern.MatchString(phone) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "phone must be in E.164 format, e.g. +18185551234")
	}
	now := requestcontext.Now(ctx)

	rec, err := s.verifications.Find(ctx, profileID, vmodels.TypePhone)
	switch {
	case err == nil:
		if rec.IsApproved() {
			s.metrics.IncrementStart(metrics.OutcomeAlreadyVerified)
			return &StartResult{AlreadyVerified: true}, nil
		}
		if err := s.checkCooldown(ctx, profileID, rec.ID, now); err != nil {
			return nil, err
		}
	case dErrors.HasCode(err, dErrors.CodeNotFound):
	default:
		return nil, err
	}

	// Seal before sending; every delivered code needs checkable evidence.
	sealed, err := s.sealer.Seal(phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to protect phone number")
	}

	claimKey := profileID.String() + ":" + vmodels.TypePhone.String()
	claimed, err := s.gate.Claim(ctx, claimKey, s.cooldown)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim send slot")
	}
	if !claimed {
		s.throttled(ctx, profileID, s.cooldown)
		return nil, dErrors.RateLimited("a code was sent recently, try again shortly", s.cooldown)
	}

	rec, changed, err := s.verifications.MarkSubmitted(ctx, profileID, vmodels.TypePhone)
	if err != nil {
		s.release(ctx, claimKey)
		return nil, err
	}
	if !changed {
		s.release(ctx, claimKey)
		s.metrics.IncrementStart(metrics.OutcomeAlreadyVerified)
		return &StartResult{AlreadyVerified: true}, nil
	}

	sent, err := s.send(ctx, phone)
	if err != nil {
		// A timed out send may still be delivered; keep the claim until its TTL.
		if !sendOutcomeUnknown(err) {
			s.release(ctx, claimKey)
		}
		s.logger.ErrorContext(ctx, "otp send failed",
			"request_id", requestcontext.RequestID(ctx),
			"profile_id", profileID,
			"provider", s.provider.Name(),
			"category", provider.CategoryOf(err),
			"retryable", provider.IsRetryable(err),
			"error", err,
		)
		s.metrics.IncrementStart(metrics.OutcomeProviderError)
		return nil, dErrors.Wrap(err, dErrors.CodeProviderFailure, "could not send a verification code, please try again")
	}

	last4 := phoneseal.Last4(phone)
	if err := s.verifications.AppendEvidence(ctx, rec.ID, &vmodels.Evidence{
		Kind:      vmodels.EvidenceOTPRequest,
		CreatedAt: now,
		Data: map[string]string{
			vmodels.DataProvider:    s.provider.Name(),
			vmodels.DataChannel:     sent.Channel,
			vmodels.DataSID:         sent.SID,
			vmodels.DataLast4:       last4,
			vmodels.DataPhoneSealed: sealed,
			vmodels.DataStatus:      sent.Status,
		},
	}); err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:           audit.EventPhoneCodeSent,
		ProfileID:        profileID,
		VerificationType: vmodels.TypePhone.String(),
		Subject:          rec.ID.String(),
	})
	s.metrics.IncrementStart(metrics.OutcomeSent)
	return &StartResult{Last4: last4}, nil
}

// Check confirms code for the candidate's latest send and approves PHONE.
func (s *Service) Check(ctx context.Context, profileID id.ProfileID, code string) error {
	if _, err := s.profiles.Require(ctx, profileID, id.RoleCandidate); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if len(code) < minCodeLength {
		return dErrors.New(dErrors.CodeInvalidInput, "code must be at least 4 characters")
	}

	rec, err := s.verifications.Find(ctx, profileID, vmodels.TypePhone)
	if err != nil {
		return err
	}
	if rec.IsApproved() {
		return nil
	}

	request, err := s.verifications.LatestEvidence(ctx, rec.ID, vmodels.EvidenceOTPRequest)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no pending phone verification, request a code first")
		}
		return err
	}
	phone, err := s.sealer.Open(request.Data[vmodels.DataPhoneSealed])
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to recover phone number")
	}

	result, err := s.check(ctx, phone, code)
	if err != nil {
		s.logger.ErrorContext(ctx, "otp check failed",
			"request_id", requestcontext.RequestID(ctx),
			"profile_id", profileID,
			"provider", s.provider.Name(),
			"category", provider.CategoryOf(err),
			"error", err,
		)
		s.metrics.IncrementCheck(metrics.OutcomeProviderError)
		return dErrors.Wrap(err, dErrors.CodeProviderFailure, "could not check the code, please try again")
	}

	if !result.Approved {
		if err := s.verifications.AppendEvidence(ctx, rec.ID, &vmodels.Evidence{
			Kind: vmodels.EvidenceOTPFailed,
			Data: map[string]string{
				vmodels.DataProvider: s.provider.Name(),
				vmodels.DataStatus:   result.Status,
			},
		}); err != nil {
			return err
		}
		s.auditor.Emit(ctx, audit.Event{
			Action:           audit.EventPhoneCodeFailed,
			ProfileID:        profileID,
			VerificationType: vmodels.TypePhone.String(),
			Subject:          rec.ID.String(),
			Reason:           result.Status,
		})
		s.metrics.IncrementCheck(metrics.OutcomeIncorrect)
		return dErrors.New(dErrors.CodeIncorrectCode, "the code is incorrect or has expired")
	}

	if _, err := s.verifications.ApproveAutomatic(ctx, rec.ID, &vmodels.Evidence{
		Kind: vmodels.EvidenceOTPVerify,
		Data: map[string]string{
			vmodels.DataProvider: s.provider.Name(),
			vmodels.DataSID:      result.SID,
			vmodels.DataStatus:   result.Status,
			vmodels.DataLast4:    request.Data[vmodels.DataLast4],
		},
	}); err != nil {
		return err
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:           audit.EventPhoneVerified,
		ProfileID:        profileID,
		VerificationType: vmodels.TypePhone.String(),
		Subject:          rec.ID.String(),
	})
	s.metrics.IncrementCheck(metrics.OutcomeApproved)
	return nil
}

// checkCooldown fails RateLimited when the latest send is younger than the
// cooldown.
func (s *Service) checkCooldown(ctx context.Context, profileID id.ProfileID, recordID id.VerificationID, now time.Time) error {
	last, err := s.verifications.LatestEvidence(ctx, recordID, vmodels.EvidenceOTPRequest)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil
		}
		return err
	}
	elapsed := now.Sub(last.CreatedAt)
	if elapsed >= s.cooldown {
		return nil
	}
	wait := s.cooldown - elapsed
	s.throttled(ctx, profileID, wait)
	return dErrors.RateLimited("a code was sent recently, try again shortly", wait)
}

func (s *Service) throttled(ctx context.Context, profileID id.ProfileID, wait time.Duration) {
	s.logger.InfoContext(ctx, "otp send throttled",
		"request_id", requestcontext.RequestID(ctx),
		"profile_id", profileID,
		"retry_after", wait,
	)
	s.auditor.Emit(ctx, audit.Event{
		Action:           audit.EventPhoneCodeThrottled,
		ProfileID:        profileID,
		VerificationType: vmodels.TypePhone.String(),
	})
	s.metrics.IncrementStart(metrics.OutcomeThrottled)
}

// sendOutcomeUnknown reports whether a failed send may still reach the phone.
func sendOutcomeUnknown(err error) bool {
	return provider.CategoryOf(err) == provider.ErrorTimeout ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func (s *Service) release(ctx context.Context, key string) {
	if err := s.gate.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release otp send claim",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (s *Service) send(ctx context.Context, phone string) (*provider.SendResult, error) {
	ctx, span := s.tracer.Start(ctx, "otp.provider.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("otp.provider", s.provider.Name())),
	)
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveProvider(s.provider.Name(), "send", start)

	res, err := s.provider.SendCode(ctx, phone)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(provider.CategoryOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("otp.sid", res.SID))
	return res, nil
}

func (s *Service) check(ctx context.Context, phone, code string) (*provider.CheckResult, error) {
	ctx, span := s.tracer.Start(ctx, "otp.provider.check",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("otp.provider", s.provider.Name())),
	)
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveProvider(s.provider.Name(), "check", start)

	res, err := s.provider.CheckCode(ctx, phone, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(provider.CategoryOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Bool("otp.approved", res.Approved))
	return res, nil
}
