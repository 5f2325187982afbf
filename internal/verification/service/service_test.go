package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"phasegate/internal/verification/metrics"
	"phasegate/internal/verification/models"
	"phasegate/internal/verification/store"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/audit"
	auditmemory "phasegate/pkg/platform/audit/memory"
	"phasegate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	audit   *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.store = store.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(nil)
	s.service = New(s.store,
		WithAuditPublisher(audit.NewEmitter(s.audit, nil)),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) seededEmployer() id.ProfileID {
	profileID := id.ProfileID(uuid.New())
	s.Require().NoError(s.service.Seed(s.ctx, profileID, id.RoleEmployer))
	return profileID
}

func (s *ServiceSuite) recordOf(profileID id.ProfileID, vtype models.VerificationType) *models.Verification {
	rec, err := s.service.Find(s.ctx, profileID, vtype)
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) TestSeedIsIdempotent() {
	profileID := s.seededEmployer()
	s.Require().NoError(s.service.Seed(s.ctx, profileID, id.RoleEmployer))

	records, err := s.store.ListByProfile(s.ctx, profileID)
	s.Require().NoError(err)
	s.Len(records, 5)
	s.Equal(models.StatusApproved, s.recordOf(profileID, models.TypeEmailDomain).Status)
}

func (s *ServiceSuite) TestEnsureNeverDowngrades() {
	profileID := s.seededEmployer()
	rec, err := s.service.Ensure(s.ctx, profileID, models.TypeEmailDomain)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, rec.Status)
}

func (s *ServiceSuite) TestSubmitEvidence() {
	profileID := s.seededEmployer()

	s.Run("EIN with a letter is invalid input", func() {
		_, err := s.service.SubmitEvidence(s.ctx, profileID, models.TypeEINLast4, "12a4")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(models.StatusPending, s.recordOf(profileID, models.TypeEINLast4).Status)
	})

	s.Run("EIN 1234 moves to SUBMITTED with evidence", func() {
		rec, err := s.service.SubmitEvidence(s.ctx, profileID, models.TypeEINLast4, "1234")
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, rec.Status)
		s.NotNil(rec.SubmittedAt)

		ev, err := s.store.LatestEvidence(s.ctx, rec.ID, models.KindFor(models.TypeEINLast4))
		s.Require().NoError(err)
		s.Equal("1234", ev.Value)
		s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.Submissions.WithLabelValues("EIN_LAST4")))
		s.Contains(s.audit.Actions(), audit.EventVerificationSubmitted)
	})

	s.Run("non-submittable vtype is invalid input", func() {
		_, err := s.service.SubmitEvidence(s.ctx, profileID, models.TypeManualReview, "anything")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("approved record is left untouched", func() {
		rec := s.recordOf(profileID, models.TypeWebsite)
		_, err := s.service.Decide(s.ctx, id.ProfileID(uuid.New()), rec.ID, models.StatusApproved)
		s.Require().NoError(err)

		got, err := s.service.SubmitEvidence(s.ctx, profileID, models.TypeWebsite, "https://acme.com")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, got.Status)

		evidence, err := s.store.ListEvidence(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Empty(evidence)
	})
}

func (s *ServiceSuite) TestDecide() {
	profileID := s.seededEmployer()
	admin := id.ProfileID(uuid.New())
	rec := s.recordOf(profileID, models.TypeSOSRegistration)

	s.Run("reject stamps the admin", func() {
		got, err := s.service.Decide(s.ctx, admin, rec.ID, models.StatusRejected)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, got.Status)
		s.Require().NotNil(got.VerifiedBy)
		s.Equal(admin, *got.VerifiedBy)
	})

	s.Run("rejected record can be approved", func() {
		got, err := s.service.Decide(s.ctx, admin, rec.ID, models.StatusApproved)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, got.Status)
	})

	s.Run("approving again is a no-op", func() {
		before := promtestutil.ToFloat64(s.metrics.Decisions.WithLabelValues("APPROVED"))
		got, err := s.service.Decide(s.ctx, id.ProfileID(uuid.New()), rec.ID, models.StatusApproved)
		s.Require().NoError(err)
		s.Equal(admin, *got.VerifiedBy)
		s.Equal(before, promtestutil.ToFloat64(s.metrics.Decisions.WithLabelValues("APPROVED")))
	})

	s.Run("rejecting an approved record conflicts", func() {
		_, err := s.service.Decide(s.ctx, admin, rec.ID, models.StatusRejected)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.StatusApproved, s.recordOf(profileID, models.TypeSOSRegistration).Status)
	})

	s.Run("unknown record is not found", func() {
		_, err := s.service.Decide(s.ctx, admin, id.VerificationID(uuid.New()), models.StatusApproved)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid decision is invalid input", func() {
		other := s.recordOf(profileID, models.TypeEINLast4)
		_, err := s.service.Decide(s.ctx, admin, other.ID, models.StatusSubmitted)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// Any sequence of decisions leaves an approved record approved.
func (s *ServiceSuite) TestDecideNeverLeavesApproved() {
	sequences := [][]models.Status{
		{models.StatusApproved, models.StatusRejected},
		{models.StatusRejected, models.StatusApproved, models.StatusRejected, models.StatusRejected},
		{models.StatusApproved, models.StatusApproved, models.StatusRejected},
	}
	for _, seq := range sequences {
		profileID := s.seededEmployer()
		rec := s.recordOf(profileID, models.TypeEINLast4)
		approved := false
		for _, d := range seq {
			_, _ = s.service.Decide(s.ctx, id.ProfileID(uuid.New()), rec.ID, d)
			approved = approved || d == models.StatusApproved
			if approved {
				s.Equal(models.StatusApproved, s.recordOf(profileID, models.TypeEINLast4).Status)
			}
		}
	}
}

func (s *ServiceSuite) TestApproveAutomatic() {
	profileID := id.ProfileID(uuid.New())
	s.Require().NoError(s.service.Seed(s.ctx, profileID, id.RoleCandidate))
	rec := s.recordOf(profileID, models.TypePhone)

	got, err := s.service.ApproveAutomatic(s.ctx, rec.ID, &models.Evidence{
		Kind: models.EvidenceOTPVerify,
		Data: map[string]string{models.DataSID: "VE123"},
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
	s.Equal(profileID, *got.VerifiedBy)

	ev, err := s.service.LatestEvidence(s.ctx, rec.ID, models.EvidenceOTPVerify)
	s.Require().NoError(err)
	s.Equal("VE123", ev.Data[models.DataSID])

	_, err = s.service.ApproveAutomatic(s.ctx, rec.ID, &models.Evidence{Kind: models.EvidenceOTPVerify})
	s.Require().NoError(err)
	all, err := s.store.ListEvidence(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Len(all, 1, "second approval writes no evidence")
}

func (s *ServiceSuite) TestViewAndQueue() {
	profileID := s.seededEmployer()
	_, err := s.service.SubmitEvidence(s.ctx, profileID, models.TypeEINLast4, "1234")
	s.Require().NoError(err)

	view, err := s.service.View(s.ctx, profileID, id.RoleEmployer)
	s.Require().NoError(err)
	s.Len(view.Verifications, 5)
	s.True(view.Access.CanExplore)
	s.False(view.Access.CanEngage)

	queue, err := s.service.Queue(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(queue, 4)
	s.Equal(models.TypeEINLast4, queue[0].Type, "submitted records come first")
}

func (s *ServiceSuite) TestStatusesOfDefaultsToPending() {
	candidate := id.ProfileID(uuid.New())
	s.Require().NoError(s.service.Seed(s.ctx, candidate, id.RoleCandidate))
	unknown := id.ProfileID(uuid.New())

	got, err := s.service.StatusesOf(s.ctx, []id.ProfileID{candidate, unknown}, models.TypePhone)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got[candidate])
	s.Equal(models.StatusPending, got[unknown])
}

func (s *ServiceSuite) TestLatestEvidenceNotFound() {
	_, err := s.service.LatestEvidence(s.ctx, id.VerificationID(uuid.New()), models.EvidenceOTPRequest)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
