package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	onboarding "phasegate/internal/onboarding/service"
	"phasegate/internal/outreach/metrics"
	"phasegate/internal/outreach/store"
	profileservice "phasegate/internal/profile/service"
	profilestore "phasegate/internal/profile/store"
	vmodels "phasegate/internal/verification/models"
	vservice "phasegate/internal/verification/service"
	vstore "phasegate/internal/verification/store"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/platform/audit"
	auditmemory "phasegate/pkg/platform/audit/memory"
	"phasegate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx           context.Context
	store         *store.InMemoryStore
	audit         *auditmemory.InMemoryStore
	metrics       *metrics.Metrics
	profiles      *profileservice.Service
	verifications *vservice.Service
	onboarding    *onboarding.Service
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.store = store.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(nil)
	s.profiles = profileservice.New(profilestore.NewInMemory())
	s.verifications = vservice.New(vstore.NewInMemory())
	s.onboarding = onboarding.New(s.profiles, s.verifications)
	s.service = New(s.store, s.profiles, s.verifications,
		WithAuditPublisher(audit.NewEmitter(s.audit, nil)),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) employer(email string) id.ProfileID {
	profileID := id.ProfileID(uuid.New())
	_, err := s.onboarding.Bootstrap(s.ctx, profileID, email, onboarding.Request{
		Role:        id.RoleEmployer,
		CompanyName: "Acme",
	})
	s.Require().NoError(err)
	return profileID
}

func (s *ServiceSuite) candidate(name string) id.ProfileID {
	profileID := id.ProfileID(uuid.New())
	_, err := s.onboarding.Bootstrap(s.ctx, profileID, "", onboarding.Request{
		Role:     id.RoleCandidate,
		FullName: name,
	})
	s.Require().NoError(err)
	return profileID
}

func (s *ServiceSuite) approve(profileID id.ProfileID, vtype vmodels.VerificationType) {
	rec, err := s.verifications.Find(s.ctx, profileID, vtype)
	s.Require().NoError(err)
	_, err = s.verifications.ApproveAutomatic(s.ctx, rec.ID, nil)
	s.Require().NoError(err)
}

func (s *ServiceSuite) engageEmployer() id.ProfileID {
	employer := s.employer("owner@acme.com")
	s.approve(employer, vmodels.TypeEINLast4)
	s.approve(employer, vmodels.TypeSOSRegistration)
	return employer
}

func (s *ServiceSuite) verifiedCandidate() id.ProfileID {
	candidate := s.candidate("Jo Doe")
	s.approve(candidate, vmodels.TypePhone)
	return candidate
}

func (s *ServiceSuite) count() int {
	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	return n
}

func (s *ServiceSuite) TestSend() {
	s.Run("engage employer contacts verified candidate", func() {
		employer := s.engageEmployer()
		candidate := s.verifiedCandidate()

		rec, err := s.service.Send(s.ctx, employer, candidate, "  hello  ")
		s.Require().NoError(err)
		s.Equal("hello", rec.Message)
		s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Sends.WithLabelValues(metrics.OutcomeSent)))

		events := s.audit.ListByProfile(s.ctx, employer)
		s.Require().Len(events, 1)
		s.Equal(audit.EventOutreachSent, events[0].Action)
		s.Equal(candidate.String(), events[0].Subject)
	})

	s.Run("second send to the same candidate conflicts", func() {
		employer := s.engageEmployer()
		candidate := s.verifiedCandidate()

		_, err := s.service.Send(s.ctx, employer, candidate, "")
		s.Require().NoError(err)
		_, err = s.service.Send(s.ctx, employer, candidate, "again")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unverified candidate is forbidden and nothing is stored", func() {
		employer := s.engageEmployer()
		candidate := s.candidate("No Phone")
		before := s.count()

		_, err := s.service.Send(s.ctx, employer, candidate, "hi")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(before, s.count())
	})

	s.Run("explore-only employer is forbidden", func() {
		employer := s.employer("owner@globex.com")
		candidate := s.verifiedCandidate()

		_, err := s.service.Send(s.ctx, employer, candidate, "hi")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		events := s.audit.ListByProfile(s.ctx, employer)
		s.Require().Len(events, 1)
		s.Equal(audit.EventOutreachDenied, events[0].Action)
	})

	s.Run("candidate caller is forbidden", func() {
		caller := s.verifiedCandidate()
		_, err := s.service.Send(s.ctx, caller, s.verifiedCandidate(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("overlong message is invalid", func() {
		employer := s.engageEmployer()
		long := make([]byte, 2001)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.service.Send(s.ctx, employer, s.verifiedCandidate(), string(long))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("length counts characters, not bytes", func() {
		employer := s.engageEmployer()
		message := strings.Repeat("採", 1000)
		s.Greater(len(message), 2000)

		rec, err := s.service.Send(s.ctx, employer, s.verifiedCandidate(), message)
		s.Require().NoError(err)
		s.Equal(message, rec.Message)

		_, err = s.service.Send(s.ctx, employer, s.verifiedCandidate(), strings.Repeat("採", 2001))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestConcurrentSendsRecordOnce() {
	employer := s.engageEmployer()
	candidate := s.verifiedCandidate()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Send(s.ctx, employer, candidate, "hi")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(n-1, conflicts)
	s.Equal(1, s.count())
}

func (s *ServiceSuite) TestAcmeReachesEngage() {
	employer := s.employer("owner@acme.com")

	access, err := s.verifications.Access(s.ctx, employer, id.RoleEmployer)
	s.Require().NoError(err)
	s.True(access.CanExplore)
	s.False(access.CanEngage)

	_, err = s.verifications.SubmitEvidence(s.ctx, employer, vmodels.TypeEINLast4, "1234")
	s.Require().NoError(err)
	_, err = s.verifications.SubmitEvidence(s.ctx, employer, vmodels.TypeSOSRegistration, "de|1234567")
	s.Require().NoError(err)

	admin := id.ProfileID(uuid.New())
	for _, vtype := range []vmodels.VerificationType{vmodels.TypeEINLast4, vmodels.TypeSOSRegistration} {
		rec, err := s.verifications.Find(s.ctx, employer, vtype)
		s.Require().NoError(err)
		_, err = s.verifications.Decide(s.ctx, admin, rec.ID, vmodels.StatusApproved)
		s.Require().NoError(err)
	}

	access, err = s.verifications.Access(s.ctx, employer, id.RoleEmployer)
	s.Require().NoError(err)
	s.True(access.CanEngage)

	_, err = s.service.Send(s.ctx, employer, s.verifiedCandidate(), "")
	s.NoError(err)
}

func (s *ServiceSuite) TestListCandidates() {
	s.Run("explore employer sees eligibility", func() {
		employer := s.employer("owner@acme.com")
		verified := s.verifiedCandidate()
		unverified := s.candidate("Pending Phone")

		views, err := s.service.ListCandidates(s.ctx, employer)
		s.Require().NoError(err)

		eligible := map[id.ProfileID]bool{}
		for _, v := range views {
			eligible[v.ProfileID] = v.EligibleForOutreach
		}
		s.True(eligible[verified])
		s.False(eligible[unverified])
	})

	s.Run("rejected manual review revokes explore", func() {
		employer := s.employer("owner@initech.com")
		rec, err := s.verifications.Find(s.ctx, employer, vmodels.TypeManualReview)
		s.Require().NoError(err)
		_, err = s.verifications.Decide(s.ctx, id.ProfileID(uuid.New()), rec.ID, vmodels.StatusRejected)
		s.Require().NoError(err)

		_, err = s.service.ListCandidates(s.ctx, employer)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestHistory() {
	employer := s.engageEmployer()
	first := s.verifiedCandidate()
	second := s.verifiedCandidate()

	_, err := s.service.Send(s.ctx, employer, first, "one")
	s.Require().NoError(err)
	_, err = s.service.Send(requestcontext.WithTime(s.ctx, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)), employer, second, "two")
	s.Require().NoError(err)

	records, err := s.service.History(s.ctx, employer)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(second, records[0].CandidateProfileID)
	s.Equal(first, records[1].CandidateProfileID)
}
