package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"phasegate/internal/profile/models"
	"phasegate/internal/profile/store"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.service = New(s.store)
}

func (s *ServiceSuite) TestClaim() {
	profileID := id.ProfileID(uuid.New())

	s.Run("first claim fixes the role", func() {
		p, err := s.service.Claim(s.ctx, profileID, "a@acme.com", id.RoleEmployer)
		s.Require().NoError(err)
		s.Equal(id.RoleEmployer, p.Role)
	})

	s.Run("same role again is idempotent", func() {
		p, err := s.service.Claim(s.ctx, profileID, "a@acme.com", id.RoleEmployer)
		s.Require().NoError(err)
		s.Equal(profileID, p.ID)
	})

	s.Run("other role conflicts", func() {
		_, err := s.service.Claim(s.ctx, profileID, "a@acme.com", id.RoleCandidate)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("nil subject is unauthenticated", func() {
		_, err := s.service.Claim(s.ctx, id.ProfileID{}, "a@acme.com", id.RoleEmployer)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestRequire() {
	employer := id.ProfileID(uuid.New())
	_, err := s.service.Claim(s.ctx, employer, "a@acme.com", id.RoleEmployer)
	s.Require().NoError(err)

	_, err = s.service.Require(s.ctx, employer, id.RoleEmployer)
	s.NoError(err)

	_, err = s.service.Require(s.ctx, employer, id.RoleCandidate)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Require(s.ctx, id.ProfileID(uuid.New()), id.RoleEmployer)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "missing profile is forbidden")

	_, err = s.service.Get(s.ctx, id.ProfileID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRequireAdmin() {
	profileID := id.ProfileID(uuid.New())
	_, err := s.service.Claim(s.ctx, profileID, "ops@phasegate.dev", id.RoleEmployer)
	s.Require().NoError(err)

	_, err = s.service.RequireAdmin(s.ctx, profileID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.service.SetAdmin(s.ctx, profileID, true))
	p, err := s.service.RequireAdmin(s.ctx, profileID)
	s.Require().NoError(err)
	s.True(p.IsAdmin)

	err = s.service.SetAdmin(s.ctx, id.ProfileID(uuid.New()), true)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestConcurrentEnsureEmployerConverges() {
	p, err := s.service.Claim(s.ctx, id.ProfileID(uuid.New()), "a@acme.com", id.RoleEmployer)
	s.Require().NoError(err)

	const workers = 16
	ids := make([]id.EmployerID, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := s.service.EnsureEmployer(s.ctx, p, "Acme", "acme.com")
			s.NoError(err)
			ids[i] = e.ID
		}(i)
	}
	wg.Wait()

	for _, got := range ids {
		s.Equal(ids[0], got)
	}
}

func (s *ServiceSuite) TestEnsureCandidateKeepsFirstName() {
	p, err := s.service.Claim(s.ctx, id.ProfileID(uuid.New()), "c@example.com", id.RoleCandidate)
	s.Require().NoError(err)

	first, err := s.service.EnsureCandidate(s.ctx, p, "Ada")
	s.Require().NoError(err)
	second, err := s.service.EnsureCandidate(s.ctx, p, models.DefaultCandidateName)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal("Ada", second.FullName)
}
