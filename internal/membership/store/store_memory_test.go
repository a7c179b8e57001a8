package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fudign/kfa-sub000/internal/membership/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newApp(userID id.UserID, createdAt time.Time) *models.Application {
	app, err := models.NewApplication(id.NewApplicationID(), userID, models.Submission{
		MembershipType: models.TypeIndividual,
		FirstName:      "Nurlan",
		LastName:       "Osmonov",
		Email:          "nurlan@example.kg",
	}, createdAt)
	s.Require().NoError(err)
	return app
}

func (s *InMemoryStoreSuite) TestCreate() {
	s.Run("second open application for a user conflicts", func() {
		user := id.NewUserID()
		s.Require().NoError(s.store.Create(s.ctx, s.newApp(user, s.now)))
		err := s.store.Create(s.ctx, s.newApp(user, s.now))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("a decided application does not block a new one", func() {
		user := id.NewUserID()
		app := s.newApp(user, s.now)
		s.Require().NoError(s.store.Create(s.ctx, app))
		_, err := s.store.Execute(s.ctx, app.ID, func(a *models.Application) error {
			return a.CanReject()
		}, func(a *models.Application) {
			a.ApplyRejection(id.NewUserID(), "missing documents", s.now)
		})
		s.Require().NoError(err)
		s.NoError(s.store.Create(s.ctx, s.newApp(user, s.now)))
	})
}

func (s *InMemoryStoreSuite) TestExecute() {
	s.Run("failed validation writes nothing", func() {
		app := s.newApp(id.NewUserID(), s.now)
		s.Require().NoError(s.store.Create(s.ctx, app))
		_, err := s.store.Execute(s.ctx, app.ID, func(*models.Application) error {
			return dErrors.New(dErrors.CodeInvariantViolation, "nope")
		}, func(a *models.Application) {
			a.Status = models.StatusApproved
		})
		s.Require().Error(err)
		stored, err := s.store.FindByID(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, stored.Status)
	})

	s.Run("missing application", func() {
		_, err := s.store.Execute(s.ctx, id.NewApplicationID(), func(*models.Application) error { return nil }, func(*models.Application) {})
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("returned copy is detached from storage", func() {
		app := s.newApp(id.NewUserID(), s.now)
		s.Require().NoError(s.store.Create(s.ctx, app))
		got, err := s.store.FindByID(s.ctx, app.ID)
		s.Require().NoError(err)
		got.Status = models.StatusApproved
		again, err := s.store.FindByID(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, again.Status)
	})
}

func (s *InMemoryStoreSuite) TestSoftDelete() {
	app := s.newApp(id.NewUserID(), s.now)
	s.Require().NoError(s.store.Create(s.ctx, app))
	s.Require().NoError(s.store.SoftDelete(s.ctx, app.ID, s.now))

	_, err := s.store.FindByID(s.ctx, app.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.SoftDelete(s.ctx, app.ID, s.now), sentinel.ErrNotFound)

	open, err := s.store.HasOpenApplication(s.ctx, app.UserID)
	s.Require().NoError(err)
	s.False(open)
}

func (s *InMemoryStoreSuite) TestList() {
	user := id.NewUserID()
	older := s.newApp(user, s.now.Add(-time.Hour))
	older.Status = models.StatusRejected
	s.Require().NoError(s.store.Create(s.ctx, older))
	newer := s.newApp(user, s.now)
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, s.newApp(id.NewUserID(), s.now)))

	s.Run("filters by user, newest first", func() {
		apps, total, err := s.store.List(s.ctx, models.ListFilter{UserID: &user}, pagination.Params{Page: 1, PerPage: 20})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Require().Len(apps, 2)
		s.Equal(newer.ID, apps[0].ID)
	})

	s.Run("filters by status", func() {
		apps, total, err := s.store.List(s.ctx, models.ListFilter{Statuses: []models.Status{models.StatusRejected}}, pagination.Params{Page: 1, PerPage: 20})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal(older.ID, apps[0].ID)
	})

	s.Run("pages beyond the end are empty", func() {
		apps, total, err := s.store.List(s.ctx, models.ListFilter{}, pagination.Params{Page: 3, PerPage: 2})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(apps)
	})
}

func (s *InMemoryStoreSuite) TestMembers() {
	user := id.NewUserID()
	is, err := s.store.IsMember(s.ctx, user)
	s.Require().NoError(err)
	s.False(is)

	s.Require().NoError(s.store.UpsertMember(s.ctx, models.Member{UserID: user, Name: "A", JoinedAt: s.now}))
	s.Require().NoError(s.store.UpsertMember(s.ctx, models.Member{UserID: user, Name: "B", JoinedAt: s.now.Add(time.Hour)}))

	is, err = s.store.IsMember(s.ctx, user)
	s.Require().NoError(err)
	s.True(is)
	s.Equal(s.now, s.store.members[user].JoinedAt)
	s.Equal("B", s.store.members[user].Name)
}
