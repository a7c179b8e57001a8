package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fudign/kfa-sub000/internal/event/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
	event *models.Event
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.event = s.newEvent("Tax update", s.now.Add(48*time.Hour))
}

func (s *InMemoryStoreSuite) newEvent(title string, startsAt time.Time) *models.Event {
	e, err := models.NewEvent(id.NewEventID(), models.EventInput{
		Title: title, Type: models.TypeSeminar, Status: models.EventRegistrationOpen, StartsAt: startsAt,
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateEvent(s.ctx, e))
	return e
}

func (s *InMemoryStoreSuite) register(e *models.Event, name string) *models.Registration {
	r, err := models.NewRegistration(id.NewRegistrationID(), e, models.Signup{
		UserID: id.NewUserID(), UserName: name, UserEmail: name + "@kfa.test",
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, r))
	return r
}

func (s *InMemoryStoreSuite) TestCreateRejectsSecondLiveRegistration() {
	r := s.register(s.event, "aida")
	dup := *r
	dup.ID = id.NewRegistrationID()
	s.ErrorIs(s.store.Create(s.ctx, &dup), sentinel.ErrConflict)

	s.Require().NoError(s.store.SoftDelete(s.ctx, r.ID, s.now))
	s.NoError(s.store.Create(s.ctx, &dup), "a deleted registration frees the slot")
}

func (s *InMemoryStoreSuite) TestAdjustRegistered() {
	s.Require().NoError(s.store.AdjustRegistered(s.ctx, s.event.ID, 1))
	e, err := s.store.FindEvent(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal(1, e.RegisteredCount)

	s.Require().NoError(s.store.AdjustRegistered(s.ctx, s.event.ID, -1))
	s.Error(s.store.AdjustRegistered(s.ctx, s.event.ID, -1), "count cannot go negative")
	s.ErrorIs(s.store.AdjustRegistered(s.ctx, id.NewEventID(), 1), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestExecuteLeavesRowOnValidationFailure() {
	r := s.register(s.event, "aida")
	boom := errors.New("boom")
	_, err := s.store.Execute(s.ctx, r.ID, func(*models.Registration) error { return boom }, func(r *models.Registration) {
		r.Status = models.StatusCancelled
	})
	s.ErrorIs(err, boom)

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
}

func (s *InMemoryStoreSuite) TestCountLiveIgnoresCancelled() {
	a := s.register(s.event, "aida")
	s.register(s.event, "bakyt")
	_, err := s.store.Execute(s.ctx, a.ID, func(*models.Registration) error { return nil }, func(r *models.Registration) {
		r.ApplyCancel(s.now)
	})
	s.Require().NoError(err)

	n, err := s.store.CountLive(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *InMemoryStoreSuite) TestListUpcomingAndOrder() {
	past := s.newEvent("Past", s.now.Add(time.Hour))
	s.register(past, "aida")
	s.now = s.now.Add(time.Minute)
	s.register(s.event, "bakyt")

	page := pagination.Params{Page: 1, PerPage: 10}
	all, total, err := s.store.List(s.ctx, models.ListFilter{}, page)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal("bakyt", all[0].UserName, "newest first")

	upcoming, total, err := s.store.List(s.ctx, models.ListFilter{Upcoming: true, At: s.now.Add(2 * time.Hour)}, page)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(s.event.ID, upcoming[0].EventID)
}

func (s *InMemoryStoreSuite) TestListEventsHidesDraftsAndDeleted() {
	draft, err := models.NewEvent(id.NewEventID(), models.EventInput{Title: "Draft", StartsAt: s.now.Add(time.Hour)}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateEvent(s.ctx, draft))
	gone := s.newEvent("Gone", s.now.Add(time.Hour))
	s.Require().NoError(s.store.DeleteEvent(s.ctx, gone.ID, s.now))

	page := pagination.Params{Page: 1, PerPage: 10}
	events, total, err := s.store.ListEvents(s.ctx, models.EventFilter{PublicOnly: true}, page)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(s.event.ID, events[0].ID)

	_, total, err = s.store.ListEvents(s.ctx, models.EventFilter{}, page)
	s.Require().NoError(err)
	s.Equal(2, total)
}

func (s *InMemoryStoreSuite) TestStats() {
	a := s.register(s.event, "aida")
	s.register(s.event, "bakyt")
	_, err := s.store.Execute(s.ctx, a.ID, func(*models.Registration) error { return nil }, func(r *models.Registration) {
		r.ApplyAttendance(4, s.now)
		r.ApplyCertificate(s.now)
	})
	s.Require().NoError(err)

	stats, err := s.store.Stats(s.ctx, &s.event.ID)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.ByStatus[models.StatusAttended])
	s.Equal(1, stats.CertificatesIssued)
	s.Equal(4.0, stats.TotalCPEHoursEarned)

	other := id.NewEventID()
	stats, err = s.store.Stats(s.ctx, &other)
	s.Require().NoError(err)
	s.Zero(stats.Total)
}
