//go:build integration

package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fudign/kfa-sub000/internal/event/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
	now   time.Time
	event *models.Event
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
	max := 5
	memberPrice := 25.5
	e, err := models.NewEvent(id.NewEventID(), models.EventInput{
		Title:            "Fintech Forum",
		Type:             models.TypeConference,
		Status:           models.EventRegistrationOpen,
		StartsAt:         s.now.Add(72 * time.Hour),
		MaxParticipants:  &max,
		Price:            80,
		MemberPrice:      &memberPrice,
		CPEHours:         5.5,
		RequiresApproval: true,
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateEvent(s.ctx, e))
	s.event = e
}

func (s *PostgresStoreSuite) register(name string) *models.Registration {
	r, err := models.NewRegistration(id.NewRegistrationID(), s.event, models.Signup{
		UserID:    id.NewUserID(),
		UserName:  name,
		UserEmail: name + "@kfa.test",
		Answers:   json.RawMessage(`{"company":"KFA"}`),
		IsMember:  true,
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, r))
	return r
}

func (s *PostgresStoreSuite) TestEventRoundTrip() {
	got, err := s.store.FindEvent(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal("Fintech Forum", got.Title)
	s.Equal(5, *got.MaxParticipants)
	s.Equal(25.5, *got.MemberPrice)
	s.Equal(5.5, got.CPEHours)
	s.True(got.StartsAt.Equal(s.event.StartsAt))

	_, err = s.store.FindEvent(s.ctx, id.NewEventID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestRegistrationRoundTripAndUniqueness() {
	r := s.register("aida")
	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)
	s.Equal(25.5, got.AmountPaid)
	s.JSONEq(`{"company":"KFA"}`, string(got.Answers))

	dup := *r
	dup.ID = id.NewRegistrationID()
	s.True(errors.Is(s.store.Create(s.ctx, &dup), sentinel.ErrConflict))

	s.Require().NoError(s.store.SoftDelete(s.ctx, r.ID, s.now))
	s.NoError(s.store.Create(s.ctx, &dup), "soft-deleted rows leave the pair free")
	exists, err := s.store.Exists(s.ctx, s.event.ID, r.UserID)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *PostgresStoreSuite) TestCounterIsAtomicUnderLock() {
	const workers = 5
	runner := tx.NewPostgresRunner(s.pg.DB, 5*time.Second)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(runner.RunInTx(s.ctx, func(ctx context.Context) error {
				if _, err := s.store.LockEvent(ctx, s.event.ID); err != nil {
					return err
				}
				return s.store.AdjustRegistered(ctx, s.event.ID, 1)
			}))
		}()
	}
	wg.Wait()

	got, err := s.store.FindEvent(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal(workers, got.RegisteredCount)
	s.False(got.IsRegistrationOpen(s.now))

	s.Require().NoError(s.store.AdjustRegistered(s.ctx, s.event.ID, -workers))
	s.Error(s.store.AdjustRegistered(s.ctx, s.event.ID, -1), "check constraint keeps the count non-negative")
}

func (s *PostgresStoreSuite) TestExecuteTransitions() {
	r := s.register("aida")
	admin := id.NewUserID()
	_, err := s.store.Execute(s.ctx, r.ID, (*models.Registration).CanApprove, func(r *models.Registration) {
		r.ApplyApproval(admin, s.now)
	})
	s.Require().NoError(err)

	attended, err := s.store.Execute(s.ctx, r.ID, (*models.Registration).CanMarkAttendance, func(r *models.Registration) {
		r.ApplyAttendance(s.event.CPEHours, s.now)
	})
	s.Require().NoError(err)
	s.Equal(models.StatusAttended, attended.Status)

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(admin, *got.ApprovedBy)
	s.Equal(5.5, *got.CPEHoursEarned)
	s.NotNil(got.AttendedAt)

	_, err = s.store.Execute(s.ctx, r.ID, (*models.Registration).CanApprove, func(*models.Registration) {})
	s.Error(err)
}

func (s *PostgresStoreSuite) TestListFiltersAndStats() {
	a := s.register("aida")
	s.register("bakyt_50%")
	_, err := s.store.Execute(s.ctx, a.ID, func(*models.Registration) error { return nil }, func(r *models.Registration) {
		r.ApplyApproval(id.NewUserID(), s.now)
		r.ApplyAttendance(5.5, s.now)
		r.ApplyCertificate(s.now)
	})
	s.Require().NoError(err)

	page := pagination.Params{Page: 1, PerPage: 10}
	list, total, err := s.store.List(s.ctx, models.ListFilter{Search: "_50%"}, page)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("bakyt_50%", list[0].UserName)

	_, total, err = s.store.List(s.ctx, models.ListFilter{EventID: &s.event.ID, Status: models.StatusAttended}, page)
	s.Require().NoError(err)
	s.Equal(1, total)

	_, total, err = s.store.List(s.ctx, models.ListFilter{Upcoming: true, At: s.now.Add(96 * time.Hour)}, page)
	s.Require().NoError(err)
	s.Zero(total)

	live, err := s.store.CountLive(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal(2, live)

	stats, err := s.store.Stats(s.ctx, &s.event.ID)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.ByStatus[models.StatusPending])
	s.Equal(1, stats.CertificatesIssued)
	s.Equal(5.5, stats.TotalCPEHoursEarned)
}

func (s *PostgresStoreSuite) TestListEventsAndDelete() {
	draft, err := models.NewEvent(id.NewEventID(), models.EventInput{Title: "Draft", Type: models.TypeWebinar, StartsAt: s.now.Add(time.Hour)}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateEvent(s.ctx, draft))

	page := pagination.Params{Page: 1, PerPage: 10}
	events, total, err := s.store.ListEvents(s.ctx, models.EventFilter{PublicOnly: true, Search: "forum"}, page)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(s.event.ID, events[0].ID)

	_, total, err = s.store.ListEvents(s.ctx, models.EventFilter{}, page)
	s.Require().NoError(err)
	s.Equal(2, total)

	s.Require().NoError(s.store.DeleteEvent(s.ctx, draft.ID, s.now))
	s.True(errors.Is(s.store.DeleteEvent(s.ctx, draft.ID, s.now), sentinel.ErrNotFound))
}
