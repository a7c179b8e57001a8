//go:build integration

package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fudign/kfa-sub000/internal/membership/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
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
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) newApp(userID id.UserID) *models.Application {
	app, err := models.NewApplication(id.NewApplicationID(), userID, models.Submission{
		MembershipType: models.TypeIndividual,
		FirstName:      "Bakyt",
		LastName:       "Asanov",
		Email:          "bakyt@example.kg",
		Phone:          "+996700000000",
		Experience:     "CFO",
		Motivation:     strings.Repeat("m", 100),
	}, s.now)
	s.Require().NoError(err)
	return app
}

func (s *PostgresStoreSuite) TestRoundTripAndOpenUniqueness() {
	user := id.NewUserID()
	app := s.newApp(user)
	s.Require().NoError(s.store.Create(s.ctx, app))

	got, err := s.store.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.Email, got.Email)
	s.Equal(models.StatusPending, got.Status)
	s.Nil(got.ReviewedBy)

	err = s.store.Create(s.ctx, s.newApp(user))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestExecuteWritesReviewerFields() {
	app := s.newApp(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, app))
	reviewer := id.NewUserID()

	updated, err := s.store.Execute(s.ctx, app.ID, func(a *models.Application) error {
		return a.CanApprove()
	}, func(a *models.Application) {
		a.ApplyApproval(reviewer, s.now)
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)

	got, err := s.store.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.ReviewedBy)
	s.Equal(reviewer, *got.ReviewedBy)
	s.True(s.now.Equal(*got.ReviewedAt))
}

func (s *PostgresStoreSuite) TestConcurrentApprovalsDecideOnce() {
	app := s.newApp(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, app))
	runner := tx.NewPostgresRunner(s.pg.DB, 5*time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = runner.RunInTx(s.ctx, func(ctx context.Context) error {
				_, err := s.store.Execute(ctx, app.ID, func(a *models.Application) error {
					return a.CanApprove()
				}, func(a *models.Application) {
					a.ApplyApproval(id.NewUserID(), s.now)
				})
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	}
	s.Equal(1, succeeded)
}

func (s *PostgresStoreSuite) TestListAndSoftDelete() {
	user := id.NewUserID()
	app := s.newApp(user)
	s.Require().NoError(s.store.Create(s.ctx, app))
	s.Require().NoError(s.store.Create(s.ctx, s.newApp(id.NewUserID())))

	apps, total, err := s.store.List(s.ctx, models.ListFilter{
		UserID:   &user,
		Statuses: []models.Status{models.StatusPending, models.StatusReviewing},
	}, pagination.Params{Page: 1, PerPage: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(apps, 1)

	s.Require().NoError(s.store.SoftDelete(s.ctx, app.ID, s.now))
	_, err = s.store.FindByID(s.ctx, app.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, total, err = s.store.List(s.ctx, models.ListFilter{}, pagination.Params{Page: 1, PerPage: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *PostgresStoreSuite) TestMemberUpsert() {
	user := id.NewUserID()
	is, err := s.store.IsMember(s.ctx, user)
	s.Require().NoError(err)
	s.False(is)

	app := s.newApp(user)
	s.Require().NoError(s.store.Create(s.ctx, app))
	member := models.MemberFromApplication(app, s.now)
	s.Require().NoError(s.store.UpsertMember(s.ctx, member))
	s.Require().NoError(s.store.UpsertMember(s.ctx, member))

	is, err = s.store.IsMember(s.ctx, user)
	s.Require().NoError(err)
	s.True(is)
}
