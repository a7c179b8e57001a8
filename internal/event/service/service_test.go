package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,MemberDirectory,CPECreditor,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	cpemodels "github.com/fudign/kfa-sub000/internal/cpe/models"
	cpeservice "github.com/fudign/kfa-sub000/internal/cpe/service"
	cpestore "github.com/fudign/kfa-sub000/internal/cpe/store"
	"github.com/fudign/kfa-sub000/internal/event/models"
	"github.com/fudign/kfa-sub000/internal/event/service/mocks"
	"github.com/fudign/kfa-sub000/internal/event/store"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/fudign/kfa-sub000/pkg/platform/audit/store/memory"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
	"github.com/fudign/kfa-sub000/pkg/testutil"
)

type memberSet map[id.UserID]bool

func (m memberSet) IsMember(_ context.Context, userID id.UserID) (bool, error) {
	return m[userID], nil
}

// =============================================================================
// Event Service Test Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	cpeStore *cpestore.InMemoryStore
	events   *auditmemory.InMemoryStore
	members  memberSet
	service  *Service
	now      time.Time
	admin    id.Actor
	user     id.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.cpeStore = cpestore.NewInMemoryStore()
	s.events = auditmemory.NewInMemoryStore()
	s.members = memberSet{}
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.admin = testutil.NewActor(id.RoleAdmin)
	s.user = testutil.NewActor(id.RoleUser)

	runner := tx.NewMemoryRunner()
	auditor := publisher.NewPublisher(s.events)
	s.service = New(s.store, runner,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(auditor),
		WithMemberDirectory(s.members),
		WithCPECreditor(cpeservice.New(s.cpeStore, runner, cpeservice.WithAuditPublisher(auditor))),
	)
}

func (s *ServiceSuite) as(actor id.Actor) context.Context {
	return requestcontext.WithTime(testutil.ActorContext(actor), s.now)
}

func (s *ServiceSuite) createEvent(mutate func(*models.EventInput)) *models.Event {
	in := models.EventInput{
		Title:             "Risk Management Workshop",
		Type:              models.TypeWorkshop,
		Status:            models.EventRegistrationOpen,
		StartsAt:          s.now.Add(7 * 24 * time.Hour),
		Price:             50,
		CPEHours:          4,
		IssuesCertificate: true,
	}
	if mutate != nil {
		mutate(&in)
	}
	e, err := s.service.CreateEvent(s.as(s.admin), in)
	s.Require().NoError(err)
	return e
}

func (s *ServiceSuite) register(actor id.Actor, e *models.Event) *models.Registration {
	r, err := s.service.Register(s.as(actor), e.ID, nil)
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) registeredCount(e *models.Event) int {
	got, err := s.store.FindEvent(context.Background(), e.ID)
	s.Require().NoError(err)
	return got.RegisteredCount
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

// =============================================================================
// Events
// =============================================================================

func (s *ServiceSuite) TestEvents() {
	s.Run("only admins create events", func() {
		_, err := s.service.CreateEvent(s.as(s.user), models.EventInput{Title: "X", StartsAt: s.now.Add(time.Hour)})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("drafts are hidden from non-admins", func() {
		draft := s.createEvent(func(in *models.EventInput) { in.Status = models.EventDraft })

		_, err := s.service.GetEvent(s.as(s.user), draft.ID)
		s.requireCode(err, dErrors.CodeNotFound)
		_, err = s.service.GetEvent(s.as(id.Guest()), draft.ID)
		s.requireCode(err, dErrors.CodeNotFound)

		got, err := s.service.GetEvent(s.as(s.admin), draft.ID)
		s.Require().NoError(err)
		s.Equal(draft.ID, got.ID)
	})

	s.Run("guests list published events", func() {
		page, err := s.service.ListEvents(s.as(id.Guest()), models.EventFilter{}, pagination.Params{Page: 1, PerPage: 20})
		s.Require().NoError(err)
		for _, e := range page.Data {
			s.True(e.IsPublic())
		}
	})

	s.Run("an event with live registrations cannot be deleted", func() {
		e := s.createEvent(nil)
		r := s.register(s.user, e)
		s.requireCode(s.service.DeleteEvent(s.as(s.admin), e.ID), dErrors.CodeInvalidState)

		_, err := s.service.Cancel(s.as(s.user), r.ID)
		s.Require().NoError(err)
		s.NoError(s.service.DeleteEvent(s.as(s.admin), e.ID))
		_, err = s.service.GetEvent(s.as(s.admin), e.ID)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

// =============================================================================
// Register
// =============================================================================

func (s *ServiceSuite) TestRegister() {
	s.Run("confirms immediately without approval", func() {
		e := s.createEvent(nil)
		r := s.register(s.user, e)
		s.Equal(models.StatusApproved, r.Status)
		s.NotNil(r.ApprovedAt)
		s.Equal(s.user.Name, r.UserName)
		s.Equal(s.user.Email, r.UserEmail)
		s.Equal(1, s.registeredCount(e))
	})

	s.Run("waits for approval when required", func() {
		e := s.createEvent(func(in *models.EventInput) { in.RequiresApproval = true })
		r := s.register(s.user, e)
		s.Equal(models.StatusPending, r.Status)
		s.Nil(r.ApprovedAt)
	})

	s.Run("members pay the member price", func() {
		member := testutil.NewActor(id.RoleMember)
		s.members[member.UserID] = true
		e := s.createEvent(func(in *models.EventInput) { in.MemberPrice = ptr(30.0) })

		s.Equal(30.0, s.register(member, e).AmountPaid)
		s.Equal(50.0, s.register(s.user, e).AmountPaid)
	})

	s.Run("a second registration is a duplicate", func() {
		e := s.createEvent(nil)
		s.register(s.user, e)
		_, err := s.service.Register(s.as(s.user), e.ID, nil)
		s.requireCode(err, dErrors.CodeDuplicate)
		s.Equal(1, s.registeredCount(e))
	})

	s.Run("closed events refuse registration", func() {
		e := s.createEvent(func(in *models.EventInput) { in.Status = models.EventRegistrationClosed })
		_, err := s.service.Register(s.as(s.user), e.ID, nil)
		s.requireCode(err, dErrors.CodeInvalidState)
		s.Equal("registration is not open for this event", err.Error())
		s.Zero(s.registeredCount(e))
	})

	s.Run("a full event refuses the next registrant", func() {
		e := s.createEvent(func(in *models.EventInput) { in.MaxParticipants = ptr(1) })
		s.register(s.user, e)
		_, err := s.service.Register(s.as(testutil.NewActor(id.RoleUser)), e.ID, nil)
		s.requireCode(err, dErrors.CodeInvalidState)
		s.Equal(1, s.registeredCount(e))
	})

	s.Run("guests must authenticate", func() {
		e := s.createEvent(nil)
		_, err := s.service.Register(s.as(id.Guest()), e.ID, nil)
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("unknown event", func() {
		_, err := s.service.Register(s.as(s.user), id.NewEventID(), nil)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

// =============================================================================
// Lifecycle
// =============================================================================

func (s *ServiceSuite) TestApproveAndReject() {
	e := s.createEvent(func(in *models.EventInput) { in.RequiresApproval = true })

	s.Run("approve records the admin", func() {
		r := s.register(s.user, e)
		approved, err := s.service.Approve(s.as(s.admin), r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.Equal(s.admin.UserID, *approved.ApprovedBy)

		_, err = s.service.Approve(s.as(s.admin), r.ID)
		s.requireCode(err, dErrors.CodeInvalidState)
	})

	s.Run("reject requires notes and leaves the row untouched", func() {
		r := s.register(testutil.NewActor(id.RoleUser), e)
		_, err := s.service.Reject(s.as(s.admin), r.ID, "  ")
		s.requireCode(err, dErrors.CodeValidation)
		got, err := s.service.Get(s.as(s.admin), r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, got.Status)

		rejected, err := s.service.Reject(s.as(s.admin), r.ID, "Prerequisites missing")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)
		s.Equal("Prerequisites missing", rejected.Notes)
	})

	s.Run("members cannot approve", func() {
		r := s.register(testutil.NewActor(id.RoleUser), e)
		_, err := s.service.Approve(s.as(s.user), r.ID)
		s.requireCode(err, dErrors.CodeForbidden)
	})
}

func (s *ServiceSuite) TestAttendanceCreditsCPE() {
	e := s.createEvent(nil)
	r := s.register(s.user, e)

	attended, err := s.service.MarkAttended(s.as(s.admin), r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAttended, attended.Status)
	s.Equal(4.0, *attended.CPEHoursEarned)

	credit, err := s.cpeStore.FindBySource(context.Background(), cpemodels.TypeEvent, uuid.UUID(e.ID), s.user.UserID)
	s.Require().NoError(err)
	s.Equal(cpemodels.StatusApproved, credit.Status)
	s.Equal(4.0, credit.Hours)
	s.Equal(cpemodels.CategoryTraining, credit.Category)

	_, err = s.service.MarkAttended(s.as(s.admin), r.ID)
	s.requireCode(err, dErrors.CodeInvalidState)
	s.Contains(s.events.Actions(), string(audit.EventRegistrationAttended))
}

func (s *ServiceSuite) TestAttendanceWithoutHoursSkipsCredit() {
	e := s.createEvent(func(in *models.EventInput) { in.CPEHours = 0 })
	r := s.register(s.user, e)
	_, err := s.service.MarkAttended(s.as(s.admin), r.ID)
	s.Require().NoError(err)

	_, err = s.cpeStore.FindBySource(context.Background(), cpemodels.TypeEvent, uuid.UUID(e.ID), s.user.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestNoShow() {
	e := s.createEvent(nil)
	r := s.register(s.user, e)
	noShow, err := s.service.MarkNoShow(s.as(s.admin), r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusNoShow, noShow.Status)

	_, err = s.service.MarkAttended(s.as(s.admin), r.ID)
	s.requireCode(err, dErrors.CodeInvalidState)
}

func (s *ServiceSuite) TestCancel() {
	e := s.createEvent(nil)
	r := s.register(s.user, e)

	s.Run("others cannot cancel", func() {
		_, err := s.service.Cancel(s.as(testutil.NewActor(id.RoleUser)), r.ID)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("owner cancels once and the seat is released once", func() {
		cancelled, err := s.service.Cancel(s.as(s.user), r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
		s.NotNil(cancelled.CancelledAt)
		s.Zero(s.registeredCount(e))

		_, err = s.service.Cancel(s.as(s.user), r.ID)
		s.requireCode(err, dErrors.CodeInvalidState)
		s.Zero(s.registeredCount(e))
	})

	s.Run("not after the event has started", func() {
		other := testutil.NewActor(id.RoleUser)
		late := s.register(other, e)
		s.now = e.StartsAt
		_, err := s.service.Cancel(s.as(other), late.ID)
		s.requireCode(err, dErrors.CodeInvalidState)
		s.Equal(1, s.registeredCount(e))
	})
}

func (s *ServiceSuite) TestIssueCertificateIgnoresEventFlag() {
	e := s.createEvent(func(in *models.EventInput) { in.IssuesCertificate = false })
	r := s.register(s.user, e)
	_, err := s.service.MarkAttended(s.as(s.admin), r.ID)
	s.Require().NoError(err)

	issued, err := s.service.IssueCertificate(s.as(s.admin), r.ID)
	s.Require().NoError(err)
	s.Require().NotNil(issued.CertificateIssuedAt)
	s.Equal(s.now, *issued.CertificateIssuedAt)
}

func (s *ServiceSuite) TestIssueCertificate() {
	e := s.createEvent(nil)
	r := s.register(s.user, e)

	_, err := s.service.IssueCertificate(s.as(s.admin), r.ID)
	s.requireCode(err, dErrors.CodeInvalidState)

	_, err = s.service.MarkAttended(s.as(s.admin), r.ID)
	s.Require().NoError(err)
	issued, err := s.service.IssueCertificate(s.as(s.admin), r.ID)
	s.Require().NoError(err)
	first := *issued.CertificateIssuedAt

	s.now = s.now.Add(time.Hour)
	_, err = s.service.IssueCertificate(s.as(s.admin), r.ID)
	s.requireCode(err, dErrors.CodeInvalidState)
	s.Equal("certificate already issued", err.Error())

	got, err := s.service.Get(s.as(s.user), r.ID)
	s.Require().NoError(err)
	s.Equal(first, *got.CertificateIssuedAt)
}

func (s *ServiceSuite) TestDelete() {
	e := s.createEvent(func(in *models.EventInput) { in.RequiresApproval = true })

	s.Run("confirmed registrations cannot be deleted", func() {
		r := s.register(s.user, e)
		_, err := s.service.Approve(s.as(s.admin), r.ID)
		s.Require().NoError(err)
		s.requireCode(s.service.Delete(s.as(s.admin), r.ID), dErrors.CodeInvalidState)
	})

	s.Run("pending deletion releases the seat", func() {
		r := s.register(testutil.NewActor(id.RoleUser), e)
		s.Equal(2, s.registeredCount(e))
		s.Require().NoError(s.service.Delete(s.as(s.admin), r.ID))
		s.Equal(1, s.registeredCount(e))
		_, err := s.service.Get(s.as(s.admin), r.ID)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("cancelled deletion leaves the count", func() {
		owner := testutil.NewActor(id.RoleUser)
		r := s.register(owner, e)
		_, err := s.service.Cancel(s.as(owner), r.ID)
		s.Require().NoError(err)
		before := s.registeredCount(e)
		s.Require().NoError(s.service.Delete(s.as(s.admin), r.ID))
		s.Equal(before, s.registeredCount(e))
	})

	s.Run("owners cannot delete", func() {
		owner := testutil.NewActor(id.RoleUser)
		r := s.register(owner, e)
		s.requireCode(s.service.Delete(s.as(owner), r.ID), dErrors.CodeForbidden)
	})
}

// =============================================================================
// Reads
// =============================================================================

func (s *ServiceSuite) TestListScoping() {
	e := s.createEvent(nil)
	s.register(s.user, e)
	s.register(testutil.NewActor(id.RoleUser), e)
	page := pagination.Params{Page: 1, PerPage: 20}

	mine, err := s.service.List(s.as(s.user), models.ListFilter{}, page)
	s.Require().NoError(err)
	s.Equal(1, mine.Meta.Total)
	s.Equal(s.user.UserID, mine.Data[0].UserID)

	all, err := s.service.List(s.as(s.admin), models.ListFilter{EventID: &e.ID}, page)
	s.Require().NoError(err)
	s.Equal(2, all.Meta.Total)

	upcoming, err := s.service.ListMine(s.as(s.user), models.ListFilter{Upcoming: true}, page)
	s.Require().NoError(err)
	s.Equal(1, upcoming.Meta.Total)
}

func (s *ServiceSuite) TestGetIsOwnerScoped() {
	e := s.createEvent(nil)
	r := s.register(s.user, e)
	_, err := s.service.Get(s.as(testutil.NewActor(id.RoleUser)), r.ID)
	s.requireCode(err, dErrors.CodeForbidden)
	_, err = s.service.Get(s.as(s.user), id.NewRegistrationID())
	s.requireCode(err, dErrors.CodeForbidden)
}

func (s *ServiceSuite) TestStats() {
	e := s.createEvent(nil)
	r := s.register(s.user, e)
	s.register(testutil.NewActor(id.RoleUser), e)
	_, err := s.service.MarkAttended(s.as(s.admin), r.ID)
	s.Require().NoError(err)
	_, err = s.service.IssueCertificate(s.as(s.admin), r.ID)
	s.Require().NoError(err)

	overview, err := s.service.Stats(s.as(s.admin), &e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, overview.Event.ID)
	s.Equal(2, overview.Stats.Total)
	s.Equal(1, overview.Stats.ByStatus[models.StatusAttended])
	s.Equal(1, overview.Stats.CertificatesIssued)
	s.Equal(4.0, overview.Stats.TotalCPEHoursEarned)

	_, err = s.service.Stats(s.as(s.user), nil)
	s.requireCode(err, dErrors.CodeForbidden)

	missing := id.NewEventID()
	_, err = s.service.Stats(s.as(s.admin), &missing)
	s.requireCode(err, dErrors.CodeNotFound)
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// Ports
// =============================================================================

type ServicePortsSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	members  *mocks.MockMemberDirectory
	creditor *mocks.MockCPECreditor
	auditor  *mocks.MockAuditPublisher
	service  *Service
	admin    id.Actor
	user     id.Actor
	now      time.Time
	event    *models.Event
}

func TestServicePortsSuite(t *testing.T) {
	suite.Run(t, new(ServicePortsSuite))
}

func (s *ServicePortsSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.members = mocks.NewMockMemberDirectory(s.ctrl)
	s.creditor = mocks.NewMockCPECreditor(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.admin = testutil.NewActor(id.RoleAdmin)
	s.user = testutil.NewActor(id.RoleUser)
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.event = &models.Event{
		ID:       id.NewEventID(),
		Title:    "Audit Seminar",
		Type:     models.TypeSeminar,
		Status:   models.EventRegistrationOpen,
		StartsAt: s.now.Add(48 * time.Hour),
		CPEHours: 3,
	}
	s.service = New(s.store, tx.NewMemoryRunner(),
		WithAuditPublisher(s.auditor),
		WithMemberDirectory(s.members),
		WithCPECreditor(s.creditor),
	)
}

func (s *ServicePortsSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServicePortsSuite) as(actor id.Actor) context.Context {
	return requestcontext.WithTime(testutil.ActorContext(actor), s.now)
}

func (s *ServicePortsSuite) TestRegisterLocksEventBeforeCounting() {
	gomock.InOrder(
		s.members.EXPECT().IsMember(gomock.Any(), s.user.UserID).Return(false, nil),
		s.store.EXPECT().LockEvent(gomock.Any(), s.event.ID).Return(s.event, nil),
		s.store.EXPECT().Exists(gomock.Any(), s.event.ID, s.user.UserID).Return(false, nil),
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
		s.store.EXPECT().AdjustRegistered(gomock.Any(), s.event.ID, 1).Return(nil),
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventRegistrationCreated), e.Action)
			s.Equal(s.user.UserID, e.UserID)
			return nil
		}),
	)

	_, err := s.service.Register(s.as(s.user), s.event.ID, nil)
	s.Require().NoError(err)
}

func (s *ServicePortsSuite) TestRegisterRaceOnInsertIsDuplicate() {
	s.members.EXPECT().IsMember(gomock.Any(), gomock.Any()).Return(false, nil)
	s.store.EXPECT().LockEvent(gomock.Any(), s.event.ID).Return(s.event, nil)
	s.store.EXPECT().Exists(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

	_, err := s.service.Register(s.as(s.user), s.event.ID, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
}

func (s *ServicePortsSuite) TestDirectoryFailureIsInternal() {
	s.members.EXPECT().IsMember(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	_, err := s.service.Register(s.as(s.user), s.event.ID, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServicePortsSuite) TestCreditFailureFailsAttendance() {
	reg := &models.Registration{ID: id.NewRegistrationID(), EventID: s.event.ID, UserID: s.user.UserID, Status: models.StatusApproved}
	attended := *reg
	attended.Status = models.StatusAttended

	s.store.EXPECT().FindByID(gomock.Any(), reg.ID).Return(reg, nil)
	s.store.EXPECT().FindEvent(gomock.Any(), s.event.ID).Return(s.event, nil)
	s.store.EXPECT().Execute(gomock.Any(), reg.ID, gomock.Any(), gomock.Any()).Return(&attended, nil)
	s.creditor.EXPECT().Credit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c cpemodels.Credit) (*cpemodels.Activity, error) {
			s.Equal(cpemodels.TypeEvent, c.ActivityType)
			s.Equal(uuid.UUID(s.event.ID), c.SourceID)
			s.Equal(3.0, c.Hours)
			s.Equal(cpemodels.CategoryForEventType("seminar"), c.Category)
			return nil, errors.New("cpe store down")
		})

	_, err := s.service.MarkAttended(s.as(s.admin), reg.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServicePortsSuite) TestCounterFailureFailsCancel() {
	reg := &models.Registration{ID: id.NewRegistrationID(), EventID: s.event.ID, UserID: s.user.UserID, Status: models.StatusApproved}
	cancelled := *reg
	cancelled.Status = models.StatusCancelled

	s.store.EXPECT().FindByID(gomock.Any(), reg.ID).Return(reg, nil)
	s.store.EXPECT().LockEvent(gomock.Any(), s.event.ID).Return(s.event, nil)
	s.store.EXPECT().Execute(gomock.Any(), reg.ID, gomock.Any(), gomock.Any()).Return(&cancelled, nil)
	s.store.EXPECT().AdjustRegistered(gomock.Any(), s.event.ID, -1).Return(errors.New("check constraint"))

	_, err := s.service.Cancel(s.as(s.user), reg.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
