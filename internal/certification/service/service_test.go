package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,VerificationCache,AuditPublisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/fudign/kfa-sub000/internal/certification/models"
	"github.com/fudign/kfa-sub000/internal/certification/service/mocks"
	"github.com/fudign/kfa-sub000/internal/certification/store"
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

// =============================================================================
// Certification Service Test Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	events  *auditmemory.InMemoryStore
	service *Service
	now     time.Time
	admin   id.Actor
	user    id.Actor
	program *models.Program
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.events = auditmemory.NewInMemoryStore()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.admin = testutil.NewActor(id.RoleAdmin)
	s.user = testutil.NewActor(id.RoleUser)
	s.service = New(s.store, tx.NewMemoryRunner(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
	)

	var err error
	s.program, err = s.service.CreateProgram(s.as(s.admin), models.ProgramInput{
		Name:           "Certified Financial Analyst",
		Code:           "cfa",
		Type:           models.ProgramSpecialized,
		ValidityMonths: 24,
		IsActive:       true,
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) as(actor id.Actor) context.Context {
	return requestcontext.WithTime(testutil.ActorContext(actor), s.now)
}

func (s *ServiceSuite) apply(actor id.Actor) *models.Certification {
	c, err := s.service.Apply(s.as(actor), s.program.ID, "")
	s.Require().NoError(err)
	return c
}

// issued walks a fresh application for actor through to passed.
func (s *ServiceSuite) issued(actor id.Actor) *models.Certification {
	c := s.apply(actor)
	_, err := s.service.Approve(s.as(s.admin), c.ID)
	s.Require().NoError(err)
	c, err = s.service.Issue(s.as(s.admin), c.ID, models.ExamOutcome{
		Score:   88,
		Date:    s.now.AddDate(0, 0, -3),
		Results: json.RawMessage(`{"part1":44,"part2":44}`),
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) TestPrograms() {
	s.Run("code is normalized and unique", func() {
		s.Equal("CFA", s.program.Code)
		_, err := s.service.CreateProgram(s.as(s.admin), models.ProgramInput{Name: "Dup", Code: " CFA ", IsActive: true})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	})

	s.Run("only admins manage programs", func() {
		_, err := s.service.CreateProgram(s.as(s.user), models.ProgramInput{Name: "X", Code: "X"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("inactive programs are hidden from members", func() {
		draft, err := s.service.CreateProgram(s.as(s.admin), models.ProgramInput{Name: "Draft", Code: "DRF"})
		s.Require().NoError(err)

		_, err = s.service.GetProgram(s.as(s.user), draft.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		page, err := s.service.ListPrograms(s.as(s.user), models.ProgramFilter{}, pagination.Params{Page: 1, PerPage: 20})
		s.Require().NoError(err)
		s.Len(page.Data, 1)

		page, err = s.service.ListPrograms(s.as(s.admin), models.ProgramFilter{}, pagination.Params{Page: 1, PerPage: 20})
		s.Require().NoError(err)
		s.Len(page.Data, 2)
	})

	s.Run("held programs cannot be deleted", func() {
		s.issued(s.user)
		err := s.service.DeleteProgram(s.as(s.admin), s.program.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestApply() {
	s.Run("assigns a sequential certificate number", func() {
		first := s.apply(s.user)
		s.Equal("CFA-2026-0001", first.CertificateNumber)
		s.Equal(models.StatusPending, first.Status)
		s.Equal(s.user.Name, first.HolderName)

		second := s.apply(testutil.NewActor(id.RoleUser))
		s.Equal("CFA-2026-0002", second.CertificateNumber)
	})

	s.Run("one live certification per program", func() {
		_, err := s.service.Apply(s.as(s.user), s.program.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	})

	s.Run("unknown program is not found", func() {
		_, err := s.service.Apply(s.as(s.user), id.NewCertificationProgramID(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("failed attempts allow a new application", func() {
		other := testutil.NewActor(id.RoleUser)
		c := s.apply(other)
		_, err := s.service.Reject(s.as(s.admin), c.ID, "eligibility not met")
		s.Require().NoError(err)
		again := s.apply(other)
		s.NotEqual(c.CertificateNumber, again.CertificateNumber)
	})
}

func (s *ServiceSuite) TestLifecycle() {
	s.Run("issue sets exam result and expiry from program validity", func() {
		c := s.issued(s.user)
		s.Equal(models.StatusPassed, c.Status)
		s.Equal(88, *c.ExamScore)
		s.Equal(s.now.AddDate(0, 24, 0), *c.ExpiryDate)
		s.Equal(s.admin.UserID, *c.IssuedBy)
		s.Contains(s.events.Actions(), string(audit.EventCertificationIssued))
	})

	s.Run("issue requires an approved application", func() {
		c := s.apply(testutil.NewActor(id.RoleUser))
		_, err := s.service.Issue(s.as(s.admin), c.ID, models.ExamOutcome{Score: 70, Date: s.now})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("issue rejects an out-of-range score or missing exam date", func() {
		c := s.apply(testutil.NewActor(id.RoleUser))
		_, err := s.service.Approve(s.as(s.admin), c.ID)
		s.Require().NoError(err)

		_, err = s.service.Issue(s.as(s.admin), c.ID, models.ExamOutcome{Score: 150, Date: s.now})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.Issue(s.as(s.admin), c.ID, models.ExamOutcome{Score: 80})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		got, err := s.service.Get(s.as(s.admin), c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, got.Status)
		s.Nil(got.ExamScore)
	})

	s.Run("rejection is only for pending applications", func() {
		c := s.apply(testutil.NewActor(id.RoleUser))
		_, err := s.service.Approve(s.as(s.admin), c.ID)
		s.Require().NoError(err)
		_, err = s.service.Reject(s.as(s.admin), c.ID, "late")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("revoke appends the reason to notes", func() {
		c := s.issued(testutil.NewActor(id.RoleUser))
		revoked, err := s.service.Revoke(s.as(s.admin), c.ID, "ethics violation")
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, revoked.Status)
		s.Equal("\n\nRevoked: ethics violation", revoked.Notes)
		s.Equal(s.admin.UserID, *revoked.RevokedBy)
	})

	s.Run("members cannot decide", func() {
		c := s.apply(testutil.NewActor(id.RoleUser))
		_, err := s.service.Approve(s.as(s.user), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("owner withdraws a pending application", func() {
		c := s.apply(s.user)
		s.Require().NoError(s.service.Delete(s.as(s.user), c.ID))
		_, err := s.service.Get(s.as(s.admin), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("owner cannot delete once approved", func() {
		c := s.apply(s.user)
		_, err := s.service.Approve(s.as(s.admin), c.ID)
		s.Require().NoError(err)
		err = s.service.Delete(s.as(s.user), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("passed certificates must be revoked instead", func() {
		c := s.issued(testutil.NewActor(id.RoleUser))
		err := s.service.Delete(s.as(s.admin), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("other users see forbidden", func() {
		c := s.apply(testutil.NewActor(id.RoleUser))
		_, err := s.service.Get(s.as(s.user), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestVerify() {
	c := s.issued(s.user)
	public := requestcontext.WithTime(context.Background(), s.now)

	s.Run("valid certificate", func() {
		v, err := s.service.Verify(public, c.CertificateNumber)
		s.Require().NoError(err)
		s.True(v.Valid)
		s.False(v.IsExpired)
		s.Equal(s.program.Name, v.Record.Program)
		s.Equal(s.user.Name, v.Record.Holder)
	})

	s.Run("expired certificate is not valid", func() {
		later := requestcontext.WithTime(context.Background(), s.now.AddDate(3, 0, 0))
		v, err := s.service.Verify(later, c.CertificateNumber)
		s.Require().NoError(err)
		s.False(v.Valid)
		s.True(v.IsExpired)
	})

	s.Run("unknown number", func() {
		_, err := s.service.Verify(public, "NOPE-2026-0001")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal("Certificate not found", err.Error())
	})
}

func (s *ServiceSuite) TestRegistryAndStats() {
	s.issued(s.user)
	s.apply(testutil.NewActor(id.RoleUser))
	revoked := s.issued(testutil.NewActor(id.RoleUser))
	_, err := s.service.Revoke(s.as(s.admin), revoked.ID, "lapsed")
	s.Require().NoError(err)

	page, err := s.service.Registry(requestcontext.WithTime(context.Background(), s.now), models.RegistryFilter{}, pagination.Params{Page: 1, PerPage: 20})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal(s.user.Name, page.Data[0].Holder)

	stats, err := s.service.Stats(s.as(s.admin))
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(1, stats.ByStatus[models.StatusPassed])
	s.Equal(1, stats.ByStatus[models.StatusRevoked])
	s.Equal(1, stats.Active)
	s.Require().Len(stats.ByProgram, 1)
	s.Equal(1, stats.ByProgram[0].Count)

	_, err = s.service.Stats(s.as(s.user))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestListScopesToCaller() {
	s.apply(s.user)
	s.apply(testutil.NewActor(id.RoleUser))

	mine, err := s.service.List(s.as(s.user), models.ListFilter{}, pagination.Params{Page: 1, PerPage: 20})
	s.Require().NoError(err)
	s.Len(mine.Data, 1)

	all, err := s.service.List(s.as(s.admin), models.ListFilter{}, pagination.Params{Page: 1, PerPage: 20})
	s.Require().NoError(err)
	s.Len(all.Data, 2)
}

// =============================================================================
// Port behaviour (mocked store, cache and audit)
// =============================================================================

type ServicePortsSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	cache   *mocks.MockVerificationCache
	auditor *mocks.MockAuditPublisher
	service *Service
	admin   id.Actor
	now     time.Time
}

func TestServicePortsSuite(t *testing.T) {
	suite.Run(t, new(ServicePortsSuite))
}

func (s *ServicePortsSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.cache = mocks.NewMockVerificationCache(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.admin = testutil.NewActor(id.RoleAdmin)
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.service = New(s.store, tx.NewMemoryRunner(), WithAuditPublisher(s.auditor), WithCache(s.cache))
}

func (s *ServicePortsSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServicePortsSuite) record() models.VerificationRecord {
	issued := s.now.AddDate(-1, 0, 0)
	expiry := s.now.AddDate(1, 0, 0)
	return models.VerificationRecord{
		CertificateNumber: "CFA-2025-0007",
		Status:            models.StatusPassed,
		Holder:            "Aida Sultanova",
		Program:           "Certified Financial Analyst",
		IssuedDate:        &issued,
		ExpiryDate:        &expiry,
	}
}

func (s *ServicePortsSuite) TestVerifyServesFromCache() {
	rec := s.record()
	s.cache.EXPECT().Get(gomock.Any(), rec.CertificateNumber).Return(&rec, true, nil)

	v, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now), rec.CertificateNumber)
	s.Require().NoError(err)
	s.True(v.Valid)
}

func (s *ServicePortsSuite) TestVerifyFillsCacheOnMiss() {
	rec := s.record()
	gomock.InOrder(
		s.cache.EXPECT().Get(gomock.Any(), rec.CertificateNumber).Return(nil, false, nil),
		s.store.EXPECT().FindVerification(gomock.Any(), rec.CertificateNumber).Return(&rec, nil),
		s.cache.EXPECT().Set(gomock.Any(), rec).Return(nil),
	)

	_, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now), rec.CertificateNumber)
	s.Require().NoError(err)
}

func (s *ServicePortsSuite) TestVerifyToleratesCacheOutage() {
	rec := s.record()
	s.cache.EXPECT().Get(gomock.Any(), rec.CertificateNumber).Return(nil, false, errors.New("redis down"))
	s.store.EXPECT().FindVerification(gomock.Any(), rec.CertificateNumber).Return(&rec, nil)
	s.cache.EXPECT().Set(gomock.Any(), rec).Return(errors.New("redis down"))

	v, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now), rec.CertificateNumber)
	s.Require().NoError(err)
	s.True(v.Valid)
}

func (s *ServicePortsSuite) TestRevokeInvalidatesCacheAfterCommit() {
	certID := id.NewCertificationID()
	revoked := &models.Certification{ID: certID, UserID: id.NewUserID(), CertificateNumber: "CFA-2025-0007", Status: models.StatusRevoked}

	gomock.InOrder(
		s.store.EXPECT().Execute(gomock.Any(), certID, gomock.Any(), gomock.Any()).Return(revoked, nil),
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventCertificationRevoked), e.Action)
			s.Equal("misconduct", e.Reason)
			return nil
		}),
		s.cache.EXPECT().Invalidate(gomock.Any(), "CFA-2025-0007").Return(nil),
	)

	_, err := s.service.Revoke(testutil.ActorContext(s.admin), certID, "misconduct")
	s.Require().NoError(err)
}

func (s *ServicePortsSuite) TestReviewDecisionsInvalidateCache() {
	s.Run("approve", func() {
		certID := id.NewCertificationID()
		approved := &models.Certification{ID: certID, UserID: id.NewUserID(), CertificateNumber: "CFA-2026-0003", Status: models.StatusInProgress}
		gomock.InOrder(
			s.store.EXPECT().Execute(gomock.Any(), certID, gomock.Any(), gomock.Any()).Return(approved, nil),
			s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil),
			s.cache.EXPECT().Invalidate(gomock.Any(), "CFA-2026-0003").Return(nil),
		)
		_, err := s.service.Approve(testutil.ActorContext(s.admin), certID)
		s.Require().NoError(err)
	})

	s.Run("reject", func() {
		certID := id.NewCertificationID()
		rejected := &models.Certification{ID: certID, UserID: id.NewUserID(), CertificateNumber: "CFA-2026-0004", Status: models.StatusFailed}
		gomock.InOrder(
			s.store.EXPECT().Execute(gomock.Any(), certID, gomock.Any(), gomock.Any()).Return(rejected, nil),
			s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil),
			s.cache.EXPECT().Invalidate(gomock.Any(), "CFA-2026-0004").Return(nil),
		)
		_, err := s.service.Reject(testutil.ActorContext(s.admin), certID, "eligibility not met")
		s.Require().NoError(err)
	})
}

func (s *ServicePortsSuite) TestFailedRevokeKeepsCache() {
	certID := id.NewCertificationID()
	s.store.EXPECT().Execute(gomock.Any(), certID, gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

	_, err := s.service.Revoke(testutil.ActorContext(s.admin), certID, "misconduct")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServicePortsSuite) TestStatsStoreFailureIsInternal() {
	s.store.EXPECT().CountByStatus(gomock.Any()).Return(nil, errors.New("db down"))
	s.store.EXPECT().CountExpired(gomock.Any(), gomock.Any()).Return(0, nil).AnyTimes()
	s.store.EXPECT().CountActive(gomock.Any(), gomock.Any()).Return(0, nil).AnyTimes()
	s.store.EXPECT().CountPassedByProgram(gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := s.service.Stats(testutil.ActorContext(s.admin))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
