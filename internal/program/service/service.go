// Package service runs programs and the enrollment lifecycle. Every change to
// an enrollment's seat moves the program's enrolled_count in the same
// transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fudign/kfa-sub000/internal/access"
	cpemodels "github.com/fudign/kfa-sub000/internal/cpe/models"
	"github.com/fudign/kfa-sub000/internal/program/metrics"
	"github.com/fudign/kfa-sub000/internal/program/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Store persists programs and enrollments. LockProgram must hold the program
// row until the surrounding transaction ends.
type Store interface {
	CreateProgram(ctx context.Context, program *models.Program) error
	FindProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	LockProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) ([]*models.Program, int, error)
	DeleteProgram(ctx context.Context, programID id.ProgramID, now time.Time) error
	CountLive(ctx context.Context, programID id.ProgramID) (int, error)
	AdjustEnrolled(ctx context.Context, programID id.ProgramID, delta int) error

	Exists(ctx context.Context, programID id.ProgramID, userID id.UserID) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	Execute(ctx context.Context, enrollmentID id.EnrollmentID, validate func(*models.Enrollment) error, mutate func(*models.Enrollment)) (*models.Enrollment, error)
	SoftDelete(ctx context.Context, enrollmentID id.EnrollmentID, now time.Time) error
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Enrollment, int, error)
	Stats(ctx context.Context, programID *id.ProgramID) (models.Stats, error)
}

type MemberDirectory interface {
	IsMember(ctx context.Context, userID id.UserID) (bool, error)
}

// CPECreditor must join the caller's transaction.
type CPECreditor interface {
	Credit(ctx context.Context, c cpemodels.Credit) (*cpemodels.Activity, error)
}

type Authorizer interface {
	Authorize(actor id.Actor, action access.Action, res access.Resource) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    Store
	tx       tx.Runner
	guard    Authorizer
	members  MemberDirectory
	creditor CPECreditor
	auditor  AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithGuard(g Authorizer) Option {
	return func(s *Service) { s.guard = g }
}

func WithMemberDirectory(d MemberDirectory) Option {
	return func(s *Service) { s.members = d }
}

// WithCPECreditor enables CPE credit on passed completions.
func WithCPECreditor(c CPECreditor) Option {
	return func(s *Service) { s.creditor = c }
}

func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     runner,
		guard:  access.NewGuard(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("kfa/program"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errDuplicate     = dErrors.New(dErrors.CodeDuplicate, "you are already enrolled in this program")
	errProgramInUse  = dErrors.New(dErrors.CodeInvariantViolation, "cannot delete a program with active enrollments")
	errProgramAbsent = access.PublicNotFound(access.KindProgram)
)

// =============================================================================
// Programs
// =============================================================================

func (s *Service) CreateProgram(ctx context.Context, in models.ProgramInput) (*models.Program, error) {
	ctx, span := s.tracer.Start(ctx, "program.CreateProgram")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionManage, access.Collection(access.KindProgram)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var program *models.Program
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		program, err = models.NewProgram(id.NewProgramID(), in, now)
		if err != nil {
			return err
		}
		if err := s.store.CreateProgram(ctx, program); err != nil {
			return err
		}
		return s.emitProgram(ctx, audit.EventProgramCreated, actor, program)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("program.id", program.ID.String()))
	s.logger.InfoContext(ctx, "program created",
		"program_id", program.ID.String(),
		"program_type", string(program.Type),
		"status", string(program.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	return program, nil
}

func (s *Service) GetProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	actor := requestcontext.Actor(ctx)
	program, err := s.store.FindProgram(ctx, programID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errProgramAbsent
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:   access.KindProgram,
		Public: program.IsPublic(),
	}); err != nil {
		return nil, errProgramAbsent
	}
	return program, nil
}

func (s *Service) ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) (pagination.Page[*models.Program], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.Resource{Kind: access.KindProgram, Public: true}); err != nil {
		return pagination.Page[*models.Program]{}, err
	}
	filter.PublicOnly = !actor.IsAdmin()
	programs, total, err := s.store.ListPrograms(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Program]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list programs")
	}
	return pagination.NewPage(programs, page, total), nil
}

// DeleteProgram soft-deletes a program once no enrollment holds a seat.
func (s *Service) DeleteProgram(ctx context.Context, programID id.ProgramID) error {
	ctx, span := s.tracer.Start(ctx, "program.DeleteProgram", trace.WithAttributes(
		attribute.String("program.id", programID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionManage, access.Collection(access.KindProgram)); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		program, err := s.store.LockProgram(ctx, programID)
		if err != nil {
			return err
		}
		live, err := s.store.CountLive(ctx, programID)
		if err != nil {
			return err
		}
		if live > 0 {
			return errProgramInUse
		}
		if err := s.store.DeleteProgram(ctx, programID, now); err != nil {
			return err
		}
		return s.emitProgram(ctx, audit.EventProgramDeleted, actor, program)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return errProgramAbsent
		}
		return s.translate(actor, err)
	}
	s.logger.InfoContext(ctx, "program deleted",
		"program_id", programID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// =============================================================================
// Enrollments
// =============================================================================

// Enroll places the caller in a program. The program row stays locked from the
// open check until the counter moves.
func (s *Service) Enroll(ctx context.Context, programID id.ProgramID) (*models.Enrollment, error) {
	ctx, span := s.tracer.Start(ctx, "program.Enroll", trace.WithAttributes(
		attribute.String("program.id", programID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionCreate, access.Collection(access.KindEnrollment)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	isMember := false
	if s.members != nil {
		var err error
		if isMember, err = s.members.IsMember(ctx, actor.UserID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check membership")
		}
	}

	var enrollment *models.Enrollment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		program, err := s.store.LockProgram(ctx, programID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errProgramAbsent
			}
			return err
		}
		exists, err := s.store.Exists(ctx, programID, actor.UserID)
		if err != nil {
			return err
		}
		if exists {
			return errDuplicate
		}
		enrollment, err = models.NewEnrollment(id.NewEnrollmentID(), program, models.Signup{
			UserID:    actor.UserID,
			UserName:  actor.DisplayName(),
			UserEmail: actor.Email,
			IsMember:  isMember,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, enrollment); err != nil {
			return err
		}
		if err := s.store.AdjustEnrolled(ctx, programID, 1); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventEnrollmentCreated, enrollment, "")
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, errDuplicate
		}
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("enrollment.id", enrollment.ID.String()))
	s.logTransition(ctx, "created", enrollment)
	s.metrics.IncTransition("enroll")
	s.metrics.SeatTaken()
	return enrollment, nil
}

func (s *Service) Approve(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	return s.decide(ctx, enrollmentID, decision{
		name:   "approve",
		action: access.ActionApprove,
		event:  audit.EventEnrollmentApproved,
		validate: func(e *models.Enrollment, _ *models.Program) error {
			return e.CanApprove()
		},
		mutate: func(e *models.Enrollment, _ *models.Program, admin id.UserID, now time.Time) {
			e.ApplyApproval(admin, now)
		},
	})
}

func (s *Service) Reject(ctx context.Context, enrollmentID id.EnrollmentID, notes string) (*models.Enrollment, error) {
	notes, err := id.ValidateReason(notes, "notes")
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, enrollmentID, decision{
		name:   "reject",
		action: access.ActionReject,
		event:  audit.EventEnrollmentRejected,
		reason: notes,
		validate: func(e *models.Enrollment, _ *models.Program) error {
			return e.CanReject()
		},
		mutate: func(e *models.Enrollment, _ *models.Program, _ id.UserID, now time.Time) {
			e.ApplyRejection(notes, now)
		},
	})
}

func (s *Service) Start(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	return s.decide(ctx, enrollmentID, decision{
		name:   "start",
		action: access.ActionStart,
		event:  audit.EventEnrollmentStarted,
		validate: func(e *models.Enrollment, _ *models.Program) error {
			return e.CanStart()
		},
		mutate: func(e *models.Enrollment, _ *models.Program, _ id.UserID, now time.Time) {
			e.ApplyStart(now)
		},
	})
}

func (s *Service) UpdateProgress(ctx context.Context, enrollmentID id.EnrollmentID, progress int) (*models.Enrollment, error) {
	if progress < 0 || progress > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "progress must be between 0 and 100")
	}
	return s.decide(ctx, enrollmentID, decision{
		name:   "progress",
		action: access.ActionProgress,
		event:  audit.EventEnrollmentProgressUpdated,
		validate: func(e *models.Enrollment, _ *models.Program) error {
			return e.CanUpdateProgress()
		},
		mutate: func(e *models.Enrollment, _ *models.Program, _ id.UserID, now time.Time) {
			e.ApplyProgress(progress, now)
		},
	})
}

// Complete grades a finished enrollment. A pass earns the program's CPE
// hours, credited in the same transaction.
func (s *Service) Complete(ctx context.Context, enrollmentID id.EnrollmentID, score *int) (*models.Enrollment, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}
	var passed bool
	enrollment, err := s.decide(ctx, enrollmentID, decision{
		name:   "complete",
		action: access.ActionComplete,
		event:  audit.EventEnrollmentCompleted,
		validate: func(e *models.Enrollment, p *models.Program) error {
			if err := e.CanComplete(); err != nil {
				return err
			}
			var err error
			passed, err = models.Grade(p, score)
			return err
		},
		mutate: func(e *models.Enrollment, p *models.Program, _ id.UserID, now time.Time) {
			e.ApplyCompletion(p, score, passed, now)
		},
		after: s.creditCompletion,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOutcome(passed)
	return enrollment, nil
}

func (s *Service) creditCompletion(ctx context.Context, e *models.Enrollment, p *models.Program) error {
	if s.creditor == nil || e.Passed == nil || !*e.Passed || p.CPEHours <= 0 {
		return nil
	}
	_, err := s.creditor.Credit(ctx, cpemodels.Credit{
		UserID:       e.UserID,
		ActivityType: cpemodels.TypeProgram,
		SourceID:     uuid.UUID(p.ID),
		Title:        p.Title,
		Category:     cpemodels.CategoryTraining,
		Hours:        p.CPEHours,
		ActivityDate: *e.CompletedAt,
	})
	return err
}

func (s *Service) Fail(ctx context.Context, enrollmentID id.EnrollmentID, score *int, notes string) (*models.Enrollment, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}
	notes, err := id.ValidateOptionalNote(notes, "notes")
	if err != nil {
		return nil, err
	}
	enrollment, err := s.decide(ctx, enrollmentID, decision{
		name:   "fail",
		action: access.ActionFail,
		event:  audit.EventEnrollmentFailed,
		reason: notes,
		validate: func(e *models.Enrollment, _ *models.Program) error {
			return e.CanFail()
		},
		mutate: func(e *models.Enrollment, _ *models.Program, _ id.UserID, now time.Time) {
			e.ApplyFailure(score, notes, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOutcome(false)
	return enrollment, nil
}

func validateScore(score *int) error {
	if score != nil && (*score < 0 || *score > 100) {
		return dErrors.New(dErrors.CodeValidation, "exam_score must be between 0 and 100")
	}
	return nil
}

func (s *Service) IssueCertificate(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	return s.decide(ctx, enrollmentID, decision{
		name:   "certificate",
		action: access.ActionIssue,
		event:  audit.EventEnrollmentCertificateIssued,
		validate: func(e *models.Enrollment, _ *models.Program) error {
			return e.CanIssueCertificate()
		},
		mutate: func(e *models.Enrollment, _ *models.Program, _ id.UserID, now time.Time) {
			e.ApplyCertificate(now)
		},
	})
}

// Drop withdraws the caller from a program at any point before it finishes.
func (s *Service) Drop(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	return s.withdraw(ctx, enrollmentID, withdrawal{
		name:     "drop",
		action:   access.ActionDrop,
		event:    audit.EventEnrollmentDropped,
		validate: (*models.Enrollment).CanDrop,
		mutate:   (*models.Enrollment).ApplyDrop,
	})
}

// Cancel withdraws the caller before the enrollment has started.
func (s *Service) Cancel(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	return s.withdraw(ctx, enrollmentID, withdrawal{
		name:     "cancel",
		action:   access.ActionCancel,
		event:    audit.EventEnrollmentCancelled,
		validate: (*models.Enrollment).CanCancel,
		mutate:   (*models.Enrollment).ApplyCancel,
	})
}

type withdrawal struct {
	name     string
	action   access.Action
	event    audit.AuditEvent
	validate func(*models.Enrollment) error
	mutate   func(*models.Enrollment, time.Time)
}

func (s *Service) withdraw(ctx context.Context, enrollmentID id.EnrollmentID, w withdrawal) (*models.Enrollment, error) {
	ctx, span := s.tracer.Start(ctx, "program."+w.name, trace.WithAttributes(
		attribute.String("enrollment.id", enrollmentID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	current, err := s.load(ctx, actor, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, w.action, access.Resource{
		Kind:  access.KindEnrollment,
		Owner: current.UserID,
	}); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var enrollment *models.Enrollment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.LockProgram(ctx, current.ProgramID); err != nil {
			return err
		}
		var err error
		enrollment, err = s.store.Execute(ctx, enrollmentID, w.validate, func(e *models.Enrollment) {
			w.mutate(e, now)
		})
		if err != nil {
			return err
		}
		if err := s.store.AdjustEnrolled(ctx, enrollment.ProgramID, -1); err != nil {
			return err
		}
		return s.emit(ctx, w.event, enrollment, "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, w.name, enrollment)
	s.metrics.IncTransition(w.name)
	s.metrics.SeatReleased()
	return enrollment, nil
}

// Delete removes an enrollment that is neither under way nor finished,
// releasing its seat if it still held one.
func (s *Service) Delete(ctx context.Context, enrollmentID id.EnrollmentID) error {
	ctx, span := s.tracer.Start(ctx, "program.Delete", trace.WithAttributes(
		attribute.String("enrollment.id", enrollmentID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionDelete, access.Collection(access.KindEnrollment)); err != nil {
		return err
	}
	current, err := s.load(ctx, actor, enrollmentID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	released := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.LockProgram(ctx, current.ProgramID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		locked, err := s.store.Execute(ctx, enrollmentID, (*models.Enrollment).CanDelete, func(*models.Enrollment) {})
		if err != nil {
			return err
		}
		if err := s.store.SoftDelete(ctx, enrollmentID, now); err != nil {
			return err
		}
		if locked.Status.Counted() {
			if err := s.store.AdjustEnrolled(ctx, locked.ProgramID, -1); err != nil {
				return err
			}
			released = true
		}
		return s.emit(ctx, audit.EventEnrollmentDeleted, locked, "")
	})
	if err != nil {
		return s.translate(actor, err)
	}
	s.logTransition(ctx, "deleted", current)
	s.metrics.IncTransition("delete")
	if released {
		s.metrics.SeatReleased()
	}
	return nil
}

type decision struct {
	name     string
	action   access.Action
	event    audit.AuditEvent
	reason   string
	validate func(e *models.Enrollment, p *models.Program) error
	mutate   func(e *models.Enrollment, p *models.Program, admin id.UserID, now time.Time)
	// after runs inside the transaction once the enrollment is saved.
	after func(ctx context.Context, e *models.Enrollment, p *models.Program) error
}

func (s *Service) decide(ctx context.Context, enrollmentID id.EnrollmentID, d decision) (*models.Enrollment, error) {
	ctx, span := s.tracer.Start(ctx, "program."+d.name, trace.WithAttributes(
		attribute.String("enrollment.id", enrollmentID.String()),
		attribute.String("transition", d.name),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, d.action, access.Collection(access.KindEnrollment)); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, actor, enrollmentID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var enrollment *models.Enrollment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		program, err := s.store.FindProgram(ctx, current.ProgramID)
		if err != nil {
			return err
		}
		enrollment, err = s.store.Execute(ctx, enrollmentID, func(e *models.Enrollment) error {
			return d.validate(e, program)
		}, func(e *models.Enrollment) {
			d.mutate(e, program, actor.UserID, now)
		})
		if err != nil {
			return err
		}
		if d.after != nil {
			if err := d.after(ctx, enrollment, program); err != nil {
				return err
			}
		}
		return s.emit(ctx, d.event, enrollment, d.reason)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, d.name, enrollment)
	s.metrics.IncTransition(d.name)
	return enrollment, nil
}

func (s *Service) Get(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	actor := requestcontext.Actor(ctx)
	enrollment, err := s.load(ctx, actor, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:  access.KindEnrollment,
		Owner: enrollment.UserID,
	}); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// List returns every matching enrollment to admins and the caller's own to
// everyone else.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Enrollment], error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsAdmin() {
		return s.ListMine(ctx, filter, page)
	}
	if err := s.guard.Authorize(actor, access.ActionListAll, access.Collection(access.KindEnrollment)); err != nil {
		return pagination.Page[*models.Enrollment]{}, err
	}
	return s.list(ctx, filter, page)
}

func (s *Service) ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Enrollment], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.OwnedBy(access.KindEnrollment, actor.UserID)); err != nil {
		return pagination.Page[*models.Enrollment]{}, err
	}
	filter.UserID = &actor.UserID
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Enrollment], error) {
	enrollments, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Enrollment]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	return pagination.NewPage(enrollments, page, total), nil
}

func (s *Service) Stats(ctx context.Context, programID *id.ProgramID) (models.Overview, error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionStats, access.Collection(access.KindEnrollment)); err != nil {
		return models.Overview{}, err
	}
	var out models.Overview
	g, gctx := errgroup.WithContext(ctx)
	if programID != nil {
		g.Go(func() error {
			var err error
			out.Program, err = s.store.FindProgram(gctx, *programID)
			return err
		})
	}
	g.Go(func() error {
		var err error
		out.Stats, err = s.store.Stats(gctx, programID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Overview{}, errProgramAbsent
		}
		return models.Overview{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute enrollment statistics")
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, actor id.Actor, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	enrollment, err := s.store.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound(actor, access.KindEnrollment)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, e *models.Enrollment, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  e.UserID,
		Subject: e.ID.String(),
		Reason:  reason,
	})
}

func (s *Service) emitProgram(ctx context.Context, event audit.AuditEvent, actor id.Actor, p *models.Program) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  actor.UserID,
		Subject: p.ID.String(),
	})
}

func (s *Service) logTransition(ctx context.Context, transition string, e *models.Enrollment) {
	s.logger.InfoContext(ctx, "program enrollment "+transition,
		"enrollment_id", e.ID.String(),
		"program_id", e.ProgramID.String(),
		"user_id", e.UserID.String(),
		"status", string(e.Status),
		"progress", e.Progress,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) translate(actor id.Actor, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return access.NotFound(actor, access.KindEnrollment)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeDuplicate, "enrollment already exists")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "program enrollment operation failed")
}
