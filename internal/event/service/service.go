// Package service runs events and the registration lifecycle, keeping each
// event's registered_count in step with its live registrations.
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
	"github.com/fudign/kfa-sub000/internal/event/metrics"
	"github.com/fudign/kfa-sub000/internal/event/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Store persists events and registrations. LockEvent must hold the event
// row until the surrounding transaction ends.
type Store interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	FindEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	LockEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	ListEvents(ctx context.Context, filter models.EventFilter, page pagination.Params) ([]*models.Event, int, error)
	DeleteEvent(ctx context.Context, eventID id.EventID, now time.Time) error
	CountLive(ctx context.Context, eventID id.EventID) (int, error)
	AdjustRegistered(ctx context.Context, eventID id.EventID, delta int) error

	Exists(ctx context.Context, eventID id.EventID, userID id.UserID) (bool, error)
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	Execute(ctx context.Context, regID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error)
	SoftDelete(ctx context.Context, regID id.RegistrationID, now time.Time) error
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Registration, int, error)
	Stats(ctx context.Context, eventID *id.EventID) (models.Stats, error)
}

// MemberDirectory answers whether a user currently holds a membership.
type MemberDirectory interface {
	IsMember(ctx context.Context, userID id.UserID) (bool, error)
}

// CPECreditor records attendance hours. It must join the caller's
// transaction.
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

// WithMemberDirectory enables member pricing. Without it everyone pays the
// list price.
func WithMemberDirectory(d MemberDirectory) Option {
	return func(s *Service) { s.members = d }
}

// WithCPECreditor enables CPE credit on attendance.
func WithCPECreditor(c CPECreditor) Option {
	return func(s *Service) { s.creditor = c }
}

func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     runner,
		guard:  access.NewGuard(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("kfa/event"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errDuplicate   = dErrors.New(dErrors.CodeDuplicate, "you are already registered for this event")
	errEventInUse  = dErrors.New(dErrors.CodeInvariantViolation, "cannot delete an event with active registrations")
	errEventAbsent = access.PublicNotFound(access.KindEvent)
)

// =============================================================================
// Events
// =============================================================================

func (s *Service) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	ctx, span := s.tracer.Start(ctx, "event.CreateEvent")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionManage, access.Collection(access.KindEvent)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var event *models.Event
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = models.NewEvent(id.NewEventID(), in, now)
		if err != nil {
			return err
		}
		if err := s.store.CreateEvent(ctx, event); err != nil {
			return err
		}
		return s.emitEvent(ctx, audit.EventEventCreated, actor, event)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("event.id", event.ID.String()))
	s.logger.InfoContext(ctx, "event created",
		"event_id", event.ID.String(),
		"event_type", string(event.Type),
		"status", string(event.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	return event, nil
}

// GetEvent returns a published event to anyone; drafts only to admins.
func (s *Service) GetEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	actor := requestcontext.Actor(ctx)
	event, err := s.store.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errEventAbsent
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:   access.KindEvent,
		Public: event.IsPublic(),
	}); err != nil {
		return nil, errEventAbsent
	}
	return event, nil
}

// ListEvents hides drafts from everyone but admins.
func (s *Service) ListEvents(ctx context.Context, filter models.EventFilter, page pagination.Params) (pagination.Page[*models.Event], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.Resource{Kind: access.KindEvent, Public: true}); err != nil {
		return pagination.Page[*models.Event]{}, err
	}
	filter.PublicOnly = !actor.IsAdmin()
	filter.At = requestcontext.Now(ctx)
	events, total, err := s.store.ListEvents(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Event]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return pagination.NewPage(events, page, total), nil
}

// DeleteEvent soft-deletes an event that no live registration still holds.
func (s *Service) DeleteEvent(ctx context.Context, eventID id.EventID) error {
	ctx, span := s.tracer.Start(ctx, "event.DeleteEvent", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionManage, access.Collection(access.KindEvent)); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		event, err := s.store.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		live, err := s.store.CountLive(ctx, eventID)
		if err != nil {
			return err
		}
		if live > 0 {
			return errEventInUse
		}
		if err := s.store.DeleteEvent(ctx, eventID, now); err != nil {
			return err
		}
		return s.emitEvent(ctx, audit.EventEventDeleted, actor, event)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return errEventAbsent
		}
		return s.translate(actor, err)
	}
	s.logger.InfoContext(ctx, "event deleted",
		"event_id", eventID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// =============================================================================
// Registrations
// =============================================================================

// Register places the caller on an event. The event row stays locked from the
// open check until the counter is bumped, so capacity cannot be oversold.
func (s *Service) Register(ctx context.Context, eventID id.EventID, answers []byte) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "event.Register", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionCreate, access.Collection(access.KindRegistration)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	isMember, err := s.isMember(ctx, actor.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check membership")
	}

	var reg *models.Registration
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		event, err := s.store.LockEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errEventAbsent
			}
			return err
		}
		exists, err := s.store.Exists(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}
		if exists {
			return errDuplicate
		}
		reg, err = models.NewRegistration(id.NewRegistrationID(), event, models.Signup{
			UserID:    actor.UserID,
			UserName:  actor.DisplayName(),
			UserEmail: actor.Email,
			Answers:   answers,
			IsMember:  isMember,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, reg); err != nil {
			return err
		}
		if err := s.store.AdjustRegistered(ctx, eventID, 1); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventRegistrationCreated, reg, "")
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, errDuplicate
		}
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("registration.id", reg.ID.String()))
	s.logTransition(ctx, "created", reg)
	s.metrics.IncTransition("register")
	s.metrics.SeatTaken()
	return reg, nil
}

func (s *Service) isMember(ctx context.Context, userID id.UserID) (bool, error) {
	if s.members == nil {
		return false, nil
	}
	return s.members.IsMember(ctx, userID)
}

func (s *Service) Approve(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.decide(ctx, regID, decision{
		name:   "approve",
		action: access.ActionApprove,
		event:  audit.EventRegistrationApproved,
		validate: func(r *models.Registration, _ *models.Event, _ time.Time) error {
			return r.CanApprove()
		},
		mutate: func(r *models.Registration, _ *models.Event, admin id.UserID, now time.Time) {
			r.ApplyApproval(admin, now)
		},
	})
}

func (s *Service) Reject(ctx context.Context, regID id.RegistrationID, notes string) (*models.Registration, error) {
	notes, err := id.ValidateReason(notes, "notes")
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, regID, decision{
		name:   "reject",
		action: access.ActionReject,
		event:  audit.EventRegistrationRejected,
		reason: notes,
		validate: func(r *models.Registration, _ *models.Event, _ time.Time) error {
			return r.CanReject()
		},
		mutate: func(r *models.Registration, _ *models.Event, _ id.UserID, now time.Time) {
			r.ApplyRejection(notes, now)
		},
	})
}

// MarkAttended records attendance and credits the event's CPE hours in the
// same transaction.
func (s *Service) MarkAttended(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.decide(ctx, regID, decision{
		name:   "attended",
		action: access.ActionMarkAttendance,
		event:  audit.EventRegistrationAttended,
		validate: func(r *models.Registration, _ *models.Event, _ time.Time) error {
			return r.CanMarkAttendance()
		},
		mutate: func(r *models.Registration, e *models.Event, _ id.UserID, now time.Time) {
			r.ApplyAttendance(e.CPEHours, now)
		},
		after: s.creditAttendance,
	})
}

func (s *Service) creditAttendance(ctx context.Context, r *models.Registration, e *models.Event) error {
	if s.creditor == nil || e.CPEHours <= 0 {
		return nil
	}
	_, err := s.creditor.Credit(ctx, cpemodels.Credit{
		UserID:       r.UserID,
		ActivityType: cpemodels.TypeEvent,
		SourceID:     uuid.UUID(e.ID),
		Title:        e.Title,
		Category:     cpemodels.CategoryForEventType(string(e.Type)),
		Hours:        e.CPEHours,
		ActivityDate: e.StartsAt,
	})
	return err
}

func (s *Service) MarkNoShow(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.decide(ctx, regID, decision{
		name:   "no_show",
		action: access.ActionMarkAttendance,
		event:  audit.EventRegistrationNoShow,
		validate: func(r *models.Registration, _ *models.Event, _ time.Time) error {
			return r.CanMarkNoShow()
		},
		mutate: func(r *models.Registration, _ *models.Event, _ id.UserID, now time.Time) {
			r.ApplyNoShow(now)
		},
	})
}

func (s *Service) IssueCertificate(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.decide(ctx, regID, decision{
		name:   "certificate",
		action: access.ActionIssue,
		event:  audit.EventRegistrationCertificateIssued,
		validate: func(r *models.Registration, _ *models.Event, _ time.Time) error {
			return r.CanIssueCertificate()
		},
		mutate: func(r *models.Registration, _ *models.Event, _ id.UserID, now time.Time) {
			r.ApplyCertificate(now)
		},
	})
}

// Cancel withdraws the caller's own registration and frees the seat.
func (s *Service) Cancel(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "event.cancel", trace.WithAttributes(
		attribute.String("registration.id", regID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	current, err := s.load(ctx, actor, regID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionCancel, access.Resource{
		Kind:  access.KindRegistration,
		Owner: current.UserID,
	}); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var reg *models.Registration
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		event, err := s.store.LockEvent(ctx, current.EventID)
		if err != nil {
			return err
		}
		reg, err = s.store.Execute(ctx, regID, func(r *models.Registration) error {
			return r.CanCancel(event, now)
		}, func(r *models.Registration) {
			r.ApplyCancel(now)
		})
		if err != nil {
			return err
		}
		if err := s.store.AdjustRegistered(ctx, event.ID, -1); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventRegistrationCancelled, reg, "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, "cancelled", reg)
	s.metrics.IncTransition("cancel")
	s.metrics.SeatReleased()
	return reg, nil
}

// Delete removes a registration that no longer holds a confirmed seat. A
// pending row still counts, so its seat is released.
func (s *Service) Delete(ctx context.Context, regID id.RegistrationID) error {
	ctx, span := s.tracer.Start(ctx, "event.Delete", trace.WithAttributes(
		attribute.String("registration.id", regID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionDelete, access.Collection(access.KindRegistration)); err != nil {
		return err
	}
	current, err := s.load(ctx, actor, regID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	released := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.LockEvent(ctx, current.EventID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		locked, err := s.store.Execute(ctx, regID, func(r *models.Registration) error {
			return r.CanDelete()
		}, func(*models.Registration) {})
		if err != nil {
			return err
		}
		if err := s.store.SoftDelete(ctx, regID, now); err != nil {
			return err
		}
		if locked.Status.Counted() {
			if err := s.store.AdjustRegistered(ctx, locked.EventID, -1); err != nil {
				return err
			}
			released = true
		}
		return s.emit(ctx, audit.EventRegistrationDeleted, locked, "")
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
	validate func(r *models.Registration, e *models.Event, now time.Time) error
	mutate   func(r *models.Registration, e *models.Event, admin id.UserID, now time.Time)
	// after runs inside the transaction once the registration is saved.
	after func(ctx context.Context, r *models.Registration, e *models.Event) error
}

func (s *Service) decide(ctx context.Context, regID id.RegistrationID, d decision) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "event."+d.name, trace.WithAttributes(
		attribute.String("registration.id", regID.String()),
		attribute.String("transition", d.name),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, d.action, access.Collection(access.KindRegistration)); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, actor, regID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var reg *models.Registration
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		event, err := s.store.FindEvent(ctx, current.EventID)
		if err != nil {
			return err
		}
		reg, err = s.store.Execute(ctx, regID, func(r *models.Registration) error {
			return d.validate(r, event, now)
		}, func(r *models.Registration) {
			d.mutate(r, event, actor.UserID, now)
		})
		if err != nil {
			return err
		}
		if d.after != nil {
			if err := d.after(ctx, reg, event); err != nil {
				return err
			}
		}
		return s.emit(ctx, d.event, reg, d.reason)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, d.name, reg)
	s.metrics.IncTransition(d.name)
	return reg, nil
}

func (s *Service) Get(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	actor := requestcontext.Actor(ctx)
	reg, err := s.load(ctx, actor, regID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:  access.KindRegistration,
		Owner: reg.UserID,
	}); err != nil {
		return nil, err
	}
	return reg, nil
}

// List returns every matching registration to admins and the caller's own to
// everyone else.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Registration], error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsAdmin() {
		return s.ListMine(ctx, filter, page)
	}
	if err := s.guard.Authorize(actor, access.ActionListAll, access.Collection(access.KindRegistration)); err != nil {
		return pagination.Page[*models.Registration]{}, err
	}
	return s.list(ctx, filter, page)
}

func (s *Service) ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Registration], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.OwnedBy(access.KindRegistration, actor.UserID)); err != nil {
		return pagination.Page[*models.Registration]{}, err
	}
	filter.UserID = &actor.UserID
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Registration], error) {
	filter.At = requestcontext.Now(ctx)
	regs, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Registration]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return pagination.NewPage(regs, page, total), nil
}

// Stats summarizes registrations, across all events or for one.
func (s *Service) Stats(ctx context.Context, eventID *id.EventID) (models.Overview, error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionStats, access.Collection(access.KindRegistration)); err != nil {
		return models.Overview{}, err
	}
	var out models.Overview
	g, gctx := errgroup.WithContext(ctx)
	if eventID != nil {
		g.Go(func() error {
			var err error
			out.Event, err = s.store.FindEvent(gctx, *eventID)
			return err
		})
	}
	g.Go(func() error {
		var err error
		out.Stats, err = s.store.Stats(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Overview{}, errEventAbsent
		}
		return models.Overview{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute registration statistics")
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, actor id.Actor, regID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound(actor, access.KindRegistration)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, r *models.Registration, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  r.UserID,
		Subject: r.ID.String(),
		Reason:  reason,
	})
}

func (s *Service) emitEvent(ctx context.Context, event audit.AuditEvent, actor id.Actor, e *models.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  actor.UserID,
		Subject: e.ID.String(),
	})
}

func (s *Service) logTransition(ctx context.Context, transition string, r *models.Registration) {
	s.logger.InfoContext(ctx, "event registration "+transition,
		"registration_id", r.ID.String(),
		"event_id", r.EventID.String(),
		"user_id", r.UserID.String(),
		"status", string(r.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) translate(actor id.Actor, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return access.NotFound(actor, access.KindRegistration)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeDuplicate, "registration already exists")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "event registration operation failed")
}
