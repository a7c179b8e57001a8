// Package service runs the membership application lifecycle: submission,
// review, decision and removal, plus the member directory side effect of
// approval.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fudign/kfa-sub000/internal/access"
	"github.com/fudign/kfa-sub000/internal/membership/metrics"
	"github.com/fudign/kfa-sub000/internal/membership/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Store persists applications and the member directory.
//
// Error Contract:
//   - sentinel.ErrNotFound for missing or soft-deleted applications
//   - sentinel.ErrConflict when Create races another open application
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	HasOpenApplication(ctx context.Context, userID id.UserID) (bool, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error)
	SoftDelete(ctx context.Context, appID id.ApplicationID, now time.Time) error
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Application, int, error)
	UpsertMember(ctx context.Context, member models.Member) error
}

// Authorizer is the access guard.
type Authorizer interface {
	Authorize(actor id.Actor, action access.Action, res access.Resource) error
}

// AuditPublisher records lifecycle events inside the transition's transaction.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   Store
	tx      tx.Runner
	guard   Authorizer
	auditor AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithGuard(g Authorizer) Option {
	return func(s *Service) {
		s.guard = g
	}
}

func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     runner,
		guard:  access.NewGuard(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("kfa/membership"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a pending application for the calling actor.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Submit")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionCreate, access.Collection(access.KindApplication)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var app *models.Application
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		open, err := s.store.HasOpenApplication(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if open {
			return errDuplicate
		}
		app, err = models.NewApplication(id.NewApplicationID(), actor.UserID, sub, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, app); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventApplicationSubmitted, app, "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("application.id", app.ID.String()))
	s.logTransition(ctx, "submitted", app)
	s.metrics.IncTransition("submit")
	return app, nil
}

var errDuplicate = dErrors.New(dErrors.CodeDuplicate, "you already have an open membership application")

// StartReview moves a pending application under review.
func (s *Service) StartReview(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	return s.decide(ctx, appID, decision{
		name:   "review",
		action: access.ActionReview,
		event:  audit.EventApplicationReviewStarted,
		validate: func(a *models.Application) error {
			return a.CanStartReview()
		},
		mutate: func(a *models.Application, reviewer id.UserID, now time.Time) {
			a.ApplyStartReview(reviewer, now)
		},
	})
}

// Approve accepts the application and adds the applicant to the member
// directory in the same transaction.
func (s *Service) Approve(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.decide(ctx, appID, decision{
		name:   "approve",
		action: access.ActionApprove,
		event:  audit.EventApplicationApproved,
		validate: func(a *models.Application) error {
			return a.CanApprove()
		},
		mutate: func(a *models.Application, reviewer id.UserID, now time.Time) {
			a.ApplyApproval(reviewer, now)
		},
		after: func(ctx context.Context, a *models.Application, now time.Time) error {
			return s.store.UpsertMember(ctx, models.MemberFromApplication(a, now))
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncMemberJoined()
	return app, nil
}

// Reject declines the application. The reason is required.
func (s *Service) Reject(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error) {
	reason, err := id.ValidateReason(reason, "rejection_reason")
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, appID, decision{
		name:   "reject",
		action: access.ActionReject,
		event:  audit.EventApplicationRejected,
		reason: reason,
		validate: func(a *models.Application) error {
			return a.CanReject()
		},
		mutate: func(a *models.Application, reviewer id.UserID, now time.Time) {
			a.ApplyRejection(reviewer, reason, now)
		},
	})
}

type decision struct {
	name     string
	action   access.Action
	event    audit.AuditEvent
	reason   string
	validate func(*models.Application) error
	mutate   func(a *models.Application, reviewer id.UserID, now time.Time)
	after    func(ctx context.Context, a *models.Application, now time.Time) error
}

// decide runs an admin transition: guard, locked load, precondition, apply,
// side effects and audit, all in one transaction.
func (s *Service) decide(ctx context.Context, appID id.ApplicationID, d decision) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "membership."+d.name, trace.WithAttributes(
		attribute.String("application.id", appID.String()),
		attribute.String("transition", d.name),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, d.action, access.Collection(access.KindApplication)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var app *models.Application
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.store.Execute(ctx, appID, d.validate, func(a *models.Application) {
			d.mutate(a, actor.UserID, now)
		})
		if err != nil {
			return err
		}
		if d.after != nil {
			if err := d.after(ctx, app, now); err != nil {
				return err
			}
		}
		return s.emit(ctx, d.event, app, d.reason)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, d.name, app)
	s.metrics.IncTransition(d.name)
	return app, nil
}

// Get returns an application to its owner or an admin.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	actor := requestcontext.Actor(ctx)
	app, err := s.load(ctx, actor, appID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionRead, resourceOf(app)); err != nil {
		return nil, err
	}
	return app, nil
}

// List returns every application matching filter to admins and only the
// caller's own applications to everyone else.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Application], error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsAdmin() {
		return s.ListMine(ctx, filter, page)
	}
	if err := s.guard.Authorize(actor, access.ActionListAll, access.Collection(access.KindApplication)); err != nil {
		return pagination.Page[*models.Application]{}, err
	}
	return s.list(ctx, filter, page)
}

// ListMine returns the caller's applications.
func (s *Service) ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Application], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.OwnedBy(access.KindApplication, actor.UserID)); err != nil {
		return pagination.Page[*models.Application]{}, err
	}
	filter.UserID = &actor.UserID
	return s.list(ctx, filter, page)
}

// ListPending returns the applications awaiting a decision, oldest review
// queue first by creation.
func (s *Service) ListPending(ctx context.Context, page pagination.Params) (pagination.Page[*models.Application], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionListAll, access.Collection(access.KindApplication)); err != nil {
		return pagination.Page[*models.Application]{}, err
	}
	return s.list(ctx, models.ListFilter{Statuses: []models.Status{models.StatusPending}}, page)
}

func (s *Service) list(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Application], error) {
	apps, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Application]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return pagination.NewPage(apps, page, total), nil
}

// Delete soft-deletes a pending or rejected application. Owners may remove
// their own; admins any.
func (s *Service) Delete(ctx context.Context, appID id.ApplicationID) error {
	ctx, span := s.tracer.Start(ctx, "membership.Delete", trace.WithAttributes(
		attribute.String("application.id", appID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	app, err := s.load(ctx, actor, appID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(actor, access.ActionDelete, resourceOf(app)); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.Execute(ctx, appID, func(a *models.Application) error {
			return a.CanDelete()
		}, func(*models.Application) {})
		if err != nil {
			return err
		}
		if err := s.store.SoftDelete(ctx, appID, now); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventApplicationDeleted, locked, "")
	})
	if err != nil {
		return s.translate(actor, err)
	}
	s.logTransition(ctx, "deleted", app)
	s.metrics.IncTransition("delete")
	return nil
}

func (s *Service) load(ctx context.Context, actor id.Actor, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound(actor, access.KindApplication)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

func resourceOf(app *models.Application) access.Resource {
	return access.Resource{
		Kind:         access.KindApplication,
		Owner:        app.UserID,
		OwnerMutable: app.OwnerMutable(),
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, app *models.Application, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  app.UserID,
		Subject: app.ID.String(),
		Reason:  reason,
	})
}

func (s *Service) logTransition(ctx context.Context, transition string, app *models.Application) {
	s.logger.InfoContext(ctx, "membership application "+transition,
		"application_id", app.ID.String(),
		"user_id", app.UserID.String(),
		"status", string(app.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
}

// translate maps store and model errors onto the public error codes.
func (s *Service) translate(actor id.Actor, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return access.NotFound(actor, access.KindApplication)
	case errors.Is(err, sentinel.ErrConflict):
		return errDuplicate
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "membership application operation failed")
}
