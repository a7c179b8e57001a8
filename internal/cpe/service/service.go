// Package service runs the CPE activity lifecycle and the hour aggregates
// built on approved activities.
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
	"github.com/fudign/kfa-sub000/internal/cpe/metrics"
	"github.com/fudign/kfa-sub000/internal/cpe/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Store persists activities and answers the hour aggregates. Aggregates only
// ever count approved, non-deleted rows.
type Store interface {
	Create(ctx context.Context, activity *models.Activity) error
	FindByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	FindBySource(ctx context.Context, activityType models.ActivityType, sourceID uuid.UUID, userID id.UserID) (*models.Activity, error)
	Execute(ctx context.Context, activityID id.ActivityID, validate func(*models.Activity) error, mutate func(*models.Activity)) (*models.Activity, error)
	SoftDelete(ctx context.Context, activityID id.ActivityID, now time.Time) error
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Activity, int, error)
	SumApprovedHours(ctx context.Context, userID *id.UserID, w models.Window) (float64, error)
	ApprovedHoursByCategory(ctx context.Context, userID *id.UserID, w models.Window) (map[models.Category]float64, error)
	CountByStatus(ctx context.Context, userID *id.UserID, w models.Window) (map[models.Status]int, error)
}

type Authorizer interface {
	Authorize(actor id.Actor, action access.Action, res access.Resource) error
}

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

func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     runner,
		guard:  access.NewGuard(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("kfa/cpe"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records an external activity for the caller. It always starts
// pending.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "cpe.Submit")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionCreate, access.Collection(access.KindCPEActivity)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var activity *models.Activity
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		activity, err = models.NewExternal(id.NewActivityID(), actor.UserID, sub, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, activity); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventCPESubmitted, activity, "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("activity.id", activity.ID.String()))
	s.logTransition(ctx, "submitted", activity)
	s.metrics.IncTransition("submit")
	return activity, nil
}

// Credit records a pre-approved activity on behalf of the system. A second
// credit for the same (type, source, user) returns the first one unchanged.
// It joins the caller's transaction when there is one.
func (s *Service) Credit(ctx context.Context, c models.Credit) (*models.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "cpe.Credit", trace.WithAttributes(
		attribute.String("activity.type", string(c.ActivityType)),
		attribute.String("activity.source_id", c.SourceID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		activity *models.Activity
		created  bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindBySource(ctx, c.ActivityType, c.SourceID, c.UserID)
		if err == nil {
			activity = existing
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		activity, err = models.NewCredited(id.NewActivityID(), c, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, activity); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				activity, err = s.store.FindBySource(ctx, c.ActivityType, c.SourceID, c.UserID)
				return err
			}
			return err
		}
		created = true
		return s.emit(ctx, audit.EventCPECredited, activity, "")
	})
	if err != nil {
		return nil, s.translate(requestcontext.Actor(ctx), err)
	}
	if created {
		s.logTransition(ctx, "credited", activity)
		s.metrics.IncTransition("credit")
		s.metrics.AddHoursCredited(string(activity.ActivityType), activity.Hours)
	}
	return activity, nil
}

func (s *Service) Approve(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	activity, err := s.review(ctx, activityID, review{
		name:   "approve",
		action: access.ActionApprove,
		event:  audit.EventCPEApproved,
		validate: func(a *models.Activity) error {
			return a.CanApprove()
		},
		mutate: func(a *models.Activity, approver id.UserID, now time.Time) {
			a.ApplyApproval(approver, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddHoursCredited(string(activity.ActivityType), activity.Hours)
	return activity, nil
}

func (s *Service) Reject(ctx context.Context, activityID id.ActivityID, reason string) (*models.Activity, error) {
	reason, err := id.ValidateReason(reason, "rejection_reason")
	if err != nil {
		return nil, err
	}
	return s.review(ctx, activityID, review{
		name:   "reject",
		action: access.ActionReject,
		event:  audit.EventCPERejected,
		reason: reason,
		validate: func(a *models.Activity) error {
			return a.CanReject()
		},
		mutate: func(a *models.Activity, approver id.UserID, now time.Time) {
			a.ApplyRejection(approver, reason, now)
		},
	})
}

type review struct {
	name     string
	action   access.Action
	event    audit.AuditEvent
	reason   string
	validate func(*models.Activity) error
	mutate   func(a *models.Activity, approver id.UserID, now time.Time)
}

func (s *Service) review(ctx context.Context, activityID id.ActivityID, r review) (*models.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "cpe."+r.name, trace.WithAttributes(
		attribute.String("activity.id", activityID.String()),
		attribute.String("transition", r.name),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, r.action, access.Collection(access.KindCPEActivity)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var activity *models.Activity
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		activity, err = s.store.Execute(ctx, activityID, r.validate, func(a *models.Activity) {
			r.mutate(a, actor.UserID, now)
		})
		if err != nil {
			return err
		}
		return s.emit(ctx, r.event, activity, r.reason)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, r.name, activity)
	s.metrics.IncTransition(r.name)
	return activity, nil
}

// Update replaces the editable fields. Owners may edit only pending
// activities; admins any external activity.
func (s *Service) Update(ctx context.Context, activityID id.ActivityID, patch models.Patch) (*models.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "cpe.Update", trace.WithAttributes(
		attribute.String("activity.id", activityID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	current, err := s.load(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionUpdate, access.Resource{
		Kind:         access.KindCPEActivity,
		Owner:        current.UserID,
		OwnerMutable: current.OwnerEditable(),
	}); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var activity *models.Activity
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		activity, err = s.store.Execute(ctx, activityID, func(a *models.Activity) error {
			if !actor.IsAdmin() && !a.OwnerEditable() {
				return dErrors.New(dErrors.CodeInvariantViolation, "only pending activities can be edited")
			}
			return a.CanUpdate(a.Patched(patch), now)
		}, func(a *models.Activity) {
			a.ApplyUpdate(a.Patched(patch), now)
		})
		if err != nil {
			return err
		}
		return s.emit(ctx, audit.EventCPEUpdated, activity, "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, "updated", activity)
	s.metrics.IncTransition("update")
	return activity, nil
}

// Delete soft-deletes an activity. Owners may delete only pending or
// rejected activities; admins any.
func (s *Service) Delete(ctx context.Context, activityID id.ActivityID) error {
	ctx, span := s.tracer.Start(ctx, "cpe.Delete", trace.WithAttributes(
		attribute.String("activity.id", activityID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	current, err := s.load(ctx, actor, activityID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(actor, access.ActionDelete, access.Resource{
		Kind:         access.KindCPEActivity,
		Owner:        current.UserID,
		OwnerMutable: current.OwnerRemovable(),
	}); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.Execute(ctx, activityID, func(a *models.Activity) error {
			if !actor.IsAdmin() && !a.OwnerRemovable() {
				return dErrors.New(dErrors.CodeInvariantViolation, "only pending or rejected activities can be deleted")
			}
			return nil
		}, func(*models.Activity) {})
		if err != nil {
			return err
		}
		if err := s.store.SoftDelete(ctx, activityID, now); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventCPEDeleted, locked, "")
	})
	if err != nil {
		return s.translate(actor, err)
	}
	s.logTransition(ctx, "deleted", current)
	s.metrics.IncTransition("delete")
	return nil
}

func (s *Service) Get(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	actor := requestcontext.Actor(ctx)
	activity, err := s.load(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:  access.KindCPEActivity,
		Owner: activity.UserID,
	}); err != nil {
		return nil, err
	}
	return activity, nil
}

// List returns all matching activities to admins and the caller's own to
// everyone else.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Activity], error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsAdmin() {
		return s.ListMine(ctx, filter, page)
	}
	if err := s.guard.Authorize(actor, access.ActionListAll, access.Collection(access.KindCPEActivity)); err != nil {
		return pagination.Page[*models.Activity]{}, err
	}
	return s.list(ctx, filter, page)
}

func (s *Service) ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Activity], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.OwnedBy(access.KindCPEActivity, actor.UserID)); err != nil {
		return pagination.Page[*models.Activity]{}, err
	}
	filter.UserID = &actor.UserID
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Activity], error) {
	activities, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Activity]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activities")
	}
	return pagination.NewPage(activities, page, total), nil
}

// TotalHoursForUser sums approved hours within w.
func (s *Service) TotalHoursForUser(ctx context.Context, userID id.UserID, w models.Window) (float64, error) {
	total, err := s.store.SumApprovedHours(ctx, &userID, w)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum hours")
	}
	return total, nil
}

// HoursByCategory sums approved hours per category within w.
func (s *Service) HoursByCategory(ctx context.Context, userID id.UserID, w models.Window) (map[models.Category]float64, error) {
	byCategory, err := s.store.ApprovedHoursByCategory(ctx, &userID, w)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum hours by category")
	}
	return byCategory, nil
}

// MyStats summarizes the caller's activities within w.
func (s *Service) MyStats(ctx context.Context, w models.Window) (models.Summary, error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:  access.KindCPEActivity,
		Owner: actor.UserID,
	}); err != nil {
		return models.Summary{}, err
	}
	year := requestcontext.Now(ctx).UTC().Year()
	userID := actor.UserID
	summary := models.Summary{CurrentYear: year}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.TotalHours, err = s.store.SumApprovedHours(gctx, &userID, w)
		return err
	})
	g.Go(func() error {
		var err error
		summary.CurrentYearHours, err = s.store.SumApprovedHours(gctx, &userID, models.YearWindow(year))
		return err
	})
	g.Go(func() error {
		var err error
		summary.ByCategory, err = s.store.ApprovedHoursByCategory(gctx, &userID, w)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ByStatus, err = s.store.CountByStatus(gctx, &userID, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute CPE summary")
	}
	for _, n := range summary.ByStatus {
		summary.ActivitiesCount += n
	}
	return summary, nil
}

// Stats is the admin overview. An open window defaults to the start of the
// current year through today.
func (s *Service) Stats(ctx context.Context, w models.Window) (models.Overview, error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionStats, access.Collection(access.KindCPEActivity)); err != nil {
		return models.Overview{}, err
	}
	now := requestcontext.Now(ctx).UTC()
	if w.From == nil {
		from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		w.From = &from
	}
	if w.To == nil {
		to := models.DateOnly(now)
		w.To = &to
	}
	overview := models.Overview{From: *w.From, To: *w.To}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview.ByStatus, err = s.store.CountByStatus(gctx, nil, w)
		return err
	})
	g.Go(func() error {
		var err error
		overview.ByCategory, err = s.store.ApprovedHoursByCategory(gctx, nil, w)
		return err
	})
	g.Go(func() error {
		var err error
		overview.TotalApprovedHours, err = s.store.SumApprovedHours(gctx, nil, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Overview{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute CPE statistics")
	}
	if n := overview.ByStatus[models.StatusApproved]; n > 0 {
		overview.AverageHours = overview.TotalApprovedHours / float64(n)
	}
	return overview, nil
}

func (s *Service) load(ctx context.Context, actor id.Actor, activityID id.ActivityID) (*models.Activity, error) {
	activity, err := s.store.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound(actor, access.KindCPEActivity)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity")
	}
	return activity, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, a *models.Activity, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  a.UserID,
		Subject: a.ID.String(),
		Reason:  reason,
	})
}

func (s *Service) logTransition(ctx context.Context, transition string, a *models.Activity) {
	s.logger.InfoContext(ctx, "cpe activity "+transition,
		"activity_id", a.ID.String(),
		"user_id", a.UserID.String(),
		"activity_type", string(a.ActivityType),
		"status", string(a.Status),
		"hours", a.Hours,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) translate(actor id.Actor, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return access.NotFound(actor, access.KindCPEActivity)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeDuplicate, "activity already recorded")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "CPE activity operation failed")
}
