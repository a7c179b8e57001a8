// Package service runs certification programs, the certification lifecycle
// and public certificate verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fudign/kfa-sub000/internal/access"
	"github.com/fudign/kfa-sub000/internal/certification/metrics"
	"github.com/fudign/kfa-sub000/internal/certification/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Store persists programs, certifications and the certificate number
// sequences.
type Store interface {
	CreateProgram(ctx context.Context, program *models.Program) error
	FindProgram(ctx context.Context, programID id.CertificationProgramID) (*models.Program, error)
	ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) ([]*models.Program, int, error)
	DeleteProgram(ctx context.Context, programID id.CertificationProgramID, now time.Time) error
	CountHeld(ctx context.Context, programID id.CertificationProgramID) (int, error)

	NextSequence(ctx context.Context, prefix string) (int, error)
	HasLive(ctx context.Context, userID id.UserID, programID id.CertificationProgramID) (bool, error)
	Create(ctx context.Context, cert *models.Certification) error
	FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error)
	FindVerification(ctx context.Context, number string) (*models.VerificationRecord, error)
	Execute(ctx context.Context, certID id.CertificationID, validate func(*models.Certification) error, mutate func(*models.Certification)) (*models.Certification, error)
	SoftDelete(ctx context.Context, certID id.CertificationID, now time.Time) error
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Certification, int, error)
	Registry(ctx context.Context, filter models.RegistryFilter, page pagination.Params) ([]models.RegistryEntry, int, error)

	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	CountExpired(ctx context.Context, now time.Time) (int, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
	CountPassedByProgram(ctx context.Context) ([]models.ProgramCount, error)
}

// VerificationCache is an out-of-process read cache for Verify.
type VerificationCache interface {
	Get(ctx context.Context, number string) (*models.VerificationRecord, bool, error)
	Set(ctx context.Context, rec models.VerificationRecord) error
	Invalidate(ctx context.Context, number string) error
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
	cache   VerificationCache
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

// WithCache enables the verification cache.
func WithCache(c VerificationCache) Option {
	return func(s *Service) { s.cache = c }
}

func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     runner,
		guard:  access.NewGuard(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("kfa/certification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errDuplicate          = dErrors.New(dErrors.CodeDuplicate, "you already have an active or pending certification for this program")
	errProgramNotFound    = dErrors.New(dErrors.CodeNotFound, "certification program not found")
	errCodeTaken          = dErrors.New(dErrors.CodeDuplicate, "certification program code is already in use")
	errCertificateUnknown = dErrors.New(dErrors.CodeNotFound, "Certificate not found")
)

// -----------------------------------------------------------------------------
// Programs
// -----------------------------------------------------------------------------

func (s *Service) CreateProgram(ctx context.Context, in models.ProgramInput) (*models.Program, error) {
	ctx, span := s.tracer.Start(ctx, "certification.CreateProgram")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionManage, access.Collection(access.KindCertificationProgram)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var program *models.Program
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		program, err = models.NewProgram(id.NewCertificationProgramID(), in, now)
		if err != nil {
			return err
		}
		if err := s.store.CreateProgram(ctx, program); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return errCodeTaken
			}
			return err
		}
		return s.emit(ctx, audit.EventCertificationProgramCreated, actor.UserID, program.ID.String(), "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logger.InfoContext(ctx, "certification program created",
		"program_id", program.ID.String(),
		"code", program.Code,
		"request_id", requestcontext.RequestID(ctx),
	)
	return program, nil
}

// GetProgram returns active programs to everyone and any program to admins.
func (s *Service) GetProgram(ctx context.Context, programID id.CertificationProgramID) (*models.Program, error) {
	actor := requestcontext.Actor(ctx)
	program, err := s.store.FindProgram(ctx, programID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errProgramNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification program")
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:   access.KindCertificationProgram,
		Public: program.IsActive,
	}); err != nil {
		return nil, err
	}
	return program, nil
}

func (s *Service) ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) (pagination.Page[*models.Program], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.Resource{
		Kind:   access.KindCertificationProgram,
		Public: true,
	}); err != nil {
		return pagination.Page[*models.Program]{}, err
	}
	if !actor.IsAdmin() {
		filter.ActiveOnly = true
	}
	programs, total, err := s.store.ListPrograms(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Program]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certification programs")
	}
	return pagination.NewPage(programs, page, total), nil
}

// DeleteProgram refuses while anyone holds or is earning the certificate.
func (s *Service) DeleteProgram(ctx context.Context, programID id.CertificationProgramID) error {
	ctx, span := s.tracer.Start(ctx, "certification.DeleteProgram", trace.WithAttributes(
		attribute.String("program.id", programID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionManage, access.Collection(access.KindCertificationProgram)); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindProgram(ctx, programID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errProgramNotFound
			}
			return err
		}
		held, err := s.store.CountHeld(ctx, programID)
		if err != nil {
			return err
		}
		if held > 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "program has in-progress or passed certifications")
		}
		if err := s.store.DeleteProgram(ctx, programID, now); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventCertificationProgramDeleted, actor.UserID, programID.String(), "")
	})
	if err != nil {
		return s.translate(actor, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Certification lifecycle
// -----------------------------------------------------------------------------

// Apply opens a pending certification for the caller and assigns its
// certificate number.
func (s *Service) Apply(ctx context.Context, programID id.CertificationProgramID, notes string) (*models.Certification, error) {
	ctx, span := s.tracer.Start(ctx, "certification.Apply", trace.WithAttributes(
		attribute.String("program.id", programID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionCreate, access.Collection(access.KindCertification)); err != nil {
		return nil, err
	}
	notes, err := id.ValidateOptionalNote(notes, "notes")
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var cert *models.Certification
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		program, err := s.store.FindProgram(ctx, programID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errProgramNotFound
			}
			return err
		}
		live, err := s.store.HasLive(ctx, actor.UserID, programID)
		if err != nil {
			return err
		}
		if live {
			return errDuplicate
		}
		prefix := models.SequencePrefix(program.Code, now.Year())
		seq, err := s.store.NextSequence(ctx, prefix)
		if err != nil {
			return err
		}
		cert, err = models.NewCertification(id.NewCertificationID(), program, models.Application{
			UserID:     actor.UserID,
			HolderName: actor.DisplayName(),
			Number:     models.CertificateNumber(prefix, seq),
			Notes:      notes,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, cert); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return errDuplicate
			}
			return err
		}
		return s.emit(ctx, audit.EventCertificationApplied, cert.UserID, cert.ID.String(), "")
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	span.SetAttributes(attribute.String("certification.id", cert.ID.String()))
	s.logTransition(ctx, "applied", cert)
	s.metrics.IncTransition("apply")
	return cert, nil
}

func (s *Service) Approve(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	cert, err := s.decide(ctx, certID, decision{
		name:     "approve",
		action:   access.ActionApprove,
		event:    audit.EventCertificationApproved,
		validate: (*models.Certification).CanApprove,
		mutate: func(c *models.Certification, actor id.UserID, now time.Time) {
			c.ApplyApproval(actor, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cert.CertificateNumber)
	return cert, nil
}

func (s *Service) Reject(ctx context.Context, certID id.CertificationID, notes string) (*models.Certification, error) {
	notes, err := id.ValidateReason(notes, "notes")
	if err != nil {
		return nil, err
	}
	cert, err := s.decide(ctx, certID, decision{
		name:     "reject",
		action:   access.ActionReject,
		event:    audit.EventCertificationRejected,
		reason:   notes,
		validate: (*models.Certification).CanReject,
		mutate: func(c *models.Certification, actor id.UserID, now time.Time) {
			c.ApplyRejection(actor, notes, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cert.CertificateNumber)
	return cert, nil
}

// Issue grants the certificate. Expiry follows the program's validity.
func (s *Service) Issue(ctx context.Context, certID id.CertificationID, exam models.ExamOutcome) (*models.Certification, error) {
	if err := exam.Validate(); err != nil {
		return nil, err
	}
	var validity int
	cert, err := s.decide(ctx, certID, decision{
		name:   "issue",
		action: access.ActionIssue,
		event:  audit.EventCertificationIssued,
		before: func(ctx context.Context, c *models.Certification) error {
			program, err := s.store.FindProgram(ctx, c.ProgramID)
			if err != nil {
				return err
			}
			validity = program.ValidityMonths
			return nil
		},
		validate: (*models.Certification).CanIssue,
		mutate: func(c *models.Certification, actor id.UserID, now time.Time) {
			c.ApplyIssue(actor, exam, validity, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cert.CertificateNumber)
	return cert, nil
}

func (s *Service) Revoke(ctx context.Context, certID id.CertificationID, notes string) (*models.Certification, error) {
	notes, err := id.ValidateReason(notes, "notes")
	if err != nil {
		return nil, err
	}
	cert, err := s.decide(ctx, certID, decision{
		name:     "revoke",
		action:   access.ActionRevoke,
		event:    audit.EventCertificationRevoked,
		reason:   notes,
		validate: (*models.Certification).CanRevoke,
		mutate: func(c *models.Certification, actor id.UserID, now time.Time) {
			c.ApplyRevocation(actor, notes, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cert.CertificateNumber)
	return cert, nil
}

type decision struct {
	name     string
	action   access.Action
	event    audit.AuditEvent
	reason   string
	before   func(ctx context.Context, c *models.Certification) error
	validate func(*models.Certification) error
	mutate   func(c *models.Certification, actor id.UserID, now time.Time)
}

func (s *Service) decide(ctx context.Context, certID id.CertificationID, d decision) (*models.Certification, error) {
	ctx, span := s.tracer.Start(ctx, "certification."+d.name, trace.WithAttributes(
		attribute.String("certification.id", certID.String()),
		attribute.String("transition", d.name),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, d.action, access.Collection(access.KindCertification)); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var cert *models.Certification
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if d.before != nil {
			current, err := s.store.FindByID(ctx, certID)
			if err != nil {
				return err
			}
			if err := d.before(ctx, current); err != nil {
				return err
			}
		}
		var err error
		cert, err = s.store.Execute(ctx, certID, d.validate, func(c *models.Certification) {
			d.mutate(c, actor.UserID, now)
		})
		if err != nil {
			return err
		}
		return s.emit(ctx, d.event, cert.UserID, cert.ID.String(), d.reason)
	})
	if err != nil {
		return nil, s.translate(actor, err)
	}
	s.logTransition(ctx, d.name, cert)
	s.metrics.IncTransition(d.name)
	return cert, nil
}

// Delete soft-deletes a certification. Owners may withdraw a pending
// application; admins may remove anything not in progress or passed.
func (s *Service) Delete(ctx context.Context, certID id.CertificationID) error {
	ctx, span := s.tracer.Start(ctx, "certification.Delete", trace.WithAttributes(
		attribute.String("certification.id", certID.String()),
	))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	current, err := s.load(ctx, actor, certID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(actor, access.ActionDelete, access.Resource{
		Kind:         access.KindCertification,
		Owner:        current.UserID,
		OwnerMutable: current.Status == models.StatusPending,
	}); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.Execute(ctx, certID, func(c *models.Certification) error {
			if !actor.IsAdmin() && c.Status != models.StatusPending {
				return dErrors.New(dErrors.CodeInvariantViolation, "only pending applications can be withdrawn")
			}
			return c.CanDelete()
		}, func(*models.Certification) {})
		if err != nil {
			return err
		}
		if err := s.store.SoftDelete(ctx, certID, now); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventCertificationDeleted, locked.UserID, locked.ID.String(), "")
	})
	if err != nil {
		return s.translate(actor, err)
	}
	s.invalidate(ctx, current.CertificateNumber)
	s.logTransition(ctx, "deleted", current)
	s.metrics.IncTransition("delete")
	return nil
}

func (s *Service) Get(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	actor := requestcontext.Actor(ctx)
	cert, err := s.load(ctx, actor, certID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionRead, access.Resource{
		Kind:  access.KindCertification,
		Owner: cert.UserID,
	}); err != nil {
		return nil, err
	}
	return cert, nil
}

// List returns every matching certification to admins and the caller's own
// to everyone else.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Certification], error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsAdmin() {
		return s.ListMine(ctx, filter, page)
	}
	if err := s.guard.Authorize(actor, access.ActionListAll, access.Collection(access.KindCertification)); err != nil {
		return pagination.Page[*models.Certification]{}, err
	}
	return s.list(ctx, filter, page)
}

func (s *Service) ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Certification], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.OwnedBy(access.KindCertification, actor.UserID)); err != nil {
		return pagination.Page[*models.Certification]{}, err
	}
	filter.UserID = &actor.UserID
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Certification], error) {
	filter.At = requestcontext.Now(ctx)
	certs, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*models.Certification]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certifications")
	}
	return pagination.NewPage(certs, page, total), nil
}

// -----------------------------------------------------------------------------
// Public verification and registry
// -----------------------------------------------------------------------------

// Verify looks a certificate up by number. Validity is computed at call
// time even when the record comes from the cache.
func (s *Service) Verify(ctx context.Context, number string) (models.Verification, error) {
	ctx, span := s.tracer.Start(ctx, "certification.Verify")
	defer span.End()

	number = strings.TrimSpace(number)
	if number == "" {
		s.metrics.IncVerification("not_found")
		return models.Verification{}, errCertificateUnknown
	}
	now := requestcontext.Now(ctx)

	rec, err := s.lookup(ctx, number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncVerification("not_found")
			return models.Verification{}, errCertificateUnknown
		}
		return models.Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify certificate")
	}
	result := rec.Verify(now)
	if result.Valid {
		s.metrics.IncVerification("valid")
	} else {
		s.metrics.IncVerification("invalid")
	}
	return result, nil
}

func (s *Service) lookup(ctx context.Context, number string) (*models.VerificationRecord, error) {
	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, number)
		if err != nil {
			s.logger.WarnContext(ctx, "verification cache read failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		if ok {
			return rec, nil
		}
	}
	rec, err := s.store.FindVerification(ctx, number)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, *rec); err != nil {
			s.logger.WarnContext(ctx, "verification cache write failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	return rec, nil
}

// Registry lists certified specialists whose certificate is currently
// active.
func (s *Service) Registry(ctx context.Context, filter models.RegistryFilter, page pagination.Params) (pagination.Page[models.RegistryEntry], error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionList, access.Resource{
		Kind:   access.KindCertification,
		Public: true,
	}); err != nil {
		return pagination.Page[models.RegistryEntry]{}, err
	}
	filter.At = requestcontext.Now(ctx)
	entries, total, err := s.store.Registry(ctx, filter, page)
	if err != nil {
		return pagination.Page[models.RegistryEntry]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registry")
	}
	return pagination.NewPage(entries, page, total), nil
}

// Stats is the admin overview. The counts run concurrently.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	actor := requestcontext.Actor(ctx)
	if err := s.guard.Authorize(actor, access.ActionStats, access.Collection(access.KindCertification)); err != nil {
		return models.Stats{}, err
	}
	now := requestcontext.Now(ctx)

	var stats models.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.ByStatus, err = s.store.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Expired, err = s.store.CountExpired(gctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Active, err = s.store.CountActive(gctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ByProgram, err = s.store.CountPassedByProgram(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute certification statistics")
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	return stats, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) load(ctx context.Context, actor id.Actor, certID id.CertificationID) (*models.Certification, error) {
	cert, err := s.store.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound(actor, access.KindCertification)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
	}
	return cert, nil
}

// invalidate drops a cached verification after a committed change. A
// failure only leaves a stale entry until its TTL.
func (s *Service) invalidate(ctx context.Context, number string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, number); err != nil {
		s.logger.WarnContext(ctx, "verification cache invalidation failed",
			"certificate_number", number,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, subject id.UserID, entityID, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(event),
		UserID:  subject,
		Subject: entityID,
		Reason:  reason,
	})
}

func (s *Service) logTransition(ctx context.Context, transition string, c *models.Certification) {
	s.logger.InfoContext(ctx, "certification "+transition,
		"certification_id", c.ID.String(),
		"user_id", c.UserID.String(),
		"certificate_number", c.CertificateNumber,
		"status", string(c.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) translate(actor id.Actor, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return access.NotFound(actor, access.KindCertification)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeDuplicate, "certification already exists")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "certification operation failed")
}
