package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fudign/kfa-sub000/internal/program/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Service is the program enrollment lifecycle used by the handler.
type Service interface {
	CreateProgram(ctx context.Context, in models.ProgramInput) (*models.Program, error)
	GetProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) (pagination.Page[*models.Program], error)
	DeleteProgram(ctx context.Context, programID id.ProgramID) error

	Enroll(ctx context.Context, programID id.ProgramID) (*models.Enrollment, error)
	Approve(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	Reject(ctx context.Context, enrollmentID id.EnrollmentID, notes string) (*models.Enrollment, error)
	Start(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	UpdateProgress(ctx context.Context, enrollmentID id.EnrollmentID, progress int) (*models.Enrollment, error)
	Complete(ctx context.Context, enrollmentID id.EnrollmentID, score *int) (*models.Enrollment, error)
	Fail(ctx context.Context, enrollmentID id.EnrollmentID, score *int, notes string) (*models.Enrollment, error)
	IssueCertificate(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	Drop(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	Cancel(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	Delete(ctx context.Context, enrollmentID id.EnrollmentID) error
	Get(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Enrollment], error)
	ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Enrollment], error)
	Stats(ctx context.Context, programID *id.ProgramID) (models.Overview, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/programs", func(r chi.Router) {
		r.Post("/", h.handleCreateProgram)
		r.Get("/", h.handleListPrograms)
		r.Get("/{id}", h.handleGetProgram)
		r.Delete("/{id}", h.handleDeleteProgram)
		r.Post("/{id}/enroll", h.handleEnroll)
	})
	r.Route("/program-enrollments", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/mine", h.handleListMine)
		r.Get("/stats", h.handleStats)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Patch("/{id}/progress", h.handleProgress)
		r.Post("/{id}/approve", h.transition("approve enrollment", h.service.Approve))
		r.Post("/{id}/reject", h.handleReject)
		r.Post("/{id}/start", h.transition("start enrollment", h.service.Start))
		r.Post("/{id}/complete", h.handleComplete)
		r.Post("/{id}/fail", h.handleFail)
		r.Post("/{id}/issue-certificate", h.transition("issue program certificate", h.service.IssueCertificate))
		r.Post("/{id}/drop", h.transition("drop enrollment", h.service.Drop))
		r.Post("/{id}/cancel", h.transition("cancel enrollment", h.service.Cancel))
	})
}

// -----------------------------------------------------------------------------
// Programs
// -----------------------------------------------------------------------------

func (h *Handler) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateProgramRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	program, err := h.service.CreateProgram(ctx, req.ParsedInput())
	if err != nil {
		h.fail(ctx, w, "create program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromProgram(program, requestcontext.Now(ctx)))
}

func (h *Handler) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	page, err := pagination.FromQuery(q, pagination.Standard)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter := models.ProgramFilter{Search: strings.TrimSpace(q.Get("search"))}
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = models.ParseProgramStatus(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("program_type"); raw != "" {
		if filter.Type, err = models.ParseProgramType(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.service.ListPrograms(ctx, filter, page)
	if err != nil {
		h.fail(ctx, w, "list programs", err)
		return
	}
	now := requestcontext.Now(ctx)
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(result, func(p *models.Program) ProgramResponse {
		return FromProgram(p, now)
	}))
}

func (h *Handler) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, ok := h.programID(w, r)
	if !ok {
		return
	}
	program, err := h.service.GetProgram(ctx, programID)
	if err != nil {
		h.fail(ctx, w, "get program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProgram(program, requestcontext.Now(ctx)))
}

func (h *Handler) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	programID, ok := h.programID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProgram(r.Context(), programID); err != nil {
		h.fail(r.Context(), w, "delete program", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, ok := h.programID(w, r)
	if !ok {
		return
	}
	e, err := h.service.Enroll(ctx, programID)
	if err != nil {
		h.fail(ctx, w, "enroll in program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromEnrollment(e))
}

// -----------------------------------------------------------------------------
// Enrollments
// -----------------------------------------------------------------------------

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.List(r.Context(), filter, page)
	h.writePage(w, r, "list enrollments", result, err)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListMine(r.Context(), filter, page)
	h.writePage(w, r, "list own enrollments", result, err)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var programID *id.ProgramID
	if raw := r.URL.Query().Get("program_id"); raw != "" {
		parsed, err := id.ParseProgramID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		programID = &parsed
	}
	overview, err := h.service.Stats(ctx, programID)
	if err != nil {
		h.fail(ctx, w, "enrollment statistics", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOverview(overview, requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	enrollmentID, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), enrollmentID)
	h.writeEnrollment(w, r, "get enrollment", e, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	enrollmentID, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), enrollmentID); err != nil {
		h.fail(r.Context(), w, "delete enrollment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrollmentID, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	e, err := h.service.Reject(ctx, enrollmentID, req.Notes)
	h.writeEnrollment(w, r, "reject enrollment", e, err)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrollmentID, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProgressRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	e, err := h.service.UpdateProgress(ctx, enrollmentID, *req.Progress)
	h.writeEnrollment(w, r, "update progress", e, err)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrollmentID, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	e, err := h.service.Complete(ctx, enrollmentID, req.ExamScore)
	h.writeEnrollment(w, r, "complete enrollment", e, err)
}

func (h *Handler) handleFail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrollmentID, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FailRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	e, err := h.service.Fail(ctx, enrollmentID, req.ExamScore, req.Notes)
	h.writeEnrollment(w, r, "fail enrollment", e, err)
}

// transition serves the body-less POST transitions.
func (h *Handler) transition(op string, fn func(context.Context, id.EnrollmentID) (*models.Enrollment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrollmentID, ok := h.enrollmentID(w, r)
		if !ok {
			return
		}
		e, err := fn(r.Context(), enrollmentID)
		h.writeEnrollment(w, r, op, e, err)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *Handler) programID(w http.ResponseWriter, r *http.Request) (id.ProgramID, bool) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProgramID{}, false
	}
	return programID, true
}

func (h *Handler) enrollmentID(w http.ResponseWriter, r *http.Request) (id.EnrollmentID, bool) {
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EnrollmentID{}, false
	}
	return enrollmentID, true
}

func (h *Handler) listParams(w http.ResponseWriter, r *http.Request) (models.ListFilter, pagination.Params, bool) {
	filter, page, err := parseListQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return models.ListFilter{}, pagination.Params{}, false
	}
	return filter, page, true
}

func parseListQuery(q url.Values) (models.ListFilter, pagination.Params, error) {
	var filter models.ListFilter
	page, err := pagination.FromQuery(q, pagination.Standard)
	if err != nil {
		return filter, page, err
	}
	if raw := q.Get("program_id"); raw != "" {
		programID, err := id.ParseProgramID(raw)
		if err != nil {
			return filter, page, err
		}
		filter.ProgramID = &programID
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return filter, page, err
		}
		filter.UserID = &userID
	}
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = models.ParseStatus(raw); err != nil {
			return filter, page, err
		}
	}
	active, err := pagination.BoolParam(q, "active")
	if err != nil {
		return filter, page, err
	}
	filter.Active = active != nil && *active
	filter.Search = strings.TrimSpace(q.Get("search"))
	return filter, page, nil
}

func (h *Handler) writeEnrollment(w http.ResponseWriter, r *http.Request, op string, e *models.Enrollment, err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEnrollment(e))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, op string, page pagination.Page[*models.Enrollment], err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(page, FromEnrollment))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
