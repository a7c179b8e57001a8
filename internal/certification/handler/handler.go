package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fudign/kfa-sub000/internal/certification/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// registryPageSize caps the public registry below the standard list limit.
var registryPageSize = pagination.PageSizeConfig{Default: pagination.DefaultPerPage, Max: 50}

// Service is the certification lifecycle used by the handler.
type Service interface {
	CreateProgram(ctx context.Context, in models.ProgramInput) (*models.Program, error)
	GetProgram(ctx context.Context, programID id.CertificationProgramID) (*models.Program, error)
	ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) (pagination.Page[*models.Program], error)
	DeleteProgram(ctx context.Context, programID id.CertificationProgramID) error

	Apply(ctx context.Context, programID id.CertificationProgramID, notes string) (*models.Certification, error)
	Approve(ctx context.Context, certID id.CertificationID) (*models.Certification, error)
	Reject(ctx context.Context, certID id.CertificationID, notes string) (*models.Certification, error)
	Issue(ctx context.Context, certID id.CertificationID, exam models.ExamOutcome) (*models.Certification, error)
	Revoke(ctx context.Context, certID id.CertificationID, notes string) (*models.Certification, error)
	Delete(ctx context.Context, certID id.CertificationID) error
	Get(ctx context.Context, certID id.CertificationID) (*models.Certification, error)
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Certification], error)
	ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Certification], error)

	Verify(ctx context.Context, number string) (models.Verification, error)
	Registry(ctx context.Context, filter models.RegistryFilter, page pagination.Params) (pagination.Page[models.RegistryEntry], error)
	Stats(ctx context.Context) (models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/certification-programs", func(r chi.Router) {
		r.Post("/", h.handleCreateProgram)
		r.Get("/", h.handleListPrograms)
		r.Get("/{id}", h.handleGetProgram)
		r.Delete("/{id}", h.handleDeleteProgram)
	})
	r.Route("/certifications", func(r chi.Router) {
		r.Post("/apply", h.handleApply)
		r.Get("/", h.handleList)
		r.Get("/mine", h.handleListMine)
		r.Get("/stats", h.handleStats)
		r.Get("/verify/{number}", h.handleVerify)
		r.Get("/registry", h.handleRegistry)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/reject", h.handleReject)
		r.Post("/{id}/issue", h.handleIssue)
		r.Post("/{id}/revoke", h.handleRevoke)
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
		h.fail(ctx, w, "create certification program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromProgram(program))
}

func (h *Handler) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pagination.FromQuery(q, pagination.Standard)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var filter models.ProgramFilter
	if raw := q.Get("type"); raw != "" {
		if filter.Type, err = models.ParseProgramType(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	active, err := pagination.BoolParam(q, "is_active")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.ActiveOnly = active != nil && *active

	result, err := h.service.ListPrograms(r.Context(), filter, page)
	if err != nil {
		h.fail(r.Context(), w, "list certification programs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(result, FromProgram))
}

func (h *Handler) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	programID, ok := h.programID(w, r)
	if !ok {
		return
	}
	program, err := h.service.GetProgram(r.Context(), programID)
	if err != nil {
		h.fail(r.Context(), w, "get certification program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProgram(program))
}

func (h *Handler) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	programID, ok := h.programID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProgram(r.Context(), programID); err != nil {
		h.fail(r.Context(), w, "delete certification program", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Certifications
// -----------------------------------------------------------------------------

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.Apply(ctx, req.ParsedProgramID(), req.Notes)
	if err != nil {
		h.fail(ctx, w, "apply for certification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCertification(cert))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.List(r.Context(), filter, page)
	h.writePage(w, r, "list certifications", result, err)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListMine(r.Context(), filter, page)
	h.writePage(w, r, "list own certifications", result, err)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "certification statistics", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStats(stats))
}

// handleVerify answers unknown numbers with {valid:false} rather than the
// usual error body.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.Verify(ctx, chi.URLParam(r, "number"))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, VerifyResponse{Valid: false, Message: err.Error()})
			return
		}
		h.fail(ctx, w, "verify certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(result))
}

func (h *Handler) handleRegistry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pagination.FromQuery(q, registryPageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter := models.RegistryFilter{Search: strings.TrimSpace(q.Get("search"))}
	if raw := q.Get("program_id"); raw != "" {
		programID, err := id.ParseCertificationProgramID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.ProgramID = &programID
	}
	result, err := h.service.Registry(r.Context(), filter, page)
	if err != nil {
		h.fail(r.Context(), w, "certification registry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(result, FromRegistryEntry))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	cert, err := h.service.Get(r.Context(), certID)
	h.writeCertification(w, r, "get certification", cert, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), certID); err != nil {
		h.fail(r.Context(), w, "delete certification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	cert, err := h.service.Approve(r.Context(), certID)
	h.writeCertification(w, r, "approve certification", cert, err)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.Reject(ctx, certID, req.Notes)
	h.writeCertification(w, r, "reject certification", cert, err)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.Issue(ctx, certID, req.ParsedOutcome())
	h.writeCertification(w, r, "issue certificate", cert, err)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, ok := h.certificationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.Revoke(ctx, certID, req.Notes)
	h.writeCertification(w, r, "revoke certificate", cert, err)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *Handler) programID(w http.ResponseWriter, r *http.Request) (id.CertificationProgramID, bool) {
	programID, err := id.ParseCertificationProgramID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CertificationProgramID{}, false
	}
	return programID, true
}

func (h *Handler) certificationID(w http.ResponseWriter, r *http.Request) (id.CertificationID, bool) {
	certID, err := id.ParseCertificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CertificationID{}, false
	}
	return certID, true
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
	if raw := q.Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return filter, page, err
		}
		filter.UserID = &userID
	}
	if raw := q.Get("program_id"); raw != "" {
		programID, err := id.ParseCertificationProgramID(raw)
		if err != nil {
			return filter, page, err
		}
		filter.ProgramID = &programID
	}
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = models.ParseStatus(raw); err != nil {
			return filter, page, err
		}
	}
	for name, target := range map[string]*bool{"active": &filter.Active, "expired": &filter.Expired} {
		v, err := pagination.BoolParam(q, name)
		if err != nil {
			return filter, page, err
		}
		*target = v != nil && *v
	}
	filter.Search = strings.TrimSpace(q.Get("search"))
	return filter, page, nil
}

func (h *Handler) writeCertification(w http.ResponseWriter, r *http.Request, op string, cert *models.Certification, err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertification(cert))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, op string, page pagination.Page[*models.Certification], err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(page, FromCertification))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
