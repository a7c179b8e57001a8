package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fudign/kfa-sub000/internal/membership/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	pstrings "github.com/fudign/kfa-sub000/pkg/platform/strings"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Service is the membership application lifecycle used by the handler.
type Service interface {
	Submit(ctx context.Context, sub models.Submission) (*models.Application, error)
	StartReview(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Approve(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Reject(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error)
	Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Application], error)
	ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Application], error)
	ListPending(ctx context.Context, page pagination.Params) (pagination.Page[*models.Application], error)
	Delete(ctx context.Context, appID id.ApplicationID) error
}

type Handler struct {
	service    Service
	logger     *slog.Logger
	submitMids []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmitMiddleware wraps only POST /applications, the one anonymous
// write endpoint.
func WithSubmitMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.submitMids = append(h.submitMids, mw...)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.With(h.submitMids...).Post("/", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Get("/mine", h.handleListMine)
		r.Get("/pending", h.handleListPending)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/review", h.handleStartReview)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/reject", h.handleReject)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	app, err := h.service.Submit(ctx, req.ParsedSubmission())
	if err != nil {
		h.fail(ctx, w, "submit application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromApplication(app))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.List(r.Context(), filter, page)
	h.writePage(w, r, "list applications", result, err)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListMine(r.Context(), filter, page)
	h.writePage(w, r, "list own applications", result, err)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query(), pagination.Standard)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ListPending(r.Context(), page)
	h.writePage(w, r, "list pending applications", result, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), appID)
	h.writeApplication(w, r, "get application", app, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), appID); err != nil {
		h.fail(r.Context(), w, "delete application", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStartReview(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	app, err := h.service.StartReview(r.Context(), appID)
	h.writeApplication(w, r, "start review", app, err)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Approve(r.Context(), appID)
	h.writeApplication(w, r, "approve application", app, err)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectApplicationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.Reject(ctx, appID, req.RejectionReason)
	h.writeApplication(w, r, "reject application", app, err)
}

func (h *Handler) applicationID(w http.ResponseWriter, r *http.Request) (id.ApplicationID, bool) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ApplicationID{}, false
	}
	return appID, true
}

func (h *Handler) listParams(w http.ResponseWriter, r *http.Request) (models.ListFilter, pagination.Params, bool) {
	q := r.URL.Query()
	page, err := pagination.FromQuery(q, pagination.Standard)
	if err != nil {
		httputil.WriteError(w, err)
		return models.ListFilter{}, pagination.Params{}, false
	}
	var filter models.ListFilter
	if raw := q.Get("status"); raw != "" {
		for _, s := range pstrings.SplitList(raw) {
			status, err := models.ParseStatus(s)
			if err != nil {
				httputil.WriteError(w, err)
				return models.ListFilter{}, pagination.Params{}, false
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := q.Get("membership_type"); raw != "" {
		mt, err := models.ParseMembershipType(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return models.ListFilter{}, pagination.Params{}, false
		}
		filter.MembershipType = mt
	}
	return filter, page, true
}

func (h *Handler) writeApplication(w http.ResponseWriter, r *http.Request, op string, app *models.Application, err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, op string, page pagination.Page[*models.Application], err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(page, FromApplication))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
