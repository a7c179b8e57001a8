package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fudign/kfa-sub000/internal/cpe/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Service is the CPE activity lifecycle used by the handler.
type Service interface {
	Submit(ctx context.Context, sub models.Submission) (*models.Activity, error)
	Approve(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	Reject(ctx context.Context, activityID id.ActivityID, reason string) (*models.Activity, error)
	Update(ctx context.Context, activityID id.ActivityID, patch models.Patch) (*models.Activity, error)
	Delete(ctx context.Context, activityID id.ActivityID) error
	Get(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Activity], error)
	ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Activity], error)
	MyStats(ctx context.Context, w models.Window) (models.Summary, error)
	Stats(ctx context.Context, w models.Window) (models.Overview, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/cpe-activities", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Get("/mine", h.handleListMine)
		r.Get("/mine/stats", h.handleMyStats)
		r.Get("/stats", h.handleStats)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/reject", h.handleReject)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SubmitActivityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	activity, err := h.service.Submit(ctx, req.ParsedSubmission())
	if err != nil {
		h.fail(ctx, w, "submit activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromActivity(activity))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.List(r.Context(), filter, page)
	h.writePage(w, r, "list activities", result, err)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListMine(r.Context(), filter, page)
	h.writePage(w, r, "list own activities", result, err)
}

func (h *Handler) handleMyStats(w http.ResponseWriter, r *http.Request) {
	window, err := windowParams(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.service.MyStats(r.Context(), window)
	if err != nil {
		h.fail(r.Context(), w, "CPE summary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	window, err := windowParams(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	overview, err := h.service.Stats(r.Context(), window)
	if err != nil {
		h.fail(r.Context(), w, "CPE statistics", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOverview(overview))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	activityID, ok := h.activityID(w, r)
	if !ok {
		return
	}
	activity, err := h.service.Get(r.Context(), activityID)
	h.writeActivity(w, r, "get activity", activity, err)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := h.activityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateActivityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	activity, err := h.service.Update(ctx, activityID, req.ParsedPatch())
	h.writeActivity(w, r, "update activity", activity, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	activityID, ok := h.activityID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), activityID); err != nil {
		h.fail(r.Context(), w, "delete activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	activityID, ok := h.activityID(w, r)
	if !ok {
		return
	}
	activity, err := h.service.Approve(r.Context(), activityID)
	h.writeActivity(w, r, "approve activity", activity, err)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := h.activityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectActivityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	activity, err := h.service.Reject(ctx, activityID, req.RejectionReason)
	h.writeActivity(w, r, "reject activity", activity, err)
}

func (h *Handler) activityID(w http.ResponseWriter, r *http.Request) (id.ActivityID, bool) {
	activityID, err := id.ParseActivityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ActivityID{}, false
	}
	return activityID, true
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
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = models.ParseStatus(raw); err != nil {
			return filter, page, err
		}
	}
	if raw := q.Get("category"); raw != "" {
		if filter.Category, err = models.ParseCategory(raw); err != nil {
			return filter, page, err
		}
	}
	if raw := q.Get("activity_type"); raw != "" {
		if filter.ActivityType, err = models.ParseActivityType(raw); err != nil {
			return filter, page, err
		}
	}
	if filter.Window, err = windowParams(q); err != nil {
		return filter, page, err
	}
	filter.Search = strings.TrimSpace(q.Get("search"))
	return filter, page, nil
}

func windowParams(q url.Values) (models.Window, error) {
	from, err := pagination.DateParam(q, "from_date")
	if err != nil {
		return models.Window{}, err
	}
	to, err := pagination.DateParam(q, "to_date")
	if err != nil {
		return models.Window{}, err
	}
	return models.Window{From: from, To: to}, nil
}

func (h *Handler) writeActivity(w http.ResponseWriter, r *http.Request, op string, activity *models.Activity, err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActivity(activity))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, op string, page pagination.Page[*models.Activity], err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(page, FromActivity))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
