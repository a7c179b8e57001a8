package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fudign/kfa-sub000/internal/event/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Service is the event registration lifecycle used by the handler.
type Service interface {
	CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	ListEvents(ctx context.Context, filter models.EventFilter, page pagination.Params) (pagination.Page[*models.Event], error)
	DeleteEvent(ctx context.Context, eventID id.EventID) error

	Register(ctx context.Context, eventID id.EventID, answers []byte) (*models.Registration, error)
	Approve(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	Reject(ctx context.Context, regID id.RegistrationID, notes string) (*models.Registration, error)
	MarkAttended(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	MarkNoShow(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	IssueCertificate(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	Cancel(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	Delete(ctx context.Context, regID id.RegistrationID) error
	Get(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	List(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Registration], error)
	ListMine(ctx context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Registration], error)
	Stats(ctx context.Context, eventID *id.EventID) (models.Overview, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.handleCreateEvent)
		r.Get("/", h.handleListEvents)
		r.Get("/{id}", h.handleGetEvent)
		r.Delete("/{id}", h.handleDeleteEvent)
		r.Post("/{id}/register", h.handleRegister)
	})
	r.Route("/event-registrations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/mine", h.handleListMine)
		r.Get("/stats", h.handleStats)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/approve", h.transition("approve registration", h.service.Approve))
		r.Post("/{id}/reject", h.handleReject)
		r.Post("/{id}/mark-attended", h.transition("mark attendance", h.service.MarkAttended))
		r.Post("/{id}/mark-no-show", h.transition("mark no-show", h.service.MarkNoShow))
		r.Post("/{id}/issue-certificate", h.transition("issue event certificate", h.service.IssueCertificate))
		r.Post("/{id}/cancel", h.transition("cancel registration", h.service.Cancel))
	})
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	event, err := h.service.CreateEvent(ctx, req.ParsedInput())
	if err != nil {
		h.fail(ctx, w, "create event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromEvent(event, requestcontext.Now(ctx)))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	page, err := pagination.FromQuery(q, pagination.Standard)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter := models.EventFilter{Search: strings.TrimSpace(q.Get("search"))}
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = models.ParseEventStatus(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("event_type"); raw != "" {
		if filter.Type, err = models.ParseEventType(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	upcoming, err := pagination.BoolParam(q, "upcoming")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.Upcoming = upcoming != nil && *upcoming

	result, err := h.service.ListEvents(ctx, filter, page)
	if err != nil {
		h.fail(ctx, w, "list events", err)
		return
	}
	now := requestcontext.Now(ctx)
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(result, func(e *models.Event) EventResponse {
		return FromEvent(e, now)
	}))
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.service.GetEvent(ctx, eventID)
	if err != nil {
		h.fail(ctx, w, "get event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvent(event, requestcontext.Now(ctx)))
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), eventID); err != nil {
		h.fail(r.Context(), w, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	reg, err := h.service.Register(ctx, eventID, req.Answers)
	if err != nil {
		h.fail(ctx, w, "register for event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRegistration(reg))
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.List(r.Context(), filter, page)
	h.writePage(w, r, "list registrations", result, err)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.listParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListMine(r.Context(), filter, page)
	h.writePage(w, r, "list own registrations", result, err)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var eventID *id.EventID
	if raw := r.URL.Query().Get("event_id"); raw != "" {
		parsed, err := id.ParseEventID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		eventID = &parsed
	}
	overview, err := h.service.Stats(ctx, eventID)
	if err != nil {
		h.fail(ctx, w, "registration statistics", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOverview(overview, requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	reg, err := h.service.Get(r.Context(), regID)
	h.writeRegistration(w, r, "get registration", reg, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), regID); err != nil {
		h.fail(r.Context(), w, "delete registration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	reg, err := h.service.Reject(ctx, regID, req.Notes)
	h.writeRegistration(w, r, "reject registration", reg, err)
}

// transition serves the body-less POST transitions.
func (h *Handler) transition(op string, fn func(context.Context, id.RegistrationID) (*models.Registration, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regID, ok := h.registrationID(w, r)
		if !ok {
			return
		}
		reg, err := fn(r.Context(), regID)
		h.writeRegistration(w, r, op, reg, err)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventID{}, false
	}
	return eventID, true
}

func (h *Handler) registrationID(w http.ResponseWriter, r *http.Request) (id.RegistrationID, bool) {
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RegistrationID{}, false
	}
	return regID, true
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
	if raw := q.Get("event_id"); raw != "" {
		eventID, err := id.ParseEventID(raw)
		if err != nil {
			return filter, page, err
		}
		filter.EventID = &eventID
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
	upcoming, err := pagination.BoolParam(q, "upcoming")
	if err != nil {
		return filter, page, err
	}
	filter.Upcoming = upcoming != nil && *upcoming
	filter.Search = strings.TrimSpace(q.Get("search"))
	return filter, page, nil
}

func (h *Handler) writeRegistration(w http.ResponseWriter, r *http.Request, op string, reg *models.Registration, err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistration(reg))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, op string, page pagination.Page[*models.Registration], err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Map(page, FromRegistration))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
