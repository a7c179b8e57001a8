// Package httptransport assembles the HTTP surface: the shared middleware
// chain, operational endpoints and every bounded context's routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/platform/middleware/auth"
	"github.com/fudign/kfa-sub000/pkg/platform/middleware/metadata"
	request "github.com/fudign/kfa-sub000/pkg/platform/middleware/request"
	"github.com/fudign/kfa-sub000/pkg/platform/middleware/requesttime"
)

// Registrar mounts one context's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options configures NewRouter. Resolver is required.
type Options struct {
	Logger   *slog.Logger
	Resolver auth.ActorResolver
	Observer request.LatencyObserver
	Health   map[string]HealthCheck
	// Clock overrides the per-request time. Nil uses time.Now.
	Clock func() time.Time
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter wires the middleware chain and mounts every registrar.
func NewRouter(opts Options, registrars ...Registrar) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger, opts.Observer))
	r.Use(requesttime.WithClock(clock))
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthHandler(opts.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.ResolveActor(opts.Resolver, logger))
		for _, reg := range registrars {
			reg.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
