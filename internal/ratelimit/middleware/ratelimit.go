// Package middleware throttles anonymous write endpoints per client IP.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fudign/kfa-sub000/internal/ratelimit/metrics"
	"github.com/fudign/kfa-sub000/internal/ratelimit/models"
	"github.com/fudign/kfa-sub000/pkg/platform/httputil"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Store counts requests per key over a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, logger: logger}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerIP rejects requests with 429 once the client IP exhausts the policy. A
// store failure lets the request through.
func (m *Middleware) PerIP(policy models.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.store.Allow(ctx, policy.Key(ip), policy.Limit, policy.Window)
			if err != nil {
				m.metrics.Record(policy.Name, "error")
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"policy", policy.Name,
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.Record(policy.Name, "limited")
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"policy", policy.Name,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			m.metrics.Record(policy.Name, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    fmt.Sprintf("Too many attempts. Please try again in %d seconds.", result.RetryAfter),
		RetryAfter: result.RetryAfter,
	})
}
