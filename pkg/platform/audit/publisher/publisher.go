// Package publisher emits lifecycle events with fail-closed semantics: the
// write happens inside the caller's transaction, and a failed write fails the
// transition.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	audit "github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

// Publisher enriches events from the request context and appends them.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes event through the store. Timestamp, request id and client
// metadata are filled from ctx when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Subject == "" {
		return fmt.Errorf("audit event requires Subject")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.Client == "" {
		event.Client = requestcontext.UserAgent(ctx)
	}
	if event.ActorID == "" {
		if actor := requestcontext.Actor(ctx); actor.IsAuthenticated() {
			event.ActorID = actor.UserID.String()
		}
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
				"request_id", event.RequestID,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	p.metrics.IncEventsEmitted(string(event.Category))
	return nil
}
