// Package worker relays committed outbox entries to the message broker.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
)

const defaultBatchSize = 100

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	ClaimBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer publishes one message keyed by the aggregate id.
type Producer interface {
	Publish(ctx context.Context, key string, eventType string, value []byte) error
}

// Metrics records relay outcomes. Nil-safe.
type Metrics interface {
	IncPublished(n int)
	IncFailed()
}

// Worker polls the outbox and publishes each entry at least once. An entry
// is marked published only after the broker acknowledged it.
type Worker struct {
	outbox    Outbox
	producer  Producer
	runner    tx.Runner
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   Metrics
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewWorker(outbox Outbox, producer Producer, runner tx.Runner, interval time.Duration, opts ...Option) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	w := &Worker{
		outbox:    outbox,
		producer:  producer,
		runner:    runner,
		interval:  interval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. Relay errors are logged and retried on
// the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.RelayOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						w.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
					}
					break
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were marked
// published.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	published := 0
	var publishErr error
	err := w.runner.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := w.outbox.ClaimBatch(ctx, w.batchSize)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			if err := w.producer.Publish(ctx, entry.AggregateID, entry.EventType, entry.Payload); err != nil {
				// Stop at the first failure to keep per-aggregate ordering.
				publishErr = err
				if w.metrics != nil {
					w.metrics.IncFailed()
				}
				break
			}
			ids = append(ids, entry.ID)
		}
		if err := w.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 && w.metrics != nil {
		w.metrics.IncPublished(published)
	}
	return published, publishErr
}
