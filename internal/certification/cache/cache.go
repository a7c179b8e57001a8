// Package cache keeps public certificate verification records in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/fudign/kfa-sub000/internal/certification/models"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kfa_certificate_verify_cache_total",
	Help: "Verification cache lookups by result",
}, []string{"result"})

const keyPrefix = "kfa:cert:verify:"

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// VerificationCache stores VerificationRecord values keyed by certificate
// number. Validity is not cached; callers derive it from the record.
type VerificationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*VerificationCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *VerificationCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *VerificationCache {
	c := &VerificationCache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached record; ok is false on a miss.
func (c *VerificationCache) Get(ctx context.Context, number string) (*models.VerificationRecord, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+number).Bytes()
	if errors.Is(err, redis.Nil) {
		lookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("read verification cache: %w", err)
	}
	var rec models.VerificationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		lookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("decode verification cache: %w", err)
	}
	lookups.WithLabelValues("hit").Inc()
	return &rec, true, nil
}

func (c *VerificationCache) Set(ctx context.Context, rec models.VerificationRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode verification cache: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+rec.CertificateNumber, raw, c.ttl).Err()
}

func (c *VerificationCache) Invalidate(ctx context.Context, number string) error {
	return c.client.Del(ctx, keyPrefix+number).Err()
}
