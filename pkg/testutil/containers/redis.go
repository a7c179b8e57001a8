//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/fudign/kfa-sub000/internal/platform/config"
	redisplatform "github.com/fudign/kfa-sub000/internal/platform/redis"
)

// RedisContainer backs the verification cache and rate limit tests.
type RedisContainer struct {
	Container testcontainers.Container
	Addr      string
	Client    *redis.Client
}

// NewRedisContainer starts Redis and connects through the platform client so
// the configured timeouts are the ones under test.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to resolve redis endpoint: %v", err)
	}

	var cfg config.Redis
	if err := config.ParseEnv(&cfg); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to load redis defaults: %v", err)
	}
	cfg.Addr = endpoint

	client, err := redisplatform.New(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to redis: %v", err)
	}

	// Shared across suites by the Manager; Ryuk reaps the container.
	return &RedisContainer{
		Container: container,
		Addr:      endpoint,
		Client:    client.Client,
	}
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
