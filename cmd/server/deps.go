package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	certservice "github.com/fudign/kfa-sub000/internal/certification/service"
	certstore "github.com/fudign/kfa-sub000/internal/certification/store"
	cpeservice "github.com/fudign/kfa-sub000/internal/cpe/service"
	cpestore "github.com/fudign/kfa-sub000/internal/cpe/store"
	eventservice "github.com/fudign/kfa-sub000/internal/event/service"
	eventstore "github.com/fudign/kfa-sub000/internal/event/store"
	membershipservice "github.com/fudign/kfa-sub000/internal/membership/service"
	membershipstore "github.com/fudign/kfa-sub000/internal/membership/store"
	"github.com/fudign/kfa-sub000/internal/platform/config"
	pgplatform "github.com/fudign/kfa-sub000/internal/platform/postgres"
	redisplatform "github.com/fudign/kfa-sub000/internal/platform/redis"
	programservice "github.com/fudign/kfa-sub000/internal/program/service"
	programstore "github.com/fudign/kfa-sub000/internal/program/store"
	"github.com/fudign/kfa-sub000/internal/ratelimit/middleware"
	"github.com/fudign/kfa-sub000/internal/ratelimit/store/bucket"
	httptransport "github.com/fudign/kfa-sub000/internal/transport/http"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	auditmemory "github.com/fudign/kfa-sub000/pkg/platform/audit/store/memory"
	auditpostgres "github.com/fudign/kfa-sub000/pkg/platform/audit/store/postgres"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/worker"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
)

type outboxStore interface {
	audit.Store
	worker.Outbox
}

type memberStore interface {
	membershipservice.Store
	IsMember(ctx context.Context, userID id.UserID) (bool, error)
}

// backend holds the stores for every context behind one transaction runner.
// Without DATABASE_URL everything lives in memory.
type backend struct {
	runner     tx.Runner
	outbox     outboxStore
	membership memberStore
	cpe        cpeservice.Store
	certs      certservice.Store
	events     eventservice.Store
	programs   programservice.Store
	buckets    middleware.Store
	redis      *redisplatform.Client
	health     map[string]httptransport.HealthCheck

	db *sql.DB
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{health: make(map[string]httptransport.HealthCheck)}

	if cfg.Postgres.URL == "" {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		b.runner = tx.NewMemoryRunner()
		b.outbox = auditmemory.NewInMemoryStore()
		b.membership = membershipstore.NewInMemoryStore()
		b.cpe = cpestore.NewInMemoryStore()
		b.certs = certstore.NewInMemoryStore()
		b.events = eventstore.NewInMemoryStore()
		b.programs = programstore.NewInMemoryStore()
	} else {
		db, err := pgplatform.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		b.db = db
		b.runner = tx.NewPostgresRunner(db, cfg.Server.TxTimeout)
		b.outbox = auditpostgres.New(db)
		b.membership = membershipstore.NewPostgres(db)
		b.cpe = cpestore.NewPostgres(db)
		b.certs = certstore.NewPostgres(db)
		b.events = eventstore.NewPostgres(db)
		b.programs = programstore.NewPostgres(db)
		b.health["postgres"] = db.PingContext
	}

	rc, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		b.redis = rc
		b.buckets = bucket.NewRedisBucketStore(rc.Client)
		b.health["redis"] = rc.Health
	} else {
		b.buckets = bucket.NewInMemoryBucketStore()
	}
	return b, nil
}

func (b *backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}
