package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/fudign/kfa-sub000/internal/access"
	certcache "github.com/fudign/kfa-sub000/internal/certification/cache"
	certhandler "github.com/fudign/kfa-sub000/internal/certification/handler"
	certmetrics "github.com/fudign/kfa-sub000/internal/certification/metrics"
	certservice "github.com/fudign/kfa-sub000/internal/certification/service"
	cpehandler "github.com/fudign/kfa-sub000/internal/cpe/handler"
	cpemetrics "github.com/fudign/kfa-sub000/internal/cpe/metrics"
	cpeservice "github.com/fudign/kfa-sub000/internal/cpe/service"
	eventhandler "github.com/fudign/kfa-sub000/internal/event/handler"
	eventmetrics "github.com/fudign/kfa-sub000/internal/event/metrics"
	eventservice "github.com/fudign/kfa-sub000/internal/event/service"
	jwttoken "github.com/fudign/kfa-sub000/internal/jwt_token"
	membershiphandler "github.com/fudign/kfa-sub000/internal/membership/handler"
	membershipmetrics "github.com/fudign/kfa-sub000/internal/membership/metrics"
	membershipservice "github.com/fudign/kfa-sub000/internal/membership/service"
	"github.com/fudign/kfa-sub000/internal/platform/config"
	"github.com/fudign/kfa-sub000/internal/platform/httpserver"
	"github.com/fudign/kfa-sub000/internal/platform/kafka"
	"github.com/fudign/kfa-sub000/internal/platform/logger"
	"github.com/fudign/kfa-sub000/internal/platform/metrics"
	programhandler "github.com/fudign/kfa-sub000/internal/program/handler"
	programmetrics "github.com/fudign/kfa-sub000/internal/program/metrics"
	programservice "github.com/fudign/kfa-sub000/internal/program/service"
	ratelimitmetrics "github.com/fudign/kfa-sub000/internal/ratelimit/metrics"
	ratelimit "github.com/fudign/kfa-sub000/internal/ratelimit/middleware"
	ratelimitmodels "github.com/fudign/kfa-sub000/internal/ratelimit/models"
	httptransport "github.com/fudign/kfa-sub000/internal/transport/http"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/publisher"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/worker"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using the development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.Close()

	platformMetrics := metrics.New()
	auditPublisher := publisher.NewPublisher(be.outbox,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	guard := access.NewGuard()

	membershipSvc := membershipservice.New(be.membership, be.runner,
		membershipservice.WithLogger(log),
		membershipservice.WithMetrics(membershipmetrics.New()),
		membershipservice.WithAuditPublisher(auditPublisher),
		membershipservice.WithGuard(guard),
	)
	cpeSvc := cpeservice.New(be.cpe, be.runner,
		cpeservice.WithLogger(log),
		cpeservice.WithMetrics(cpemetrics.New()),
		cpeservice.WithAuditPublisher(auditPublisher),
		cpeservice.WithGuard(guard),
	)
	certOpts := []certservice.Option{
		certservice.WithLogger(log),
		certservice.WithMetrics(certmetrics.New()),
		certservice.WithAuditPublisher(auditPublisher),
		certservice.WithGuard(guard),
	}
	if be.redis != nil {
		certOpts = append(certOpts, certservice.WithCache(
			certcache.New(be.redis.Client, certcache.WithTTL(cfg.Redis.VerifyTTL)),
		))
	}
	certSvc := certservice.New(be.certs, be.runner, certOpts...)
	eventSvc := eventservice.New(be.events, be.runner,
		eventservice.WithLogger(log),
		eventservice.WithMetrics(eventmetrics.New()),
		eventservice.WithAuditPublisher(auditPublisher),
		eventservice.WithGuard(guard),
		eventservice.WithMemberDirectory(be.membership),
		eventservice.WithCPECreditor(cpeSvc),
	)
	programSvc := programservice.New(be.programs, be.runner,
		programservice.WithLogger(log),
		programservice.WithMetrics(programmetrics.New()),
		programservice.WithAuditPublisher(auditPublisher),
		programservice.WithGuard(guard),
		programservice.WithMemberDirectory(be.membership),
		programservice.WithCPECreditor(cpeSvc),
	)

	var relay *worker.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, log); err != nil {
			return err
		}
		be.health["kafka"] = producer.Ping
		relay = worker.NewWorker(be.outbox, producer, be.runner, cfg.Kafka.PollInterval,
			worker.WithLogger(log),
			worker.WithMetrics(platformMetrics),
		)
	} else {
		log.WarnContext(ctx, "KAFKA_BROKERS not set, outbox relay disabled")
	}

	limiter := ratelimit.New(be.buckets, log, ratelimit.WithMetrics(ratelimitmetrics.New()))
	submitLimit := limiter.PerIP(ratelimitmodels.Policy{
		Name:   "applications",
		Limit:  cfg.RateLimit.ApplicationLimit,
		Window: cfg.RateLimit.ApplicationWindow,
	})

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	router := httptransport.NewRouter(httptransport.Options{
		Logger:   log,
		Resolver: jwttoken.NewActorResolver(tokens),
		Observer: platformMetrics,
		Health:   be.health,
	},
		membershiphandler.New(membershipSvc, log, membershiphandler.WithSubmitMiddleware(submitLimit)),
		cpehandler.New(cpeSvc, log),
		certhandler.New(certSvc, log),
		eventhandler.New(eventSvc, log),
		programhandler.New(programSvc, log),
	)
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	if relay != nil {
		g.Go(func() error {
			log.InfoContext(gctx, "outbox relay started", "topic", cfg.Kafka.Topic)
			if err := relay.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		log.InfoContext(gctx, "starting kfa server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
