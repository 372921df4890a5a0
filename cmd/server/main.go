package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"caritas/internal/challenge"
	"caritas/internal/custody"
	"caritas/internal/issuer"
	"caritas/internal/ledger"
	"caritas/internal/ledger/evm"
	"caritas/internal/platform/config"
	"caritas/internal/platform/database"
	"caritas/internal/platform/health"
	"caritas/internal/platform/httpserver"
	"caritas/internal/platform/logger"
	"caritas/internal/platform/metrics"
	platformredis "caritas/internal/platform/redis"
	"caritas/internal/session"
	"caritas/internal/session/workers/cleanup"
	httptransport "caritas/internal/transport/http"
	"caritas/internal/verifier"
	"caritas/internal/verifier/tracer"
	"caritas/pkg/platform/audit"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing caritas",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"ledger_enabled", cfg.LedgerRPCURL != "",
	)

	m := metrics.New()
	healthHandler := health.New(cfg.Environment)

	// Optional Postgres for custody records; memory store otherwise.
	pool, err := database.New(database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	var custodyStore custody.Store = custody.NewInMemoryStore()
	if pool != nil {
		custodyStore = custody.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
		defer pool.Close()
	}

	// Optional Redis for challenge state; memory store otherwise.
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	var challengeStore challenge.Store = challenge.NewInMemoryStore()
	if redisClient != nil {
		challengeStore = challenge.NewRedisStore(redisClient.Client)
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
		defer redisClient.Close()
	}

	// Optional Kafka audit sink; in-memory sink otherwise.
	var auditPub audit.Publisher = audit.NewMemoryPublisher()
	if cfg.KafkaBrokers != "" {
		kafkaPub, err := audit.NewKafkaPublisher(audit.KafkaConfig{Brokers: cfg.KafkaBrokers}, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		auditPub = kafkaPub
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaPub.Healthy(ctx) {
				return context.DeadlineExceeded
			}
			return nil
		})
	}
	defer auditPub.Close()

	// Optional EVM ledger. Absence disables on-chain operations; the sync
	// layer then returns explicit errors instead of fabricated results.
	sync := ledger.NewSync(nil, nil, nil, nil, ledger.WithSyncLogger(log), ledger.WithSyncMetrics(m))
	if cfg.LedgerRPCURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		evmClient, err := evm.Dial(ctx, evm.Config{
			RPCURL:          cfg.LedgerRPCURL,
			ChainID:         cfg.ChainID,
			PrivateKey:      cfg.IssuerPrivateKey,
			DIDRegistryAddr: cfg.DIDRegistryAddr,
			VCRegistryAddr:  cfg.VCRegistryAddr,
			RoleControlAddr: cfg.RoleControlAddr,
			TokenAddr:       cfg.TokenAddr,
		})
		cancel()
		if err != nil {
			log.Error("ledger init failed", "error", err)
			os.Exit(1)
		}
		defer evmClient.Close()
		sync = ledger.NewSync(
			evmClient.DIDRegistry(),
			evmClient.CredentialRegistry(),
			evmClient.RoleControl(),
			evmClient.Token(),
			ledger.WithSyncLogger(log),
			ledger.WithSyncMetrics(m),
		)
	}

	custodySvc, err := custody.NewService(custodyStore, custody.WithLogger(log))
	if err != nil {
		log.Error("custody init failed", "error", err)
		os.Exit(1)
	}
	challengeSvc, err := challenge.NewService(challengeStore, cfg.ChallengeTTL, challenge.WithLogger(log))
	if err != nil {
		log.Error("challenge init failed", "error", err)
		os.Exit(1)
	}
	sessionSvc, err := session.NewService(cfg.SessionTTL, session.WithLogger(log))
	if err != nil {
		log.Error("session init failed", "error", err)
		os.Exit(1)
	}

	verifierSvc, err := verifier.NewService(cfg.VerificationDomain, challengeSvc, sessionSvc, sync, auditPub,
		verifier.WithLogger(log),
		verifier.WithMetrics(m),
		verifier.WithTracer(tracer.NewOTel()),
	)
	if err != nil {
		log.Error("verifier init failed", "error", err)
		os.Exit(1)
	}

	routerOpts := []httptransport.RouterOption{}
	if cfg.IssuerDID != "" && cfg.IssuerPrivateKey != "" && cfg.AdminToken != "" {
		issuerSvc, err := issuer.NewService(issuer.Config{
			IssuerDID:        cfg.IssuerDID,
			IssuerPrivateKey: cfg.IssuerPrivateKey,
		}, custodySvc, sync, auditPub, issuer.WithLogger(log), issuer.WithMetrics(m))
		if err != nil {
			log.Error("issuer init failed", "error", err)
			os.Exit(1)
		}
		routerOpts = append(routerOpts, httptransport.WithAdminRoutes(httptransport.NewAdminHandler(issuerSvc), cfg.AdminToken))
		log.Info("issuance endpoints enabled", "issuer_did", cfg.IssuerDID)
	}

	sweeper, err := cleanup.New(sessionSvc, challengeSvc,
		cleanup.WithCleanupInterval(cfg.SweepInterval),
		cleanup.WithVerifiedGrace(cfg.VerifiedGrace),
		cleanup.WithCleanupLogger(log),
	)
	if err != nil {
		log.Error("cleanup init failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(verifierSvc, log)
	router := httptransport.NewRouter(handler, healthHandler, m, log, routerOpts...)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
