package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	applicationhandler "regportal/internal/application/handler"
	applicationservice "regportal/internal/application/service"
	"regportal/internal/audit"
	intakehandler "regportal/internal/intake/handler"
	intakeservice "regportal/internal/intake/service"
	"regportal/internal/jwttoken"
	"regportal/internal/notify"
	officerhandler "regportal/internal/officerauth/handler"
	officerservice "regportal/internal/officerauth/service"
	"regportal/internal/officerauth/store/otp"
	"regportal/internal/outbound"
	"regportal/internal/platform/config"
	"regportal/internal/platform/httpserver"
	"regportal/internal/platform/logger"
	"regportal/internal/platform/metrics"
	platformredis "regportal/internal/platform/redis"
	regstore "regportal/internal/registry/store"
	httptransport "regportal/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Everything with
// behavior lives in internal packages; this file only chooses implementations
// from config and runs them under one errgroup.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relational store: Postgres when configured, in-memory for dev.
	var (
		store regstore.Store
		tx    regstore.Tx
		acts  audit.Store
	)
	checkers := map[string]httptransport.HealthChecker{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		store = regstore.NewPostgresStore(db)
		tx = regstore.NewPostgresTx(db)
		acts = audit.NewPostgresStore(db)
		checkers["postgres"] = dbChecker{db}
		log.Info("using postgres store")
	} else {
		store = regstore.NewInMemoryStore()
		tx = regstore.NewInMemoryTx()
		acts = audit.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Redis backs the OTP store and the global notification mirror when
	// configured; both degrade to process-local variants without it.
	var (
		codes  otp.Store
		global notify.GlobalPublisher
	)
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		codes = otp.NewRedisStore(redisClient.Client)
		global = notify.NewRedisGlobalPublisher(redisClient.Client)
		checkers["redis"] = redisClient
		log.Info("using redis otp store")
	} else {
		codes = otp.NewInMemoryStore()
		log.Warn("REDIS_URL not set, using in-memory otp store")
	}

	// Activity mirror to Kafka is optional.
	var publisher *audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = audit.NewPublisher(ctx, cfg.KafkaBrokers, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		log.Info("activity mirror enabled", "brokers", cfg.KafkaBrokers)
	}

	registry := notify.NewInMemoryRegistry(log)
	fanout := notify.NewFanout(registry, global, m, log)

	recorder := audit.NewRecorder(log)
	auditWorker := audit.NewWorker(acts, publisher, recorder, log)

	queue := outbound.NewQueue(log)
	gateway := outbound.NewSMTPGateway(cfg.SMTP, cfg.SMS, &http.Client{Timeout: 10 * time.Second})
	outboundWorker := outbound.NewWorker(queue, gateway, m, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "regportal", "regportal-officers")

	intakeSvc := intakeservice.New(store, tx, fanout, queue, recorder, m, log, cfg.RegistrationPrefix)
	officerSvc := officerservice.New(store, codes, jwtService, queue, recorder, m, log, cfg.SMS.LocalPrefix)
	appSvc := applicationservice.New(store, tx, fanout, queue, recorder, m, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Intake:     intakehandler.New(intakeSvc, log),
		Officers:   officerhandler.New(officerSvc, appSvc, jwtService, log),
		Admin:      applicationhandler.New(appSvc, acts, cfg.AdminToken, log),
		Events:     notify.NewSSEHandler(registry, log),
		Registry:   registry,
		AdminToken: cfg.AdminToken,
		Checkers:   checkers,
		Logger:     log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return auditWorker.Run(gctx) })
	g.Go(func() error { return outboundWorker.Run(gctx) })
	g.Go(func() error { return officerSvc.RunSweeper(gctx, config.OTPSweepInterval) })
	g.Go(func() error {
		log.Info("starting portal server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dbChecker struct{ db *sql.DB }

func (c dbChecker) Health(ctx context.Context) error { return c.db.PingContext(ctx) }
