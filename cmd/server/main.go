package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pvflow/internal/config"
	"pvflow/internal/infra"
	"pvflow/internal/loader"
	"pvflow/internal/repository"
	"pvflow/internal/router"
	"pvflow/internal/service"
	"pvflow/internal/store"
	"pvflow/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// dev: pretty console, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(cfg.SLATimezone)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.SLATimezone).Msg("unknown SLA timezone, using UTC")
		loc = time.UTC
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := loader.New(loc)
	records, err := recordRepository(ctx, cfg, db, l)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open record store")
	}
	auditRepo := repository.NewAuditRepository(db)

	st := store.New(records,
		store.WithLocker(store.NewRedisLocker(rdb, 10*time.Second)),
		store.WithBroadcaster(store.NewRedisBroadcaster(rdb, uuid.NewString())),
		store.WithConflictMode(store.ParseConflictMode(cfg.StoreConflictMode)),
		store.WithAudit(auditRepo),
	)
	if cfg.SeedOnEmpty {
		seedIfEmpty(ctx, st)
	}
	go st.Run(ctx)

	processSvc := service.NewProcessService(st, auditRepo, l, cfg.WipeConfirmationPhrase)
	slaSvc := service.NewSLAService(repository.NewSLARepository(db), st, service.SLADefaults{
		StockHours:        cfg.SLAStockHours,
		PurchasingDays:    cfg.SLAPurchasingDays,
		FinanceDays:       cfg.SLAFinanceDays,
		LogisticsDays:     cfg.SLALogisticsDays,
		WarningWindowDays: cfg.SLAWarningWindowDays,
		Location:          loc,
	})
	svc := router.Services{
		Records: processSvc,
		SLA:     slaSvc,
		Reports: service.NewReportService(processSvc, st, loc),
		Auth:    service.NewAuthService(repository.NewUserRepository(db), cfg),
	}

	// Background workers: mail delivery and the SLA monitor.
	mailCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	emailWorker := worker.NewEmailWorker(mailer, mailCB)

	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobEmail: emailWorker.Process,
	})
	pool.Start(ctx, cfg.WorkerPoolSize)

	recipients := splitList(cfg.AlertEmailTo)
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, SLA alerts will not be mailed")
		recipients = nil
	}
	worker.StartSLAMonitor(ctx, worker.SLAMonitorConfig{
		SLA:        slaSvc,
		RDB:        rdb,
		Dispatcher: dispatcher,
		Recipients: recipients,
		Interval:   cfg.SLAMonitorInterval,
	})

	r := router.New(cfg, svc, router.Infra{DB: db, RDB: rdb, MailCB: mailCB})

	// WriteTimeout stays zero: the record stream is a long-lived response.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreBackend).Msgf("pvflow listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil && err != redis.ErrClosed {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}

// recordRepository picks where records live. Users, SLA settings and the
// audit mirror always stay in Postgres.
func recordRepository(ctx context.Context, cfg *config.Config, db *gorm.DB, l *loader.Loader) (repository.RecordRepository, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "", "postgres":
		return repository.NewRecordRepository(db, l), nil
	case "dynamodb":
		ddb, err := infra.NewDynamoDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Local emulators start empty; real tables are provisioned outside the app.
		if cfg.DynamoDBEndpoint != "" {
			if err := infra.EnsureRecordTable(ctx, ddb, cfg.DynamoDBTable); err != nil {
				return nil, err
			}
		}
		return repository.NewDynamoRecordRepository(ddb, cfg.DynamoDBTable, l), nil
	case "memory":
		recs, _ := l.LoadOrSeed(nil)
		log.Warn().Int("records", len(recs)).Msg("record store in memory, data is lost on restart")
		return repository.NewMemoryRecordRepository(recs...), nil
	}
	return nil, fmt.Errorf("STORE_BACKEND desconhecido: %q", cfg.StoreBackend)
}

func seedIfEmpty(ctx context.Context, st *store.Store) {
	recs, err := st.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("seed: cannot list records")
		return
	}
	if len(recs) > 0 {
		return
	}
	for _, rec := range loader.Seeds() {
		if _, err := st.Upsert(ctx, rec); err != nil {
			log.Error().Err(err).Str("record_id", rec.ID).Msg("seed: upsert failed")
			return
		}
	}
	log.Info().Int("records", len(loader.Seeds())).Msg("seed: demo records written")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
