package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/config"
	"github.com/TabareCasalas/SiGeST-sub000/internal/infra"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"
	"github.com/TabareCasalas/SiGeST-sub000/internal/router"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"
	"github.com/TabareCasalas/SiGeST-sub000/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger: pretty until the config says production
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to access sql.DB")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	repos := repository.NewGormRepos(db)
	dispatcher := worker.NewDispatcher(rdb)

	// Worker handlers are wired here (composition root): queued side effects
	// end in the same repositories the API reads.
	mailer := infra.NewMailer(cfg)
	var emails worker.EmailEnqueuer
	if mailer.Configurado() {
		emails = dispatcher
	} else {
		log.Warn().Msg("SMTP_HOST not set, notifications will not be mirrored by email")
	}
	pool := worker.NewPool(rdb, cfg.WorkerPoolSize, m)
	pool.Handle(worker.JobNotificacion, worker.NewNotificacionWorker(
		service.NotificadorDirecto{Repo: repos.Notificaciones}, repos.Usuarios, emails, cfg.AppURL).Handle)
	pool.Handle(worker.JobAuditoria, worker.NewAuditoriaWorker(service.AuditorDirecto{Repo: repos.Auditoria}).Handle)
	pool.Handle(worker.JobEmail, worker.NewEmailWorker(mailer, infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))).Handle)
	pool.Start(ctx)

	redrive, err := worker.StartDLQRedrive(ctx, worker.RedriveConfig{
		Cola:        rdb,
		Schedule:    cfg.DLQRedriveSchedule,
		MaxRedrives: cfg.DLQMaxRedrives,
		Metrics:     m,
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.DLQRedriveSchedule).Msg("invalid DLQ re-drive schedule")
	}

	r := router.New(cfg, router.Deps{
		Repos:       repos,
		Notificador: dispatcher,
		Auditor:     dispatcher,
		Tokens:      infra.NewRedisTokenStore(rdb),
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		DBPing:      sqlDB.PingContext,
		RedisPing:   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("SiGeST backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Stop consuming once no request can enqueue more work.
	cancel()
	<-redrive.Stop().Done()
	pool.Wait()
	_ = rdb.Close()
	_ = sqlDB.Close()
	log.Info().Msg("server exited")
}
