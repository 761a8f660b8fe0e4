package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/config"
	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/bootstrap"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	"github.com/imprimeturecuerdo/memorial-backend/internal/db"
	"github.com/imprimeturecuerdo/memorial-backend/internal/jobs"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
	"github.com/imprimeturecuerdo/memorial-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "production")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.App.LogLevel, cfg.App.Environment).With().Str("process", "worker").Logger()

	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "run":
		run(cfg, log)
	case "snapshot":
		snapshotOnce(cfg, log)
	default:
		log.Fatal().Str("command", cmd).Msg("usage: worker [run|snapshot]")
	}
}

type worker struct {
	job   *jobs.StatsSnapshotJob
	close func()
}

func setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) *worker {
	if !db.Enabled(cfg.Database) {
		log.Fatal().Msg("DB_DSN or DB_HOST is required: snapshots are written to Postgres")
	}

	infra, err := bootstrap.OpenInfra(ctx, cfg, false, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize infrastructure")
	}
	database, err := bootstrap.OpenDatabase(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	source, err := content.NewSource(cfg.Content, cfg.MinIO, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open content source")
	}

	gate := roles.NewGate(roles.NewResolver(infra.Store, log), infra.Store, log)
	services := service.New(service.Deps{
		Store: infra.Store,
		Gate:  gate,
		Audit: audit.Nop{},
		Log:   log,
	}, service.Options{CommentWindow: cfg.Memorial.CommentWindow, TrackStats: cfg.Memorial.TrackStats})

	job := jobs.NewStatsSnapshotJob(source, services.Stats, audit.NewStatsSnapshotRepository(database.SQL), log)
	return &worker{
		job: job,
		close: func() {
			infra.Close()
			database.Close()
		},
	}
}

func run(cfg *config.Config, log zerolog.Logger) {
	w := setup(context.Background(), cfg, log)
	defer w.close()

	scheduler := jobs.NewScheduler(log, 0)
	if err := scheduler.Add(cfg.Memorial.SnapshotCron, w.job); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule stats snapshot")
	}
	scheduler.Start()
	log.Info().Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	scheduler.Stop(ctx)

	log.Info().Msg("Worker exited gracefully")
}

func snapshotOnce(cfg *config.Config, log zerolog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := setup(ctx, cfg, log)
	err := w.job.Run(ctx)
	w.close()
	if err != nil {
		log.Error().Err(err).Msg("Stats snapshot finished with errors")
		os.Exit(1)
	}
	log.Info().Msg("Stats snapshot finished")
}
