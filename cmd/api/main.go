package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imprimeturecuerdo/memorial-backend/config"
	httpapi "github.com/imprimeturecuerdo/memorial-backend/internal/api/http"
	apimw "github.com/imprimeturecuerdo/memorial-backend/internal/api/http/middleware"
	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	authhttp "github.com/imprimeturecuerdo/memorial-backend/internal/auth/http"
	"github.com/imprimeturecuerdo/memorial-backend/internal/bootstrap"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	memorialhttp "github.com/imprimeturecuerdo/memorial-backend/internal/memorial/http"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
	"github.com/imprimeturecuerdo/memorial-backend/internal/users"
	"github.com/imprimeturecuerdo/memorial-backend/pkg/logger"
)

const serviceName = "memorial-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "production")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	log.Info().Str("env", cfg.App.Environment).Str("version", cfg.App.Version).Msg("Starting memorial API server...")
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	infra, err := bootstrap.OpenInfra(ctx, cfg, true, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize infrastructure")
	}

	database, err := bootstrap.OpenDatabase(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Optional Postgres-backed pieces stay nil interfaces without a database.
	var (
		dbPinger  httpapi.Pinger
		visitors  authhttp.VisitorDirectory
		auditLog  memorialhttp.AuditLog
		snapshots memorialhttp.SnapshotLog
		recorder  audit.Recorder = audit.Nop{}
	)
	if database != nil {
		auditRepo := audit.NewRepository(database.SQL)
		dbPinger = database
		visitors = users.NewRepo(database.Pool)
		auditLog = auditRepo
		snapshots = audit.NewStatsSnapshotRepository(database.SQL)
		recorder = auditRepo
	}

	var visits service.VisitDeduper
	if infra.Redis != nil {
		visits = service.NewRedisVisitDeduper(infra.Redis, cfg.Redis.Prefix)
	}

	gate := roles.NewGate(roles.NewResolver(infra.Store, log), infra.Store, log)
	services := service.New(service.Deps{
		Store:  infra.Store,
		Gate:   gate,
		Audit:  recorder,
		Visits: visits,
		Log:    log,
	}, service.Options{
		CommentWindow: cfg.Memorial.CommentWindow,
		TrackStats:    cfg.Memorial.TrackStats,
	})

	source, err := content.NewSource(cfg.Content, cfg.MinIO, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open content source")
	}

	registry := realtime.NewRegistry(log)
	limiter := apimw.NewRateLimiter(cfg.Memorial.WriteRatePerMin, cfg.Memorial.WriteBurst)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-t.C:
				limiter.Sweep()
			}
		}
	}()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Store:          infra.Store,
		DB:             dbPinger,
		Verifier:       infra.Auth,
		Services:       services,
		Gate:           gate,
		Content:        source,
		Registry:       registry,
		Visitors:       visitors,
		Audit:          auditLog,
		Snapshots:      snapshots,
		Limiter:        limiter,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Live feeds hold their connections open; end them before draining.
	registry.Shutdown()
	stopSweep()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	infra.Close()
	if database != nil {
		database.Close()
	}

	log.Info().Msg("Server exited gracefully")
}
