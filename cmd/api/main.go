package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fileconverter/internal/adapter/repo"
	"fileconverter/internal/convert"
	"fileconverter/internal/domain"
	"fileconverter/internal/http/handlers"
	"fileconverter/internal/http/httpapi"
	"fileconverter/internal/infra"
	"fileconverter/internal/jobs"
	"fileconverter/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Job record store: Postgres when configured, embedded SQLite otherwise.
	var store domain.JobStore
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		store = repo.NewJobRepositoryPG(pool)
		logger.Info().Msg("using postgres job store")
	} else {
		sqliteStore, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open sqlite job store")
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using sqlite job store")
	}

	var artifacts storage.Store
	if cfg.StorageBackend == "s3" {
		artifacts, err = storage.NewS3Store(cfg, cfg.UploadDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure s3 storage")
		}
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("using s3 artifact store")
	} else {
		artifacts, err = storage.NewFileStore(cfg.UploadDir, cfg.ConvertedDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure filesystem storage")
		}
	}

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info().Str("addr", cfg.RedisAddr).Msg("status mirror enabled")
	}
	mirror := jobs.NewStatusMirror(redisClient, logger)

	office, err := convert.NewOfficeAdapter(cfg.LibreOfficePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure office adapter")
	}
	registry := convert.NewRegistry(office)
	registry.Register("pdf", "docx", convert.NewRemoteAdapter(cfg.ConvertAPIURL, cfg.ConvertAPISecret))

	transcoder, err := convert.NewTranscoder(cfg.FFmpegPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure transcoder")
	}

	dispatcher := jobs.NewDispatcher(cfg.WorkerCount, cfg.QueueDepth, logger)
	dispatcher.Start(ctx)

	orchestrator := jobs.NewOrchestrator(store, artifacts, registry, dispatcher, mirror, logger, cfg.ConversionTimeout)

	app := handlers.NewApp(orchestrator, transcoder, logger, cfg.UploadDir, cfg.MaxUploadMB<<20)
	router := httpapi.NewRouter(app, logger, cfg.AllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	dispatcher.Stop(30 * time.Second)

	logger.Info().Msg("server stopped")
}
