package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/api"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/config"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/events"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/export"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/logging"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/metrics"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/offline"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/repository"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/sheets"
	abastechsync "github.com/camposesilvatopografia-beep/abastech-sub000/internal/sync"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	store, err := database.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Erro ao inicializar o banco de dados")
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		startMetricsServer(cfg.Monitoring.PrometheusPort, logger)
	}

	redisClient, snapshotCache := initSnapshotCache(ctx, cfg, logger)

	sheetsClient := initSheets(ctx, cfg, logger)

	eventBus := events.NewEventBus()

	var importer *abastechsync.Importer
	if sheetsClient != nil {
		importer = abastechsync.NewImporter(store, sheetsClient, snapshotCache, eventBus, abastechsync.ImporterConfig{
			VehiclesSheet: cfg.Google.VehiclesSheet,
			ReadingsSheet: cfg.Google.ReadingsSheet,
			MinSourceRows: cfg.Sync.MinSourceRows,
		}, logger)

		// Sincronização inicial na subida do processo.
		if stats, err := importer.Run(ctx, nil); err != nil {
			logger.Warn().Err(err).Msg("Initial import failed")
		} else {
			logger.Info().
				Int("imported", stats.Imported).
				Int("updated", stats.Updated).
				Int("deleted", stats.Deleted).
				Int("errors", stats.Errors).
				Msg("Initial import finished")
		}
	}

	if sheetsClient != nil {
		pusher := abastechsync.NewPusher(sheetsClient, abastechsync.PusherConfig{
			ReadingsSheet: cfg.Google.ReadingsSheet,
			FuelSheet:     cfg.Google.FuelSheet,
			OrdersSheet:   cfg.Google.OrdersSheet,
		}, logger)

		initialDelay, maxDelay := cfg.Sync.RetryDelays()
		retryPolicy := worker.RetryPolicy{
			MaxRetries:    cfg.Sync.MaxRetries,
			InitialDelay:  initialDelay,
			MaxDelay:      maxDelay,
			BackoffFactor: cfg.Sync.BackoffFactor,
		}
		applier := worker.NewMirrorApplier(store, pusher, logger)
		outboxWorker := worker.NewOutboxWorker(store, applier, redisClient, retryPolicy, logger)
		go outboxWorker.Start(ctx)
	}

	if cfg.API.Enabled {
		queues := offline.NewManager(store, eventBus, logger)
		exporter := export.NewExporter(store, cfg.Exports, logger)
		apiServer := api.NewHTTPServer(cfg.API, store, syncRunner{importer}, queues, exporter, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	logger.Info().Msg("abastech started")
	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

// syncRunner adapts the importer to the API surface; a nil importer
// reports sync as unconfigured.
type syncRunner struct {
	importer *abastechsync.Importer
}

func (s syncRunner) Run(ctx context.Context) (models.ImportStats, error) {
	if s.importer == nil {
		return models.ImportStats{}, fmt.Errorf("sync is not configured")
	}
	return s.importer.Run(ctx, nil)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Erro ao criar diretório do banco de dados")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("Erro ao criar diretório de exportação")
			return err
		}
	}
	return nil
}

func initSnapshotCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, repository.SnapshotCache) {
	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	fallback := repository.NewMemorySnapshotCache(ttl)

	if cfg.Redis.Address == "" {
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	primary := repository.NewRedisSnapshotCache(redisClient, ttl)
	return redisClient, repository.NewFailoverSnapshotCache(primary, fallback, logger)
}

func initSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *sheets.Client {
	if cfg.Google.CredentialsFile == "" || cfg.Google.SpreadsheetID == "" {
		logger.Warn().Msg("Google Sheets not configured, running in offline-only mode")
		return nil
	}

	client, err := sheets.NewClient(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets client")
		return nil
	}

	if err := client.TestConnection(ctx, cfg.Google.VehiclesSheet); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		if email, emailErr := sheets.ServiceAccountEmail(cfg.Google.CredentialsFile); emailErr == nil {
			logger.Warn().Str("service_account", email).Msg("Check that the spreadsheet is shared with the service account")
		}
		return nil
	}

	logger.Info().Msg("Google Sheets client initialized successfully")
	return client
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		logger.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}
