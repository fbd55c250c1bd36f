package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/waypoints/internal/api"
	"github.com/UnknownOlympus/waypoints/internal/api/handlers"
	"github.com/UnknownOlympus/waypoints/internal/config"
	"github.com/UnknownOlympus/waypoints/internal/geocoding"
	"github.com/UnknownOlympus/waypoints/internal/metrics"
	"github.com/UnknownOlympus/waypoints/internal/recordfile"
	"github.com/UnknownOlympus/waypoints/internal/repository"
	"github.com/UnknownOlympus/waypoints/internal/service"
	"github.com/UnknownOlympus/waypoints/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const (
	readTimeout            = 5 * time.Second
	monitoringWriteTimeout = 10 * time.Second
)

// backend is a record store that can report its health.
type backend interface {
	store.Records
	handlers.Pinger
}

// main is the entry point of the application.
func main() {
	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires the application and blocks until both servers have stopped.
func run(cfg *config.Config, logger *slog.Logger) error {
	// Create a context that will be canceled when an interrupt signal is received.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	records, closeRecords, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	defer closeRecords()

	locations := store.NewLocationStore(records, logger, appMetrics)
	if err = locations.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize location store: %w", err)
	}

	// The interface stays nil when import is disabled so the router answers 501.
	var importer handlers.AddressImporter
	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.ProviderType),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.Rate,
		Logger:    logger,
	})
	switch {
	case errors.Is(err, geocoding.ErrProviderDisabled):
		logger.InfoContext(ctx, "Address import disabled")
	case err != nil:
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	default:
		importer = service.NewAddressImporter(
			logger,
			locations,
			geoProvider,
			cfg.Geocoder.ProviderType, // Provider name for metrics
			appMetrics,
			cfg.Geocoder.Workers,
			cfg.Geocoder.AddrPrefix,
		)
		logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.ProviderType)
	}

	apiServer := newServer(cfg.HTTPPort, api.NewRouter(locations, importer, appMetrics, logger), api.WriteTimeout)
	monitoringServer := newServer(cfg.HealthPort, api.NewMonitoringRouter(records, reg, logger), monitoringWriteTimeout)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.InfoContext(ctx, "Starting API server", "port", cfg.HTTPPort, "storage", cfg.Storage)
		return serve(apiServer)
	})
	group.Go(func() error {
		logger.InfoContext(ctx, "Starting monitoring server", "port", cfg.HealthPort)
		return serve(monitoringServer)
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return errors.Join(apiServer.Shutdown(shutdownCtx), monitoringServer.Shutdown(shutdownCtx))
	})

	if err = group.Wait(); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")

	return nil
}

// openBackend selects the record backend and returns a function releasing it.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		dtb, err := repository.NewDatabase(
			ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		return repository.NewRepository(dtb, logger), dtb.Close, nil
	default:
		return recordfile.New(cfg.DataFile, logger), func() {}, nil
	}
}

func newServer(port int, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", server.Addr, err)
	}

	return nil
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
