package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/analytics"
	"github.com/kmorozova/demandcast/internal/api"
	"github.com/kmorozova/demandcast/internal/config"
	"github.com/kmorozova/demandcast/internal/db"
	"github.com/kmorozova/demandcast/internal/forecasting"
	"github.com/kmorozova/demandcast/internal/observability"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	store, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer store.Close()

	analyticsSvc, err := analytics.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns)
	if err != nil {
		return fmt.Errorf("failed to connect clickhouse: %w", err)
	}
	defer func() { _ = analyticsSvc.Close() }()

	metricsRegistry := observability.NewPrometheusRegistry()

	engine := forecasting.NewEngine(analyticsSvc, pg, metricsRegistry, logger, cfg.HistoryDays, cfg.ForecastDays, cfg.FitConcurrency)
	reconciler := forecasting.NewReconciler(pg, metricsRegistry, logger)

	srvDeps := api.NewServer(logger, pg, store, analyticsSvc, engine, reconciler, metricsRegistry, cfg)

	r := mux.NewRouter()
	r.HandleFunc("/forecast/run", srvDeps.RunForecastHandler).Methods("POST")
	r.HandleFunc("/forecast/persist", srvDeps.PersistForecastHandler).Methods("POST")
	r.HandleFunc("/report/completion", srvDeps.CompletionReportHandler).Methods("GET")
	r.HandleFunc("/orders", srvDeps.RecordOrderHandler).Methods("POST")
	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")

	// CRUD routes for admin UI
	crud := r.PathPrefix("/api").Subrouter()
	crud.HandleFunc("/products", srvDeps.ListProducts).Methods("GET")
	crud.HandleFunc("/products", srvDeps.CreateProduct).Methods("POST")
	crud.HandleFunc("/products/{id}", srvDeps.UpdateProduct).Methods("PUT")
	crud.HandleFunc("/products/{id}", srvDeps.DeleteProduct).Methods("DELETE")

	crud.HandleFunc("/activities", srvDeps.ListActivities).Methods("GET")
	crud.HandleFunc("/activities", srvDeps.CreateActivity).Methods("POST")
	crud.HandleFunc("/activities/{id}", srvDeps.UpdateActivity).Methods("PUT")
	crud.HandleFunc("/activities/{id}", srvDeps.DeleteActivity).Methods("DELETE")

	crud.HandleFunc("/clients", srvDeps.ListClients).Methods("GET")
	crud.HandleFunc("/clients", srvDeps.CreateClient).Methods("POST")

	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port

	var handler http.Handler = r
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(r, "demandcast")
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Forecast server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
