package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/analytics"
	"github.com/kmorozova/demandcast/internal/config"
	"github.com/kmorozova/demandcast/internal/db"
	"github.com/kmorozova/demandcast/internal/forecasting"
	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger     *zap.Logger
	PG         *db.Postgres
	Store      *db.RedisStore
	Analytics  analytics.Service
	Engine     *forecasting.Engine
	Reconciler *forecasting.Reconciler
	Metrics    observability.MetricsRegistry
	Config     config.Config

	mu      sync.Mutex
	lastRun *models.ForecastRunResult
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, pg *db.Postgres, store *db.RedisStore, analyticsSvc analytics.Service, engine *forecasting.Engine, reconciler *forecasting.Reconciler, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:     logger,
		PG:         pg,
		Store:      store,
		Analytics:  analyticsSvc,
		Engine:     engine,
		Reconciler: reconciler,
		Metrics:    metrics,
		Config:     cfg,
	}
}

// setLastRun remembers the latest run result in memory and, when Redis is
// available, caches it so persistence can survive a restart.
func (s *Server) setLastRun(r *http.Request, result *models.ForecastRunResult) {
	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()

	if s.Store != nil {
		if err := s.Store.CacheLastRun(r.Context(), result, 24*time.Hour); err != nil {
			s.Logger.Warn("cache last run", zap.Error(err))
		}
	}
}

// getLastRun returns the latest run result, falling back to the Redis cache
// when the in-memory copy is gone.
func (s *Server) getLastRun(r *http.Request) *models.ForecastRunResult {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	if last != nil {
		return last
	}
	if s.Store == nil {
		return nil
	}
	cached, err := s.Store.LastRun(r.Context())
	if err != nil {
		s.Logger.Warn("read cached run", zap.Error(err))
		return nil
	}
	return cached
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with a machine-readable reason.
func writeError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  message,
		"reason": reason,
	})
}
