package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/forecasting"
	"github.com/kmorozova/demandcast/internal/models"
)

// RunForecastHandler triggers a forecast-and-plan run. Only one run may
// execute at a time; concurrent triggers get a 409. Run-level "no data"
// conditions come back as 422 with a machine-readable reason so the caller
// can tell an empty catalog from missing history.
func (s *Server) RunForecastHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "/forecast/run"
	method := r.Method

	lockID := uuid.New().String()
	if s.Store != nil {
		ok, err := s.Store.AcquireRunLock(r.Context(), lockID, s.Config.RunLockTTL)
		if err != nil {
			s.Logger.Error("acquire run lock", zap.Error(err))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			http.Error(w, "lock unavailable", http.StatusInternalServerError)
			return
		}
		if !ok {
			s.Metrics.IncrementRequests(endpoint, method, "409")
			writeError(w, http.StatusConflict, "run_in_progress", "a forecast run is already in progress")
			return
		}
		defer func() {
			if err := s.Store.ReleaseRunLock(r.Context(), lockID); err != nil {
				s.Logger.Warn("release run lock", zap.Error(err))
			}
		}()
	}

	result, err := s.Engine.Run(r.Context(), time.Now())
	if err != nil {
		status, reason := runErrorStatus(err)
		if status == http.StatusInternalServerError {
			s.Logger.Error("forecast run failed", zap.Error(err))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			http.Error(w, "forecast run failed", http.StatusInternalServerError)
			return
		}
		s.Metrics.IncrementRequests(endpoint, method, "422")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, status, reason, err.Error())
		return
	}

	s.setLastRun(r, result)

	writeJSON(w, result)
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// runErrorStatus maps run-level conditions to HTTP status and reason codes.
func runErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, forecasting.ErrNoProducts):
		return http.StatusUnprocessableEntity, "no_products"
	case errors.Is(err, forecasting.ErrNoSalesHistory):
		return http.StatusUnprocessableEntity, "no_sales_history"
	case errors.Is(err, forecasting.ErrNoForecastableProducts):
		return http.StatusUnprocessableEntity, "no_forecastable_products"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// persistRequest optionally carries explicit rows to persist. Without a
// body the most recent run's rows are used.
type persistRequest struct {
	Rows []models.ForecastRow `json:"rows"`
}

// PersistForecastHandler writes forecast rows into the sales plan table and
// reports insert/update counts. A storage failure leaves stored plans and
// the in-memory rows untouched, so the call can simply be retried.
func (s *Server) PersistForecastHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "/forecast/persist"
	method := r.Method

	// An empty body is fine; malformed JSON is not.
	var req persistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rows := req.Rows
	if len(rows) == 0 {
		last := s.getLastRun(r)
		if last == nil || len(last.Rows) == 0 {
			s.Metrics.IncrementRequests(endpoint, method, "409")
			writeError(w, http.StatusConflict, "no_run", "no forecast has been computed yet")
			return
		}
		rows = last.Rows
	}

	result, err := s.Reconciler.Persist(r.Context(), rows)
	if err != nil {
		s.Logger.Error("persist forecast", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "persistence_failed", "failed to persist plans; stored plans unchanged")
		return
	}

	writeJSON(w, result)
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
