package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/config"
	"github.com/kmorozova/demandcast/internal/forecasting"
	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

type stubSales struct {
	level   float64
	clients []models.ClientActivity
}

func (s *stubSales) DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error) {
	if s.level <= 0 {
		return nil, nil
	}
	var out []models.DailyRevenue
	for d := forecasting.Midnight(from); !d.After(forecasting.Midnight(to)); d = d.AddDate(0, 0, 1) {
		out = append(out, models.DailyRevenue{Date: d, ProductID: 1, Revenue: s.level})
	}
	return out, nil
}

func (s *stubSales) ClientActivity(ctx context.Context, from, to time.Time) ([]models.ClientActivity, error) {
	return s.clients, nil
}

type stubCatalog struct {
	products   []models.Product
	activities []models.MarketingActivity
}

func (s *stubCatalog) LoadProducts(ctx context.Context) ([]models.Product, error) {
	return s.products, nil
}

func (s *stubCatalog) LoadActivities(ctx context.Context, from, to time.Time) ([]models.MarketingActivity, error) {
	return s.activities, nil
}

type stubPlanStore struct {
	plans map[models.PlanKey]models.SalesPlan
}

func (s *stubPlanStore) UpsertPlans(ctx context.Context, plans []models.SalesPlan) (int, int, error) {
	if s.plans == nil {
		s.plans = make(map[models.PlanKey]models.SalesPlan)
	}
	var inserted, updated int
	for _, p := range plans {
		if _, ok := s.plans[p.Key()]; ok {
			updated++
		} else {
			inserted++
		}
		s.plans[p.Key()] = p
	}
	return inserted, updated, nil
}

func newTestServer(sales forecasting.SalesSource, catalog forecasting.CatalogStore, store forecasting.PlanStore) *Server {
	logger := zap.NewNop()
	metrics := observability.NewNoOpRegistry()
	engine := forecasting.NewEngine(sales, catalog, metrics, logger, 60, 30, 2)
	reconciler := forecasting.NewReconciler(store, metrics, logger)
	return NewServer(logger, nil, nil, nil, engine, reconciler, metrics, config.Load())
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&stubSales{}, &stubCatalog{}, &stubPlanStore{})

	rec := httptest.NewRecorder()
	s.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunForecastNoProducts(t *testing.T) {
	s := newTestServer(&stubSales{}, &stubCatalog{}, &stubPlanStore{})

	rec := httptest.NewRecorder()
	s.RunForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/run", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no_products", body["reason"])
}

func TestRunForecastNoSalesHistory(t *testing.T) {
	catalog := &stubCatalog{products: []models.Product{{ID: 1, Name: "Serum"}}}
	s := newTestServer(&stubSales{}, catalog, &stubPlanStore{})

	rec := httptest.NewRecorder()
	s.RunForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/run", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no_sales_history", body["reason"])
}

func TestRunThenPersist(t *testing.T) {
	catalog := &stubCatalog{products: []models.Product{{ID: 1, Name: "Serum"}}}
	store := &stubPlanStore{}
	s := newTestServer(&stubSales{level: 100}, catalog, store)

	rec := httptest.NewRecorder()
	s.RunForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/run", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run models.ForecastRunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Len(t, run.Rows, 30)

	// Persist without a body falls back to the last run.
	rec = httptest.NewRecorder()
	s.PersistForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/persist", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 30, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	// A second persist is a pure update.
	rec = httptest.NewRecorder()
	s.PersistForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/persist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 30, result.Updated)
}

func TestPersistWithoutRun(t *testing.T) {
	s := newTestServer(&stubSales{}, &stubCatalog{}, &stubPlanStore{})

	rec := httptest.NewRecorder()
	s.PersistForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/persist", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no_run", body["reason"])
}

func TestPersistExplicitRows(t *testing.T) {
	store := &stubPlanStore{}
	s := newTestServer(&stubSales{}, &stubCatalog{}, store)

	payload, err := json.Marshal(persistRequest{Rows: []models.ForecastRow{
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ProductID: 1, Forecast: 500, Plan: 525},
	}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.PersistForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/persist", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Inserted)
}

func TestPersistMalformedBody(t *testing.T) {
	s := newTestServer(&stubSales{}, &stubCatalog{}, &stubPlanStore{})

	rec := httptest.NewRecorder()
	s.PersistForecastHandler(rec, httptest.NewRequest(http.MethodPost, "/forecast/persist", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletionReportInvalidDays(t *testing.T) {
	s := newTestServer(&stubSales{}, &stubCatalog{}, &stubPlanStore{})

	rec := httptest.NewRecorder()
	s.CompletionReportHandler(rec, httptest.NewRequest(http.MethodGet, "/report/completion?days=zero", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
