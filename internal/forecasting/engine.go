// Package forecasting implements the forecast-and-plan generation engine:
// daily revenue aggregation, per-product seasonal trend models, the
// business-rule adjustment pipeline, and reconciliation of plan rows into
// durable storage.
package forecasting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

// SalesSource provides the aggregated order history the engine consumes.
type SalesSource interface {
	DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error)
	ClientActivity(ctx context.Context, from, to time.Time) ([]models.ClientActivity, error)
}

// CatalogStore provides product and marketing metadata.
type CatalogStore interface {
	LoadProducts(ctx context.Context) ([]models.Product, error)
	LoadActivities(ctx context.Context, from, to time.Time) ([]models.MarketingActivity, error)
}

// Engine runs the forecast-and-plan pipeline. It reads orders, products and
// marketing data, and produces in-memory forecast rows; persistence is the
// Reconciler's job.
type Engine struct {
	sales   SalesSource
	catalog CatalogStore
	metrics observability.MetricsRegistry
	logger  *zap.Logger

	historyDays    int
	forecastDays   int
	fitConcurrency int
}

// NewEngine creates an Engine. historyDays is the length of the aggregation
// window ending yesterday; forecastDays is the projection horizon starting
// today; fitConcurrency bounds parallel model fits.
func NewEngine(sales SalesSource, catalog CatalogStore, metrics observability.MetricsRegistry, logger *zap.Logger, historyDays, forecastDays, fitConcurrency int) *Engine {
	if fitConcurrency < 1 {
		fitConcurrency = 1
	}
	return &Engine{
		sales:          sales,
		catalog:        catalog,
		metrics:        metrics,
		logger:         logger,
		historyDays:    historyDays,
		forecastDays:   forecastDays,
		fitConcurrency: fitConcurrency,
	}
}

// Run executes one forecast-and-plan pass relative to today. It returns one
// of the sentinel errors when a blocking "no data" condition holds, and
// otherwise a result with one row per (forecast day, forecastable product).
func (e *Engine) Run(ctx context.Context, today time.Time) (*models.ForecastRunResult, error) {
	started := time.Now()
	ctx, span := otel.Tracer("forecasting").Start(ctx, "forecast.run")
	defer span.End()

	today = Midnight(today)
	end := today.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -e.historyDays)
	horizonEnd := today.AddDate(0, 0, e.forecastDays-1)

	products, err := e.catalog.LoadProducts(ctx)
	if err != nil {
		e.metrics.IncrementForecastRuns("error")
		return nil, err
	}
	if len(products) == 0 {
		e.metrics.IncrementForecastRuns("no_products")
		return nil, ErrNoProducts
	}

	revenue, err := e.sales.DailyRevenue(ctx, start, end)
	if err != nil {
		e.metrics.IncrementForecastRuns("error")
		return nil, err
	}
	if len(revenue) == 0 {
		e.metrics.IncrementForecastRuns("no_history")
		return nil, ErrNoSalesHistory
	}

	clients, err := e.sales.ClientActivity(ctx, start, end)
	if err != nil {
		e.metrics.IncrementForecastRuns("error")
		return nil, err
	}
	engagement := ComputeEngagement(clients)
	e.metrics.SetEngagementFactor(engagement)

	activities, err := e.catalog.LoadActivities(ctx, today, horizonEnd)
	if err != nil {
		e.metrics.IncrementForecastRuns("error")
		return nil, err
	}

	grid := BuildSeries(products, revenue, start, end)

	forecasts, fitFailures := e.fitAll(ctx, grid, today)
	e.metrics.AddFitFailures(fitFailures)
	if len(forecasts) == 0 {
		e.metrics.IncrementForecastRuns("no_forecastable")
		return nil, ErrNoForecastableProducts
	}

	adjCtx := &AdjustmentContext{Activities: activities, Engagement: engagement}
	byID := make(map[int]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ids := make([]int, 0, len(forecasts))
	for id := range forecasts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([]models.ForecastRow, 0, len(ids)*e.forecastDays)
	for _, id := range ids {
		p := byID[id]
		for i, raw := range forecasts[id] {
			day := today.AddDate(0, 0, i)
			adjusted := Adjust(raw, p, day, adjCtx)
			rows = append(rows, models.ForecastRow{
				Date:        day,
				ProductID:   p.ID,
				ProductName: p.Name,
				Forecast:    adjusted,
				Plan:        PlanValue(adjusted, day, adjCtx),
			})
		}
	}

	result := &models.ForecastRunResult{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
		Diagnostics: models.RunDiagnostics{
			ProductsTotal:      len(products),
			ProductsForecasted: len(ids),
			FitFailures:        fitFailures,
			EngagementFactor:   engagement,
			HistoryDays:        len(grid[products[0].ID].Values),
			ForecastDays:       e.forecastDays,
		},
	}

	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("products_forecasted", len(ids)),
		attribute.Int("fit_failures", fitFailures),
	)
	e.metrics.IncrementForecastRuns("success")
	e.metrics.RecordForecastRunDuration(time.Since(started))
	e.metrics.SetProductsForecasted(len(ids))
	e.logger.Info("Forecast run complete",
		zap.String("run_id", result.RunID),
		zap.Int("products_total", len(products)),
		zap.Int("products_forecasted", len(ids)),
		zap.Int("fit_failures", fitFailures),
		zap.Float64("engagement_factor", engagement),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// fitAll fits one model per product with positive historical revenue and
// projects it over the forecast horizon. Fits run in parallel; a failed fit
// is logged and excluded without cancelling its siblings.
func (e *Engine) fitAll(ctx context.Context, grid map[int]*DailySeries, today time.Time) (map[int][]float64, int) {
	var (
		mu        sync.Mutex
		forecasts = make(map[int][]float64)
		failures  int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fitConcurrency)
	for _, s := range grid {
		if s.Total() <= 0 {
			continue
		}
		s := s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			model, err := Fit(s)
			if err != nil {
				e.logger.Warn("model fit failed",
					zap.Int("product_id", s.ProductID),
					zap.Error(err),
				)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			values := model.Forecast(today, e.forecastDays)
			mu.Lock()
			forecasts[s.ProductID] = values
			mu.Unlock()
			return nil
		})
	}
	// Fit goroutines only return the context error, so Wait's result is
	// irrelevant for per-product failures.
	_ = g.Wait()
	return forecasts, failures
}
