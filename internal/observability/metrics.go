package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demandcast_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// forecast runs labelled by outcome (success, no_products, no_history,
	// no_forecastable, error)
	ForecastRunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_forecast_runs_total",
			Help: "Total forecast-and-plan runs by outcome",
		},
		[]string{"outcome"},
	)

	// end-to-end forecast run duration
	ForecastRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "demandcast_forecast_run_duration_seconds",
			Help:    "Duration of forecast-and-plan runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// products that produced a forecast in the latest run
	ProductsForecasted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "demandcast_products_forecasted",
			Help: "Products with a forecast in the latest run",
		},
	)

	// per-product model fit failures
	FitFailureCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandcast_fit_failures_total",
			Help: "Total per-product model fit failures",
		},
	)

	// plan rows inserted / updated during reconciliation
	PlansInserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandcast_plans_inserted_total",
			Help: "Total sales plan rows inserted",
		},
	)
	PlansUpdated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandcast_plans_updated_total",
			Help: "Total sales plan rows updated in place",
		},
	)

	// number of failed plan persistence attempts
	PlanPersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandcast_plan_persist_errors_total",
			Help: "Total plan persistence failures (whole batch rolled back)",
		},
	)

	// client engagement factor computed in the latest run
	EngagementFactor = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "demandcast_engagement_factor",
			Help: "Client engagement multiplier from the latest run",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		ForecastRunCount,
		ForecastRunDuration,
		ProductsForecasted,
		FitFailureCount,
		PlansInserted,
		PlansUpdated,
		PlanPersistErrors,
		EngagementFactor,
	)
}
