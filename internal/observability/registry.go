package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics,
// replacing direct access to global Prometheus metrics with dependency
// injection.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Forecast run metrics
	IncrementForecastRuns(outcome string)
	RecordForecastRunDuration(duration time.Duration)
	SetProductsForecasted(count int)
	AddFitFailures(count int)
	SetEngagementFactor(factor float64)

	// Plan reconciliation metrics
	AddPlansInserted(count int)
	AddPlansUpdated(count int)
	IncrementPlanPersistErrors()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementForecastRuns(outcome string) {
	ForecastRunCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordForecastRunDuration(duration time.Duration) {
	ForecastRunDuration.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) SetProductsForecasted(count int) {
	ProductsForecasted.Set(float64(count))
}

func (r *PrometheusRegistry) AddFitFailures(count int) {
	FitFailureCount.Add(float64(count))
}

func (r *PrometheusRegistry) SetEngagementFactor(factor float64) {
	EngagementFactor.Set(factor)
}

func (r *PrometheusRegistry) AddPlansInserted(count int) {
	PlansInserted.Add(float64(count))
}

func (r *PrometheusRegistry) AddPlansUpdated(count int) {
	PlansUpdated.Add(float64(count))
}

func (r *PrometheusRegistry) IncrementPlanPersistErrors() {
	PlanPersistErrors.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementForecastRuns(outcome string)                                 {}
func (r *NoOpRegistry) RecordForecastRunDuration(duration time.Duration)                     {}
func (r *NoOpRegistry) SetProductsForecasted(count int)                                      {}
func (r *NoOpRegistry) AddFitFailures(count int)                                             {}
func (r *NoOpRegistry) SetEngagementFactor(factor float64)                                   {}
func (r *NoOpRegistry) AddPlansInserted(count int)                                           {}
func (r *NoOpRegistry) AddPlansUpdated(count int)                                            {}
func (r *NoOpRegistry) IncrementPlanPersistErrors()                                          {}
