package models

import "time"

// DateLayout is the canonical day format used for plan keys and API payloads.
const DateLayout = "2006-01-02"

// SalesPlan is the engine's output row. The natural key is
// (plan_date, product_id); at most one row exists per key.
type SalesPlan struct {
	ID               int       `json:"id"`
	PlanDate         time.Time `json:"plan_date"`
	ProductID        int       `json:"product_id"`
	PlannedQuantity  float64   `json:"planned_quantity"`
	ForecastQuantity float64   `json:"forecast_quantity"`
}

// PlanKey is the composite natural key of a sales plan row.
type PlanKey struct {
	Date      string
	ProductID int
}

// NewPlanKey builds a PlanKey from a timestamp and a product id. The
// timestamp's calendar day is taken in UTC.
func NewPlanKey(day time.Time, productID int) PlanKey {
	return PlanKey{Date: day.UTC().Format(DateLayout), ProductID: productID}
}

// Key returns the plan's natural key.
func (p SalesPlan) Key() PlanKey {
	return NewPlanKey(p.PlanDate, p.ProductID)
}

// ForecastRow is one (date, product) output of a forecast run: the
// adjusted demand forecast and the derived sales plan value.
type ForecastRow struct {
	Date        time.Time `json:"date"`
	ProductID   int       `json:"product_id"`
	ProductName string    `json:"product_name"`
	Forecast    float64   `json:"forecast"`
	Plan        float64   `json:"plan"`
}

// RunDiagnostics summarizes a forecast run for callers and operators.
type RunDiagnostics struct {
	ProductsTotal      int     `json:"products_total"`
	ProductsForecasted int     `json:"products_forecasted"`
	FitFailures        int     `json:"fit_failures"`
	EngagementFactor   float64 `json:"engagement_factor"`
	HistoryDays        int     `json:"history_days"`
	ForecastDays       int     `json:"forecast_days"`
}

// ForecastRunResult is the full output of a forecast-and-plan run.
type ForecastRunResult struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        []ForecastRow  `json:"rows"`
	Diagnostics RunDiagnostics `json:"diagnostics"`
}

// ReconcileResult reports how many plan rows a reconciliation inserted
// versus updated in place.
type ReconcileResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
