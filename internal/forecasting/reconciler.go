package forecasting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

// PlanStore persists plan rows. The implementation must merge by
// (plan_date, product_id) atomically: all rows commit or none do.
type PlanStore interface {
	UpsertPlans(ctx context.Context, plans []models.SalesPlan) (inserted, updated int, err error)
}

// Reconciler merges computed forecast rows into stored sales plans.
type Reconciler struct {
	store   PlanStore
	metrics observability.MetricsRegistry
	logger  *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(store PlanStore, metrics observability.MetricsRegistry, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, metrics: metrics, logger: logger}
}

// Persist writes forecast rows to storage, rounding monetary values to two
// decimal places. On failure no partial state is committed and the caller
// keeps the in-memory rows for a retry.
func (r *Reconciler) Persist(ctx context.Context, rows []models.ForecastRow) (*models.ReconcileResult, error) {
	plans := make([]models.SalesPlan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, models.SalesPlan{
			PlanDate:         Midnight(row.Date),
			ProductID:        row.ProductID,
			ForecastQuantity: Round2(row.Forecast),
			PlannedQuantity:  Round2(row.Plan),
		})
	}

	started := time.Now()
	inserted, updated, err := r.store.UpsertPlans(ctx, plans)
	if err != nil {
		r.metrics.IncrementPlanPersistErrors()
		return nil, fmt.Errorf("persist plans: %w", err)
	}

	r.metrics.AddPlansInserted(inserted)
	r.metrics.AddPlansUpdated(updated)
	r.logger.Info("Plans reconciled",
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Duration("elapsed", time.Since(started)),
	)
	return &models.ReconcileResult{Inserted: inserted, Updated: updated}, nil
}

// Round2 rounds a monetary value to two decimal places using exact decimal
// arithmetic, avoiding float drift on values like 1597.195.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
