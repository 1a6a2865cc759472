package forecasting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

// memPlanStore merges plans in memory by natural key, mirroring the
// database upsert contract.
type memPlanStore struct {
	plans map[models.PlanKey]models.SalesPlan
	err   error
}

func newMemPlanStore() *memPlanStore {
	return &memPlanStore{plans: make(map[models.PlanKey]models.SalesPlan)}
}

func (s *memPlanStore) UpsertPlans(ctx context.Context, plans []models.SalesPlan) (int, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	var inserted, updated int
	for _, p := range plans {
		key := p.Key()
		if _, ok := s.plans[key]; ok {
			updated++
		} else {
			inserted++
		}
		s.plans[key] = p
	}
	return inserted, updated, nil
}

func newTestReconciler(store PlanStore) *Reconciler {
	return NewReconciler(store, observability.NewNoOpRegistry(), zap.NewNop())
}

func TestPersistInsertThenUpdate(t *testing.T) {
	store := newMemPlanStore()
	r := newTestReconciler(store)

	rows := []models.ForecastRow{
		{Date: day("2025-01-01"), ProductID: 1, ProductName: "Serum", Forecast: 500, Plan: 525},
	}

	result, err := r.Persist(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	rows[0].Forecast = 510
	result, err = r.Persist(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	stored := store.plans[models.NewPlanKey(day("2025-01-01"), 1)]
	assert.Equal(t, 510.0, stored.ForecastQuantity)
}

func TestPersistIsIdempotent(t *testing.T) {
	store := newMemPlanStore()
	r := newTestReconciler(store)

	rows := []models.ForecastRow{
		{Date: day("2025-02-01"), ProductID: 1, Forecast: 100.123, Plan: 105.129},
		{Date: day("2025-02-01"), ProductID: 2, Forecast: 200, Plan: 210},
	}

	first, err := r.Persist(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	snapshot := make(map[models.PlanKey]models.SalesPlan, len(store.plans))
	for k, v := range store.plans {
		snapshot[k] = v
	}

	second, err := r.Persist(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, snapshot, store.plans, "re-running with identical rows changes nothing")
}

func TestPersistRoundsToTwoDecimals(t *testing.T) {
	store := newMemPlanStore()
	r := newTestReconciler(store)

	rows := []models.ForecastRow{
		{Date: day("2025-03-01"), ProductID: 7, Forecast: 1452.0000000000002, Plan: 1597.2000000000003},
	}

	_, err := r.Persist(context.Background(), rows)
	require.NoError(t, err)

	stored := store.plans[models.NewPlanKey(day("2025-03-01"), 7)]
	assert.Equal(t, 1452.00, stored.ForecastQuantity)
	assert.Equal(t, 1597.20, stored.PlannedQuantity)
}

func TestPersistPropagatesStoreFailure(t *testing.T) {
	store := newMemPlanStore()
	store.err = errors.New("deadlock detected")
	r := newTestReconciler(store)

	rows := []models.ForecastRow{
		{Date: day("2025-03-01"), ProductID: 1, Forecast: 10, Plan: 10.5},
	}

	_, err := r.Persist(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1597.20, Round2(1597.195))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 100.13, Round2(100.125))
	assert.Equal(t, -2.35, Round2(-2.345))
}
