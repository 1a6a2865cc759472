package forecasting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

// mockSales fabricates a constant revenue stream for a set of products.
type mockSales struct {
	dailyLevel map[int]float64
	clients    []models.ClientActivity
	err        error
}

func (m *mockSales) DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.DailyRevenue
	for d := Midnight(from); !d.After(Midnight(to)); d = d.AddDate(0, 0, 1) {
		for id, level := range m.dailyLevel {
			if level <= 0 {
				continue
			}
			out = append(out, models.DailyRevenue{Date: d, ProductID: id, Revenue: level})
		}
	}
	return out, nil
}

func (m *mockSales) ClientActivity(ctx context.Context, from, to time.Time) ([]models.ClientActivity, error) {
	return m.clients, nil
}

type mockCatalog struct {
	products   []models.Product
	activities []models.MarketingActivity
}

func (m *mockCatalog) LoadProducts(ctx context.Context) ([]models.Product, error) {
	return m.products, nil
}

func (m *mockCatalog) LoadActivities(ctx context.Context, from, to time.Time) ([]models.MarketingActivity, error) {
	return m.activities, nil
}

func newTestEngine(sales SalesSource, catalog CatalogStore) *Engine {
	return NewEngine(sales, catalog, observability.NewNoOpRegistry(), zap.NewNop(), 90, 30, 4)
}

func TestRunEmptyCatalog(t *testing.T) {
	engine := newTestEngine(&mockSales{}, &mockCatalog{})

	_, err := engine.Run(context.Background(), day("2025-04-15"))
	assert.ErrorIs(t, err, ErrNoProducts)
}

func TestRunNoSalesHistory(t *testing.T) {
	catalog := &mockCatalog{products: []models.Product{{ID: 1, Name: "Serum"}}}
	engine := newTestEngine(&mockSales{}, catalog)

	_, err := engine.Run(context.Background(), day("2025-04-15"))
	assert.ErrorIs(t, err, ErrNoSalesHistory)
}

func TestRunNoForecastableProducts(t *testing.T) {
	catalog := &mockCatalog{products: []models.Product{
		{ID: 1, Name: "Serum"},
		{ID: 2, Name: "Toner"},
	}}
	// Revenue exists only for a product not in the catalog, so every
	// catalog series sums to zero.
	sales := &mockSales{dailyLevel: map[int]float64{99: 100}}
	engine := newTestEngine(sales, catalog)

	_, err := engine.Run(context.Background(), day("2025-04-15"))
	assert.ErrorIs(t, err, ErrNoForecastableProducts)
}

func TestRunProducesRowsForForecastableProducts(t *testing.T) {
	catalog := &mockCatalog{products: []models.Product{
		{ID: 1, Name: "Serum"},
		{ID: 2, Name: "Toner"}, // no sales, excluded from output
	}}
	sales := &mockSales{
		dailyLevel: map[int]float64{1: 100},
		clients: []models.ClientActivity{
			{ClientID: 1, OrderCount: 10, AvgLineTotal: 50},
			{ClientID: 2, OrderCount: 10, AvgLineTotal: 80},
		},
	}
	engine := newTestEngine(sales, catalog)

	today := day("2025-04-15")
	result, err := engine.Run(context.Background(), today)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Rows, 30, "one row per horizon day for the single forecastable product")
	assert.Equal(t, 2, result.Diagnostics.ProductsTotal)
	assert.Equal(t, 1, result.Diagnostics.ProductsForecasted)
	assert.Equal(t, 0, result.Diagnostics.FitFailures)
	assert.InDelta(t, 1.0, result.Diagnostics.EngagementFactor, 1e-9)

	for i, row := range result.Rows {
		assert.Equal(t, 1, row.ProductID)
		assert.Equal(t, "Serum", row.ProductName)
		assert.True(t, row.Date.Equal(today.AddDate(0, 0, i)), "rows cover today..today+29 in order")
		assert.GreaterOrEqual(t, row.Forecast, 0.0)
		assert.GreaterOrEqual(t, row.Plan, 0.0)
		// No activities are configured, so the plan markup is the base 5%.
		assert.InDelta(t, row.Forecast*1.05, row.Plan, 1e-6)
	}

	// Flat 100/day history in April/May high season: adjusted stays near
	// 100 x 1.1 across the horizon.
	assert.InDelta(t, 110, result.Rows[0].Forecast, 5)
}

func TestRunPlanMarkupWithActiveActivity(t *testing.T) {
	today := day("2025-04-15")
	catalog := &mockCatalog{
		products: []models.Product{{ID: 1, Name: "Serum"}},
		activities: []models.MarketingActivity{{
			ID:        1,
			Name:      "Spring push",
			StartDate: today,
			EndDate:   today.AddDate(0, 0, 4),
			// Linked to another product: the forecast factor stays 1.0
			// while the plan markup still rises to 10%.
			ProductIDs: []int{42},
		}},
	}
	sales := &mockSales{dailyLevel: map[int]float64{1: 100}}
	engine := newTestEngine(sales, catalog)

	result, err := engine.Run(context.Background(), today)
	require.NoError(t, err)

	for i, row := range result.Rows {
		if i < 5 {
			assert.InDelta(t, row.Forecast*1.10, row.Plan, 1e-6, "activity day %d", i)
		} else {
			assert.InDelta(t, row.Forecast*1.05, row.Plan, 1e-6, "quiet day %d", i)
		}
	}
}

func TestRunSalesSourceError(t *testing.T) {
	catalog := &mockCatalog{products: []models.Product{{ID: 1}}}
	sales := &mockSales{err: errors.New("clickhouse down")}
	engine := newTestEngine(sales, catalog)

	_, err := engine.Run(context.Background(), day("2025-04-15"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSalesHistory)
}
