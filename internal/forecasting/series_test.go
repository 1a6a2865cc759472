package forecasting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kmorozova/demandcast/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildSeriesGapFilling(t *testing.T) {
	products := []models.Product{{ID: 1, Name: "Serum"}, {ID: 2, Name: "Toner"}}
	revenue := []models.DailyRevenue{
		{Date: day("2025-01-01"), ProductID: 1, Revenue: 120},
		{Date: day("2025-01-04"), ProductID: 1, Revenue: 30},
		{Date: day("2025-01-03"), ProductID: 2, Revenue: 55.5},
	}

	grid := BuildSeries(products, revenue, day("2025-01-01"), day("2025-01-07"))

	assert.Len(t, grid, 2)
	for _, p := range products {
		s := grid[p.ID]
		assert.Len(t, s.Values, 7, "every product covers every day in the window")
		for _, v := range s.Values {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}

	assert.Equal(t, []float64{120, 0, 0, 30, 0, 0, 0}, grid[1].Values)
	assert.Equal(t, []float64{0, 0, 55.5, 0, 0, 0, 0}, grid[2].Values)
	assert.InDelta(t, 150, grid[1].Total(), 1e-9)
}

func TestBuildSeriesIgnoresOutOfWindowAndUnknownProducts(t *testing.T) {
	products := []models.Product{{ID: 1}}
	revenue := []models.DailyRevenue{
		{Date: day("2024-12-31"), ProductID: 1, Revenue: 10},
		{Date: day("2025-01-08"), ProductID: 1, Revenue: 20},
		{Date: day("2025-01-02"), ProductID: 99, Revenue: 30},
		{Date: day("2025-01-02"), ProductID: 1, Revenue: 40},
	}

	grid := BuildSeries(products, revenue, day("2025-01-01"), day("2025-01-07"))

	assert.InDelta(t, 40, grid[1].Total(), 1e-9)
}

func TestBuildSeriesAccumulatesSameDay(t *testing.T) {
	products := []models.Product{{ID: 1}}
	revenue := []models.DailyRevenue{
		{Date: day("2025-01-02"), ProductID: 1, Revenue: 10},
		{Date: day("2025-01-02"), ProductID: 1, Revenue: 15},
	}

	grid := BuildSeries(products, revenue, day("2025-01-01"), day("2025-01-03"))

	assert.Equal(t, []float64{0, 25, 0}, grid[1].Values)
}
