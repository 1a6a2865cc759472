package forecasting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(start time.Time, days int, level float64) *DailySeries {
	values := make([]float64, days)
	for i := range values {
		values[i] = level
	}
	return &DailySeries{ProductID: 1, Start: start, Values: values}
}

func TestFitFlatSeriesPredictsLevel(t *testing.T) {
	start := day("2025-01-01")
	s := flatSeries(start, 60, 100)

	m, err := Fit(s)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		got := m.Predict(start.AddDate(0, 0, 60+i))
		assert.InDelta(t, 100, got, 1e-6)
	}
}

func TestFitCapturesLinearGrowth(t *testing.T) {
	start := day("2025-01-01")
	values := make([]float64, 90)
	for i := range values {
		values[i] = 50 + 2*float64(i)
	}
	s := &DailySeries{ProductID: 1, Start: start, Values: values}

	m, err := Fit(s)
	require.NoError(t, err)

	// Ten days past the window the trend should be near 50 + 2*100.
	got := m.Predict(start.AddDate(0, 0, 100))
	assert.InDelta(t, 250, got, 25)
}

func TestFitRejectsShortSeries(t *testing.T) {
	_, err := Fit(flatSeries(day("2025-01-01"), 5, 100))
	assert.Error(t, err)
}

func TestFitRejectsZeroSeries(t *testing.T) {
	_, err := Fit(flatSeries(day("2025-01-01"), 60, 0))
	assert.Error(t, err)
}

func TestPredictNeverNegative(t *testing.T) {
	start := day("2025-01-01")
	values := make([]float64, 60)
	for i := range values {
		values[i] = 120 - 2*float64(i)
		if values[i] < 0 {
			values[i] = 0
		}
	}
	s := &DailySeries{ProductID: 1, Start: start, Values: values}

	m, err := Fit(s)
	require.NoError(t, err)

	// Far past the window a declining trend crosses zero; the prediction
	// must clamp instead of going negative.
	for i := 0; i < 400; i += 20 {
		assert.GreaterOrEqual(t, m.Predict(start.AddDate(0, 0, 60+i)), 0.0)
	}
}

func TestForecastLength(t *testing.T) {
	m, err := Fit(flatSeries(day("2025-01-01"), 60, 10))
	require.NoError(t, err)

	out := m.Forecast(day("2025-03-02"), 30)
	assert.Len(t, out, 30)
}
