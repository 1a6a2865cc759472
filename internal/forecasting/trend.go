package forecasting

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// minObservations is the smallest series a seasonal model will fit. Below
// two weeks of data the weekday indices are pure noise.
const minObservations = 14

// Model is a fitted multiplicative trend/seasonality model:
//
//	value(day) = trend(day) x weekdayIndex x monthIndex
//
// The trend is a least-squares line over the observation index; the weekday
// and month indices are ratio-to-trend averages normalized to mean 1, so
// seasonality scales with baseline volume instead of adding a fixed offset.
type Model struct {
	start     time.Time
	intercept float64
	slope     float64
	weekday   [7]float64
	month     [13]float64
}

// Fit estimates a Model from a daily series. It fails on series that are
// too short, sum to zero, or degenerate into a non-finite regression.
func Fit(s *DailySeries) (*Model, error) {
	if len(s.Values) < minObservations {
		return nil, fmt.Errorf("series too short: %d observations", len(s.Values))
	}
	if s.Total() <= 0 {
		return nil, fmt.Errorf("series has no positive revenue")
	}

	xs := make([]float64, len(s.Values))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, s.Values, nil, false)
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) || math.IsNaN(slope) || math.IsInf(slope, 0) {
		return nil, fmt.Errorf("degenerate trend fit")
	}

	m := &Model{
		start:     s.Start,
		intercept: intercept,
		slope:     slope,
	}

	// Ratio-to-trend seasonal indices. Days where the trend line is at or
	// below zero carry no usable ratio and are skipped.
	var weekdaySum, monthSum [13]float64
	var weekdayN, monthN [13]int
	for i, y := range s.Values {
		t := intercept + slope*float64(i)
		if t <= 0 {
			continue
		}
		ratio := y / t
		day := s.Day(i)
		wd := int(day.Weekday())
		mo := int(day.Month())
		weekdaySum[wd] += ratio
		weekdayN[wd]++
		monthSum[mo] += ratio
		monthN[mo]++
	}
	for i := 0; i < 7; i++ {
		m.weekday[i] = 1.0
		if weekdayN[i] > 0 {
			m.weekday[i] = weekdaySum[i] / float64(weekdayN[i])
		}
	}
	for i := 1; i <= 12; i++ {
		m.month[i] = 1.0
		if monthN[i] > 0 {
			m.month[i] = monthSum[i] / float64(monthN[i])
		}
	}
	normalize(m.weekday[:])
	normalize(m.month[1:])

	return m, nil
}

// normalize rescales indices so their mean is 1, keeping seasonality from
// drifting the trend level.
func normalize(indices []float64) {
	var sum float64
	for _, v := range indices {
		sum += v
	}
	mean := sum / float64(len(indices))
	if mean <= 0 {
		return
	}
	for i := range indices {
		indices[i] /= mean
	}
}

// Predict returns the model's value for a single day, clamped at zero.
func (m *Model) Predict(day time.Time) float64 {
	day = Midnight(day)
	x := day.Sub(m.start).Hours() / 24
	trend := m.intercept + m.slope*x
	if trend < 0 {
		trend = 0
	}
	v := trend * m.weekday[int(day.Weekday())] * m.month[int(day.Month())]
	return math.Max(v, 0)
}

// Forecast projects the model over [from, from+days) and returns one value
// per day.
func (m *Model) Forecast(from time.Time, days int) []float64 {
	out := make([]float64, days)
	for i := 0; i < days; i++ {
		out[i] = m.Predict(from.AddDate(0, 0, i))
	}
	return out
}
