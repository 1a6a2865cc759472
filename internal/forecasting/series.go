package forecasting

import (
	"time"

	"github.com/kmorozova/demandcast/internal/models"
)

// DailySeries is a gap-free daily revenue series for one product. Values[i]
// is the revenue on Start plus i days; days without sales hold zero.
type DailySeries struct {
	ProductID int
	Start     time.Time
	Values    []float64
}

// Day returns the calendar day of the i-th observation.
func (s *DailySeries) Day(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// Total returns the sum of all observations.
func (s *DailySeries) Total() float64 {
	var total float64
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Midnight truncates t to its calendar day in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildSeries turns sparse (day, product, revenue) aggregates into one
// complete series per product over [start, end]. Every product in the
// catalog gets a series covering every day in the window, so downstream
// models never see an irregular grid. Aggregates outside the window or for
// unknown products are ignored.
func BuildSeries(products []models.Product, revenue []models.DailyRevenue, start, end time.Time) map[int]*DailySeries {
	start = Midnight(start)
	end = Midnight(end)
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 0
	}

	grid := make(map[int]*DailySeries, len(products))
	for _, p := range products {
		grid[p.ID] = &DailySeries{
			ProductID: p.ID,
			Start:     start,
			Values:    make([]float64, days),
		}
	}

	for _, r := range revenue {
		s, ok := grid[r.ProductID]
		if !ok {
			continue
		}
		idx := int(Midnight(r.Date).Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		s.Values[idx] += r.Revenue
	}
	return grid
}
