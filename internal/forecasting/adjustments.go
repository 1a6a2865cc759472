package forecasting

import (
	"math"
	"time"

	"github.com/kmorozova/demandcast/internal/models"
)

// highSeasonMonths carry a +10% demand multiplier. Spring and autumn are
// the strong seasons in cosmetics retail.
var highSeasonMonths = map[time.Month]bool{
	time.March:     true,
	time.April:     true,
	time.May:       true,
	time.September: true,
	time.October:   true,
	time.November:  true,
}

// AdjustmentContext carries the run-level inputs the factors need: the
// marketing activities overlapping the forecast horizon and the per-run
// client engagement scalar.
type AdjustmentContext struct {
	Activities []models.MarketingActivity
	Engagement float64
}

// Factor is one multiplicative adjustment applied to a raw forecast value.
// A factor returns 1.0 when its condition does not hold.
type Factor func(p models.Product, day time.Time, ctx *AdjustmentContext) float64

// SeasonalFactor boosts high-season months by 10%.
func SeasonalFactor(p models.Product, day time.Time, ctx *AdjustmentContext) float64 {
	if highSeasonMonths[day.Month()] {
		return 1.1
	}
	return 1.0
}

// MarketingFactor boosts a product by 10% on days a linked marketing
// activity is running.
func MarketingFactor(p models.Product, day time.Time, ctx *AdjustmentContext) float64 {
	for _, a := range ctx.Activities {
		if a.ActiveOn(day) && a.Includes(p.ID) {
			return 1.1
		}
	}
	return 1.0
}

// ShelfLifeFactor halves the forecast once the product's expiry date is at
// or before the forecast day.
func ShelfLifeFactor(p models.Product, day time.Time, ctx *AdjustmentContext) float64 {
	if p.ExpiryDate == nil {
		return 1.0
	}
	if !Midnight(*p.ExpiryDate).After(Midnight(day)) {
		return 0.5
	}
	return 1.0
}

// ChemistryFactor boosts products with a skin-friendly pH in [5.0, 6.0] by
// 20%.
func ChemistryFactor(p models.Product, day time.Time, ctx *AdjustmentContext) float64 {
	if p.PHLevel != nil && *p.PHLevel >= 5.0 && *p.PHLevel <= 6.0 {
		return 1.2
	}
	return 1.0
}

// EngagementFactor applies the run-level client engagement scalar.
func EngagementFactor(p models.Product, day time.Time, ctx *AdjustmentContext) float64 {
	if ctx.Engagement == 0 {
		return 1.0
	}
	return ctx.Engagement
}

// Chain is the fixed, ordered adjustment pipeline.
var Chain = []Factor{
	SeasonalFactor,
	MarketingFactor,
	ShelfLifeFactor,
	ChemistryFactor,
	EngagementFactor,
}

// Adjust folds the factor chain over a raw forecast value. The result is
// clamped at zero.
func Adjust(raw float64, p models.Product, day time.Time, ctx *AdjustmentContext) float64 {
	v := raw
	for _, f := range Chain {
		v *= f(p, day, ctx)
	}
	return math.Max(v, 0)
}

// PlanValue derives the sales plan from an adjusted forecast. The base
// markup is 5%, raised to 10% on days any marketing activity runs. Unlike
// MarketingFactor this check deliberately ignores product linkage: a
// campaign day lifts the plan for the whole assortment.
func PlanValue(adjusted float64, day time.Time, ctx *AdjustmentContext) float64 {
	factor := 1.05
	for _, a := range ctx.Activities {
		if a.ActiveOn(day) {
			factor += 0.05
			break
		}
	}
	return math.Max(adjusted*factor, 0)
}

// ComputeEngagement derives the run-level engagement scalar from per-client
// order counts: the mean over clients of 1 + 0.05 x (count - avg) / avg.
// Without any client activity the factor is neutral.
func ComputeEngagement(clients []models.ClientActivity) float64 {
	if len(clients) == 0 {
		return 1.0
	}
	var total float64
	for _, c := range clients {
		total += float64(c.OrderCount)
	}
	avg := total / float64(len(clients))
	if avg == 0 {
		avg = 1
	}
	var sum float64
	for _, c := range clients {
		sum += 1 + 0.05*(float64(c.OrderCount)-avg)/avg
	}
	return sum / float64(len(clients))
}
