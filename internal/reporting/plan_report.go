// Package reporting builds retrospective plan-completion reports. It joins
// stored sales plans from Postgres with actual revenue aggregated out of
// the ClickHouse order stream.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kmorozova/demandcast/internal/forecasting"
	"github.com/kmorozova/demandcast/internal/models"
)

// SalesReader provides actual revenue aggregates.
type SalesReader interface {
	DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error)
}

// PlanReader provides stored plans and the product catalog.
type PlanReader interface {
	LoadPlans(ctx context.Context, from, to time.Time) ([]models.SalesPlan, error)
	LoadProducts(ctx context.Context) ([]models.Product, error)
}

// ProductCompletion compares plan against actual revenue for one product
// over the reporting period. Completion is a percentage.
type ProductCompletion struct {
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Planned     float64 `json:"planned"`
	Actual      float64 `json:"actual"`
	Completion  float64 `json:"completion"`
}

// CompletionSummary is the full plan-completion report for a period.
type CompletionSummary struct {
	From         time.Time           `json:"from"`
	To           time.Time           `json:"to"`
	TotalPlanned float64             `json:"total_planned"`
	TotalActual  float64             `json:"total_actual"`
	Completion   float64             `json:"completion"`
	Products     []ProductCompletion `json:"products"`
}

// GenerateCompletionReport compares stored plans against actual revenue
// over the last `days` calendar days ending yesterday. Products with a plan
// but no sales appear with zero actual; sales without a plan row appear
// with zero planned.
func GenerateCompletionReport(ctx context.Context, plans PlanReader, sales SalesReader, today time.Time, days int) (*CompletionSummary, error) {
	to := forecasting.Midnight(today).AddDate(0, 0, -1)
	from := to.AddDate(0, 0, -(days - 1))

	planned, err := plans.LoadPlans(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}
	actual, err := sales.DailyRevenue(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load revenue: %w", err)
	}
	products, err := plans.LoadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	names := make(map[int]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	summary := BuildCompletion(planned, actual, names)
	summary.From = from
	summary.To = to
	return summary, nil
}

// BuildCompletion rolls plan and revenue rows up per product and computes
// completion percentages.
func BuildCompletion(planned []models.SalesPlan, actual []models.DailyRevenue, names map[int]string) *CompletionSummary {
	type acc struct {
		planned float64
		actual  float64
	}
	byProduct := make(map[int]*acc)
	get := func(id int) *acc {
		a, ok := byProduct[id]
		if !ok {
			a = &acc{}
			byProduct[id] = a
		}
		return a
	}

	for _, p := range planned {
		get(p.ProductID).planned += p.PlannedQuantity
	}
	for _, r := range actual {
		get(r.ProductID).actual += r.Revenue
	}

	ids := make([]int, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	summary := &CompletionSummary{}
	for _, id := range ids {
		a := byProduct[id]
		pc := ProductCompletion{
			ProductID:   id,
			ProductName: names[id],
			Planned:     forecasting.Round2(a.planned),
			Actual:      forecasting.Round2(a.actual),
			Completion:  CompletionPercent(a.planned, a.actual),
		}
		summary.Products = append(summary.Products, pc)
		summary.TotalPlanned += a.planned
		summary.TotalActual += a.actual
	}
	summary.Completion = CompletionPercent(summary.TotalPlanned, summary.TotalActual)
	summary.TotalPlanned = forecasting.Round2(summary.TotalPlanned)
	summary.TotalActual = forecasting.Round2(summary.TotalActual)
	return summary
}

// CompletionPercent returns actual/planned as a percentage rounded to two
// decimals. With no plan the percentage is zero rather than infinite.
func CompletionPercent(planned, actual float64) float64 {
	if planned <= 0 {
		return 0
	}
	return forecasting.Round2(actual / planned * 100)
}
