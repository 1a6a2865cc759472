package forecasting

import "errors"

// Run-level blocking conditions. Callers must be able to tell these apart
// from a genuine empty result: each one names a different missing input.
var (
	// ErrNoProducts means the product catalog is empty.
	ErrNoProducts = errors.New("no products in catalog")

	// ErrNoSalesHistory means no order lines exist in the historical window.
	ErrNoSalesHistory = errors.New("no sales history in window")

	// ErrNoForecastableProducts means every product's series summed to zero
	// or every model fit failed.
	ErrNoForecastableProducts = errors.New("no product produced a usable forecast")
)
