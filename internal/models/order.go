package models

import "time"

// Order is a customer order. Orders are immutable once recorded; the
// forecasting engine only ever reads them.
type Order struct {
	ID        int       `json:"id"`
	ClientID  int       `json:"client_id"`
	OrderDate time.Time `json:"order_date"`
	Status    string    `json:"status"`
}

// OrderLine is a single product position on an order. Price is the line
// total (quantity x unit price).
type OrderLine struct {
	ID        int     `json:"id"`
	OrderID   int     `json:"order_id"`
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// DailyRevenue is one aggregated sales fact: total revenue for a product
// on a calendar day.
type DailyRevenue struct {
	Date      time.Time `json:"date"`
	ProductID int       `json:"product_id"`
	Revenue   float64   `json:"revenue"`
}

// ClientActivity holds per-client aggregates over the historical window.
type ClientActivity struct {
	ClientID     int     `json:"client_id"`
	OrderCount   int64   `json:"order_count"`
	AvgLineTotal float64 `json:"avg_line_total"`
}
