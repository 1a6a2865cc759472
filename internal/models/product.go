package models

import "time"

// Product is a catalog entry. Price is the unit price in the single
// monetary unit the system operates in. ExpiryDate and PHLevel are
// optional; a nil PHLevel means the product has no measured pH.
type Product struct {
	ID                   int        `json:"id"`
	Name                 string     `json:"name"`
	Category             string     `json:"category"`
	Price                float64    `json:"price"`
	ExpiryDate           *time.Time `json:"expiry_date,omitempty"`
	TemperatureSensitive bool       `json:"temperature_sensitive"`
	Brand                string     `json:"brand"`
	StockQuantity        int        `json:"stock_quantity"`
	PHLevel              *float64   `json:"ph_level,omitempty"`
}

// Client identifies a buyer. Only aggregate order statistics flow into
// forecasting; individual identity never does.
type Client struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	ClientType string `json:"client_type"`
	Region     string `json:"region"`
}
