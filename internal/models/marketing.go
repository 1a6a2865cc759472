package models

import "time"

// MarketingActivity is a promotion running over an inclusive date range,
// linked to zero or more products.
type MarketingActivity struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Description string    `json:"description,omitempty"`
	ProductIDs  []int     `json:"product_ids,omitempty"`
}

// ActiveOn reports whether the activity runs on the given day. Both range
// ends are inclusive.
func (a MarketingActivity) ActiveOn(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(a.StartDate.Truncate(24*time.Hour)) && !d.After(a.EndDate.Truncate(24*time.Hour))
}

// Includes reports whether the activity is linked to the given product.
func (a MarketingActivity) Includes(productID int) bool {
	for _, id := range a.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
