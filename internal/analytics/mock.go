package analytics

import (
	"context"
	"time"

	"github.com/kmorozova/demandcast/internal/models"
)

var _ Service = (*MockAnalytics)(nil)

// MockAnalytics is an in-memory implementation of Service for testing.
type MockAnalytics struct {
	Revenue  []models.DailyRevenue
	Activity []models.ClientActivity
	Err      error

	Recorded []models.OrderLine
}

// NewMockAnalytics creates a new mock analytics instance.
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

func (m *MockAnalytics) RecordOrderLine(ctx context.Context, orderID, clientID int, orderDate time.Time, line models.OrderLine) error {
	if m.Err != nil {
		return m.Err
	}
	m.Recorded = append(m.Recorded, line)
	return nil
}

func (m *MockAnalytics) DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.DailyRevenue
	for _, r := range m.Revenue {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MockAnalytics) ClientActivity(ctx context.Context, from, to time.Time) ([]models.ClientActivity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Activity, nil
}
