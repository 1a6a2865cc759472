// Package analytics stores the append-only order event stream in ClickHouse
// and answers the aggregate queries the forecasting engine needs: per-product
// daily revenue over a window and per-client activity statistics.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/kmorozova/demandcast/internal/models"
)

// Service defines the interface for order analytics operations.
// Implementations should return ErrUnavailable when the underlying storage
// is not configured.
type Service interface {
	// RecordOrderLine appends one order line event.
	RecordOrderLine(ctx context.Context, orderID, clientID int, orderDate time.Time, line models.OrderLine) error
	// DailyRevenue returns per-product revenue totals per calendar day in
	// [from, to]. Days without sales for a product are absent from the result.
	DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error)
	// ClientActivity returns per-client order counts and average line totals
	// over [from, to]. Clients without orders in the window are absent.
	ClientActivity(ctx context.Context, from, to time.Time) ([]models.ClientActivity, error)
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB *sql.DB
}

var _ Service = (*Analytics)(nil)

// InitClickHouse connects to ClickHouse and ensures the order_events table exists.
func InitClickHouse(dsn string, maxOpenConns int) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS order_events (
       order_date  Date,
       order_id    Int64,
       client_id   Int32,
       product_id  Int32,
       quantity    Int32,
       price       Float64,
       recorded_at DateTime
   ) ENGINE=MergeTree() ORDER BY (order_date, product_id)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db}, nil
}

// RecordOrderLine inserts a single order line event. price carries the line
// total (quantity x unit price).
func (a *Analytics) RecordOrderLine(ctx context.Context, orderID, clientID int, orderDate time.Time, line models.OrderLine) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	stmt := `INSERT INTO order_events (order_date, order_id, client_id, product_id, quantity, price, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.DB.ExecContext(ctx, stmt, orderDate, int64(orderID), int32(clientID), int32(line.ProductID), int32(line.Quantity), line.Price, time.Now()); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.Int("order_id", orderID))
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

// DailyRevenue aggregates order lines into (day, product, revenue) rows.
func (a *Analytics) DailyRevenue(ctx context.Context, from, to time.Time) ([]models.DailyRevenue, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	query := `
		SELECT
			order_date,
			product_id,
			sum(quantity * price) AS revenue
		FROM order_events
		WHERE order_date >= ? AND order_date <= ?
		GROUP BY order_date, product_id
		ORDER BY order_date, product_id`

	rows, err := a.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily revenue: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			zap.L().Warn("failed to close rows", zap.Error(closeErr))
		}
	}()

	var out []models.DailyRevenue
	for rows.Next() {
		var r models.DailyRevenue
		var productID int32
		if err := rows.Scan(&r.Date, &productID, &r.Revenue); err != nil {
			return nil, fmt.Errorf("scan daily revenue: %w", err)
		}
		r.ProductID = int(productID)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily revenue: %w", err)
	}
	return out, nil
}

// ClientActivity aggregates per-client order counts and average line totals.
func (a *Analytics) ClientActivity(ctx context.Context, from, to time.Time) ([]models.ClientActivity, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	query := `
		SELECT
			client_id,
			count(DISTINCT order_id) AS order_count,
			avg(quantity * price) AS avg_line_total
		FROM order_events
		WHERE order_date >= ? AND order_date <= ?
		GROUP BY client_id
		ORDER BY client_id`

	rows, err := a.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query client activity: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			zap.L().Warn("failed to close rows", zap.Error(closeErr))
		}
	}()

	var out []models.ClientActivity
	for rows.Next() {
		var c models.ClientActivity
		var clientID int32
		if err := rows.Scan(&clientID, &c.OrderCount, &c.AvgLineTotal); err != nil {
			return nil, fmt.Errorf("scan client activity: %w", err)
		}
		c.ClientID = int(clientID)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client activity: %w", err)
	}
	return out, nil
}

// Close shuts down the ClickHouse connection.
func (a *Analytics) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
