package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS products (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    price DOUBLE PRECISION NOT NULL,
    expiry_date DATE NULL,
    temperature_sensitive BOOLEAN NOT NULL DEFAULT FALSE,
    brand TEXT,
    stock_quantity INT NOT NULL DEFAULT 0,
    ph_level DOUBLE PRECISION NULL
);

CREATE TABLE IF NOT EXISTS clients (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    client_type TEXT,
    region TEXT
);

CREATE TABLE IF NOT EXISTS marketing_activities (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,
    description TEXT
);

CREATE TABLE IF NOT EXISTS activity_products (
    id SERIAL PRIMARY KEY,
    activity_id INT NOT NULL REFERENCES marketing_activities(id),
    product_id INT NOT NULL REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS sales_plans (
    id SERIAL PRIMARY KEY,
    plan_date DATE NOT NULL,
    product_id INT NULL REFERENCES products(id),
    planned_quantity DOUBLE PRECISION NOT NULL,
    forecast_quantity DOUBLE PRECISION NOT NULL
);

-- one plan row per (date, product)
CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_plans_date_product ON sales_plans (plan_date, product_id);
CREATE INDEX IF NOT EXISTS idx_activity_products_activity ON activity_products (activity_id);
CREATE INDEX IF NOT EXISTS idx_activity_products_product ON activity_products (product_id);
CREATE INDEX IF NOT EXISTS idx_marketing_activities_dates ON marketing_activities (start_date, end_date);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadProducts retrieves the full product catalog.
func (p *Postgres) LoadProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, name, category, price, expiry_date, temperature_sensitive, brand, stock_quantity, ph_level FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var products []models.Product
	for rows.Next() {
		var pr models.Product
		var expiry sql.NullTime
		var brand sql.NullString
		var ph sql.NullFloat64
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Category, &pr.Price, &expiry, &pr.TemperatureSensitive, &brand, &pr.StockQuantity, &ph); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if expiry.Valid {
			d := expiry.Time
			pr.ExpiryDate = &d
		}
		if brand.Valid {
			pr.Brand = brand.String
		}
		if ph.Valid {
			v := ph.Float64
			pr.PHLevel = &v
		}
		products = append(products, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}

// LoadClients retrieves all clients.
func (p *Postgres) LoadClients(ctx context.Context) ([]models.Client, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, name, COALESCE(client_type, ''), COALESCE(region, '') FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.ClientType, &c.Region); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return clients, nil
}

// LoadActivities retrieves marketing activities whose date range overlaps
// [from, to], together with their linked product ids.
func (p *Postgres) LoadActivities(ctx context.Context, from, to time.Time) ([]models.MarketingActivity, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT a.id, a.name, a.start_date, a.end_date, COALESCE(a.description, ''),
        COALESCE(array_agg(ap.product_id) FILTER (WHERE ap.product_id IS NOT NULL), '{}')
        FROM marketing_activities a
        LEFT JOIN activity_products ap ON ap.activity_id = a.id
        WHERE a.start_date <= $2 AND a.end_date >= $1
        GROUP BY a.id, a.name, a.start_date, a.end_date, a.description
        ORDER BY a.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query marketing activities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var activities []models.MarketingActivity
	for rows.Next() {
		var a models.MarketingActivity
		var productIDs []int64
		if err := rows.Scan(&a.ID, &a.Name, &a.StartDate, &a.EndDate, &a.Description, pq.Array(&productIDs)); err != nil {
			return nil, fmt.Errorf("scan marketing activity: %w", err)
		}
		for _, id := range productIDs {
			a.ProductIDs = append(a.ProductIDs, int(id))
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return activities, nil
}

// LoadPlans retrieves sales plan rows with plan dates inside [from, to].
func (p *Postgres) LoadPlans(ctx context.Context, from, to time.Time) ([]models.SalesPlan, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, plan_date, product_id, planned_quantity, forecast_quantity
        FROM sales_plans WHERE plan_date >= $1 AND plan_date <= $2 ORDER BY plan_date, product_id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query sales plans: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var plans []models.SalesPlan
	for rows.Next() {
		var sp models.SalesPlan
		if err := rows.Scan(&sp.ID, &sp.PlanDate, &sp.ProductID, &sp.PlannedQuantity, &sp.ForecastQuantity); err != nil {
			return nil, fmt.Errorf("scan sales plan: %w", err)
		}
		plans = append(plans, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return plans, nil
}

// UpsertPlans merges the given plan rows into storage by (plan_date,
// product_id) inside a single transaction: existing rows are updated in
// place, missing rows inserted. Either every row commits or none does.
func (p *Postgres) UpsertPlans(ctx context.Context, plans []models.SalesPlan) (inserted, updated int, err error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin plan upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, sp := range plans {
		var id int
		lookupErr := tx.QueryRowContext(ctx,
			`SELECT id FROM sales_plans WHERE plan_date = $1 AND product_id = $2`,
			sp.PlanDate, sp.ProductID).Scan(&id)
		switch {
		case lookupErr == nil:
			if _, err = tx.ExecContext(ctx,
				`UPDATE sales_plans SET planned_quantity = $1, forecast_quantity = $2 WHERE id = $3`,
				sp.PlannedQuantity, sp.ForecastQuantity, id); err != nil {
				return 0, 0, fmt.Errorf("update plan %s/%d: %w", sp.PlanDate.Format(models.DateLayout), sp.ProductID, err)
			}
			updated++
		case errors.Is(lookupErr, sql.ErrNoRows):
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO sales_plans (plan_date, product_id, planned_quantity, forecast_quantity) VALUES ($1, $2, $3, $4)`,
				sp.PlanDate, sp.ProductID, sp.PlannedQuantity, sp.ForecastQuantity); err != nil {
				return 0, 0, fmt.Errorf("insert plan %s/%d: %w", sp.PlanDate.Format(models.DateLayout), sp.ProductID, err)
			}
			inserted++
		default:
			err = fmt.Errorf("lookup plan %s/%d: %w", sp.PlanDate.Format(models.DateLayout), sp.ProductID, lookupErr)
			return 0, 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit plan upsert: %w", err)
	}
	return inserted, updated, nil
}

// InsertProduct inserts a new product and returns the generated ID.
func (p *Postgres) InsertProduct(ctx context.Context, pr *models.Product) error {
	err := p.DB.QueryRowContext(ctx, `INSERT INTO products (name, category, price, expiry_date, temperature_sensitive, brand, stock_quantity, ph_level)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		pr.Name, pr.Category, pr.Price, pr.ExpiryDate, pr.TemperatureSensitive, pr.Brand, pr.StockQuantity, pr.PHLevel).Scan(&pr.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct updates an existing product.
func (p *Postgres) UpdateProduct(ctx context.Context, pr models.Product) error {
	_, err := p.DB.ExecContext(ctx, `UPDATE products SET name=$1, category=$2, price=$3, expiry_date=$4, temperature_sensitive=$5, brand=$6, stock_quantity=$7, ph_level=$8 WHERE id=$9`,
		pr.Name, pr.Category, pr.Price, pr.ExpiryDate, pr.TemperatureSensitive, pr.Brand, pr.StockQuantity, pr.PHLevel, pr.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product by ID, first deleting dependent rows.
func (p *Postgres) DeleteProduct(ctx context.Context, id int) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM activity_products WHERE product_id=$1`, id); err != nil {
		return fmt.Errorf("delete activity links for product: %w", err)
	}
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM sales_plans WHERE product_id=$1`, id); err != nil {
		return fmt.Errorf("delete plans for product: %w", err)
	}
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// InsertClient inserts a new client and returns the generated ID.
func (p *Postgres) InsertClient(ctx context.Context, c *models.Client) error {
	err := p.DB.QueryRowContext(ctx, `INSERT INTO clients (name, client_type, region) VALUES ($1,$2,$3) RETURNING id`,
		c.Name, c.ClientType, c.Region).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// InsertActivity inserts a marketing activity with its product links.
func (p *Postgres) InsertActivity(ctx context.Context, a *models.MarketingActivity) (err error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert activity: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowContext(ctx, `INSERT INTO marketing_activities (name, start_date, end_date, description) VALUES ($1,$2,$3,$4) RETURNING id`,
		a.Name, a.StartDate, a.EndDate, a.Description).Scan(&a.ID); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	for _, pid := range a.ProductIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO activity_products (activity_id, product_id) VALUES ($1,$2)`, a.ID, pid); err != nil {
			return fmt.Errorf("link activity product %d: %w", pid, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit insert activity: %w", err)
	}
	return nil
}

// UpdateActivity updates an activity and replaces its product links.
func (p *Postgres) UpdateActivity(ctx context.Context, a models.MarketingActivity) (err error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update activity: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE marketing_activities SET name=$1, start_date=$2, end_date=$3, description=$4 WHERE id=$5`,
		a.Name, a.StartDate, a.EndDate, a.Description, a.ID); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM activity_products WHERE activity_id=$1`, a.ID); err != nil {
		return fmt.Errorf("clear activity links: %w", err)
	}
	for _, pid := range a.ProductIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO activity_products (activity_id, product_id) VALUES ($1,$2)`, a.ID, pid); err != nil {
			return fmt.Errorf("link activity product %d: %w", pid, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update activity: %w", err)
	}
	return nil
}

// DeleteActivity removes a marketing activity and its product links.
func (p *Postgres) DeleteActivity(ctx context.Context, id int) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM activity_products WHERE activity_id=$1`, id); err != nil {
		return fmt.Errorf("delete activity links: %w", err)
	}
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM marketing_activities WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}
