// Command fake_data seeds the catalog and order history with plausible
// demo data: products, clients, a year of orders and a handful of
// marketing activities. With -simulate it keeps appending fresh orders for
// today so forecast runs always have recent history to chew on.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/analytics"
	"github.com/kmorozova/demandcast/internal/config"
	"github.com/kmorozova/demandcast/internal/db"
	"github.com/kmorozova/demandcast/internal/forecasting"
	"github.com/kmorozova/demandcast/internal/models"
	"github.com/kmorozova/demandcast/internal/observability"
)

var (
	productCount  = flag.Int("products", 100, "number of products")
	clientCount   = flag.Int("clients", 50, "number of clients")
	historyDays   = flag.Int("days", 365, "days of order history")
	ordersPerDay  = flag.Int("orders", 10, "orders per history day")
	activityCount = flag.Int("activities", 10, "number of marketing activities")
	seed          = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	simulate      = flag.Bool("simulate", false, "keep generating today's orders on a timer")
	simEvery      = flag.Duration("interval", 30*time.Second, "simulation tick interval")
)

var categories = []string{"Skincare", "Haircare", "Makeup", "Fragrance", "Body Care"}

var brands = []string{"Lumiére", "DermaPure", "Velvet Rose", "AquaBloom", "Nordic Glow"}

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	analyticsSvc, err := analytics.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = analyticsSvc.Close() }()

	ctx := context.Background()
	r := rand.New(rand.NewSource(*seed))

	products, err := ensureProducts(ctx, pg, r, logger)
	if err != nil {
		logger.Fatal("seed products", zap.Error(err))
	}
	clients, err := ensureClients(ctx, pg, r, logger)
	if err != nil {
		logger.Fatal("seed clients", zap.Error(err))
	}
	if err := ensureActivities(ctx, pg, r, products, logger); err != nil {
		logger.Fatal("seed activities", zap.Error(err))
	}

	today := forecasting.Midnight(time.Now())
	if *simulate {
		logger.Info("simulation mode", zap.Duration("interval", *simEvery))
		ticker := time.NewTicker(*simEvery)
		defer ticker.Stop()
		for range ticker.C {
			if err := generateOrders(ctx, analyticsSvc, r, products, clients, forecasting.Midnight(time.Now()), 1); err != nil {
				logger.Error("simulate orders", zap.Error(err))
			}
		}
		return
	}

	logger.Info("seeding order history",
		zap.Int("days", *historyDays),
		zap.Int("orders_per_day", *ordersPerDay))
	for d := *historyDays; d >= 1; d-- {
		day := today.AddDate(0, 0, -d)
		if err := generateOrders(ctx, analyticsSvc, r, products, clients, day, *ordersPerDay); err != nil {
			logger.Fatal("seed orders", zap.Error(err), zap.Time("day", day))
		}
	}
	logger.Info("done")
}

// ensureProducts tops the catalog up to the requested size.
func ensureProducts(ctx context.Context, pg *db.Postgres, r *rand.Rand, logger *zap.Logger) ([]models.Product, error) {
	existing, err := pg.LoadProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(existing); i < *productCount; i++ {
		p := models.Product{
			Name:                 fmt.Sprintf("%s %s #%d", brands[r.Intn(len(brands))], categories[r.Intn(len(categories))], i+1),
			Category:             categories[r.Intn(len(categories))],
			Price:                5 + r.Float64()*95,
			TemperatureSensitive: r.Intn(10) == 0,
			Brand:                brands[r.Intn(len(brands))],
			StockQuantity:        r.Intn(500),
		}
		// Roughly a third of the assortment carries an expiry date.
		if r.Intn(3) == 0 {
			exp := time.Now().AddDate(0, r.Intn(24)-6, 0)
			p.ExpiryDate = &exp
		}
		// Half the products have a measured pH.
		if r.Intn(2) == 0 {
			ph := 3.5 + r.Float64()*4.5
			p.PHLevel = &ph
		}
		if err := pg.InsertProduct(ctx, &p); err != nil {
			return nil, err
		}
		existing = append(existing, p)
	}
	logger.Info("products ready", zap.Int("count", len(existing)))
	return existing, nil
}

func ensureClients(ctx context.Context, pg *db.Postgres, r *rand.Rand, logger *zap.Logger) ([]models.Client, error) {
	existing, err := pg.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	types := []string{"pharmacy", "salon", "retail chain", "online shop"}
	regions := []string{"North", "South", "East", "West", "Central"}
	for i := len(existing); i < *clientCount; i++ {
		c := models.Client{
			Name:       fmt.Sprintf("Client %d", i+1),
			ClientType: types[r.Intn(len(types))],
			Region:     regions[r.Intn(len(regions))],
		}
		if err := pg.InsertClient(ctx, &c); err != nil {
			return nil, err
		}
		existing = append(existing, c)
	}
	logger.Info("clients ready", zap.Int("count", len(existing)))
	return existing, nil
}

func ensureActivities(ctx context.Context, pg *db.Postgres, r *rand.Rand, products []models.Product, logger *zap.Logger) error {
	wideFrom := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	wideTo := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	existing, err := pg.LoadActivities(ctx, wideFrom, wideTo)
	if err != nil {
		return err
	}
	for i := len(existing); i < *activityCount; i++ {
		start := forecasting.Midnight(time.Now()).AddDate(0, 0, r.Intn(120)-60)
		a := models.MarketingActivity{
			Name:        fmt.Sprintf("Promo %d", i+1),
			StartDate:   start,
			EndDate:     start.AddDate(0, 0, 7+r.Intn(21)),
			Description: "generated demo campaign",
		}
		for _, p := range pickProducts(r, products, 1+r.Intn(5)) {
			a.ProductIDs = append(a.ProductIDs, p.ID)
		}
		if err := pg.InsertActivity(ctx, &a); err != nil {
			return err
		}
	}
	logger.Info("activities ready", zap.Int("count", *activityCount))
	return nil
}

func pickProducts(r *rand.Rand, products []models.Product, n int) []models.Product {
	if n > len(products) {
		n = len(products)
	}
	idx := r.Perm(len(products))[:n]
	out := make([]models.Product, 0, n)
	for _, i := range idx {
		out = append(out, products[i])
	}
	return out
}

// generateOrders writes count orders dated day into the analytics stream.
func generateOrders(ctx context.Context, svc *analytics.Analytics, r *rand.Rand, products []models.Product, clients []models.Client, day time.Time, count int) error {
	if len(products) == 0 || len(clients) == 0 {
		return fmt.Errorf("need products and clients before orders")
	}
	for i := 0; i < count; i++ {
		orderID := int(day.Unix())*1000 + r.Intn(1000)
		client := clients[r.Intn(len(clients))]
		lines := 1 + r.Intn(5)
		for j := 0; j < lines; j++ {
			p := products[r.Intn(len(products))]
			qty := 1 + r.Intn(20)
			line := models.OrderLine{
				OrderID:   orderID,
				ProductID: p.ID,
				Quantity:  qty,
				Price:     forecasting.Round2(p.Price * float64(qty)),
			}
			if err := svc.RecordOrderLine(ctx, orderID, client.ID, day, line); err != nil {
				return err
			}
		}
	}
	return nil
}
