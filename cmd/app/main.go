package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/wichananm65/shop-admin-backend/internal/auth"
	"github.com/wichananm65/shop-admin-backend/internal/category"
	"github.com/wichananm65/shop-admin-backend/internal/config"
	"github.com/wichananm65/shop-admin-backend/internal/coupon"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/idempotency"
	"github.com/wichananm65/shop-admin-backend/internal/inventory"
	"github.com/wichananm65/shop-admin-backend/internal/order"
	"github.com/wichananm65/shop-admin-backend/internal/payment"
	"github.com/wichananm65/shop-admin-backend/internal/paymentprovider"
	"github.com/wichananm65/shop-admin-backend/internal/product"
	"github.com/wichananm65/shop-admin-backend/internal/refund"
	"github.com/wichananm65/shop-admin-backend/internal/shipping"
	"github.com/wichananm65/shop-admin-backend/internal/store"
	"github.com/wichananm65/shop-admin-backend/internal/telemetry"
)

type routes interface {
	RegisterProtectedRoutes(app fiber.Router)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Exporter, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	isolation, err := database.ParseIsolation(cfg.Isolation)
	if err != nil {
		return err
	}
	tx := database.NewSQLTransactor(db, isolation)

	keys, err := openIdempotency(cfg.Idempotency)
	if err != nil {
		return fmt.Errorf("idempotency: %w", err)
	}
	defer keys.Close()

	handlers := wire(db, tx, keys, logger, metrics)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	setupCORS(app)
	app.Use(telemetry.RequestLogger(logger))
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// everything under /api/v1 requires a bearer token
	app.Use(auth.New(cfg.JWTSecret, "/api/v1"))
	app.Use(auth.Propagate())
	for _, h := range handlers {
		h.RegisterProtectedRoutes(app)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "idempotency", cfg.Idempotency.Backend)
		errc <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// wire builds repositories, services and handlers in dependency order.
func wire(db *sql.DB, tx database.Transactor, keys idempotency.Store, logger *slog.Logger, metrics *telemetry.Metrics) []routes {
	storeRepo := store.NewPostgresRepository(db)
	currencyRepo := currency.NewPostgresRepository(db)
	categoryRepo := category.NewPostgresRepository(db)
	productRepo := product.NewPostgresRepository(db)
	couponRepo := coupon.NewPostgresRepository(db)
	shippingRepo := shipping.NewPostgresRepository(db)
	providerRepo := paymentprovider.NewPostgresRepository(db)
	orderRepo := order.NewPostgresRepository(db)
	refundRepo := refund.NewPostgresRepository(db)
	paymentRepo := payment.NewPostgresRepository(db)

	stores := store.NewService(storeRepo)
	currencies := currency.NewService(currencyRepo)
	currencies.GuardDelete("orders", orderRepo)
	currencies.GuardDelete("payment providers", providerRepo)
	currencies.GuardDelete("variant prices", productRepo)
	currencies.GuardDelete("payment transactions", paymentRepo)

	categories := category.NewService(categoryRepo, stores)
	products := product.NewService(productRepo, stores, currencies, categories)
	products.GuardVariantDelete(orderRepo)

	coupons := coupon.NewService(couponRepo, stores, coupon.CatalogFuncs{
		Products:    products.CheckProducts,
		Categories:  categories.CheckCategories,
		Collections: categories.CheckCollections,
	})
	coupons.TrackOrders(orderRepo)

	shippingMethods := shipping.NewService(shippingRepo, tx, stores, currencies)
	providers := paymentprovider.NewService(providerRepo, stores, currencies)
	stock := inventory.NewService(productRepo, logger, metrics)

	orders := order.NewService(order.Deps{
		Repo:            orderRepo,
		Tx:              tx,
		Stores:          stores,
		Currencies:      currencies,
		Coupons:         coupons,
		Providers:       providers,
		ShippingMethods: shippingMethods,
		Variants:        products,
		Inventory:       stock,
		Refunds:         refundRepo,
		Payments:        paymentRepo,
		Logger:          logger,
		Metrics:         metrics,
	})
	refunds := refund.NewService(refundRepo, tx, orders, stock, logger, metrics)
	payments := payment.NewService(paymentRepo, tx, orders, providers, currencies,
		payment.WithIdempotency(keys),
		payment.WithLogger(logger),
		payment.WithMetrics(metrics),
	)

	return []routes{
		store.NewHandler(stores),
		currency.NewHandler(currencies),
		category.NewHandler(categories),
		product.NewHandler(products),
		coupon.NewHandler(coupons),
		shipping.NewHandler(shippingMethods),
		paymentprovider.NewHandler(providers),
		order.NewHandler(orders),
		refund.NewHandler(refunds),
		payment.NewHandler(payments),
	}
}

func openIdempotency(cfg config.IdempotencyConfig) (idempotency.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, err
		}
		return idempotency.NewRedisStore(client, idempotency.WithTTL(cfg.TTL)), nil
	case "bolt":
		return idempotency.OpenBoltStore(cfg.BoltPath, cfg.TTL)
	default:
		return idempotency.NewMemoryStore(cfg.TTL), nil
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + payment.IdempotencyHeader,
	}))
}
