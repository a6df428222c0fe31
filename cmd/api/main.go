package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/shopcore-backend/api/controllers"
	"github.com/angelmondragon/shopcore-backend/api/routes"
	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/catalog"
	"github.com/angelmondragon/shopcore-backend/internal/checkout"
	"github.com/angelmondragon/shopcore-backend/internal/coupons"
	"github.com/angelmondragon/shopcore-backend/internal/orders"
	"github.com/angelmondragon/shopcore-backend/internal/users"
	stripewebhook "github.com/angelmondragon/shopcore-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
	"github.com/angelmondragon/shopcore-backend/pkg/metrics"
	"github.com/angelmondragon/shopcore-backend/pkg/migrate"
	"github.com/angelmondragon/shopcore-backend/pkg/redis"
	"github.com/angelmondragon/shopcore-backend/pkg/stripe"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	shopMetrics := metrics.NewShopMetrics(registry)

	gdb := dbClient.DB()
	catalogRepo := catalog.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)

	catalogService, err := catalog.NewService(catalogRepo)
	requireResource(ctx, logg, "catalog service", err)

	couponService, err := coupons.NewService(coupons.NewRepository(gdb), time.Now)
	requireResource(ctx, logg, "coupon service", err)

	cartService, err := cart.NewService(cartRepo, catalogRepo, couponService, time.Now)
	requireResource(ctx, logg, "cart service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(gdb),
		Carts:   cartRepo,
		Users:   users.NewRepository(gdb),
		Stock:   catalogRepo,
		Tx:      dbClient,
		Metrics: shopMetrics,
		Logger:  logg,
		Now:     time.Now,
	})
	requireResource(ctx, logg, "order service", err)

	checkoutService, err := checkout.NewService(cartRepo, catalogRepo, stripeClient, time.Now)
	requireResource(ctx, logg, "checkout service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe-webhook")
	requireResource(ctx, logg, "stripe webhook guard", err)

	dispatcher := stripewebhook.NewDispatcher(cfg.Webhook.TaskTimeout, logg)
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:     orderService,
		Dispatcher: dispatcher,
		Guard:      webhookGuard,
		Metrics:    shopMetrics,
		Logger:     logg,
	})
	requireResource(ctx, logg, "stripe webhook service", err)

	router := routes.NewRouter(cfg, logg, routes.Dependencies{
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		IdempotencyStore:   redisClient,
		MetricsGatherer:    registry,
		CatalogService:     catalogService,
		CartService:        cartService,
		CouponService:      couponService,
		OrderService:       orderService,
		CheckoutService:    checkoutService,
		StripeClient:       stripeClient,
		StripeWebhooks:     webhookService,
		StripeWebhookGuard: webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
	dispatcher.Wait()
	logg.Info(serverCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
