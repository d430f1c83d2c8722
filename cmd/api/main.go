package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/logging"
	"storefront-checkout/internal/notification"
	"storefront-checkout/internal/pricing"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/server"
	"storefront-checkout/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.CloseDBClient(db); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}()

	queryTimeout := repository.WithQueryTimeout(cfg.Database.Timeout)
	productRepo := repository.NewProductRepository(db, queryTimeout)
	cartRepo := repository.NewCartRepository(db, queryTimeout)
	orderRepo := repository.NewOrderRepository(db, queryTimeout)

	if cfg.Database.SeedProducts {
		if err := productRepo.Seed(ctx); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
	}

	coupons, err := pricing.NewCouponBook(cfg.Coupons)
	if err != nil {
		return fmt.Errorf("load coupons: %w", err)
	}

	var cartCache cache.CartCache = cache.NoopCache{}
	rdb, err := client.InitRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		cartCache = cache.NewRedisCache(rdb, cfg.Redis.CartTTL)
		logger.Info("cart cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var notifier notification.Notifier = notification.LogNotifier{}
	if w := client.NewKafkaWriter(cfg.Kafka); w != nil {
		defer w.Close()
		notifier = notification.NewKafkaNotifier(w)
		logger.Info("order notifications via kafka", zap.String("topic", cfg.Kafka.OrderTopic))
	}

	var (
		paymentClient client.PaymentClient
		sandbox       *client.SandboxClient
	)
	switch cfg.Payment.Provider {
	case "stripe":
		if cfg.Payment.StripeSecret == "" {
			return errors.New("STRIPE_SECRET_KEY is required for the stripe provider")
		}
		paymentClient = client.NewStripeClient(cfg.Payment)
	case "sandbox":
		sandbox = client.NewSandboxClient(cfg.BaseURL)
		paymentClient = sandbox
		logger.Warn("sandbox payment provider active, sessions are paid via /api/sandbox")
	default:
		return fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}

	cartService := service.NewCartService(cartRepo, productRepo, cartCache, coupons, cfg.Payment.Currency)
	checkoutService := service.NewCheckoutService(cartRepo, productRepo, paymentClient, coupons, cfg.BaseURL, cfg.Payment.Currency)
	orderService := service.NewOrderService(db, orderRepo, cartRepo, paymentClient, cartCache, notifier, cfg.Payment.Timeout, cfg.Database.Timeout)

	srv := server.NewServer(logger, cartService, checkoutService, orderService, server.Options{
		JWTSecret:         []byte(cfg.Auth.JWTSecret),
		BaseURL:           cfg.BaseURL,
		CheckoutRateLimit: cfg.CheckoutRateLimit,
		Sandbox:           sandbox,
	})

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("env", cfg.Environment.Name))
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("signal received, starting graceful shutdown")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	orderService.Wait()

	return nil
}
