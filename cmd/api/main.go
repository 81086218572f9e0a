package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oklog/ulid/v2"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/handlers"
	"github.com/eatsalad239/gato-blanco-ops/internal/payments"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/config"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/idempotency"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/observability"
	"github.com/eatsalad239/gato-blanco-ops/internal/repositories/kv"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("ops")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var store kv.Store
	var pinger handlers.Pinger
	var idemStore idempotency.Store
	if cfg.Redis.InMemory {
		logger.Info("running against in-memory store")
		store = kv.NewMemoryStore()
		idemStore = idempotency.NewMemoryStore()
	} else {
		redisStore, err := kv.NewRedisStore(ctx, kv.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		store = redisStore
		pinger = redisStore
		idemStore = idempotency.NewRedisStore(redisStore.Client(),
			idempotency.WithKeyNamespace(cfg.Redis.KeyPrefix+":idem"))
	}

	registry, err := kv.NewRegistry(store)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	clock := func() time.Time { return time.Now().UTC() }
	newID := func() string { return ulid.Make().String() }
	serviceLogger := observability.ServiceEventLogger(logger.Named("services"))
	policy := domain.NewPricingPolicy(cfg.Pricing.ForeignMarkup)

	ledgerService, err := services.NewLedgerService(services.LedgerServiceDeps{
		Customers:   registry.Customers(),
		Tx:          registry,
		Clock:       clock,
		IDGenerator: newID,
		Logger:      serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise ledger service", zap.Error(err))
	}

	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory:   registry.Inventory(),
		Tx:          registry,
		Clock:       clock,
		IDGenerator: newID,
		Logger:      serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      registry.Orders(),
		Ledger:      ledgerService,
		Inventory:   inventoryService,
		Tx:          registry,
		Policy:      policy,
		Clock:       clock,
		IDGenerator: newID,
		Logger:      serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	bookingService, err := services.NewBookingService(services.BookingServiceDeps{
		Bookings:    registry.Bookings(),
		Ledger:      ledgerService,
		Tx:          registry,
		Policy:      policy,
		Clock:       clock,
		IDGenerator: newID,
		Logger:      serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise booking service", zap.Error(err))
	}

	paymentsLogger := observability.ServiceEventLogger(logger.Named("payments"))
	if strings.TrimSpace(cfg.PSP.StripeAPIKey) == "" {
		logger.Fatal("stripe api key is required for settlement")
	}
	gateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: paymentsLogger,
		Clock:  clock,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment gateway", zap.Error(err))
	}
	checkout, err := payments.NewStripeCheckout(payments.StripeCheckoutConfig{
		APIKey:     cfg.PSP.StripeAPIKey,
		SuccessURL: cfg.PSP.CheckoutSuccessURL,
		CancelURL:  cfg.PSP.CheckoutCancelURL,
		Logger:     paymentsLogger,
		Clock:      clock,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout provider", zap.Error(err))
	}
	wallet := payments.WalletCapabilityFunc(func(context.Context) bool {
		return cfg.Payments.WalletEnabled
	})

	paymentService, err := services.NewPaymentService(services.PaymentServiceDeps{
		Transactions: registry.Transactions(),
		Customers:    registry.Customers(),
		Gateway:      gateway,
		Wallet:       wallet,
		Checkout:     checkout,
		Fees: services.FeeSchedule{
			CardBP:             cfg.Payments.CardFeeBP,
			WalletBP:           cfg.Payments.WalletFeeBP,
			ForeignSurchargeBP: cfg.Payments.ForeignSurchargeBP,
		},
		SettlementTimeout: cfg.Payments.SettlementTimeout,
		Clock:             clock,
		IDGenerator:       newID,
		Logger:            serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment service", zap.Error(err))
	}

	alertService, err := services.NewAlertService(services.AlertServiceDeps{
		Inventory: inventoryService,
		Orders:    registry.Orders(),
		Tx:        registry,
		Thresholds: services.AlertThresholds{
			PendingBacklogLimit: cfg.Alerts.PendingBacklogLimit,
			DailyOrderLimit:     cfg.Alerts.DailyOrderLimit,
		},
		Clock:  clock,
		Logger: serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise alert service", zap.Error(err))
	}

	var narrator services.Narrator
	if strings.TrimSpace(cfg.Narrator.Endpoint) != "" {
		narrator, err = services.NewHTTPNarrator(services.HTTPNarratorConfig{
			Endpoint: cfg.Narrator.Endpoint,
			APIKey:   cfg.Narrator.APIKey,
			Model:    cfg.Narrator.Model,
			Timeout:  cfg.Narrator.Timeout,
		})
		if err != nil {
			logger.Fatal("failed to initialise report narrator", zap.Error(err))
		}
	}

	analyticsService, err := services.NewAnalyticsService(services.AnalyticsServiceDeps{
		Orders:    registry.Orders(),
		Bookings:  registry.Bookings(),
		Customers: registry.Customers(),
		Tx:        registry,
		Alerts:    alertService,
		Narrator:  narrator,
		Clock:     clock,
		Logger:    serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise analytics service", zap.Error(err))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		idempotency.Middleware(idemStore,
			idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency")))),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(pinger)),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(orderService).Routes),
		handlers.WithBookingRoutes(handlers.NewBookingHandlers(bookingService).Routes),
		handlers.WithCustomerRoutes(handlers.NewCustomerHandlers(ledgerService).Routes),
		handlers.WithInventoryRoutes(handlers.NewInventoryHandlers(inventoryService).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(paymentService).Routes),
		handlers.WithAnalyticsRoutes(handlers.NewAnalyticsHandlers(analyticsService).Routes),
		handlers.WithAlertRoutes(handlers.NewAlertHandlers(alertService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("gato blanco ops api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
