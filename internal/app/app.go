package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aurumcart/aurum-backend/internal/cache"
	"github.com/aurumcart/aurum-backend/internal/domain/auth"
	"github.com/aurumcart/aurum-backend/internal/domain/invoice"
	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
	"github.com/aurumcart/aurum-backend/internal/domain/referral"
	"github.com/aurumcart/aurum-backend/internal/domain/settings"
	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
	"github.com/aurumcart/aurum-backend/internal/gateway"
	"github.com/aurumcart/aurum-backend/internal/httpapi"
	"github.com/aurumcart/aurum-backend/internal/repository"
	"github.com/aurumcart/aurum-backend/pkg/health"
	"github.com/aurumcart/aurum-backend/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	accountRepo := repository.NewAccountRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	voucherRepo := repository.NewVoucherRepository(pool)
	loyaltyRepo := repository.NewLoyaltyRepository(pool)
	emiPlanRepo := repository.NewEMIPlanRepository(pool)
	referralRepo := repository.NewReferralRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	paySettingsRepo := repository.NewPaymentSettingsRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Settings store, optionally cached through Redis.
	var settingsStore settings.Store = settingsRepo
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		settingsStore = cache.NewSettings(settingsRepo, rdb, cfg.SettingsCacheTTL, lg.Named("cache"))
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// External payment gateway.
	gw := gateway.NewRazorpay(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.Timeout)

	// Domain services.
	voucherEval := voucher.NewEvaluator(voucherRepo)
	loyaltySvc := loyalty.NewService(loyaltyRepo, settingsStore)
	paymentResolver := payment.NewResolver(emiPlanRepo)
	referralSvc := referral.NewService(referralRepo, accountRepo, settingsStore)
	orderSvc := order.NewService(
		orderRepo, cartRepo, productRepo, settingsStore,
		voucherEval, loyaltySvc, paymentResolver, referralSvc, gw,
	)
	invoiceSvc := invoice.NewService(invoiceRepo, orderSvc, accountRepo, settingsStore)
	verifier := auth.NewVerifier(apikeyRepo, []byte(cfg.APIKeyPepper))

	// HTTP surface.
	api := httpapi.NewServer(
		orderSvc, loyaltySvc, voucherEval, referralSvc, invoiceSvc,
		paymentResolver, paySettingsRepo, settingsStore, verifier,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Account-ID", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("aurum-api"),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
