package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/dvalchev/storefront/internal/api"
	"github.com/dvalchev/storefront/internal/auth"
	"github.com/dvalchev/storefront/internal/cache"
	"github.com/dvalchev/storefront/internal/cart"
	cartpostgres "github.com/dvalchev/storefront/internal/cart/postgres"
	"github.com/dvalchev/storefront/internal/catalog"
	catalogpostgres "github.com/dvalchev/storefront/internal/catalog/postgres"
	"github.com/dvalchev/storefront/internal/config"
	"github.com/dvalchev/storefront/internal/coupon"
	couponpostgres "github.com/dvalchev/storefront/internal/coupon/postgres"
	"github.com/dvalchev/storefront/internal/database"
	idempostgres "github.com/dvalchev/storefront/internal/idempotency/postgres"
	inventorypostgres "github.com/dvalchev/storefront/internal/inventory/postgres"
	"github.com/dvalchev/storefront/internal/notify"
	orderspostgres "github.com/dvalchev/storefront/internal/orders/adapters/postgres"
	ordersapp "github.com/dvalchev/storefront/internal/orders/app"
	"github.com/dvalchev/storefront/internal/orders/app/commands"
	ordersmetrics "github.com/dvalchev/storefront/internal/orders/metrics"
	"github.com/dvalchev/storefront/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Telemetry.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing && cfg.Telemetry.OTelEndpoint != "",
		EnableMetrics:  cfg.Telemetry.EnableMetrics && cfg.Telemetry.OTelEndpoint != "",
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed", "schema_version", version)
	}

	// Notifications degrade to logging noops when no broker is configured,
	// so local runs never require RabbitMQ.
	var (
		jobs  notify.JobQueue
		rooms notify.Broadcaster
	)
	if cfg.AMQP.URL != "" {
		client, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.EmailQueue, cfg.AMQP.Exchange)
		if err != nil {
			logger.Error("failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		jobs, rooms = client, client
	} else {
		logger.Warn("AMQP_URL not set, notifications are logged only")
		jobs, rooms = notify.NewNoopQueue(), notify.NewNoopBroadcaster()
	}
	dispatcher := notify.NewDispatcher(jobs, rooms, logger)

	catalogRepo := catalogpostgres.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, cache.NewMemory(), logger)

	cartRepo := cartpostgres.NewRepository(pool)
	cartService := cart.NewService(cartRepo, catalogRepo)

	couponRepo := couponpostgres.NewRepository(pool)
	couponService := coupon.NewService(couponRepo)

	ledger := inventorypostgres.NewLedger(pool)
	ordersRepo := orderspostgres.NewRepository(pool)
	idemStore := idempostgres.NewStore(pool)

	meter := otel.Meter("github.com/dvalchev/storefront/cmd/api")
	checkoutMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create checkout metrics", "error", err)
		os.Exit(1)
	}

	checkout := commands.NewObservableCommandHandler(
		commands.NewCheckoutHandler(cartRepo, catalogRepo, ledger, couponRepo, ordersRepo, dispatcher),
		logger,
		checkoutMetrics,
	)
	orderService := ordersapp.NewService(checkout, ordersRepo, ledger, idemStore, dispatcher, logger)

	verifier := auth.NewTokenCodec(cfg.Auth.TokenSecret, time.Duration(cfg.Auth.TokenTTL)*time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool, time.Duration(cfg.Database.PingTimeoutSeconds)*time.Second); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc(cfg.HTTP.MetricsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics are exported over OTLP\n"))
	})

	// Product reads are public, writes admin-only, so the routes run
	// behind optional identification rather than hard authentication.
	products := http.NewServeMux()
	api.NewProductHandler(catalogService).Register(products)
	identified := auth.Identify(verifier, products)
	mux.Handle("/api/products", identified)
	mux.Handle("/api/products/", identified)

	// Cart and order routes always run behind authentication.
	authenticated := http.NewServeMux()
	api.NewCartHandler(cartService, couponService).Register(authenticated)
	api.NewOrderHandler(orderService).Register(authenticated)
	api.NewCouponHandler(couponService).Register(authenticated)

	guarded := auth.Authenticate(verifier, authenticated)
	mux.Handle("/api/cart", guarded)
	mux.Handle("/api/cart/", guarded)
	mux.Handle("/api/orders", guarded)
	mux.Handle("/api/orders/", guarded)
	mux.Handle("/api/coupons", guarded)
	mux.Handle("/api/coupons/", guarded)

	handler := withRecovery(withLogging(mux))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", time.Since(start))
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
