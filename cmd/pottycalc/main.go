package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/pottycalc/internal/config"
	"github.com/efreitasn/pottycalc/internal/handler"
	"github.com/efreitasn/pottycalc/internal/lineitem"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/service"
	"github.com/efreitasn/pottycalc/internal/store"
)

const redisConnectAttempts = 5

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// -healthcheck: GET localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quoteStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open quote store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	// Pricing core.
	prices := pricing.New(cfg.Limits)
	items := lineitem.New(prices, cfg.Limits)

	quoteSvc := service.NewQuoteService(quoteStore, prices, items)
	paymentSvc := service.NewPaymentService(quoteStore, prices)
	jobSvc := service.NewJobService(quoteStore, prices)

	router := handler.NewRouter(prices, items, quoteSvc, paymentSvc, jobSvc, handler.RouterConfig{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

// openStore builds the configured quote store and returns a close func.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.QuoteStore, func(), error) {
	if cfg.StoreBackend != config.StoreRedis {
		return store.NewMemoryQuoteStore(), func() {}, nil
	}

	client, err := store.DialRedis(ctx, cfg.RedisAddr, redisConnectAttempts, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing redis client", slog.String("error", err.Error()))
		}
	}
	return store.NewRedisQuoteStore(client, "", logger), closeFn, nil
}
