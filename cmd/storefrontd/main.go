// cmd/storefrontd/main.go
// Package main implements the entry point for the storefront service.
// Without arguments it serves the RPC endpoint. "storefrontd shop" drives a
// shopper session against a running server, and "storefrontd report" uploads
// the stored order history as a CSV report and prints its download link.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/client"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/config"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/event"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/export"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/gateway"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/metrics"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/orders"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/rpc"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/schema"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/server"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/storage"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/storefront"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/telemetry"
)

// main is the entry point for the storefront service.
func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging for the application
	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		err = serve(cfg, logger)
	case "shop":
		err = shop(cfg, os.Args[2:])
	case "report":
		err = report(cfg)
	default:
		err = fmt.Errorf("unknown command %q (want serve, shop or report)", cmd)
	}
	if err != nil {
		logger.Error("storefrontd failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// openStorage selects PostgreSQL when a DSN is configured, memory otherwise.
func openStorage(cfg config.Config) (storage.Store, error) {
	if cfg.DatabaseDSN == "" {
		return storage.NewMemory(), nil
	}
	return storage.NewPostgres(cfg.DatabaseDSN)
}

// serve runs the HTTP server until SIGINT or SIGTERM.
func serve(cfg config.Config, logger *slog.Logger) error {
	// Spans go to stderr in dev and are dropped elsewhere; propagation works either way
	var spanOut io.Writer = io.Discard
	if cfg.Env == "dev" {
		spanOut = os.Stderr
	}
	if _, err := telemetry.InitTracer(telemetry.ServiceName, spanOut); err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.NewMetrics()
	gw := gateway.New(cfg.UpstreamURL, cfg.UpstreamTimeout,
		gateway.WithPageSize(cfg.ProductsPerPage),
		gateway.WithMetrics(m),
	)

	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to initialize schema validator: %w", err)
	}
	registry, err := rpc.NewRegistry(rpc.Standard(gw)...)
	if err != nil {
		return err
	}
	endpoint, err := rpc.NewEndpoint(registry, validator, m)
	if err != nil {
		return err
	}

	mux := server.NewMux(store, endpoint, server.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	// Upstream calls are bounded by UpstreamTimeout, so the write timeout must exceed it
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "upstream", cfg.UpstreamURL,
			"procedures", len(registry.Names()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// shop runs one shopper command: orders placed or cancelled are kept in the
// configured storage and announced on NATS.
func shop(cfg config.Config, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pub := event.NewPublisher(cfg.NATSURL, metrics.NewMetrics())
	defer pub.Close()

	hc := &http.Client{Timeout: cfg.UpstreamTimeout + 5*time.Second}
	session := storefront.NewSession(client.New(cfg.RPCURL, hc), orders.NewBook(store, pub), cfg.ProductsPerPage)
	defer session.Close()

	return storefront.Shop(ctx, session, args, os.Stdout)
}

// report uploads the stored order history to S3.
func report(cfg config.Config) error {
	if !cfg.ExportEnabled() {
		return fmt.Errorf("report export needs SF_S3_ENDPOINT and SF_S3_BUCKET")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	exporter, err := export.NewS3Exporter(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		return err
	}

	book := orders.NewBook(store, nil)
	url, err := book.PublishReport(ctx, exporter, export.ReportName)
	if err != nil {
		return err
	}
	stats, err := book.Stats(ctx)
	if err != nil {
		return err
	}
	slog.Info("order report uploaded", "orders", stats.TotalOrders, "completed", stats.CompletedOrders, "total_spent", stats.TotalSpent)
	fmt.Println(url)
	return nil
}
