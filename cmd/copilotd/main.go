// Copilotd is the Collections ROI Copilot daemon with HTTP and WebSocket transport.
//
// This binary starts the copilotd HTTP server with full service initialization,
// including the completion client, the conversation workflow, and the
// calculator sync endpoint.
//
// Configuration is loaded from ~/.config/copilotd/config.yaml and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	copilotd
//
//	# Configure via environment
//	SERVER_PORT=9090 ORACLE_API_KEY=sk-... copilotd
//
//	# Use an explicit config file
//	copilotd -config /etc/copilotd/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/copilotd/internal/config"
	"github.com/fyrsmithlabs/copilotd/internal/copilot"
	"github.com/fyrsmithlabs/copilotd/internal/http"
	"github.com/fyrsmithlabs/copilotd/internal/logging"
	"github.com/fyrsmithlabs/copilotd/internal/oracle"
	"github.com/fyrsmithlabs/copilotd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	// Parse command-line arguments
	configPath := flag.String("config", "", "path to config file (default: ~/.config/copilotd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  copilotd           Start the copilotd daemon\n")
			fmt.Fprintf(os.Stderr, "  copilotd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handler
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	// Run server
	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("copilotd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the copilotd server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the structured logger
//  3. Creates the completion client
//  4. Wires the conversation workflow
//  5. Starts the HTTP server with chat, sync, and metrics endpoints
//  6. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	// Load and validate configuration
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize telemetry. Exporter setup failures leave the server
	// running with local logging only.
	tel, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Printf("Telemetry disabled: %v", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting copilotd",
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Telemetry.ServiceName),
		zap.String("model", cfg.Oracle.Model),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	// Create the completion client
	client, err := oracle.New(oracle.Config{
		BaseURL:     cfg.Oracle.BaseURL,
		Model:       cfg.Oracle.Model,
		APIKey:      cfg.Oracle.APIKey.Value(),
		Temperature: cfg.Oracle.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize completion client: %w", err)
	}

	// Wire the conversation workflow
	workflow, err := copilot.NewWorkflow(client, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize workflow: %w", err)
	}

	// Create HTTP server
	srv, err := http.NewServer(workflow, logger, &http.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Register metrics endpoint
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("chat_endpoint", "/api/copilot/chat"),
		zap.String("sync_endpoint", "/ws/copilot/sync"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server and block until context cancellation or listen failure
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}
