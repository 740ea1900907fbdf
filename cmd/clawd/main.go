// Package main provides the entry point for the clawd resource manager.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/automation"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/config"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/fingerprint"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/handlers"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/metrics"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/middleware"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/proxy"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/session"
	"github.com/thierry-dev-pro/clawd-ORACLE/pkg/version"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logging first so validation warnings are visible
	setupLogging(cfg.LogLevel)

	// Validate configuration; out-of-range values are clamped with warnings
	cfg.Validate()

	printBanner()

	// Shared resources
	fingerprints := fingerprint.NewManager(cfg.RandSeed)
	rotator := proxy.NewRotator(cfg.ProxyList)
	client := automation.NewClient(cfg.AutomationURL, cfg.CallTimeout, cfg.MaxRetries, cfg.RetryBackoffBase)

	// Optional proxy file with hot-reload
	var watcher *proxy.Watcher
	if cfg.ProxyFile != "" {
		var err error
		watcher, err = proxy.NewWatcher(rotator, cfg.ProxyFile, cfg.ProxyHotReload)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ProxyFile).Msg("Failed to load proxy file")
		}
	}

	pool := session.NewPool(cfg, fingerprints, rotator, client)

	// Warn early if the automation daemon is down; the service still starts
	// and will retry on first use.
	if !client.HealthCheck(context.Background()) {
		log.Warn().
			Str("url", cfg.AutomationURL).
			Msg("Automation daemon unreachable at startup")
	}

	handler := handlers.New(pool, client, cfg)

	// Middleware chain: Recovery outermost, then Logging
	var finalHandler http.Handler = handler.Router()
	finalHandler = middleware.Logging(finalHandler)
	finalHandler = middleware.Recovery(finalHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      finalHandler,
		ReadTimeout:  cfg.CallTimeout + 10*time.Second,
		WriteTimeout: cfg.CallTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to signal shutdown to background tasks
	stopCh := make(chan struct{})

	// Start metrics server if enabled
	var metricsServer *http.Server
	if cfg.PrometheusEnabled {
		metrics.SetBuildInfo(version.Full(), version.GoVersion())

		go metrics.StartMemoryCollector(10*time.Second, stopCh)

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())

		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.PrometheusPort),
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().
				Int("port", cfg.PrometheusPort).
				Msg("Prometheus metrics server started")

			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Start main server in goroutine
	go func() {
		log.Info().
			Str("address", addr).
			Int("pool_size", cfg.PoolSize).
			Str("capacity_policy", cfg.CapacityPolicy).
			Str("automation_url", cfg.AutomationURL).
			Int("proxies", rotator.Len()).
			Bool("metrics_enabled", cfg.PrometheusEnabled).
			Msg("clawd is ready to accept requests")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Signal background tasks to stop
	close(stopCh)

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			log.Error().Err(err).Msg("Proxy watcher close error")
		}
	}

	// Release all sessions, closing their remote tabs
	pool.ReleaseAll(ctx)

	// Catch any tabs created outside the pool's bookkeeping
	client.CloseAll(ctx)

	log.Info().Msg("Shutdown complete")
}

// setupLogging configures zerolog based on the log level.
func setupLogging(level string) {
	// Use console writer for prettier output
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printBanner prints the startup banner.
func printBanner() {
	banner := `
      _                    _
  ___| | __ ___      ____| |
 / __| |/ _' \ \ /\ / / _' |
| (__| | (_| |\ V  V / (_| |
 \___|_|\__,_| \_/\_/ \__,_|
          resource manager
`
	fmt.Println(banner)
	log.Info().
		Str("version", version.Full()).
		Str("go_version", version.GoVersion()).
		Msg("Starting clawd")
}
