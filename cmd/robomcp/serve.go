package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	sconfig "github.com/c360studio/semstreams/config"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/api"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/config"
	entitytools "github.com/eKathleenCarter/RoboMCP-CodeBurst/processor/entity-tools"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and NATS tool host",
		Long: `Serve the taxonomy and resolution API over HTTP. When a NATS URL
is configured, also host the entity tools on JetStream so agents can call
them via tool.execute subjects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(cfg, logger)
		},
	}
}

func runServe(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	tax, err := loadTaxonomy(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	logger.Info("Taxonomy loaded",
		"name", tax.Name(),
		"version", tax.Version(),
		"classes", len(tax.AllClasses(false)))

	resolver, normalizer := buildServiceClients(cfg, logger)

	// HTTP surface
	mux := http.NewServeMux()
	handler := api.NewHTTPHandler(tax, resolver, normalizer, api.WithHandlerLogger(logger))
	handler.RegisterHTTPHandlers(cfg.HTTP.Prefix, mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "version": Version})
	})

	var metricsServer *http.Server
	if cfg.HTTP.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.HTTP.MetricsAddr, Handler: metricsMux}
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}

	// Setup signal handling
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	// Optional NATS tool host
	var (
		natsClient *natsclient.Client
		toolHost   component.Discoverable
	)
	if cfg.NATS.URL != "" {
		natsClient, err = connectToNATS(signalCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer natsClient.Close(ctx)

		if err := ensureStreams(signalCtx, cfg, natsClient, logger); err != nil {
			return err
		}

		toolHost, err = startToolHost(signalCtx, cfg, natsClient, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("No NATS URL configured, serving HTTP only")
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.HTTP.Addr, "prefix", cfg.HTTP.Prefix)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			logger.Info("Metrics listening", "addr", cfg.HTTP.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Block until shutdown signal or server failure
	select {
	case <-signalCtx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
		signalCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if toolHost != nil {
		if stoppable, ok := toolHost.(interface{ Stop(time.Duration) error }); ok {
			if err := stoppable.Stop(10 * time.Second); err != nil {
				logger.Error("Error stopping tool host", "error", err)
			}
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping metrics server", "error", err)
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// loadTaxonomy builds the type model from the configured source.
func loadTaxonomy(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*taxonomy.Taxonomy, error) {
	return taxonomy.Load(ctx, taxonomy.LoadSpec{
		Source:  cfg.Taxonomy.Source,
		Version: cfg.Taxonomy.Version,
		Logger:  logger,
	})
}

// buildServiceClients constructs the resolution service clients from config.
func buildServiceClients(cfg *config.Config, logger *slog.Logger) (*resolve.NameResolver, *resolve.NodeNormalizer) {
	retry := resolve.DefaultRetryConfig()
	if cfg.Services.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Services.MaxAttempts
	}
	httpClient := &http.Client{Timeout: cfg.Services.Timeout}

	resolver := resolve.NewNameResolver(
		resolve.WithBaseURL(cfg.Services.NameResolverURL),
		resolve.WithHTTPClient(httpClient),
		resolve.WithRetryConfig(retry),
		resolve.WithLogger(logger),
	)
	normalizer := resolve.NewNodeNormalizer(
		resolve.WithBaseURL(cfg.Services.NodeNormalizerURL),
		resolve.WithHTTPClient(httpClient),
		resolve.WithRetryConfig(retry),
		resolve.WithLogger(logger),
	)
	return resolver, normalizer
}

func connectToNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", cfg.NATS.URL)

	client, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, cfg.NATS.URL)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, cfg.NATS.URL)
	}

	logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set %s to point to your NATS server.`, err, url, config.EnvNATSURL)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func ensureStreams(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) error {
	logger.Debug("Creating JetStream streams")
	streamsManager := sconfig.NewStreamsManager(natsClient, logger)

	streamCfg := &sconfig.Config{
		Streams: sconfig.StreamConfigs{
			cfg.NATS.Stream: sconfig.StreamConfig{
				Subjects: []string{
					"tool.execute.>",
					"tool.result.>",
				},
				MaxAge:   "24h",
				Storage:  "memory",
				Replicas: 1,
			},
		},
	}
	if err := streamsManager.EnsureStreams(ctx, streamCfg); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	logger.Debug("JetStream streams ready")
	return nil
}

// startToolHost creates and starts the entity-tools component.
func startToolHost(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) (component.Discoverable, error) {
	// Unique consumer suffix so multiple hosts on one stream don't fight
	// over durable consumers.
	componentConfig := map[string]any{
		"model_source":         cfg.Taxonomy.Source,
		"model_version":        cfg.Taxonomy.Version,
		"name_resolver_url":    cfg.Services.NameResolverURL,
		"node_normalizer_url":  cfg.Services.NodeNormalizerURL,
		"stream_name":          cfg.NATS.Stream,
		"timeout":              cfg.Services.Timeout.String(),
		"consumer_name_suffix": uuid.NewString()[:8],
	}
	if len(cfg.Tools.Allowlist) > 0 {
		componentConfig["tool_allowlist"] = cfg.Tools.Allowlist
	}
	rawConfig, err := json.Marshal(componentConfig)
	if err != nil {
		return nil, fmt.Errorf("marshal tool host config: %w", err)
	}

	hostname, _ := os.Hostname()
	comp, err := entitytools.NewComponent(rawConfig, component.Dependencies{
		NATSClient: natsClient,
		Logger:     logger,
		Platform: component.PlatformMeta{
			Org:      appName,
			Platform: hostname,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create tool host: %w", err)
	}

	if startable, ok := comp.(interface{ Start(context.Context) error }); ok {
		if err := startable.Start(ctx); err != nil {
			return nil, fmt.Errorf("start tool host: %w", err)
		}
	}

	logger.Info("Tool host started", "stream", cfg.NATS.Stream)
	return comp, nil
}
