// Package main provides the robomcp binary entry point.
// RoboMCP resolves biological entity names to canonical identifiers and
// types, and serves taxonomy queries as callable tools over HTTP and NATS.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "robomcp"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "robomcp",
		Short: "Biological entity resolution toolkit",
		Long: `RoboMCP resolves biological entity names to canonical identifiers
and entity types using the Name Resolution and Node Normalization services,
and answers type taxonomy queries from an embedded Biolink-style model.

It provides:
- Taxonomy queries (ancestors, descendants, most-specific types)
- Name-to-CURIE resolution and CURIE normalization
- CSV row enrichment with type-aware column mapping

Tools are served over HTTP and, when configured, NATS JetStream.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(lookupCmd(&configPath, &logLevel))
	cmd.AddCommand(resolveCmd(&configPath, &logLevel))
	cmd.AddCommand(reduceCmd(&configPath, &logLevel))
	cmd.AddCommand(classesCmd(&configPath, &logLevel))
	cmd.AddCommand(ancestorsCmd(&configPath, &logLevel))
	cmd.AddCommand(enrichCmd(&configPath, &logLevel))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setupLogging configures the default slog logger and returns it.
func setupLogging(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads configuration from an explicit file or the layered
// default locations.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}
