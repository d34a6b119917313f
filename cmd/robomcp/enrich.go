package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/config"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
)

func enrichCmd(configPath, logLevel *string) *cobra.Command {
	var (
		nameColumn  string
		limit       int
		biolinkType string
		prefixes    []string
		watchDir    string
	)

	cmd := &cobra.Command{
		Use:   "enrich <glob>",
		Short: "Enrich CSV rows with resolved identifiers and type-mapped columns",
		Long: `Enrich every row of the CSV files matching a glob pattern, e.g.
"data/**/*.csv". Each row's name column is resolved to a CURIE and its most
specific entity type, and the remaining columns are mapped onto that type's
properties.

With --watch, the given directory is monitored and changed CSV files are
re-enriched as they settle.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			tax, err := loadTaxonomy(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			resolver, normalizer := buildServiceClients(cfg, logger)
			enricher := enrich.NewEnricher(resolver, normalizer, tax, enrich.WithLogger(logger))

			if nameColumn == "" {
				nameColumn = cfg.Enrich.NameColumn
			}
			opts := enrich.Options{
				NameColumn:   nameColumn,
				Limit:        limit,
				BiolinkType:  biolinkType,
				OnlyPrefixes: prefixes,
			}

			if watchDir != "" {
				return watchAndEnrich(cmd, cfg, enricher, opts, watchDir)
			}

			if len(args) == 0 {
				return fmt.Errorf("a glob pattern is required unless --watch is set")
			}
			results, err := enricher.EnrichGlob(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}

	cmd.Flags().StringVar(&nameColumn, "name-column", "", "Column holding the entity name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of name matches per row")
	cmd.Flags().StringVar(&biolinkType, "type", "", "Restrict matches to one entity class, e.g. Disease")
	cmd.Flags().StringSliceVar(&prefixes, "prefixes", nil, "Restrict matches to these CURIE namespaces")
	cmd.Flags().StringVar(&watchDir, "watch", "", "Watch a directory and enrich CSV files as they change")
	return cmd
}

// watchAndEnrich re-enriches CSV files under dir whenever they change.
func watchAndEnrich(
	cmd *cobra.Command,
	cfg *config.Config,
	enricher *enrich.Enricher,
	opts enrich.Options,
	dir string,
) error {
	logger := slog.Default()

	watcher, err := enrich.NewWatcher(enrich.WatchConfig{
		Debounce: cfg.Enrich.WatchDebounce,
	}, dir, logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(cmd.Context()); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = watcher.Stop() }()

	logger.Info("Watching for CSV changes", "dir", dir)
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if event.Removed {
				logger.Info("File removed", "path", event.Path)
				continue
			}
			result, err := enricher.EnrichFile(cmd.Context(), event.AbsPath, opts)
			if err != nil {
				logger.Error("Enrichment failed", "path", event.Path, "error", err)
				continue
			}
			if err := printJSON(result); err != nil {
				return err
			}
		}
	}
}
