package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

func lookupCmd(configPath, logLevel *string) *cobra.Command {
	var (
		limit       int
		biolinkType string
		prefixes    []string
	)

	cmd := &cobra.Command{
		Use:   "lookup <name>",
		Short: "Search the Name Resolution Service for an entity name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			resolver, _ := buildServiceClients(cfg, logger)

			matches, err := resolver.Lookup(cmd.Context(), resolve.LookupRequest{
				Query:        args[0],
				Limit:        limit,
				BiolinkType:  biolinkType,
				OnlyPrefixes: prefixes,
			})
			if err != nil {
				return err
			}
			return printJSON(matches)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of matches")
	cmd.Flags().StringVar(&biolinkType, "type", "", "Restrict matches to one entity class, e.g. Disease")
	cmd.Flags().StringSliceVar(&prefixes, "prefixes", nil, "Restrict matches to these CURIE namespaces")
	return cmd
}

func resolveCmd(configPath, logLevel *string) *cobra.Command {
	var (
		limit       int
		biolinkType string
		prefixes    []string
	)

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve an entity name to identifiers and its most specific types",
		Args:  cobra.ExactArgs(1),
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
			pipeline := resolve.NewPipeline(resolver, normalizer, tax.Frontier(),
				resolve.WithPipelineLogger(logger))

			resolution, err := pipeline.Resolve(cmd.Context(), resolve.LookupRequest{
				Query:        args[0],
				Limit:        limit,
				BiolinkType:  biolinkType,
				OnlyPrefixes: prefixes,
			})
			if err != nil {
				return err
			}
			return printJSON(resolution)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of name matches to consider")
	cmd.Flags().StringVar(&biolinkType, "type", "", "Restrict matches to one entity class, e.g. Disease")
	cmd.Flags().StringSliceVar(&prefixes, "prefixes", nil, "Restrict matches to these CURIE namespaces")
	return cmd
}

func reduceCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reduce <category>...",
		Short: "Reduce entity categories to their most specific members",
		Long: `Reduce a list of entity categories to the ones no other listed
category specializes. An empty or fully unknown list reduces to the root
category.`,
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
			return printJSON(tax.Frontier().Reduce(args))
		},
	}
}

func classesCmd(configPath, logLevel *string) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List every entity class in the type model",
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
			return printJSON(tax.AllClasses(!plain))
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print class labels without the CURIE prefix")
	return cmd
}

func ancestorsCmd(configPath, logLevel *string) *cobra.Command {
	var (
		noMixins    bool
		noReflexive bool
		plain       bool
	)

	cmd := &cobra.Command{
		Use:   "ancestors <label>",
		Short: "Print the ancestor chain of a class or slot",
		Args:  cobra.ExactArgs(1),
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

			ancestors, err := tax.Ancestors(args[0], taxonomy.AncestorOptions{
				Reflexive:     !noReflexive,
				IncludeMixins: !noMixins,
				Formatted:     !plain,
			})
			if err != nil {
				return err
			}
			return printJSON(ancestors)
		},
	}

	cmd.Flags().BoolVar(&noMixins, "no-mixins", false, "Exclude mixin ancestors")
	cmd.Flags().BoolVar(&noReflexive, "no-reflexive", false, "Exclude the element itself")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print labels without the CURIE prefix")
	return cmd
}

// printJSON writes indented JSON to stdout.
func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
