package tools

import (
	"os"

	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools/bioclass"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools/entity"
)

// Registry holds every tool executor, pre-registered at import time
// against the default taxonomy and service endpoints. Hosts that need
// their own wiring (configured endpoints, caching) build a registry of
// their own instead.
var Registry = agentictools.NewExecutorRegistry()

func init() {
	tax := taxonomy.Default()

	resolver := resolve.NewNameResolver(serviceOptions("ROBOMCP_NAME_RESOLVER_URL")...)
	normalizer := resolve.NewNodeNormalizer(serviceOptions("ROBOMCP_NODE_NORMALIZER_URL")...)
	pipeline := resolve.NewPipeline(resolver, normalizer, tax.Frontier(frontierMetrics()))
	enricher := enrich.NewEnricher(resolver, normalizer, tax)

	// Executors wrapped with metrics for call counting and latency.
	bioclassExec := NewInstrumentedExecutor(bioclass.NewExecutor(tax, frontierMetrics()))
	entityExec := NewInstrumentedExecutor(entity.NewExecutor(resolver, normalizer, pipeline, enricher))

	for _, tool := range bioclassExec.ListTools() {
		if err := Registry.RegisterTool(tool.Name, bioclassExec); err != nil {
			// Tool might already be registered
			continue
		}
	}
	for _, tool := range entityExec.ListTools() {
		if err := Registry.RegisterTool(tool.Name, entityExec); err != nil {
			continue
		}
	}
}

// serviceOptions allows overriding a service endpoint from the environment,
// e.g. to point at a local deployment.
func serviceOptions(envVar string) []resolve.Option {
	if url := os.Getenv(envVar); url != "" {
		return []resolve.Option{resolve.WithBaseURL(url)}
	}
	return nil
}

// frontierMetrics wires degenerate reductions into the fallback counter.
func frontierMetrics() taxonomy.FrontierOption {
	return taxonomy.WithDegenerateHook(func([]string) {
		FrontierFallbacks.Inc()
	})
}
