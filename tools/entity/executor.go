// Package entity provides entity resolution tools that call the public
// name resolution and node normalization services.
package entity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/agentic"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools/args"
)

// Executor implements network-backed entity resolution tools.
type Executor struct {
	resolver   *resolve.NameResolver
	normalizer *resolve.NodeNormalizer
	pipeline   *resolve.Pipeline
	enricher   *enrich.Enricher
}

// NewExecutor creates an entity tool executor over the given clients.
func NewExecutor(resolver *resolve.NameResolver, normalizer *resolve.NodeNormalizer, pipeline *resolve.Pipeline, enricher *enrich.Enricher) *Executor {
	return &Executor{
		resolver:   resolver,
		normalizer: normalizer,
		pipeline:   pipeline,
		enricher:   enricher,
	}
}

// Execute runs an entity resolution tool call.
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "lookup_entity":
		return e.lookupEntity(ctx, call)
	case "resolve_entity_to_curies":
		return e.resolveEntityToCURIEs(ctx, call)
	case "get_normalized_nodes":
		return e.getNormalizedNodes(ctx, call)
	case "get_types_for_curies":
		return e.getTypesForCURIEs(ctx, call)
	case "find_most_specific_type_for_entity":
		return e.findMostSpecificTypeForEntity(ctx, call)
	case "enrich_node_from_row":
		return e.enrichNodeFromRow(ctx, call)
	default:
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

// lookupRequest extracts the shared name resolution arguments.
func lookupRequest(arguments map[string]any, queryKey string, defaultLimit int) (resolve.LookupRequest, error) {
	query, err := args.String(arguments, queryKey)
	if err != nil {
		return resolve.LookupRequest{}, err
	}
	prefixes, err := args.StringList(arguments, "only_prefixes")
	if err != nil {
		return resolve.LookupRequest{}, err
	}
	return resolve.LookupRequest{
		Query:        query,
		Limit:        args.Int(arguments, "limit", defaultLimit),
		BiolinkType:  args.OptionalString(arguments, "biolink_type"),
		OnlyPrefixes: prefixes,
	}, nil
}

func (e *Executor) lookupEntity(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	req, err := lookupRequest(call.Arguments, "query", resolve.DefaultLookupLimit)
	if err != nil {
		return errorResult(call, err), nil
	}
	matches, err := e.resolver.Lookup(ctx, req)
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, matches)
}

func (e *Executor) resolveEntityToCURIEs(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	req, err := lookupRequest(call.Arguments, "entity", resolve.DefaultLookupLimit)
	if err != nil {
		return errorResult(call, err), nil
	}
	curies, err := e.resolver.LookupCURIEs(ctx, req)
	if err != nil {
		return errorResult(call, err), nil
	}
	if curies == nil {
		curies = []string{}
	}
	return jsonResult(call, curies)
}

func (e *Executor) getNormalizedNodes(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	curies, err := args.StringOrList(call.Arguments, "curies")
	if err != nil {
		return errorResult(call, err), nil
	}
	if len(curies) == 0 {
		return errorResult(call, fmt.Errorf("curies argument is required")), nil
	}
	req := resolve.DefaultNormalizeRequest(curies...)
	req.Conflate = args.Bool(call.Arguments, "conflate", true)
	req.DrugChemicalConflate = args.Bool(call.Arguments, "drug_chemical_conflate", true)
	req.Description = args.Bool(call.Arguments, "description", false)
	req.IndividualTypes = args.Bool(call.Arguments, "individual_types", false)

	nodes, err := e.normalizer.Normalize(ctx, req)
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, nodes)
}

func (e *Executor) getTypesForCURIEs(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	curies, err := args.StringOrList(call.Arguments, "curies")
	if err != nil {
		return errorResult(call, err), nil
	}
	types, err := e.normalizer.TypesForCURIEs(ctx, curies)
	if err != nil {
		return errorResult(call, err), nil
	}
	if types == nil {
		types = []string{}
	}
	return jsonResult(call, types)
}

func (e *Executor) findMostSpecificTypeForEntity(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	req, err := lookupRequest(call.Arguments, "entity", resolve.DefaultLookupLimit)
	if err != nil {
		return errorResult(call, err), nil
	}
	types, err := e.pipeline.MostSpecificTypeForEntity(ctx, req)
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, types)
}

func (e *Executor) enrichNodeFromRow(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	row, err := args.StringMap(call.Arguments, "row_data")
	if err != nil {
		return errorResult(call, err), nil
	}
	prefixes, err := args.StringList(call.Arguments, "only_prefixes")
	if err != nil {
		return errorResult(call, err), nil
	}

	enrichment, err := e.enricher.EnrichRow(ctx, row, enrich.Options{
		NameColumn:   args.OptionalString(call.Arguments, "name_column"),
		Limit:        args.Int(call.Arguments, "limit", 1),
		BiolinkType:  args.OptionalString(call.Arguments, "biolink_type"),
		OnlyPrefixes: prefixes,
	})
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, enrichment)
}

func errorResult(call agentic.ToolCall, err error) agentic.ToolResult {
	return agentic.ToolResult{
		CallID: call.ID,
		Error:  err.Error(),
	}
}

func jsonResult(call agentic.ToolCall, v any) (agentic.ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("encode result: %s", err.Error()),
		}, nil
	}
	return agentic.ToolResult{
		CallID:  call.ID,
		Content: string(data),
	}, nil
}

// ListTools returns the tool definitions for entity resolution.
func (e *Executor) ListTools() []agentic.ToolDefinition {
	limitParam := map[string]any{
		"type":        "integer",
		"description": "Number of name resolution candidates to consider",
	}
	biolinkTypeParam := map[string]any{
		"type":        "string",
		"description": "Restrict matches to one entity class (e.g. 'Disease', 'Gene')",
	}
	prefixesParam := map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Restrict matches to these CURIE namespaces (e.g. ['MONDO', 'HGNC'])",
	}
	curiesParam := map[string]any{
		"description": "A single CURIE or list of CURIEs (e.g. ['MONDO:0005148', 'HGNC:1100'])",
		"anyOf": []map[string]any{
			{"type": "string"},
			{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}

	return []agentic.ToolDefinition{
		{
			Name:        "lookup_entity",
			Description: "Search the Name Resolution Service for entities matching a free-text name, returning ranked matches with identifiers, labels and types",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Entity name to search for (e.g. 'diabetes', 'BRCA1', 'aspirin')",
					},
					"limit":         limitParam,
					"biolink_type":  biolinkTypeParam,
					"only_prefixes": prefixesParam,
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "resolve_entity_to_curies",
			Description: "Resolve a biological entity name to CURIEs using the Name Resolution Service",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity": map[string]any{
						"type":        "string",
						"description": "Biological entity name (e.g. 'diabetes', 'BRCA1', 'aspirin')",
					},
					"limit":         limitParam,
					"biolink_type":  biolinkTypeParam,
					"only_prefixes": prefixesParam,
				},
				"required": []string{"entity"},
			},
		},
		{
			Name:        "get_normalized_nodes",
			Description: "Normalize CURIEs to canonical identifiers with equivalent identifiers and entity types, via the Node Normalization Service",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"curies": curiesParam,
					"conflate": map[string]any{
						"type":        "boolean",
						"description": "Merge gene and protein identifiers (default true)",
					},
					"drug_chemical_conflate": map[string]any{
						"type":        "boolean",
						"description": "Merge drug and chemical identifiers (default true)",
					},
					"description": map[string]any{
						"type":        "boolean",
						"description": "Include entity descriptions (default false)",
					},
					"individual_types": map[string]any{
						"type":        "boolean",
						"description": "Include per-identifier types (default false)",
					},
				},
				"required": []string{"curies"},
			},
		},
		{
			Name:        "get_types_for_curies",
			Description: "Get the entity types for a list of CURIEs using the Node Normalization Service",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"curies": curiesParam,
				},
				"required": []string{"curies"},
			},
		},
		{
			Name:        "find_most_specific_type_for_entity",
			Description: "Resolve an entity name and return its most specific entity types, chaining name resolution, normalization and type reduction",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity": map[string]any{
						"type":        "string",
						"description": "Biological entity name (e.g. 'diabetes', 'BRCA1', 'aspirin')",
					},
					"limit":         limitParam,
					"biolink_type":  biolinkTypeParam,
					"only_prefixes": prefixesParam,
				},
				"required": []string{"entity"},
			},
		},
		{
			Name:        "enrich_node_from_row",
			Description: "Enrich a tabular row: resolve its entity name to an identifier, determine the most specific type, and map the remaining columns onto valid properties for that type",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"row_data": map[string]any{
						"type":        "object",
						"description": "The row as a column-to-value object",
					},
					"name_column": map[string]any{
						"type":        "string",
						"description": "Column holding the entity name (default 'name')",
					},
					"limit":         limitParam,
					"biolink_type":  biolinkTypeParam,
					"only_prefixes": prefixesParam,
				},
				"required": []string{"row_data"},
			},
		},
	}
}
