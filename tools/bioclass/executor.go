// Package bioclass provides taxonomy query tools backed by the loaded
// type model. Every tool here answers locally, without network calls.
package bioclass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/semstreams/agentic"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools/args"
)

// Executor implements taxonomy query tools.
type Executor struct {
	tax      *taxonomy.Taxonomy
	frontier *taxonomy.Frontier
}

// NewExecutor creates a taxonomy tool executor over the given model.
func NewExecutor(tax *taxonomy.Taxonomy, opts ...taxonomy.FrontierOption) *Executor {
	return &Executor{
		tax:      tax,
		frontier: tax.Frontier(opts...),
	}
}

// Execute runs a taxonomy tool call.
func (e *Executor) Execute(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "get_element":
		return e.getElement(call)
	case "get_ancestors":
		return e.getAncestors(call)
	case "get_descendants":
		return e.getDescendants(call)
	case "get_all_classes":
		return e.listAll(call, e.tax.AllClasses)
	case "get_all_slots":
		return e.listAll(call, e.tax.AllSlots)
	case "get_all_entities":
		return e.listAll(call, e.tax.AllEntities)
	case "get_element_by_mapping":
		return e.getElementByMapping(call)
	case "is_predicate":
		return e.slotPredicateCheck(call, e.tax.IsPredicate)
	case "is_node_property":
		return e.slotPredicateCheck(call, e.tax.IsNodeProperty)
	case "get_slot_domain":
		return e.slotEndpoint(call, e.tax.SlotDomain)
	case "get_slot_range":
		return e.slotEndpoint(call, e.tax.SlotRange)
	case "get_value_type":
		return e.getValueType(call)
	case "get_node_properties_for_class":
		return e.getNodeProperties(call)
	case "find_most_specific_types":
		return e.findMostSpecificTypes(call)
	default:
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

func (e *Executor) getElement(call agentic.ToolCall) (agentic.ToolResult, error) {
	name, err := args.String(call.Arguments, "name")
	if err != nil {
		return errorResult(call, err), nil
	}
	element, err := e.tax.Element(name)
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, element)
}

func (e *Executor) getAncestors(call agentic.ToolCall) (agentic.ToolResult, error) {
	return e.walk(call, e.tax.Ancestors)
}

func (e *Executor) getDescendants(call agentic.ToolCall) (agentic.ToolResult, error) {
	return e.walk(call, e.tax.Descendants)
}

func (e *Executor) walk(call agentic.ToolCall, fn func(string, taxonomy.AncestorOptions) ([]string, error)) (agentic.ToolResult, error) {
	name, err := args.String(call.Arguments, "name")
	if err != nil {
		return errorResult(call, err), nil
	}
	opts := taxonomy.AncestorOptions{
		Reflexive:     args.Bool(call.Arguments, "reflexive", true),
		IncludeMixins: args.Bool(call.Arguments, "mixin", true),
		Formatted:     args.Bool(call.Arguments, "formatted", false),
	}
	names, err := fn(name, opts)
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, names)
}

func (e *Executor) listAll(call agentic.ToolCall, fn func(bool) []string) (agentic.ToolResult, error) {
	formatted := args.Bool(call.Arguments, "formatted", false)
	return jsonResult(call, fn(formatted))
}

func (e *Executor) getElementByMapping(call agentic.ToolCall) (agentic.ToolResult, error) {
	identifier, err := args.String(call.Arguments, "identifier")
	if err != nil {
		return errorResult(call, err), nil
	}
	name, ok := e.tax.ElementByMapping(identifier)
	if !ok {
		return errorResult(call, fmt.Errorf("no element mapped to %q", identifier)), nil
	}
	return jsonResult(call, name)
}

func (e *Executor) slotPredicateCheck(call agentic.ToolCall, fn func(string) bool) (agentic.ToolResult, error) {
	name, err := args.String(call.Arguments, "name")
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, fn(name))
}

func (e *Executor) slotEndpoint(call agentic.ToolCall, fn func(string) ([]string, error)) (agentic.ToolResult, error) {
	slotName, err := args.String(call.Arguments, "slot_name")
	if err != nil {
		return errorResult(call, err), nil
	}
	names, err := fn(slotName)
	if err != nil {
		return errorResult(call, err), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(call, names)
}

func (e *Executor) getValueType(call agentic.ToolCall) (agentic.ToolResult, error) {
	slotName, err := args.String(call.Arguments, "slot_name")
	if err != nil {
		return errorResult(call, err), nil
	}
	primitive, valueType, err := e.tax.ValueType(slotName)
	if err != nil {
		return errorResult(call, err), nil
	}
	out := map[string]any{"type": primitive}
	if valueType != nil {
		out["value_type"] = valueType
	}
	return jsonResult(call, out)
}

func (e *Executor) getNodeProperties(call agentic.ToolCall) (agentic.ToolResult, error) {
	className, err := args.String(call.Arguments, "class_name")
	if err != nil {
		return errorResult(call, err), nil
	}
	props, err := e.tax.NodeProperties(className)
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, props)
}

func (e *Executor) findMostSpecificTypes(call agentic.ToolCall) (agentic.ToolResult, error) {
	categories, err := args.StringOrList(call.Arguments, "categories")
	if err != nil {
		return errorResult(call, err), nil
	}
	return jsonResult(call, e.frontier.Reduce(categories))
}

func errorResult(call agentic.ToolCall, err error) agentic.ToolResult {
	msg := err.Error()
	if errors.Is(err, taxonomy.ErrUnknownType) {
		msg = fmt.Sprintf("unknown taxonomy element: %s", msg)
	}
	return agentic.ToolResult{
		CallID: call.ID,
		Error:  msg,
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

// ListTools returns the tool definitions for taxonomy queries.
func (e *Executor) ListTools() []agentic.ToolDefinition {
	nameParam := map[string]any{
		"type":        "string",
		"description": "Element name in any accepted spelling (e.g. 'named thing', 'NamedThing', 'biolink:NamedThing')",
	}
	formattedParam := map[string]any{
		"type":        "boolean",
		"description": "Return namespaced CURIEs instead of element names",
	}
	slotNameParam := map[string]any{
		"type":        "string",
		"description": "Slot name (e.g. 'related to', 'related_to')",
	}

	walkParams := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":      nameParam,
			"formatted": formattedParam,
			"mixin": map[string]any{
				"type":        "boolean",
				"description": "Follow mixin edges in addition to is_a edges (default true)",
			},
			"reflexive": map[string]any{
				"type":        "boolean",
				"description": "Include the queried element itself (default true)",
			},
		},
		"required": []string{"name"},
	}
	listParams := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"formatted": formattedParam,
		},
	}
	slotParams := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slot_name": slotNameParam,
		},
		"required": []string{"slot_name"},
	}
	nameParams := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": nameParam,
		},
		"required": []string{"name"},
	}

	return []agentic.ToolDefinition{
		{
			Name:        "get_element",
			Description: "Get the full definition of a taxonomy class, slot or value type",
			Parameters:  nameParams,
		},
		{
			Name:        "get_ancestors",
			Description: "Get the ancestors of a class or slot, ordered from the element upward",
			Parameters:  walkParams,
		},
		{
			Name:        "get_descendants",
			Description: "Get the descendants of a class or slot",
			Parameters:  walkParams,
		},
		{
			Name:        "get_all_classes",
			Description: "List every class in the taxonomy",
			Parameters:  listParams,
		},
		{
			Name:        "get_all_slots",
			Description: "List every slot in the taxonomy",
			Parameters:  listParams,
		},
		{
			Name:        "get_all_entities",
			Description: "List the entity classes (descendants of the root entity class)",
			Parameters:  listParams,
		},
		{
			Name:        "get_element_by_mapping",
			Description: "Find the taxonomy element mapped to an external identifier (e.g. 'MONDO:0000001')",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"identifier": map[string]any{
						"type":        "string",
						"description": "External CURIE to look up",
					},
				},
				"required": []string{"identifier"},
			},
		},
		{
			Name:        "is_predicate",
			Description: "Check whether a slot belongs to the predicate hierarchy",
			Parameters:  nameParams,
		},
		{
			Name:        "is_node_property",
			Description: "Check whether a slot is a node property",
			Parameters:  nameParams,
		},
		{
			Name:        "get_slot_domain",
			Description: "Get the declared or inherited domain classes of a slot",
			Parameters:  slotParams,
		},
		{
			Name:        "get_slot_range",
			Description: "Get the declared or inherited range of a slot",
			Parameters:  slotParams,
		},
		{
			Name:        "get_value_type",
			Description: "Resolve the primitive value type of a slot's range",
			Parameters:  slotParams,
		},
		{
			Name:        "get_node_properties_for_class",
			Description: "List the property slots valid for a class, with their value types",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"class_name": map[string]any{
						"type":        "string",
						"description": "Class to list properties for",
					},
				},
				"required": []string{"class_name"},
			},
		},
		{
			Name:        "find_most_specific_types",
			Description: "Reduce a list of entity types to the most specific ones, removing any type that is an ancestor of another in the list",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"categories": map[string]any{
						"description": "A single type or list of types, in any accepted spelling",
						"anyOf": []map[string]any{
							{"type": "string"},
							{"type": "array", "items": map[string]any{"type": "string"}},
						},
					},
				},
				"required": []string{"categories"},
			},
		},
	}
}
