package entity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semstreams/agentic"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

// testServices stands in for both resolution services behind one mux.
func testServices(t *testing.T) *Executor {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("string") {
		case "diabetes":
			_, _ = w.Write([]byte(`[
				{"curie": "MONDO:0005015", "label": "diabetes mellitus", "types": ["biolink:Disease"]},
				{"curie": "MONDO:0005147", "label": "type 1 diabetes mellitus"}
			]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	mux.HandleFunc("/get_normalized_nodes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := map[string]any{}
		for _, curie := range r.URL.Query()["curie"] {
			if strings.HasPrefix(curie, "MONDO:") {
				out[curie] = map[string]any{
					"id":   map[string]any{"identifier": curie, "label": "diabetes mellitus"},
					"type": []string{"biolink:Disease", "biolink:NamedThing"},
				}
			} else {
				out[curie] = nil
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	retry := resolve.RetryConfig{
		MaxAttempts:       1,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
	resolver := resolve.NewNameResolver(resolve.WithBaseURL(srv.URL), resolve.WithRetryConfig(retry))
	normalizer := resolve.NewNodeNormalizer(resolve.WithBaseURL(srv.URL), resolve.WithRetryConfig(retry))

	tax, err := taxonomy.LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded model: %v", err)
	}
	pipeline := resolve.NewPipeline(resolver, normalizer, tax.Frontier())
	enricher := enrich.NewEnricher(resolver, normalizer, tax)

	return NewExecutor(resolver, normalizer, pipeline, enricher)
}

func execute(t *testing.T, e *Executor, name string, arguments map[string]any) agentic.ToolResult {
	t.Helper()
	result, err := e.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		t.Fatalf("Execute(%s) returned error: %v", name, err)
	}
	return result
}

func TestResolveEntityToCURIEs(t *testing.T) {
	e := testServices(t)

	result := execute(t, e, "resolve_entity_to_curies", map[string]any{"entity": "diabetes"})
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	var curies []string
	if err := json.Unmarshal([]byte(result.Content), &curies); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if want := []string{"MONDO:0005015", "MONDO:0005147"}; !reflect.DeepEqual(curies, want) {
		t.Errorf("curies = %v, want %v", curies, want)
	}

	// Unresolvable names yield an empty list, not null.
	result = execute(t, e, "resolve_entity_to_curies", map[string]any{"entity": "xyzzy"})
	if result.Content != "[]" {
		t.Errorf("content = %q, want empty list", result.Content)
	}
}

func TestLookupEntity(t *testing.T) {
	e := testServices(t)

	result := execute(t, e, "lookup_entity", map[string]any{"query": "diabetes"})
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	var matches []resolve.Match
	if err := json.Unmarshal([]byte(result.Content), &matches); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(matches) != 2 || matches[0].Label != "diabetes mellitus" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestGetTypesForCURIEs(t *testing.T) {
	e := testServices(t)

	// A single string is accepted in place of a list.
	result := execute(t, e, "get_types_for_curies", map[string]any{"curies": "MONDO:0005015"})
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	var types []string
	if err := json.Unmarshal([]byte(result.Content), &types); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if want := []string{"biolink:Disease", "biolink:NamedThing"}; !reflect.DeepEqual(types, want) {
		t.Errorf("types = %v, want %v", types, want)
	}
}

func TestGetNormalizedNodes(t *testing.T) {
	e := testServices(t)

	result := execute(t, e, "get_normalized_nodes", map[string]any{
		"curies": []any{"MONDO:0005015", "NOPE:1"},
	})
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	var nodes map[string]*resolve.NormalizedNode
	if err := json.Unmarshal([]byte(result.Content), &nodes); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if nodes["MONDO:0005015"] == nil || nodes["MONDO:0005015"].ID.Identifier != "MONDO:0005015" {
		t.Errorf("unexpected node: %+v", nodes["MONDO:0005015"])
	}
	if node, ok := nodes["NOPE:1"]; !ok || node != nil {
		t.Errorf("unresolvable CURIE should map to null, got %v", node)
	}

	result = execute(t, e, "get_normalized_nodes", map[string]any{})
	if result.Error == "" {
		t.Error("expected error for missing curies")
	}
}

func TestFindMostSpecificTypeForEntity(t *testing.T) {
	e := testServices(t)

	result := execute(t, e, "find_most_specific_type_for_entity", map[string]any{"entity": "diabetes"})
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	if result.Content != `["biolink:Disease"]` {
		t.Errorf("content = %q", result.Content)
	}

	// Unresolvable entities fall back to the sentinel.
	result = execute(t, e, "find_most_specific_type_for_entity", map[string]any{"entity": "xyzzy"})
	if result.Content != `["biolink:NamedThing"]` {
		t.Errorf("content = %q", result.Content)
	}
}

func TestEnrichNodeFromRow(t *testing.T) {
	e := testServices(t)

	result := execute(t, e, "enrich_node_from_row", map[string]any{
		"row_data": map[string]any{
			"name":        "diabetes",
			"Description": "a metabolic disease",
			"MONDO ID":    "MONDO:0005015",
		},
	})
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	var enrichment enrich.Enrichment
	if err := json.Unmarshal([]byte(result.Content), &enrichment); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if enrichment.CURIE != "MONDO:0005015" {
		t.Errorf("curie = %q", enrichment.CURIE)
	}
	if enrichment.Type != "biolink:Disease" {
		t.Errorf("type = %q", enrichment.Type)
	}
	if desc := enrichment.MappedData["description"]; len(desc) != 1 || desc[0].Value != "a metabolic disease" {
		t.Errorf("description mapping = %+v", desc)
	}
	if xref := enrichment.MappedData["xref"]; len(xref) != 1 || xref[0].CSVColumn != "MONDO ID" {
		t.Errorf("xref mapping = %+v", xref)
	}

	result = execute(t, e, "enrich_node_from_row", map[string]any{
		"row_data": map[string]any{"label": "diabetes"},
	})
	if result.Error == "" {
		t.Error("expected error for row without name column")
	}
}

func TestListTools(t *testing.T) {
	e := testServices(t)

	defs := e.ListTools()
	if len(defs) != 6 {
		t.Fatalf("got %d tool definitions, want 6", len(defs))
	}
	for _, def := range defs {
		if def.Name == "" || def.Description == "" || def.Parameters == nil {
			t.Errorf("incomplete definition: %+v", def)
		}
	}
}
