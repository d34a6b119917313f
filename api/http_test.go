package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

// newTestServer builds the API server against stubbed upstream services.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upstream := http.NewServeMux()
	upstream.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("string") == "diabetes" {
			_, _ = w.Write([]byte(`[{"curie": "MONDO:0005015", "label": "diabetes mellitus"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	upstream.HandleFunc("/get_normalized_nodes", func(w http.ResponseWriter, r *http.Request) {
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
	services := httptest.NewServer(upstream)
	t.Cleanup(services.Close)

	retry := resolve.RetryConfig{
		MaxAttempts:       1,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
	resolver := resolve.NewNameResolver(resolve.WithBaseURL(services.URL), resolve.WithRetryConfig(retry))
	normalizer := resolve.NewNodeNormalizer(resolve.WithBaseURL(services.URL), resolve.WithRetryConfig(retry))

	tax, err := taxonomy.LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded model: %v", err)
	}

	handler := NewHTTPHandler(tax, resolver, normalizer)
	mux := http.NewServeMux()
	handler.RegisterHTTPHandlers("/api/v1", mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, wantStatus int, dst any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string, wantStatus int, dst any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

func TestClassesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var out ElementsResponse
	getJSON(t, srv, "/api/v1/classes", http.StatusOK, &out)
	if len(out.Elements) == 0 {
		t.Fatal("expected classes, got none")
	}
	found := false
	for _, class := range out.Elements {
		if class == "biolink:NamedThing" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected biolink:NamedThing in class list")
	}
}

func TestAncestorsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var out AncestryResponse
	getJSON(t, srv, "/api/v1/ancestors/biolink:Disease", http.StatusOK, &out)
	if len(out.Labels) == 0 || out.Labels[0] != "biolink:Disease" {
		t.Errorf("labels = %v, want reflexive list starting with biolink:Disease", out.Labels)
	}

	var errOut ErrorResponse
	getJSON(t, srv, "/api/v1/ancestors/biolink:Nonexistent", http.StatusNotFound, &errOut)
	if errOut.Error != "unknown_element" {
		t.Errorf("error code = %q", errOut.Error)
	}
}

func TestDescendantsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var out AncestryResponse
	getJSON(t, srv, "/api/v1/descendants/biolink:Disease?reflexive=false", http.StatusOK, &out)
	for _, label := range out.Labels {
		if label == "biolink:Disease" {
			t.Error("reflexive=false should exclude the element itself")
		}
	}
}

func TestReduceEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var out ReduceResponse
	postJSON(t, srv, "/api/v1/reduce",
		`{"categories": ["biolink:NamedThing", "biolink:Disease"]}`,
		http.StatusOK, &out)
	if want := []string{"biolink:Disease"}; !reflect.DeepEqual(out.MostSpecificTypes, want) {
		t.Errorf("most_specific_types = %v, want %v", out.MostSpecificTypes, want)
	}

	// Empty input falls back to the root sentinel.
	postJSON(t, srv, "/api/v1/reduce", `{"categories": []}`, http.StatusOK, &out)
	if want := []string{"biolink:NamedThing"}; !reflect.DeepEqual(out.MostSpecificTypes, want) {
		t.Errorf("most_specific_types = %v, want %v", out.MostSpecificTypes, want)
	}
}

func TestLookupEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var matches []resolve.Match
	postJSON(t, srv, "/api/v1/lookup", `{"query": "diabetes"}`, http.StatusOK, &matches)
	if len(matches) != 1 || matches[0].CURIE != "MONDO:0005015" {
		t.Errorf("matches = %+v", matches)
	}

	// GET is rejected.
	resp, err := http.Get(srv.URL + "/api/v1/lookup")
	if err != nil {
		t.Fatalf("GET lookup: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET lookup status = %d", resp.StatusCode)
	}

	// Empty query is a client error.
	var errOut ErrorResponse
	postJSON(t, srv, "/api/v1/lookup", `{"query": ""}`, http.StatusBadRequest, &errOut)
	if errOut.Error != "invalid_request" {
		t.Errorf("error code = %q", errOut.Error)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var nodes map[string]*resolve.NormalizedNode
	postJSON(t, srv, "/api/v1/normalize",
		`{"curies": ["MONDO:0005015", "NOPE:1"]}`,
		http.StatusOK, &nodes)
	if nodes["MONDO:0005015"] == nil {
		t.Error("expected MONDO:0005015 to normalize")
	}
	if node, ok := nodes["NOPE:1"]; !ok || node != nil {
		t.Errorf("unresolvable CURIE should map to null, got %v", node)
	}

	var errOut ErrorResponse
	postJSON(t, srv, "/api/v1/normalize", `{"curies": []}`, http.StatusBadRequest, &errOut)
	if errOut.Error != "curies_required" {
		t.Errorf("error code = %q", errOut.Error)
	}
}

func TestResolveEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var resolution resolve.Resolution
	postJSON(t, srv, "/api/v1/resolve", `{"query": "diabetes"}`, http.StatusOK, &resolution)
	if want := []string{"biolink:Disease"}; !reflect.DeepEqual(resolution.MostSpecificTypes, want) {
		t.Errorf("most_specific_types = %v, want %v", resolution.MostSpecificTypes, want)
	}

	// Unresolvable entities still resolve to the sentinel type.
	postJSON(t, srv, "/api/v1/resolve", `{"query": "xyzzy"}`, http.StatusOK, &resolution)
	if want := []string{"biolink:NamedThing"}; !reflect.DeepEqual(resolution.MostSpecificTypes, want) {
		t.Errorf("most_specific_types = %v, want %v", resolution.MostSpecificTypes, want)
	}
}

func TestEnrichEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var enrichment enrich.Enrichment
	postJSON(t, srv, "/api/v1/enrich",
		`{"row_data": {"name": "diabetes", "Description": "a metabolic disease"}}`,
		http.StatusOK, &enrichment)
	if enrichment.CURIE != "MONDO:0005015" {
		t.Errorf("curie = %q", enrichment.CURIE)
	}
	if enrichment.Type != "biolink:Disease" {
		t.Errorf("type = %q", enrichment.Type)
	}

	var errOut ErrorResponse
	postJSON(t, srv, "/api/v1/enrich", `{"row_data": {}}`, http.StatusBadRequest, &errOut)
	if errOut.Error != "row_data_required" {
		t.Errorf("error code = %q", errOut.Error)
	}
}
