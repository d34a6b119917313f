// Package main implements a mock resolution-services server for e2e testing.
// It serves Name Resolution /lookup and Node Normalization
// /get_normalized_nodes responses from JSON fixture files, routing by the
// query string or CURIE. This eliminates the need for the live RENCI
// services during wiring tests, making them fast, deterministic, and
// offline-capable.
//
// Usage:
//
//	mock-services -fixtures /path/to/fixtures -port 2433
//
// Fixture layout:
//
//	lookup/<query>.json   — array of matches for /lookup?string=<query>,
//	                        spaces in the query mapped to underscores
//	                        (e.g. "type_1_diabetes.json")
//	nodes/<curie>.json    — normalized node for one CURIE, the colon
//	                        mapped to an underscore (e.g. "MONDO_0005015.json")
//
// Unknown queries return an empty match list and unknown CURIEs map to
// null, mirroring the live services.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

type server struct {
	lookups map[string]json.RawMessage // normalized query → match array
	nodes   map[string]json.RawMessage // CURIE → normalized node

	calls atomic.Int64 // total calls served

	// Per-endpoint call counters for test assertions.
	endpointCalls   map[string]*atomic.Int64
	endpointCallsMu sync.Mutex
}

func newServer(lookups, nodes map[string]json.RawMessage) *server {
	return &server{
		lookups:       lookups,
		nodes:         nodes,
		endpointCalls: make(map[string]*atomic.Int64),
	}
}

// countCall increments the total and per-endpoint counters.
func (s *server) countCall(endpoint string) int64 {
	s.endpointCallsMu.Lock()
	counter, ok := s.endpointCalls[endpoint]
	if !ok {
		counter = &atomic.Int64{}
		s.endpointCalls[endpoint] = counter
	}
	s.endpointCallsMu.Unlock()
	counter.Add(1)
	return s.calls.Add(1)
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 2433, "port to listen on")
	flag.Parse()

	// Allow env var override
	if envDir := os.Getenv("MOCK_SERVICES_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "/fixtures"
	}

	lookups, nodes, err := loadFixtures(*fixtureDir)
	if err != nil {
		log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
	}
	log.Printf("Loaded %d lookup fixture(s) and %d node fixture(s) from %s",
		len(lookups), len(nodes), *fixtureDir)

	s := newServer(lookups, nodes)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock resolution services listening on %s", addr)
	if err := http.ListenAndServe(addr, s.routes()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/lookup", s.handleLookup)
	mux.HandleFunc("/get_normalized_nodes", s.handleNormalizedNodes)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleLookup mimics Name Resolution GET /lookup?string=<query>.
func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("string")
	callNum := s.countCall("lookup")
	log.Printf("[call %d] lookup string=%q limit=%s", callNum, query, r.URL.Query().Get("limit"))

	w.Header().Set("Content-Type", "application/json")
	if matches, ok := s.lookups[queryKey(query)]; ok {
		_, _ = w.Write(matches)
		return
	}
	// Unknown names resolve to an empty list, like the live service.
	_, _ = w.Write([]byte("[]"))
}

// handleNormalizedNodes mimics Node Normalization GET /get_normalized_nodes
// with repeated curie parameters.
func (s *server) handleNormalizedNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	curies := r.URL.Query()["curie"]
	callNum := s.countCall("get_normalized_nodes")
	log.Printf("[call %d] get_normalized_nodes curies=%d", callNum, len(curies))

	if len(curies) == 0 {
		http.Error(w, "at least one curie is required", http.StatusBadRequest)
		return
	}

	out := make(map[string]json.RawMessage, len(curies))
	for _, curie := range curies {
		if node, ok := s.nodes[curie]; ok {
			out[curie] = node
		} else {
			// Unresolvable CURIEs map to null, like the live service.
			out[curie] = json.RawMessage("null")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.endpointCallsMu.Lock()
	callsByEndpoint := make(map[string]int64, len(s.endpointCalls))
	for endpoint, counter := range s.endpointCalls {
		callsByEndpoint[endpoint] = counter.Load()
	}
	s.endpointCallsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":       s.calls.Load(),
		"calls_by_endpoint": callsByEndpoint,
	})
}

// queryKey normalizes a lookup query to its fixture key.
func queryKey(query string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(query)), " ", "_")
}

// curieKey maps a fixture file stem back to a CURIE. Only the first
// underscore is restored to a colon ("MONDO_0005015" → "MONDO:0005015").
func curieKey(stem string) string {
	return strings.Replace(stem, "_", ":", 1)
}

// loadFixtures reads the lookup/ and nodes/ fixture directories.
func loadFixtures(dir string) (lookups, nodes map[string]json.RawMessage, err error) {
	lookups, err = loadFixtureDir(filepath.Join(dir, "lookup"), func(stem string) string { return stem })
	if err != nil {
		return nil, nil, err
	}
	nodes, err = loadFixtureDir(filepath.Join(dir, "nodes"), curieKey)
	if err != nil {
		return nil, nil, err
	}
	if len(lookups) == 0 && len(nodes) == 0 {
		return nil, nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return lookups, nodes, nil
}

// loadFixtureDir reads every .json file in dir, keyed by keyFn(file stem).
// A missing directory yields an empty map.
func loadFixtureDir(dir string, keyFn func(string) string) (map[string]json.RawMessage, error) {
	fixtures := make(map[string]json.RawMessage)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return fixtures, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", path)
		}

		stem := strings.TrimSuffix(entry.Name(), ".json")
		fixtures[keyFn(stem)] = json.RawMessage(data)
	}

	return fixtures, nil
}
