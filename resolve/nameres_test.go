package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("string"); got != "diabetes" {
			t.Errorf("string param = %q", got)
		}
		if got := q.Get("limit"); got != "5" {
			t.Errorf("limit param = %q, want default 5", got)
		}
		if got := q.Get("autocomplete"); got != "false" {
			t.Errorf("autocomplete param = %q", got)
		}
		if got := q.Get("highlighting"); got != "false" {
			t.Errorf("highlighting param = %q", got)
		}
		if got := q.Get("biolink_type"); got != "Disease" {
			t.Errorf("biolink_type param = %q", got)
		}
		if got := q["only_prefixes"]; !reflect.DeepEqual(got, []string{"MONDO", "DOID"}) {
			t.Errorf("only_prefixes param = %v", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"curie": "MONDO:0005015", "label": "diabetes mellitus", "score": 112.3, "types": ["biolink:Disease"]},
			{"curie": "MONDO:0005147", "label": "type 1 diabetes mellitus", "score": 54.1}
		]`))
	}))
	defer srv.Close()

	r := NewNameResolver(WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	matches, err := r.Lookup(context.Background(), LookupRequest{
		Query:        "diabetes",
		BiolinkType:  "Disease",
		OnlyPrefixes: []string{"MONDO", "DOID"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].CURIE != "MONDO:0005015" || matches[0].Label != "diabetes mellitus" {
		t.Errorf("unexpected first match: %+v", matches[0])
	}
}

func TestLookupCURIEsOmitsUnsetFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		// Optional filters stay off the wire when the request leaves
		// them unset.
		if q.Has("biolink_type") {
			t.Errorf("biolink_type sent unset: %q", q.Get("biolink_type"))
		}
		if q.Has("only_prefixes") {
			t.Errorf("only_prefixes sent unset: %v", q["only_prefixes"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"curie": "MONDO:0005015", "label": "diabetes mellitus"},
			{"curie": "MONDO:0005147", "label": "type 1 diabetes mellitus"}
		]`))
	}))
	defer srv.Close()

	r := NewNameResolver(WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	curies, err := r.LookupCURIEs(context.Background(), LookupRequest{Query: "diabetes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"MONDO:0005015", "MONDO:0005147"}; !reflect.DeepEqual(curies, want) {
		t.Errorf("LookupCURIEs = %v, want %v", curies, want)
	}
}

func TestLookupRequiresQuery(t *testing.T) {
	r := NewNameResolver()
	_, err := r.Lookup(context.Background(), LookupRequest{})
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if !IsFatal(err) {
		t.Errorf("empty query error should be fatal, got %v", err)
	}
}

func TestLookupRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"curie": "CHEBI:15365", "label": "aspirin"}]`))
	}))
	defer srv.Close()

	r := NewNameResolver(WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	matches, err := r.Lookup(context.Background(), LookupRequest{Query: "aspirin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].CURIE != "CHEBI:15365" {
		t.Errorf("unexpected matches: %+v", matches)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestLookupDoesNotRetryFatalStatuses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	r := NewNameResolver(WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))

	_, err := r.Lookup(context.Background(), LookupRequest{Query: "aspirin"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsFatal(err) {
		t.Errorf("400 should classify fatal, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusUnprocessableEntity, false},
		{http.StatusTeapot, false},
	}
	for _, tt := range tests {
		err := classifyHTTPError("test service", tt.status, []byte("boom"))
		if IsTransient(err) != tt.wantTransient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, IsTransient(err), tt.wantTransient)
		}
		if IsFatal(err) == tt.wantTransient {
			t.Errorf("status %d: fatal = %v, want %v", tt.status, IsFatal(err), !tt.wantTransient)
		}
	}
}

func TestCalculateBackoffRespectsCap(t *testing.T) {
	rc := RetryConfig{
		BackoffBase:       time.Second,
		BackoffMultiplier: 10.0,
		MaxBackoff:        2 * time.Second,
	}
	// +/- 25% jitter around the 2s cap.
	for attempt := 1; attempt <= 5; attempt++ {
		b := rc.calculateBackoff(attempt)
		if b > 2*time.Second+500*time.Millisecond {
			t.Errorf("attempt %d: backoff %v exceeds cap with jitter", attempt, b)
		}
		if b <= 0 {
			t.Errorf("attempt %d: non-positive backoff %v", attempt, b)
		}
	}
}
