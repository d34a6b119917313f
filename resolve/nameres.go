// Package resolve provides clients for the public entity resolution
// services: the Name Resolution Service (free-text name to CURIE lookup)
// and the Node Normalization Service (CURIE to canonical identifier and
// type set). A Pipeline chains them with most-specific-type reduction.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default endpoints for the public RENCI deployments.
const (
	DefaultNameResolverURL   = "https://name-resolution-sri.renci.org"
	DefaultNodeNormalizerURL = "https://nodenormalization-sri.renci.org"
)

// maxResponseSize limits a service response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// DefaultLookupLimit is applied when a lookup request leaves Limit unset.
const DefaultLookupLimit = 5

// options collects the settings shared by both service clients.
type options struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// Option configures a service client.
type Option func(*options)

// WithBaseURL overrides the service endpoint, e.g. for a local deployment.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(o *options) {
		o.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(baseURL string, opts []Option) options {
	o := options{
		baseURL:     baseURL,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NameResolver queries the Name Resolution Service.
type NameResolver struct {
	opts options
}

// NewNameResolver creates a client for the Name Resolution Service.
func NewNameResolver(opts ...Option) *NameResolver {
	return &NameResolver{opts: newOptions(DefaultNameResolverURL, opts)}
}

// LookupRequest describes one name resolution query.
type LookupRequest struct {
	// Query is the free-text entity name, e.g. "diabetes" or "BRCA1".
	Query string

	// Limit caps the number of matches. Zero means DefaultLookupLimit.
	Limit int

	// BiolinkType restricts matches to one entity class, e.g. "Disease".
	BiolinkType string

	// OnlyPrefixes restricts matches to these CURIE namespaces,
	// e.g. ["MONDO", "HGNC"].
	OnlyPrefixes []string
}

// Match is a single name resolution result.
type Match struct {
	CURIE    string   `json:"curie"`
	Label    string   `json:"label"`
	Synonyms []string `json:"synonyms,omitempty"`
	Types    []string `json:"types,omitempty"`
	Score    float64  `json:"score,omitempty"`
	Taxa     []string `json:"taxa,omitempty"`
}

// Lookup resolves a free-text name to ranked candidate matches.
func (r *NameResolver) Lookup(ctx context.Context, req LookupRequest) ([]Match, error) {
	if req.Query == "" {
		return nil, NewFatalError(fmt.Errorf("lookup query is required"))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLookupLimit
	}

	params := url.Values{}
	params.Set("string", req.Query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("autocomplete", "false")
	params.Set("highlighting", "false")
	if req.BiolinkType != "" {
		params.Set("biolink_type", req.BiolinkType)
	}
	for _, prefix := range req.OnlyPrefixes {
		params.Add("only_prefixes", prefix)
	}

	var matches []Match
	err := doWithRetry(ctx, r.opts.retryConfig, r.opts.logger, func() error {
		body, err := getJSON(ctx, r.opts, "/lookup", params, "name resolver")
		if err != nil {
			return err
		}
		matches = nil
		if err := json.Unmarshal(body, &matches); err != nil {
			return NewFatalError(fmt.Errorf("decode lookup response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.opts.logger.Debug("Name lookup complete",
		"query", req.Query,
		"matches", len(matches))
	return matches, nil
}

// LookupCURIEs resolves a name and returns just the candidate CURIEs,
// in result ranking order.
func (r *NameResolver) LookupCURIEs(ctx context.Context, req LookupRequest) ([]string, error) {
	matches, err := r.Lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	curies := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.CURIE != "" {
			curies = append(curies, m.CURIE)
		}
	}
	return curies, nil
}

// getJSON performs one GET against a service and returns the body of a
// 200 response. Non-200 statuses and network failures come back classified
// as transient or fatal.
func getJSON(ctx context.Context, o options, path string, params url.Values, service string) ([]byte, error) {
	reqURL := o.baseURL + path + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are transient
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(service, httpResp.StatusCode, body)
	}
	return body, nil
}
