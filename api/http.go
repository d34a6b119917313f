// Package api exposes taxonomy queries and entity resolution over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

const maxRequestBody = 1 << 20 // 1MB

// HTTPHandler handles HTTP requests for taxonomy and resolution queries.
type HTTPHandler struct {
	tax        *taxonomy.Taxonomy
	frontier   *taxonomy.Frontier
	resolver   *resolve.NameResolver
	normalizer *resolve.NodeNormalizer
	pipeline   *resolve.Pipeline
	enricher   *enrich.Enricher
	logger     *slog.Logger
}

// HandlerOption customizes an HTTPHandler.
type HandlerOption func(*HTTPHandler)

// WithHandlerLogger sets the logger used for request diagnostics.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *HTTPHandler) { h.logger = logger }
}

// NewHTTPHandler creates an HTTP handler over the given taxonomy and
// resolution clients.
func NewHTTPHandler(
	tax *taxonomy.Taxonomy,
	resolver *resolve.NameResolver,
	normalizer *resolve.NodeNormalizer,
	opts ...HandlerOption,
) *HTTPHandler {
	h := &HTTPHandler{
		tax:        tax,
		frontier:   tax.Frontier(),
		resolver:   resolver,
		normalizer: normalizer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pipeline = resolve.NewPipeline(resolver, normalizer, h.frontier,
		resolve.WithPipelineLogger(h.logger))
	h.enricher = enrich.NewEnricher(resolver, normalizer, tax,
		enrich.WithLogger(h.logger))
	return h
}

// RegisterHTTPHandlers registers handlers under the given prefix.
// The prefix may or may not include a trailing slash.
func (h *HTTPHandler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	mux.HandleFunc(prefix+"classes", h.handleClasses)
	mux.HandleFunc(prefix+"slots", h.handleSlots)
	mux.HandleFunc(prefix+"ancestors/", h.handleAncestors)
	mux.HandleFunc(prefix+"descendants/", h.handleDescendants)
	mux.HandleFunc(prefix+"reduce", h.handleReduce)
	mux.HandleFunc(prefix+"lookup", h.handleLookup)
	mux.HandleFunc(prefix+"normalize", h.handleNormalize)
	mux.HandleFunc(prefix+"resolve", h.handleResolve)
	mux.HandleFunc(prefix+"enrich", h.handleEnrich)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ElementsResponse is the JSON response for GET /classes and /slots.
type ElementsResponse struct {
	Elements []string `json:"elements"`
}

// AncestryResponse is the JSON response for ancestor and descendant queries.
type AncestryResponse struct {
	Element string   `json:"element"`
	Labels  []string `json:"labels"`
}

// ReduceRequest is the JSON body for POST /reduce.
type ReduceRequest struct {
	Categories []string `json:"categories"`
}

// ReduceResponse is the JSON response for POST /reduce.
type ReduceResponse struct {
	MostSpecificTypes []string `json:"most_specific_types"`
}

// LookupHTTPRequest is the JSON body for POST /lookup and /resolve.
type LookupHTTPRequest struct {
	Query        string   `json:"query"`
	Limit        int      `json:"limit,omitempty"`
	BiolinkType  string   `json:"biolink_type,omitempty"`
	OnlyPrefixes []string `json:"only_prefixes,omitempty"`
}

// NormalizeHTTPRequest is the JSON body for POST /normalize. The conflation
// flags default to true when omitted.
type NormalizeHTTPRequest struct {
	CURIEs               []string `json:"curies"`
	Conflate             *bool    `json:"conflate,omitempty"`
	DrugChemicalConflate *bool    `json:"drug_chemical_conflate,omitempty"`
	Description          bool     `json:"description,omitempty"`
	IndividualTypes      bool     `json:"individual_types,omitempty"`
}

// EnrichHTTPRequest is the JSON body for POST /enrich.
type EnrichHTTPRequest struct {
	RowData      map[string]string `json:"row_data"`
	NameColumn   string            `json:"name_column,omitempty"`
	Limit        int               `json:"limit,omitempty"`
	BiolinkType  string            `json:"biolink_type,omitempty"`
	OnlyPrefixes []string          `json:"only_prefixes,omitempty"`
}

// handleClasses handles GET /classes?formatted={true|false}
func (h *HTTPHandler) handleClasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	formatted := boolQuery(r, "formatted", true)
	writeJSON(w, http.StatusOK, ElementsResponse{Elements: h.tax.AllClasses(formatted)})
}

// handleSlots handles GET /slots?formatted={true|false}
func (h *HTTPHandler) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	formatted := boolQuery(r, "formatted", true)
	writeJSON(w, http.StatusOK, ElementsResponse{Elements: h.tax.AllSlots(formatted)})
}

// handleAncestors handles GET /ancestors/{label}?formatted=&mixin=&reflexive=
func (h *HTTPHandler) handleAncestors(w http.ResponseWriter, r *http.Request) {
	h.handleAncestry(w, r, "/ancestors/", h.tax.Ancestors)
}

// handleDescendants handles GET /descendants/{label}?formatted=&mixin=&reflexive=
func (h *HTTPHandler) handleDescendants(w http.ResponseWriter, r *http.Request) {
	h.handleAncestry(w, r, "/descendants/", h.tax.Descendants)
}

func (h *HTTPHandler) handleAncestry(
	w http.ResponseWriter,
	r *http.Request,
	segment string,
	query func(string, taxonomy.AncestorOptions) ([]string, error),
) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	label := extractLabelFromPath(r.URL.Path, segment)
	if label == "" {
		writeJSONError(w, http.StatusBadRequest, "label_required", "Element label required")
		return
	}

	opts := taxonomy.AncestorOptions{
		Reflexive:     boolQuery(r, "reflexive", true),
		IncludeMixins: boolQuery(r, "mixin", true),
		Formatted:     boolQuery(r, "formatted", true),
	}

	labels, err := query(label, opts)
	if err != nil {
		if errors.Is(err, taxonomy.ErrUnknownType) {
			writeJSONError(w, http.StatusNotFound, "unknown_element", err.Error())
			return
		}
		h.logger.Error("Ancestry query failed", "label", label, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "query_error", "Failed to query taxonomy")
		return
	}
	if labels == nil {
		labels = []string{}
	}

	writeJSON(w, http.StatusOK, AncestryResponse{Element: label, Labels: labels})
}

// handleReduce handles POST /reduce - reduce categories to their most
// specific members.
func (h *HTTPHandler) handleReduce(w http.ResponseWriter, r *http.Request) {
	var req ReduceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, ReduceResponse{
		MostSpecificTypes: h.frontier.Reduce(req.Categories),
	})
}

// handleLookup handles POST /lookup - free-text entity search.
func (h *HTTPHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req LookupHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	matches, err := h.resolver.Lookup(r.Context(), resolve.LookupRequest{
		Query:        req.Query,
		Limit:        req.Limit,
		BiolinkType:  req.BiolinkType,
		OnlyPrefixes: req.OnlyPrefixes,
	})
	if err != nil {
		h.writeServiceError(w, "lookup", err)
		return
	}
	if matches == nil {
		matches = []resolve.Match{}
	}

	writeJSON(w, http.StatusOK, matches)
}

// handleNormalize handles POST /normalize - CURIE normalization.
func (h *HTTPHandler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.CURIEs) == 0 {
		writeJSONError(w, http.StatusBadRequest, "curies_required", "At least one CURIE is required")
		return
	}

	normReq := resolve.DefaultNormalizeRequest(req.CURIEs...)
	if req.Conflate != nil {
		normReq.Conflate = *req.Conflate
	}
	if req.DrugChemicalConflate != nil {
		normReq.DrugChemicalConflate = *req.DrugChemicalConflate
	}
	normReq.Description = req.Description
	normReq.IndividualTypes = req.IndividualTypes

	nodes, err := h.normalizer.Normalize(r.Context(), normReq)
	if err != nil {
		h.writeServiceError(w, "normalize", err)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// handleResolve handles POST /resolve - full name-to-types resolution.
func (h *HTTPHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req LookupHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resolution, err := h.pipeline.Resolve(r.Context(), resolve.LookupRequest{
		Query:        req.Query,
		Limit:        req.Limit,
		BiolinkType:  req.BiolinkType,
		OnlyPrefixes: req.OnlyPrefixes,
	})
	if err != nil {
		h.writeServiceError(w, "resolve", err)
		return
	}

	writeJSON(w, http.StatusOK, resolution)
}

// handleEnrich handles POST /enrich - CSV row enrichment.
func (h *HTTPHandler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.RowData) == 0 {
		writeJSONError(w, http.StatusBadRequest, "row_data_required", "Row data is required")
		return
	}

	enrichment, err := h.enricher.EnrichRow(r.Context(), req.RowData, enrich.Options{
		NameColumn:   req.NameColumn,
		Limit:        req.Limit,
		BiolinkType:  req.BiolinkType,
		OnlyPrefixes: req.OnlyPrefixes,
	})
	if err != nil {
		h.writeServiceError(w, "enrich", err)
		return
	}

	writeJSON(w, http.StatusOK, enrichment)
}

// writeServiceError maps resolution errors onto HTTP statuses. Transient
// upstream failures surface as 502 so callers know a retry may succeed.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if resolve.IsTransient(err) {
		h.logger.Warn("Upstream service unavailable", "operation", op, "error", err)
		writeJSONError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
		return
	}
	writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

// Helper functions

// decodeBody decodes a POST body into dst, writing the error response
// itself when the request is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "parse_error", "Failed to parse request body: "+err.Error())
		return false
	}
	return true
}

// boolQuery reads a boolean query parameter with a default.
func boolQuery(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return value
}

// extractLabelFromPath extracts an element label from a path segment.
// Example: extractLabelFromPath("/api/v1/ancestors/biolink:Disease", "/ancestors/")
// returns "biolink:Disease".
func extractLabelFromPath(path, segment string) string {
	idx := strings.Index(path, segment)
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(path[idx+len(segment):])
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
