package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// NodeNormalizer queries the Node Normalization Service.
type NodeNormalizer struct {
	opts options
}

// NewNodeNormalizer creates a client for the Node Normalization Service.
func NewNodeNormalizer(opts ...Option) *NodeNormalizer {
	return &NodeNormalizer{opts: newOptions(DefaultNodeNormalizerURL, opts)}
}

// NormalizeRequest describes one normalization query.
type NormalizeRequest struct {
	// CURIEs to normalize.
	CURIEs []string

	// Conflate merges gene and protein identifiers.
	Conflate bool

	// DrugChemicalConflate merges drug and chemical identifiers.
	DrugChemicalConflate bool

	// Description includes entity descriptions in the response.
	Description bool

	// IndividualTypes includes per-equivalent-identifier types.
	IndividualTypes bool
}

// DefaultNormalizeRequest builds a request with the standard conflation
// settings enabled, matching the service's recommended usage.
func DefaultNormalizeRequest(curies ...string) NormalizeRequest {
	return NormalizeRequest{
		CURIEs:               curies,
		Conflate:             true,
		DrugChemicalConflate: true,
	}
}

// Identifier is one identifier with its human-readable label.
type Identifier struct {
	Identifier  string `json:"identifier"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// NormalizedNode is the canonical form of one input CURIE.
type NormalizedNode struct {
	ID                    Identifier   `json:"id"`
	EquivalentIdentifiers []Identifier `json:"equivalent_identifiers,omitempty"`
	Types                 []string     `json:"type,omitempty"`
	InformationContent    float64      `json:"information_content,omitempty"`
}

// Normalize maps each input CURIE to its canonical node. CURIEs the
// service cannot resolve map to nil, mirroring the service's null entries.
func (n *NodeNormalizer) Normalize(ctx context.Context, req NormalizeRequest) (map[string]*NormalizedNode, error) {
	if len(req.CURIEs) == 0 {
		return map[string]*NormalizedNode{}, nil
	}

	params := url.Values{}
	for _, curie := range req.CURIEs {
		params.Add("curie", curie)
	}
	params.Set("conflate", boolParam(req.Conflate))
	params.Set("drug_chemical_conflate", boolParam(req.DrugChemicalConflate))
	params.Set("description", boolParam(req.Description))
	params.Set("individual_types", boolParam(req.IndividualTypes))

	var nodes map[string]*NormalizedNode
	err := doWithRetry(ctx, n.opts.retryConfig, n.opts.logger, func() error {
		body, err := getJSON(ctx, n.opts, "/get_normalized_nodes", params, "node normalizer")
		if err != nil {
			return err
		}
		nodes = nil
		if err := json.Unmarshal(body, &nodes); err != nil {
			return NewFatalError(fmt.Errorf("decode normalization response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n.opts.logger.Debug("Node normalization complete",
		"curies", len(req.CURIEs),
		"resolved", countResolved(nodes))
	return nodes, nil
}

// TypesForCURIEs returns the union of entity types across all resolved
// CURIEs, deduplicated in first-seen order. Input order drives iteration
// so results are deterministic.
func (n *NodeNormalizer) TypesForCURIEs(ctx context.Context, curies []string) ([]string, error) {
	if len(curies) == 0 {
		return nil, nil
	}

	nodes, err := n.Normalize(ctx, DefaultNormalizeRequest(curies...))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var types []string
	for _, curie := range curies {
		node := nodes[curie]
		if node == nil {
			continue
		}
		for _, t := range node.Types {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types, nil
}

func countResolved(nodes map[string]*NormalizedNode) int {
	count := 0
	for _, node := range nodes {
		if node != nil {
			count++
		}
	}
	return count
}

func boolParam(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
