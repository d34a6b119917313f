package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

// CURIEResolver resolves a free-text name to candidate CURIEs.
type CURIEResolver interface {
	LookupCURIEs(ctx context.Context, req LookupRequest) ([]string, error)
}

// TypeResolver returns the entity types for a set of CURIEs.
type TypeResolver interface {
	TypesForCURIEs(ctx context.Context, curies []string) ([]string, error)
}

// Pipeline chains name resolution, node normalization and
// most-specific-type reduction into one entity resolution flow.
type Pipeline struct {
	resolver   CURIEResolver
	normalizer TypeResolver
	frontier   *taxonomy.Frontier
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline wires a resolver, a normalizer and a type frontier together.
func NewPipeline(resolver CURIEResolver, normalizer TypeResolver, frontier *taxonomy.Frontier, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver:   resolver,
		normalizer: normalizer,
		frontier:   frontier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolution is the full result of resolving one entity name.
type Resolution struct {
	// Entity is the input name as given.
	Entity string `json:"entity"`

	// CURIEs are the candidate identifiers, best match first.
	CURIEs []string `json:"curies,omitempty"`

	// Types is the union of entity types across all candidates.
	Types []string `json:"types,omitempty"`

	// MostSpecificTypes is the reduced type frontier.
	MostSpecificTypes []string `json:"most_specific_types"`
}

// Resolve runs the full chain for one entity name. An entity that
// resolves to no CURIEs, or whose CURIEs carry no types, still yields a
// Resolution: its frontier is the root sentinel.
func (p *Pipeline) Resolve(ctx context.Context, req LookupRequest) (*Resolution, error) {
	if req.Query == "" {
		return nil, NewFatalError(fmt.Errorf("entity name is required"))
	}

	res := &Resolution{Entity: req.Query}

	curies, err := p.resolver.LookupCURIEs(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", req.Query, err)
	}
	res.CURIEs = curies

	if len(curies) == 0 {
		p.logger.Debug("Entity resolved to no CURIEs", "entity", req.Query)
		res.MostSpecificTypes = p.frontier.Reduce(nil)
		return res, nil
	}

	types, err := p.normalizer.TypesForCURIEs(ctx, curies)
	if err != nil {
		return nil, fmt.Errorf("normalize %q: %w", req.Query, err)
	}
	res.Types = types
	res.MostSpecificTypes = p.frontier.Reduce(types)

	p.logger.Debug("Entity resolved",
		"entity", req.Query,
		"curies", len(res.CURIEs),
		"types", len(res.Types),
		"most_specific", res.MostSpecificTypes)
	return res, nil
}

// MostSpecificTypeForEntity returns just the reduced type frontier for an
// entity name.
func (p *Pipeline) MostSpecificTypeForEntity(ctx context.Context, req LookupRequest) ([]string, error) {
	res, err := p.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.MostSpecificTypes, nil
}
