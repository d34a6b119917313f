// Package enrich turns tabular rows describing biological entities into
// typed, identifier-bearing nodes. Each row's name column is resolved to a
// canonical identifier, the entity's most specific type is computed, and
// the remaining columns are mapped onto the properties valid for that type.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
)

// DefaultNameColumn is the column consulted for the entity name when a
// request does not name one.
const DefaultNameColumn = "name"

// Options control how a row is resolved and mapped.
type Options struct {
	// NameColumn holds the entity name. Empty means DefaultNameColumn.
	NameColumn string

	// Limit caps the identifier candidates considered. Zero means 1;
	// enrichment keeps only the best match anyway.
	Limit int

	// BiolinkType restricts name resolution to one entity class.
	BiolinkType string

	// OnlyPrefixes restricts name resolution to these CURIE namespaces.
	OnlyPrefixes []string
}

func (o Options) nameColumn() string {
	if o.NameColumn == "" {
		return DefaultNameColumn
	}
	return o.NameColumn
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return 1
	}
	return o.Limit
}

// MappedValue records where a property value came from.
type MappedValue struct {
	CSVColumn    string `json:"csv_column"`
	Value        string `json:"value"`
	PropertyType string `json:"property_type"`
}

// Enrichment is the result of enriching one row.
type Enrichment struct {
	// Entity is the name taken from the row.
	Entity string `json:"entity"`

	// CURIE is the best matching identifier, empty when none resolved.
	CURIE string `json:"curie,omitempty"`

	// Type is the most specific entity type.
	Type string `json:"type"`

	// AllCURIEs and AllTypes carry the full candidate sets.
	AllCURIEs []string `json:"all_curies,omitempty"`
	AllTypes  []string `json:"all_types,omitempty"`

	// Properties are the property slots valid for Type.
	Properties []taxonomy.NodeProperty `json:"valid_properties,omitempty"`

	// MappedData maps property names to the column values bound to them.
	// Multivalued targets like xref can accumulate several entries.
	MappedData map[string][]MappedValue `json:"mapped_data,omitempty"`

	// UnmappedColumns lists row columns no property claimed.
	UnmappedColumns []string `json:"unmapped_columns,omitempty"`

	// Note explains a degraded result, e.g. no identifiers found.
	Note string `json:"note,omitempty"`
}

// Enricher resolves and enriches rows.
type Enricher struct {
	resolver   resolve.CURIEResolver
	normalizer resolve.TypeResolver
	tax        *taxonomy.Taxonomy
	frontier   *taxonomy.Frontier
	logger     *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// NewEnricher builds an Enricher over the given resolution services and
// taxonomy.
func NewEnricher(resolver resolve.CURIEResolver, normalizer resolve.TypeResolver, tax *taxonomy.Taxonomy, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		resolver:   resolver,
		normalizer: normalizer,
		tax:        tax,
		frontier:   tax.Frontier(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichRow resolves the row's entity name and maps its columns to the
// properties valid for the resolved type. Rows that resolve to no
// identifier or no types still enrich, with the root sentinel type and a
// Note saying why.
func (e *Enricher) EnrichRow(ctx context.Context, row map[string]string, opts Options) (*Enrichment, error) {
	nameColumn := opts.nameColumn()
	entity := row[nameColumn]
	if entity == "" {
		return nil, fmt.Errorf("row has no value in name column %q", nameColumn)
	}

	out := &Enrichment{Entity: entity}
	sentinel := e.frontier.Reduce(nil)[0]

	curies, err := e.resolver.LookupCURIEs(ctx, resolve.LookupRequest{
		Query:        entity,
		Limit:        opts.limit(),
		BiolinkType:  opts.BiolinkType,
		OnlyPrefixes: opts.OnlyPrefixes,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", entity, err)
	}
	if len(curies) == 0 {
		out.Type = sentinel
		out.Note = "no identifiers found"
		return out, nil
	}
	out.AllCURIEs = curies
	out.CURIE = curies[0]

	types, err := e.normalizer.TypesForCURIEs(ctx, []string{out.CURIE})
	if err != nil {
		return nil, fmt.Errorf("normalize %q: %w", out.CURIE, err)
	}
	if len(types) == 0 {
		out.Type = sentinel
		out.Note = "no types found"
		return out, nil
	}
	out.AllTypes = types
	out.Type = e.frontier.Reduce(types)[0]

	props, err := e.tax.NodeProperties(out.Type)
	if err != nil {
		// A type outside the loaded model still produces a typed node,
		// just with nothing to map columns onto.
		e.logger.Debug("Resolved type not in taxonomy, skipping property mapping",
			"entity", entity,
			"type", out.Type)
		out.UnmappedColumns = otherColumns(row, nameColumn)
		return out, nil
	}
	out.Properties = props

	out.MappedData, out.UnmappedColumns = mapColumns(row, nameColumn, props)

	e.logger.Debug("Row enriched",
		"entity", entity,
		"curie", out.CURIE,
		"type", out.Type,
		"mapped", len(out.MappedData),
		"unmapped", len(out.UnmappedColumns))
	return out, nil
}

// mapColumns binds row columns to property slots. Exact matches on the
// normalized column name win; description-like columns fall back to the
// description property and identifier-like columns accumulate under xref.
func mapColumns(row map[string]string, nameColumn string, props []taxonomy.NodeProperty) (map[string][]MappedValue, []string) {
	propType := make(map[string]string, len(props))
	for _, p := range props {
		propType[p.Property] = p.Type
	}

	mapped := map[string][]MappedValue{}
	var unmapped []string

	for _, column := range sortedColumns(row) {
		value := row[column]
		if column == nameColumn || value == "" {
			continue
		}

		normalized := normalizeColumn(column)

		target := ""
		switch {
		case propType[normalized] != "":
			target = normalized
		case strings.Contains(normalized, "description") && propType["description"] != "":
			target = "description"
		case (strings.Contains(normalized, "id") || strings.Contains(normalized, "identifier")) && propType["xref"] != "":
			target = "xref"
		}

		if target == "" {
			unmapped = append(unmapped, column)
			continue
		}

		mapped[target] = append(mapped[target], MappedValue{
			CSVColumn:    column,
			Value:        value,
			PropertyType: propType[target],
		})
	}

	return mapped, unmapped
}

// normalizeColumn lowers a column heading into property-name form.
func normalizeColumn(column string) string {
	s := strings.ToLower(column)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// sortedColumns returns map keys in a stable order so mapping and the
// unmapped list are deterministic.
func sortedColumns(row map[string]string) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func otherColumns(row map[string]string, nameColumn string) []string {
	var out []string
	for _, k := range sortedColumns(row) {
		if k != nameColumn && row[k] != "" {
			out = append(out, k)
		}
	}
	return out
}
