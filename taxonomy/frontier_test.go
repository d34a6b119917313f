package taxonomy

import (
	"errors"
	"reflect"
	"testing"
)

// fixtureOracle serves canned ancestor sets keyed by label. Labels absent
// from the map are unknown types.
type fixtureOracle struct {
	ancestors map[string][]string
}

func (o *fixtureOracle) Ancestors(label string, opts AncestorOptions) ([]string, error) {
	anc, ok := o.ancestors[label]
	if !ok {
		return nil, errors.New("unknown type: " + label)
	}
	if !opts.Reflexive {
		return anc[1:], nil
	}
	return anc, nil
}

func TestFrontierReduce_FixtureOracle(t *testing.T) {
	oracle := &fixtureOracle{ancestors: map[string][]string{
		"Leaf":   {"Leaf", "Mid", "Root"},
		"Mid":    {"Mid", "Root"},
		"Root":   {"Root"},
		"Island": {"Island"},
	}}
	f := NewFrontier(oracle, WithSentinel("Root"))

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty input returns sentinel", nil, []string{"Root"}},
		{"single candidate", []string{"Leaf"}, []string{"Leaf"}},
		{"ancestor removed", []string{"Mid", "Leaf"}, []string{"Leaf"}},
		{"chain collapses to leaf", []string{"Root", "Mid", "Leaf"}, []string{"Leaf"}},
		{"unrelated retained sorted", []string{"Leaf", "Island"}, []string{"Island", "Leaf"}},
		{"duplicates tolerated", []string{"Mid", "Mid", "Leaf"}, []string{"Leaf"}},
		{"unknown candidate retained", []string{"Leaf", "Mystery"}, []string{"Leaf", "Mystery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Reduce(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reduce(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFrontierReduce_DegenerateFallback(t *testing.T) {
	// Inconsistent data: each candidate claims the other as an ancestor.
	oracle := &fixtureOracle{ancestors: map[string][]string{
		"A": {"A", "B"},
		"B": {"B", "A"},
	}}

	var hookInput []string
	f := NewFrontier(oracle,
		WithSentinel("Root"),
		WithDegenerateHook(func(candidates []string) { hookInput = candidates }),
	)

	got := f.Reduce([]string{"A", "B"})
	if want := []string{"B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Reduce = %v, want last input element %v", got, want)
	}
	if !reflect.DeepEqual(hookInput, []string{"A", "B"}) {
		t.Errorf("degenerate hook got %v, want original candidates", hookInput)
	}

	// Fallback tracks input order, not any hierarchy property.
	got = f.Reduce([]string{"B", "A"})
	if want := []string{"A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Reduce = %v, want last input element %v", got, want)
	}
}

func TestFrontierReduce_EmbeddedModel(t *testing.T) {
	tax, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded model: %v", err)
	}
	f := tax.Frontier()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			"disease beats its parent class",
			[]string{"Disease", "DiseaseOrPhenotypicFeature"},
			[]string{"Disease"},
		},
		{
			"root type always loses",
			[]string{"Gene", "NamedThing"},
			[]string{"Gene"},
		},
		{
			"unrelated types both retained, sorted",
			[]string{"Gene", "ChemicalEntity"},
			[]string{"ChemicalEntity", "Gene"},
		},
		{
			"single type passes through",
			[]string{"Disease"},
			[]string{"Disease"},
		},
		{
			"empty input yields configured sentinel",
			nil,
			[]string{"biolink:NamedThing"},
		},
		{
			"mixin ancestor eliminated",
			[]string{"GeneOrGeneProduct", "Gene"},
			[]string{"Gene"},
		},
		{
			"formatted normalizer output",
			[]string{"biolink:NamedThing", "biolink:BiologicalEntity", "biolink:Disease"},
			[]string{"biolink:Disease"},
		},
		{
			"mixed spellings compare canonically",
			[]string{"biolink:DiseaseOrPhenotypicFeature", "Disease"},
			[]string{"Disease"},
		},
		{
			"duplicates collapse before comparison",
			[]string{"DiseaseOrPhenotypicFeature", "DiseaseOrPhenotypicFeature", "Disease"},
			[]string{"Disease"},
		},
		{
			"chain through chemicals",
			[]string{"NamedThing", "ChemicalEntity", "MolecularEntity", "SmallMolecule"},
			[]string{"SmallMolecule"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Reduce(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reduce(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFrontierReduce_OrderIndependence(t *testing.T) {
	tax, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded model: %v", err)
	}
	f := tax.Frontier()

	perms := [][]string{
		{"Disease", "Gene", "NamedThing"},
		{"NamedThing", "Disease", "Gene"},
		{"Gene", "NamedThing", "Disease"},
	}
	want := []string{"Disease", "Gene"}
	for _, p := range perms {
		if got := f.Reduce(p); !reflect.DeepEqual(got, want) {
			t.Errorf("Reduce(%v) = %v, want %v", p, got, want)
		}
	}
}

func TestFrontierReduce_Idempotent(t *testing.T) {
	tax, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded model: %v", err)
	}
	f := tax.Frontier()

	first := f.Reduce([]string{"Disease", "Gene", "NamedThing", "BiologicalEntity"})
	second := f.Reduce(first)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reduction not idempotent: first %v, second %v", first, second)
	}
}
