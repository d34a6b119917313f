package taxonomy

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownType is returned when a queried label does not exist in the
// taxonomy. Callers that want the lenient policy (unknown means empty
// ancestor set) check for it with errors.Is; the Frontier reducer applies
// that policy itself.
var ErrUnknownType = errors.New("unknown taxonomy element")

// Class is a node in the class DAG.
type Class struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	IsA            string   `json:"is_a,omitempty"`
	Mixin          bool     `json:"mixin,omitempty"`
	Mixins         []string `json:"mixins,omitempty"`
	Abstract       bool     `json:"abstract,omitempty"`
	TreeRoot       bool     `json:"tree_root,omitempty"`
	ExactMappings  []string `json:"exact_mappings,omitempty"`
	NarrowMappings []string `json:"narrow_mappings,omitempty"`
	BroadMappings  []string `json:"broad_mappings,omitempty"`
}

// Slot is a node in the slot hierarchy (predicates and node properties).
type Slot struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	IsA           string   `json:"is_a,omitempty"`
	Mixin         bool     `json:"mixin,omitempty"`
	Mixins        []string `json:"mixins,omitempty"`
	Domain        string   `json:"domain,omitempty"`
	Range         string   `json:"range,omitempty"`
	Multivalued   bool     `json:"multivalued,omitempty"`
	ExactMappings []string `json:"exact_mappings,omitempty"`
}

// TypeDef is a value type referenced by slot ranges.
type TypeDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TypeOf      string `json:"typeof,omitempty"`
	URI         string `json:"uri,omitempty"`
}

// modelFile mirrors the LinkML YAML layout we consume.
type modelFile struct {
	ID            string              `yaml:"id"`
	Name          string              `yaml:"name"`
	Description   string              `yaml:"description"`
	Version       string              `yaml:"version"`
	DefaultPrefix string              `yaml:"default_prefix"`
	Classes       map[string]classDef `yaml:"classes"`
	Slots         map[string]slotDef  `yaml:"slots"`
	Types         map[string]typeDef  `yaml:"types"`
}

type classDef struct {
	IsA            string   `yaml:"is_a"`
	Mixin          bool     `yaml:"mixin"`
	Mixins         []string `yaml:"mixins"`
	Abstract       bool     `yaml:"abstract"`
	TreeRoot       bool     `yaml:"tree_root"`
	Description    string   `yaml:"description"`
	ExactMappings  []string `yaml:"exact_mappings"`
	NarrowMappings []string `yaml:"narrow_mappings"`
	BroadMappings  []string `yaml:"broad_mappings"`
}

type slotDef struct {
	IsA           string   `yaml:"is_a"`
	Mixin         bool     `yaml:"mixin"`
	Mixins        []string `yaml:"mixins"`
	Domain        string   `yaml:"domain"`
	Range         string   `yaml:"range"`
	Multivalued   bool     `yaml:"multivalued"`
	Description   string   `yaml:"description"`
	ExactMappings []string `yaml:"exact_mappings"`
}

type typeDef struct {
	TypeOf      string `yaml:"typeof"`
	URI         string `yaml:"uri"`
	Description string `yaml:"description"`
}

// Parse builds an immutable Taxonomy from LinkML-style YAML.
func Parse(data []byte) (*Taxonomy, error) {
	var mf modelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse taxonomy model: %w", err)
	}
	if len(mf.Classes) == 0 {
		return nil, fmt.Errorf("taxonomy model %q declares no classes", mf.Name)
	}

	prefix := mf.DefaultPrefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	t := &Taxonomy{
		name:          mf.Name,
		version:       mf.Version,
		prefix:        prefix,
		classes:       make(map[string]*Class, len(mf.Classes)),
		slots:         make(map[string]*Slot, len(mf.Slots)),
		types:         make(map[string]*TypeDef, len(mf.Types)),
		classChildren: make(map[string][]string),
		mixinUsers:    make(map[string][]string),
		slotChildren:  make(map[string][]string),
		mappings:      make(map[string]string),
	}

	for name, def := range mf.Classes {
		name = elementName(name)
		t.classes[name] = &Class{
			Name:           name,
			Description:    def.Description,
			IsA:            elementNameOrEmpty(def.IsA),
			Mixin:          def.Mixin,
			Mixins:         elementNames(def.Mixins),
			Abstract:       def.Abstract,
			TreeRoot:       def.TreeRoot,
			ExactMappings:  def.ExactMappings,
			NarrowMappings: def.NarrowMappings,
			BroadMappings:  def.BroadMappings,
		}
	}
	for name, def := range mf.Slots {
		name = elementName(name)
		t.slots[name] = &Slot{
			Name:          name,
			Description:   def.Description,
			IsA:           elementNameOrEmpty(def.IsA),
			Mixin:         def.Mixin,
			Mixins:        elementNames(def.Mixins),
			Domain:        elementNameOrEmpty(def.Domain),
			Range:         elementNameOrEmpty(def.Range),
			Multivalued:   def.Multivalued,
			ExactMappings: def.ExactMappings,
		}
	}
	for name, def := range mf.Types {
		name = elementName(name)
		t.types[name] = &TypeDef{
			Name:        name,
			Description: def.Description,
			TypeOf:      elementNameOrEmpty(def.TypeOf),
			URI:         def.URI,
		}
	}

	if err := t.buildIndexes(); err != nil {
		return nil, err
	}
	return t, nil
}

func elementNameOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return elementName(s)
}

func elementNames(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = elementName(s)
	}
	return out
}

// buildIndexes wires the reverse edges and mapping lookups and verifies
// every referenced parent exists.
func (t *Taxonomy) buildIndexes() error {
	for name, c := range t.classes {
		if c.IsA != "" {
			if _, ok := t.classes[c.IsA]; !ok {
				return fmt.Errorf("class %q: is_a parent %q not declared", name, c.IsA)
			}
			t.classChildren[c.IsA] = append(t.classChildren[c.IsA], name)
		}
		for _, m := range c.Mixins {
			if _, ok := t.classes[m]; !ok {
				return fmt.Errorf("class %q: mixin %q not declared", name, m)
			}
			t.mixinUsers[m] = append(t.mixinUsers[m], name)
		}
		for _, curie := range c.ExactMappings {
			t.mappings[curie] = name
		}
		for _, curie := range c.NarrowMappings {
			t.mappings[curie] = name
		}
		for _, curie := range c.BroadMappings {
			t.mappings[curie] = name
		}
	}
	for name, s := range t.slots {
		if s.IsA != "" {
			if _, ok := t.slots[s.IsA]; !ok {
				return fmt.Errorf("slot %q: is_a parent %q not declared", name, s.IsA)
			}
			t.slotChildren[s.IsA] = append(t.slotChildren[s.IsA], name)
		}
		for _, curie := range s.ExactMappings {
			t.mappings[curie] = name
		}
	}
	t.root = t.resolveRoot()
	return nil
}

// resolveRoot picks the universal entity class. A class declared
// tree_root wins; then "named thing"; then the unique non-mixin class
// without an is_a parent; then the lexicographically first parentless
// class.
func (t *Taxonomy) resolveRoot() string {
	var declared []string
	for name, c := range t.classes {
		if c.TreeRoot {
			declared = append(declared, name)
		}
	}
	if len(declared) > 0 {
		sort.Strings(declared)
		return declared[0]
	}

	if _, ok := t.classes["named thing"]; ok {
		return "named thing"
	}

	var roots []string
	for name, c := range t.classes {
		if c.IsA == "" && !c.Mixin {
			roots = append(roots, name)
		}
	}
	if len(roots) == 0 {
		return ""
	}
	sort.Strings(roots)
	return roots[0]
}
