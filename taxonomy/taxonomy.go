package taxonomy

import (
	"fmt"
	"sort"
)

// DefaultPrefix is the namespace used when a model declares none.
const DefaultPrefix = "biolink"

// rootPredicate and rootNodeProperty anchor the two slot hierarchies.
const (
	rootPredicate    = "related to"
	rootNodeProperty = "node property"
)

// Taxonomy is the immutable, preloaded type DAG. All fields are written
// once during Parse and never mutated afterwards, so concurrent reads
// need no locking.
type Taxonomy struct {
	name    string
	version string
	prefix  string
	root    string

	classes map[string]*Class
	slots   map[string]*Slot
	types   map[string]*TypeDef

	classChildren map[string][]string // is_a children
	mixinUsers    map[string][]string // classes listing the key as a mixin
	slotChildren  map[string][]string
	mappings      map[string]string // external CURIE → element name
}

// AncestorOptions control an ancestor or descendant query.
type AncestorOptions struct {
	// Reflexive includes the queried element itself in the result.
	Reflexive bool
	// IncludeMixins follows mixin edges in addition to is_a edges.
	IncludeMixins bool
	// Formatted renders results as namespaced CURIEs instead of element names.
	Formatted bool
}

// Name returns the model name.
func (t *Taxonomy) Name() string { return t.name }

// Version returns the model version string.
func (t *Taxonomy) Version() string { return t.version }

// Prefix returns the namespace prefix used in formatted labels.
func (t *Taxonomy) Prefix() string { return t.prefix }

// Element returns the class, slot or type definition for a label.
func (t *Taxonomy) Element(label string) (any, error) {
	name := elementName(label)
	if c, ok := t.classes[name]; ok {
		return c, nil
	}
	if s, ok := t.slots[name]; ok {
		return s, nil
	}
	if ty, ok := t.types[name]; ok {
		return ty, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
}

// Ancestors returns the ancestor set of a class or slot, ordered from the
// element upward (self first when reflexive). Unknown labels return
// ErrUnknownType.
func (t *Taxonomy) Ancestors(label string, opts AncestorOptions) ([]string, error) {
	name := elementName(label)
	if _, ok := t.classes[name]; ok {
		out := t.walkClassAncestors(name, opts.IncludeMixins)
		return t.finishClassResult(out, opts)
	}
	if _, ok := t.slots[name]; ok {
		out := t.walkSlotAncestors(name)
		return t.finishSlotResult(out, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
}

// Descendants returns the downward closure of a class or slot. With
// IncludeMixins set, classes that mix the queried class in (directly or
// through a descendant) are included.
func (t *Taxonomy) Descendants(label string, opts AncestorOptions) ([]string, error) {
	name := elementName(label)
	if _, ok := t.classes[name]; ok {
		seen := map[string]bool{}
		var out []string
		t.walkClassDescendants(name, opts.IncludeMixins, seen, &out)
		return t.finishClassResult(out, opts)
	}
	if _, ok := t.slots[name]; ok {
		seen := map[string]bool{}
		var out []string
		t.walkSlotDescendants(name, seen, &out)
		return t.finishSlotResult(out, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
}

// AllClasses returns every class name, sorted.
func (t *Taxonomy) AllClasses(formatted bool) []string {
	out := make([]string, 0, len(t.classes))
	for name := range t.classes {
		if formatted {
			out = append(out, t.FormatClass(name))
		} else {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AllSlots returns every slot name, sorted.
func (t *Taxonomy) AllSlots(formatted bool) []string {
	out := make([]string, 0, len(t.slots))
	for name := range t.slots {
		if formatted {
			out = append(out, t.FormatSlot(name))
		} else {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AllEntities returns the classes that descend from the root entity class
// via is_a edges, the root included. Mixin-only classes are not entities.
func (t *Taxonomy) AllEntities(formatted bool) []string {
	root := t.RootClass()
	if root == "" {
		return nil
	}
	out, err := t.Descendants(root, AncestorOptions{Reflexive: true, Formatted: formatted})
	if err != nil {
		return nil
	}
	sort.Strings(out)
	return out
}

// RootClass returns the designated universal entity class, resolved once
// at parse time: a class declared tree_root in the model, falling back to
// "named thing" and then to the unique parentless class.
func (t *Taxonomy) RootClass() string {
	return t.root
}

// ElementByMapping looks up an element by an external CURIE declared in
// its exact, narrow or broad mappings. Returns the element name.
func (t *Taxonomy) ElementByMapping(curie string) (string, bool) {
	name, ok := t.mappings[curie]
	return name, ok
}

// IsPredicate reports whether a label names a slot in the predicate
// hierarchy (its slot ancestry reaches the root predicate).
func (t *Taxonomy) IsPredicate(label string) bool {
	return t.slotDescendsFrom(elementName(label), rootPredicate)
}

// IsNodeProperty reports whether a label names a node property slot.
func (t *Taxonomy) IsNodeProperty(label string) bool {
	return t.slotDescendsFrom(elementName(label), rootNodeProperty)
}

// SlotDomain returns the declared or inherited domain classes of a slot.
func (t *Taxonomy) SlotDomain(label string) ([]string, error) {
	return t.slotEndpoint(label, func(s *Slot) string { return s.Domain })
}

// SlotRange returns the declared or inherited range of a slot.
func (t *Taxonomy) SlotRange(label string) ([]string, error) {
	return t.slotEndpoint(label, func(s *Slot) string { return s.Range })
}

// ValueType resolves the primitive value type of a slot's range by
// following the typeof chain. Falls back to the raw range name when the
// range is not a declared type.
func (t *Taxonomy) ValueType(label string) (string, *TypeDef, error) {
	name := elementName(label)
	s, ok := t.slots[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
	}
	rng := s.Range
	for cur := s.IsA; rng == "" && cur != ""; {
		parent := t.slots[cur]
		rng = parent.Range
		cur = parent.IsA
	}
	if rng == "" {
		rng = "string"
	}
	ty, ok := t.types[rng]
	if !ok {
		return rng, nil, nil
	}
	primitive := rng
	for cur := ty; cur.TypeOf != ""; {
		primitive = cur.TypeOf
		next, ok := t.types[cur.TypeOf]
		if !ok {
			break
		}
		cur = next
	}
	return primitive, ty, nil
}

// FormatClass renders an element name as a namespaced class CURIE.
func (t *Taxonomy) FormatClass(name string) string {
	return t.prefix + ":" + classLabel(elementName(name))
}

// FormatSlot renders an element name as a namespaced slot CURIE.
func (t *Taxonomy) FormatSlot(name string) string {
	return t.prefix + ":" + slotLabel(elementName(name))
}

// CanonicalLabel converts any accepted spelling to the canonical formatted
// form used for frontier comparisons. Total over all strings: labels that
// are not in the taxonomy are still canonicalized lexically, so mixed-form
// inputs compare consistently.
func (t *Taxonomy) CanonicalLabel(label string) string {
	name := elementName(label)
	if _, ok := t.slots[name]; ok {
		return t.FormatSlot(name)
	}
	return t.FormatClass(name)
}

// walkClassAncestors climbs is_a edges, and mixin edges when asked,
// depth-first with the element itself first. Matches the upstream
// toolkit's ordering closely enough for stable output.
func (t *Taxonomy) walkClassAncestors(name string, includeMixins bool) []string {
	seen := map[string]bool{}
	var out []string
	var climb func(n string)
	climb = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		c := t.classes[n]
		if c.IsA != "" {
			climb(c.IsA)
		}
		if includeMixins {
			for _, m := range c.Mixins {
				climb(m)
			}
		}
	}
	climb(name)
	return out
}

func (t *Taxonomy) walkSlotAncestors(name string) []string {
	seen := map[string]bool{}
	var out []string
	for cur := name; cur != "" && !seen[cur]; {
		seen[cur] = true
		out = append(out, cur)
		cur = t.slots[cur].IsA
	}
	return out
}

func (t *Taxonomy) walkClassDescendants(name string, includeMixins bool, seen map[string]bool, out *[]string) {
	if seen[name] {
		return
	}
	seen[name] = true
	*out = append(*out, name)
	for _, child := range t.classChildren[name] {
		t.walkClassDescendants(child, includeMixins, seen, out)
	}
	if includeMixins {
		for _, user := range t.mixinUsers[name] {
			t.walkClassDescendants(user, includeMixins, seen, out)
		}
	}
}

func (t *Taxonomy) walkSlotDescendants(name string, seen map[string]bool, out *[]string) {
	if seen[name] {
		return
	}
	seen[name] = true
	*out = append(*out, name)
	for _, child := range t.slotChildren[name] {
		t.walkSlotDescendants(child, seen, out)
	}
}

// finishClassResult applies the Reflexive and Formatted options to a walk
// result whose first element is the queried class.
func (t *Taxonomy) finishClassResult(names []string, opts AncestorOptions) ([]string, error) {
	if !opts.Reflexive && len(names) > 0 {
		names = names[1:]
	}
	if !opts.Formatted {
		return names, nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = t.FormatClass(n)
	}
	return out, nil
}

func (t *Taxonomy) finishSlotResult(names []string, opts AncestorOptions) ([]string, error) {
	if !opts.Reflexive && len(names) > 0 {
		names = names[1:]
	}
	if !opts.Formatted {
		return names, nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = t.FormatSlot(n)
	}
	return out, nil
}

func (t *Taxonomy) slotDescendsFrom(name, root string) bool {
	s, ok := t.slots[name]
	if !ok {
		return false
	}
	for {
		if s.Name == root {
			return true
		}
		if s.IsA == "" {
			return false
		}
		s = t.slots[s.IsA]
	}
}

func (t *Taxonomy) slotEndpoint(label string, pick func(*Slot) string) ([]string, error) {
	name := elementName(label)
	s, ok := t.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
	}
	for {
		if v := pick(s); v != "" {
			return []string{v}, nil
		}
		if s.IsA == "" {
			return nil, nil
		}
		s = t.slots[s.IsA]
	}
}
