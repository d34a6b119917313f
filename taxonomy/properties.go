package taxonomy

import "fmt"

// NodeProperty describes one property slot applicable to a class, with the
// primitive value type its range resolves to.
type NodeProperty struct {
	Property    string `json:"property"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// NodeProperties returns the node-property slots applicable to a class:
// slots whose domain is the class or one of its ancestors (mixins
// included), plus node properties declared without a domain. Results are
// sorted by slot name; property names use the slot label form.
func (t *Taxonomy) NodeProperties(label string) ([]NodeProperty, error) {
	name := elementName(label)
	if _, ok := t.classes[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
	}

	ancestors := t.walkClassAncestors(name, true)
	ancestorSet := make(map[string]bool, len(ancestors))
	for _, a := range ancestors {
		ancestorSet[a] = true
	}

	var out []NodeProperty
	for _, slotName := range t.AllSlots(false) {
		if !t.IsNodeProperty(slotName) {
			continue
		}

		domain, err := t.SlotDomain(slotName)
		if err != nil {
			continue
		}
		applies := len(domain) == 0
		for _, d := range domain {
			if ancestorSet[d] {
				applies = true
				break
			}
		}
		if !applies {
			continue
		}

		primitive, valueType, err := t.ValueType(slotName)
		if err != nil {
			continue
		}
		// The description comes from the value type, matching the
		// behavior callers already depend on for property mapping.
		description := ""
		if valueType != nil {
			description = valueType.Description
		}
		out = append(out, NodeProperty{
			Property:    slotLabel(slotName),
			Type:        primitive,
			Description: description,
		})
	}
	return out, nil
}
