package taxonomy

import (
	"strings"
	"unicode"
)

// Label spellings accepted on input:
//
//	element name   "named thing", "related to"
//	class label    "NamedThing"
//	slot label     "related_to"
//	formatted      "biolink:NamedThing", "biolink:related_to"
//
// Internally everything is keyed by element name. The formatted CURIE is
// the canonical form used for frontier comparisons.

// elementName reduces any accepted spelling to the element name form.
func elementName(label string) string {
	label = strings.TrimSpace(label)
	if i := strings.Index(label, ":"); i >= 0 {
		label = label[i+1:]
	}
	if strings.Contains(label, "_") {
		label = strings.ReplaceAll(label, "_", " ")
	}
	if strings.Contains(label, " ") {
		return strings.ToLower(strings.Join(strings.Fields(label), " "))
	}
	return strings.ToLower(splitCamel(label))
}

// splitCamel inserts spaces at word boundaries of a CamelCase label.
// Uppercase runs are kept together so "RNAProduct" becomes "RNA product".
func splitCamel(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// classLabel renders an element name in class label form ("named thing"
// becomes "NamedThing").
func classLabel(name string) string {
	words := strings.Fields(name)
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

// slotLabel renders an element name in slot label form ("related to"
// becomes "related_to").
func slotLabel(name string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(name), " "), " ", "_")
}
