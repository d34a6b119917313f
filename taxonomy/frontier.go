package taxonomy

import (
	"log/slog"
	"sort"
)

// AncestorOracle is the single query the Frontier reducer needs. The
// Taxonomy satisfies it; tests substitute a fixture oracle.
type AncestorOracle interface {
	Ancestors(label string, opts AncestorOptions) ([]string, error)
}

// Frontier reduces a candidate set of type labels to its most-specific
// subset: the members that are not ancestors of any other member.
//
// Reduction is pure and stateless apart from reads against the oracle, so
// a Frontier is safe for concurrent use.
type Frontier struct {
	oracle       AncestorOracle
	sentinel     string
	canonical    func(string) string
	logger       *slog.Logger
	onDegenerate func(candidates []string)
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithSentinel sets the label returned for an empty candidate set.
func WithSentinel(label string) FrontierOption {
	return func(f *Frontier) { f.sentinel = label }
}

// WithCanonical sets the canonicalizer applied to both candidates and
// ancestor results before comparison. Candidates and ancestors can arrive
// in different spellings (bare vs namespaced); comparing them raw silently
// produces an over-large frontier, so both sides go through this first.
func WithCanonical(fn func(string) string) FrontierOption {
	return func(f *Frontier) { f.canonical = fn }
}

// WithFrontierLogger sets the logger used for degenerate-result diagnostics.
func WithFrontierLogger(logger *slog.Logger) FrontierOption {
	return func(f *Frontier) { f.logger = logger }
}

// WithDegenerateHook installs a callback fired when filtering eliminates
// every candidate. That outcome signals inconsistent ancestor data and is
// worth counting even though reduction still returns a fallback.
func WithDegenerateHook(fn func(candidates []string)) FrontierOption {
	return func(f *Frontier) { f.onDegenerate = fn }
}

// NewFrontier builds a reducer over the given oracle. Without options the
// sentinel is the biolink root and labels compare verbatim.
func NewFrontier(oracle AncestorOracle, opts ...FrontierOption) *Frontier {
	f := &Frontier{
		oracle:    oracle,
		sentinel:  DefaultPrefix + ":NamedThing",
		canonical: func(s string) string { return s },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Frontier returns a reducer bound to this taxonomy: sentinel is the
// formatted root class and comparisons use the taxonomy's canonical form.
func (t *Taxonomy) Frontier(opts ...FrontierOption) *Frontier {
	base := []FrontierOption{
		WithSentinel(t.FormatClass(t.RootClass())),
		WithCanonical(t.CanonicalLabel),
	}
	return NewFrontier(t, append(base, opts...)...)
}

// Reduce returns the most-specific subset of candidates.
//
// Rules, in order:
//   - empty input returns the sentinel root type;
//   - a candidate is dropped when it appears in another candidate's
//     reflexive, mixin-inclusive ancestor set (candidates with the same
//     canonical form never eliminate each other, which makes duplicates
//     harmless);
//   - labels unknown to the oracle contribute an empty ancestor set and
//     are never an error here;
//   - if filtering eliminates everything, the last element of the original
//     input is returned unchanged — a compatibility fallback, not a
//     most-specific pick by any criterion;
//   - otherwise the frontier is sorted ascending by canonical form, with
//     each member keeping the spelling it arrived in.
func (f *Frontier) Reduce(candidates []string) []string {
	if len(candidates) == 0 {
		return []string{f.sentinel}
	}

	seen := make(map[string]bool, len(candidates))
	cands := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		canon := f.canonical(c)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		cands = append(cands, candidate{spelling: c, canon: canon})
	}

	frontier := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if !f.generalizesAnother(c.canon, cands) {
			frontier = append(frontier, c)
		}
	}

	if len(frontier) == 0 {
		last := candidates[len(candidates)-1]
		f.logger.Warn("frontier reduction eliminated every candidate, falling back to last input",
			"candidates", candidates,
			"fallback", last)
		if f.onDegenerate != nil {
			f.onDegenerate(candidates)
		}
		return []string{last}
	}

	sort.Slice(frontier, func(i, j int) bool { return frontier[i].canon < frontier[j].canon })
	out := make([]string, len(frontier))
	for i, c := range frontier {
		out[i] = c.spelling
	}
	return out
}

// candidate pairs an input spelling with its canonical comparison form.
type candidate struct {
	spelling string
	canon    string
}

// generalizesAnother reports whether canon appears in the reflexive,
// mixin-inclusive, formatted ancestor set of some other candidate.
func (f *Frontier) generalizesAnother(canon string, cands []candidate) bool {
	for _, other := range cands {
		if other.canon == canon {
			continue
		}
		ancestors, err := f.oracle.Ancestors(other.spelling, AncestorOptions{
			Reflexive:     true,
			IncludeMixins: true,
			Formatted:     true,
		})
		if err != nil {
			// Lenient policy: an unknown type has no ancestors and
			// cannot eliminate anything.
			continue
		}
		for _, a := range ancestors {
			if f.canonical(a) == canon {
				return true
			}
		}
	}
	return false
}
