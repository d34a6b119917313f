// Package taxonomy loads a Biolink-style type taxonomy and answers
// ancestor, descendant and property queries over it.
//
// The taxonomy is an immutable DAG: classes are connected by is_a edges
// plus mixin edges (multiple inheritance), slots form their own is_a
// hierarchy. Everything is built once at load time and is safe for
// unbounded concurrent reads.
//
// The package also provides the most-specific-type reduction (Frontier):
// given a set of candidate type labels, keep only those that are not
// ancestors of another candidate.
package taxonomy
