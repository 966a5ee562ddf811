package recipe

import (
	"fmt"

	"go.trai.ch/zerr"
)

// Graph holds the full set of recipes parsed from a configuration, keyed by
// (namespace, name), plus the machinery to resolve dependency edges and
// walk the graph in the post-order the stage executor requires.
type Graph struct {
	recipes map[RecipeKey]*Recipe
	order   []RecipeKey // insertion order, for deterministic iteration
}

// NewGraph creates an empty [Graph].
func NewGraph() *Graph {
	return &Graph{recipes: make(map[RecipeKey]*Recipe)}
}

// Add registers a recipe. It returns [ErrAlreadyExists] if a recipe with
// the same (namespace, name) is already present.
func (g *Graph) Add(r *Recipe) error {
	key := r.Key()
	if _, exists := g.recipes[key]; exists {
		return zerr.With(ErrAlreadyExists, "recipe", r.String())
	}
	g.recipes[key] = r
	g.order = append(g.order, key)
	return nil
}

// Lookup returns the recipe for (namespace, name).
func (g *Graph) Lookup(ns Namespace, name string) (*Recipe, bool) {
	r, ok := g.recipes[RecipeKey{ns, name}]
	return r, ok
}

// All returns every registered recipe in declaration order.
func (g *Graph) All() []*Recipe {
	out := make([]*Recipe, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.recipes[key])
	}
	return out
}

// ApplyOverrides substitutes a local directory for the URL of matching
// source recipes, per the `.chariot-overrides` file of spec.md §6. Each
// entry maps a source recipe's name to a local path; the recipe's payload
// is rewritten to kind=local with that path as its URL.
func (g *Graph) ApplyOverrides(overrides map[string]string) {
	for name, localPath := range overrides {
		r, ok := g.Lookup(Source, name)
		if !ok {
			continue
		}
		r.Source.Kind = SourceLocal
		r.Source.URL = localPath
	}
}

// Resolve patches every dependency edge and host/target source reference
// with a pointer to its target recipe. It returns [ErrUnresolvedEdge] or
// [ErrUnresolvedSource] naming the offending reference on failure, per
// spec.md §4.2's "Failure modes".
func (g *Graph) Resolve() error {
	for _, key := range g.order {
		r := g.recipes[key]

		for i := range r.Dependencies {
			edge := &r.Dependencies[i]
			target, ok := g.Lookup(edge.Namespace, edge.Name)
			if !ok {
				return zerr.With(ErrUnresolvedEdge, "reference", fmt.Sprintf("%s/%s", edge.Namespace, edge.Name))
			}
			edge.resolved = target
		}

		if r.HostTarget != nil && r.HostTarget.SourceName != "" {
			target, ok := g.Lookup(Source, r.HostTarget.SourceName)
			if !ok {
				return zerr.With(ErrUnresolvedSource, "reference", "source/"+r.HostTarget.SourceName)
			}
			r.source = target
		}
	}
	return nil
}

// PostOrder computes the post-order traversal of the dependency graph
// starting from forced, per spec.md §4.2's "Traversal order": for each
// recipe, visit its resolved source reference first, then dependencies in
// declaration order, then the recipe itself. Duplicate visits are
// deduplicated; a dependency cycle produces [ErrCycleDetected] naming the
// recycled edge (spec.md §9's cycle-detection design note).
func (g *Graph) PostOrder(forced []RecipeKey) ([]*Recipe, error) {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[RecipeKey]int, len(g.recipes))
	order := make([]*Recipe, 0, len(g.recipes))

	var path []RecipeKey
	var visit func(key RecipeKey) error

	visit = func(key RecipeKey) error {
		switch state[key] {
		case visited:
			return nil
		case visiting:
			return g.cycleError(path, key)
		}

		r, ok := g.recipes[key]
		if !ok {
			return zerr.With(ErrNotFound, "reference", fmt.Sprintf("%s/%s", key.Namespace, key.Name))
		}

		state[key] = visiting
		path = append(path, key)

		if r.source != nil {
			if err := visit(r.source.Key()); err != nil {
				return err
			}
		}

		for _, edge := range r.Dependencies {
			if err := visit(RecipeKey{edge.Namespace, edge.Name}); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[key] = visited
		order = append(order, r)
		return nil
	}

	for _, key := range forced {
		if err := visit(key); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// cycleError builds [ErrCycleDetected] with the cycle path as metadata,
// starting from the first occurrence of dep on the current visiting path.
func (g *Graph) cycleError(path []RecipeKey, dep RecipeKey) error {
	start := 0
	for i, key := range path {
		if key == dep {
			start = i
			break
		}
	}

	parts := make([]string, 0, len(path)-start+1)
	for _, key := range path[start:] {
		parts = append(parts, fmt.Sprintf("%s/%s", key.Namespace, key.Name))
	}
	parts = append(parts, fmt.Sprintf("%s/%s", dep.Namespace, dep.Name))

	cycle := parts[0]
	for _, p := range parts[1:] {
		cycle += " -> " + p
	}

	return zerr.With(ErrCycleDetected, "cycle", cycle)
}

// RuntimeClosure returns, for dependency d, the set of recipes reachable by
// following only runtime-flagged edges transitively — the "runtime
// closure" of spec.md §8. It does not include d itself.
func (g *Graph) RuntimeClosure(d *Recipe) []*Recipe {
	seen := make(map[RecipeKey]bool)
	var out []*Recipe

	var walk func(r *Recipe)
	walk = func(r *Recipe) {
		for _, edge := range r.Dependencies {
			if !edge.Runtime {
				continue
			}
			key := RecipeKey{edge.Namespace, edge.Name}
			if seen[key] {
				continue
			}
			seen[key] = true
			target := edge.resolved
			if target == nil {
				target, _ = g.Lookup(edge.Namespace, edge.Name)
			}
			if target == nil {
				continue
			}
			out = append(out, target)
			walk(target)
		}
	}
	walk(d)
	return out
}
