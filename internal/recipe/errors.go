// Package recipe holds the data model of the build graph: recipes, their
// namespace-specific payloads, dependency edges, image dependencies, and the
// mutable per-run status each recipe carries.
package recipe

import "go.trai.ch/zerr"

var (
	// ErrAlreadyExists is returned when a recipe's (namespace, name) pair
	// collides with one already registered in a [Graph].
	ErrAlreadyExists = zerr.New("recipe already exists")

	// ErrNotFound is returned when a (namespace, name) lookup misses.
	ErrNotFound = zerr.New("recipe not found")

	// ErrUnresolvedEdge is returned when a recipe dependency edge names a
	// (namespace, name) pair with no matching recipe.
	ErrUnresolvedEdge = zerr.New("unresolved recipe dependency")

	// ErrUnresolvedSource is returned when a host/target recipe's source
	// reference names no existing source recipe. [Graph.Resolve] always
	// looks this reference up within the source namespace directly, so
	// there is no separate "wrong namespace" failure mode to report.
	ErrUnresolvedSource = zerr.New("unresolved source reference")

	// ErrCycleDetected is returned by [Graph.PostOrder] when the dependency
	// edges contain a cycle.
	ErrCycleDetected = zerr.New("dependency cycle detected")
)
