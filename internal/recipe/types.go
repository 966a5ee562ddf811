package recipe

// Namespace is one of the three recipe flavours. It determines which
// payload a [Recipe] carries and, combined with Name, uniquely identifies
// the recipe.
type Namespace string

const (
	Source Namespace = "source"
	Host   Namespace = "host"
	Target Namespace = "target"
)

// String returns the namespace's DSL spelling.
func (n Namespace) String() string { return string(n) }

// SourceKind distinguishes the ways a source recipe's upstream artifact can
// be obtained.
type SourceKind string

const (
	SourceTarGz SourceKind = "tar.gz"
	SourceTarXz SourceKind = "tar.xz"
	SourceGit   SourceKind = "git"
	SourceLocal SourceKind = "local"
)

// SourcePayload is the namespace-specific data carried by a `source` recipe.
type SourcePayload struct {
	Kind   SourceKind
	URL    string
	Patch  string // optional patch filename, relative to <cache>/patches/
	B2Sum  string // required iff Kind is a tarball kind
	Commit string // required iff Kind == SourceGit
	Strap  string // optional shell script body, run after fetch/patch
}

// HostTargetPayload is the namespace-specific data carried by a `host` or
// `target` recipe.
type HostTargetPayload struct {
	SourceName string // optional, names a recipe in the source namespace
	Configure  string // optional shell script body
	Build      string // optional shell script body
	Install    string // optional shell script body
}

// DependencyEdge is a recipe-to-recipe dependency: a reference to another
// recipe by (namespace, name), a runtime flag, and — after resolution — a
// pointer to the target recipe.
type DependencyEdge struct {
	Namespace Namespace
	Name      string
	Runtime   bool // true if this is a `*`-flagged runtime edge

	resolved *Recipe
}

// Resolved reports whether the edge has been patched up by [Graph.Resolve].
func (e *DependencyEdge) Resolved() bool { return e.resolved != nil }

// Target returns the resolved recipe, or nil if unresolved.
func (e *DependencyEdge) Target() *Recipe { return e.resolved }

// ImageDependency is a distribution-package name installed into the
// container rootfs rather than resolved against the recipe graph.
type ImageDependency struct {
	Name    string
	Runtime bool
}

// Status is the mutable per-run state attached to every recipe.
type Status struct {
	Invalidated bool // set when the user forced a rebuild of this recipe; not propagated to other recipes
	Built       bool // set after a successful stage pipeline this run
	Failed      bool // set after a failed pipeline; short-circuits this run
}

// Recipe is a declarative unit describing how to produce one artifact: a
// source tree, a host-side tool, or a target package.
type Recipe struct {
	Namespace Namespace
	Name      string

	Dependencies []DependencyEdge
	Images       []ImageDependency

	// Exactly one of these is populated, selected by Namespace.
	Source     *SourcePayload
	HostTarget *HostTargetPayload

	// sourceRef is not set by this package: the unresolved name lives in
	// HostTarget.SourceName, and Resolve stores the recipe it names in
	// source.
	sourceRef string
	source    *Recipe

	Status Status
}

// Key returns the (namespace, name) identity of the recipe as a map key.
func (r *Recipe) Key() RecipeKey { return RecipeKey{r.Namespace, r.Name} }

// String renders the recipe's "<namespace>/<name>" spelling, matching the
// DSL and CLI recipe-reference syntax.
func (r *Recipe) String() string { return string(r.Namespace) + "/" + r.Name }

// ResolvedSource returns the recipe's resolved source reference, or nil if
// it has none or it has not been resolved yet.
func (r *Recipe) ResolvedSource() *Recipe { return r.source }

// RecipeKey is the unique identity of a recipe: its namespace and name.
type RecipeKey struct {
	Namespace Namespace
	Name      string
}
