// Package dsl implements the recipe configuration language: a hand-written
// recursive-descent parser that turns `.chariot` source text into
// [recipe.Recipe] values, driving a pull-based [Lexer] so that `{...}`
// can serve both as the recipe field object and as an opaque code-block
// value without a lexical ambiguity.
package dsl

import "go.trai.ch/zerr"

var (
	// ErrUnexpectedToken is returned when the parser sees a token its
	// current grammar position does not accept.
	ErrUnexpectedToken = zerr.New("unexpected token")

	// ErrUnknownDirective is returned for any `@directive` other than
	// `@import`.
	ErrUnknownDirective = zerr.New("unknown directive")

	// ErrDuplicateKey is returned when a recipe object repeats a field
	// name other than "dependencies" (which is merged instead).
	ErrDuplicateKey = zerr.New("duplicate field")

	// ErrUnknownField is returned when a recipe object contains a field
	// name its namespace does not define.
	ErrUnknownField = zerr.New("unknown field")

	// ErrMissingField is returned when a recipe is missing a field its
	// namespace and payload require.
	ErrMissingField = zerr.New("missing required field")

	// ErrForbiddenField is returned when a source recipe sets a field
	// that belongs to a different source kind (e.g. `commit` on a `tar.gz`
	// source, or `b2sum` on a `git` source).
	ErrForbiddenField = zerr.New("field not valid for this source kind")

	// ErrUnsupportedModifier is returned for the `%` and `!` dependency
	// modifiers, which the lexer tokenizes but the parser does not
	// implement.
	ErrUnsupportedModifier = zerr.New("unsupported dependency modifier")

	// ErrUnknownNamespace is returned when a recipe header or dependency
	// reference names a namespace other than source, host, or target.
	ErrUnknownNamespace = zerr.New("unknown namespace")

	// ErrImportNotFound is returned when an `@import` target cannot be
	// read.
	ErrImportNotFound = zerr.New("import target not found")

	// ErrImportCycle is returned when a chain of `@import` directives
	// revisits a file already being parsed.
	ErrImportCycle = zerr.New("import cycle detected")
)
