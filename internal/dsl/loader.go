package dsl

import (
	"path/filepath"

	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/recipe"
)

// ReadFunc reads the raw contents of a DSL file by path. Parsing is
// decoupled from the filesystem so tests can drive [ParseTree] against an
// in-memory fixture set.
type ReadFunc func(path string) (string, error)

// GlobFunc expands an `@import` target into the concrete file paths it
// names, in the deterministic order they should be visited. Most targets
// are literal paths that expand to themselves; a target containing glob
// metacharacters (per spec.md §6, "`@import` globs allowed") expands to
// every match.
type GlobFunc func(pattern string) ([]string, error)

// literalGlob is the [GlobFunc] used by [ParseTree]: every target expands
// to itself, with no glob matching. Callers that need glob expansion use
// [ParseTreeWithGlob] directly.
func literalGlob(pattern string) ([]string, error) { return []string{pattern}, nil }

// ParseTree parses entry and recursively follows every `@import`
// directive it and its imports name, resolving each import path relative
// to the directory of the file that names it. It returns the recipes
// collected across the whole tree, in the order their files were visited
// (entry first, each file's own definitions before its imports').
//
// A cycle of imports — a file transitively importing itself — fails with
// [ErrImportCycle] rather than recursing forever. Import targets are
// treated as literal paths; see [ParseTreeWithGlob] for glob expansion.
func ParseTree(entry string, read ReadFunc) ([]*recipe.Recipe, error) {
	return ParseTreeWithGlob(entry, read, literalGlob)
}

// ParseTreeWithGlob behaves like [ParseTree], but resolves each `@import`
// target through glob before visiting it, so a pattern like
// `@import "pkgs/*.chariot"` expands to every matching file. A pattern
// matching nothing fails with [ErrImportNotFound].
func ParseTreeWithGlob(entry string, read ReadFunc, glob GlobFunc) ([]*recipe.Recipe, error) {
	visiting := make(map[string]bool)
	var recipes []*recipe.Recipe

	var visit func(path string) error
	visit = func(path string) error {
		clean := filepath.Clean(path)
		if visiting[clean] {
			return zerr.With(ErrImportCycle, "file", clean)
		}
		visiting[clean] = true
		defer delete(visiting, clean)

		source, err := read(clean)
		if err != nil {
			return zerr.With(zerr.Wrap(ErrImportNotFound, err.Error()), "file", clean)
		}

		fileRecipes, imports, err := NewParser(clean, source).ParseFile()
		if err != nil {
			return err
		}
		recipes = append(recipes, fileRecipes...)

		dir := filepath.Dir(clean)
		for _, imp := range imports {
			target := imp
			if !filepath.IsAbs(target) {
				target = filepath.Join(dir, target)
			}
			matches, err := glob(target)
			if err != nil {
				return zerr.With(zerr.Wrap(ErrImportNotFound, err.Error()), "pattern", target)
			}
			if len(matches) == 0 {
				return zerr.With(ErrImportNotFound, "pattern", target)
			}
			for _, m := range matches {
				if err := visit(m); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := visit(entry); err != nil {
		return nil, err
	}
	return recipes, nil
}
