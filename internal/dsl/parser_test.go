package dsl

import (
	"errors"
	"testing"

	"go.chariot.build/chariot/internal/recipe"
)

func TestParseRecipeSourceTarball(t *testing.T) {
	src := `
source/zlib {
	url: "https://example.com/zlib.tar.gz",
	type: tar.gz,
	b2sum: "abcdef0123",
	strap: { cd /chariot/source && echo ready }
}
`
	recipes, imports, err := NewParser("zlib.chariot", src).ParseFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(imports) != 0 {
		t.Fatalf("expected no imports, got %v", imports)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}
	r := recipes[0]
	if r.Namespace != recipe.Source || r.Name != "zlib" {
		t.Fatalf("unexpected recipe identity: %+v", r)
	}
	if r.Source == nil || r.Source.Kind != recipe.SourceTarGz || r.Source.URL != "https://example.com/zlib.tar.gz" {
		t.Fatalf("unexpected source payload: %+v", r.Source)
	}
	if r.Source.Strap != "cd /chariot/source && echo ready" {
		t.Fatalf("unexpected strap body: %q", r.Source.Strap)
	}
}

func TestParseRecipeMergesDuplicateDependenciesKey(t *testing.T) {
	src := `
target/app {
	dependencies: [ host/make ],
	dependencies: [ *target/libc, image/gcc ]
}
`
	recipes, _, err := NewParser("app.chariot", src).ParseFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := recipes[0]
	if len(r.Dependencies) != 2 {
		t.Fatalf("expected 2 merged dependency edges, got %+v", r.Dependencies)
	}
	if r.Dependencies[0].Name != "make" || r.Dependencies[0].Runtime {
		t.Fatalf("unexpected first edge: %+v", r.Dependencies[0])
	}
	if r.Dependencies[1].Name != "libc" || !r.Dependencies[1].Runtime {
		t.Fatalf("unexpected second edge: %+v", r.Dependencies[1])
	}
	if len(r.Images) != 1 || r.Images[0].Name != "gcc" {
		t.Fatalf("unexpected images: %+v", r.Images)
	}
}

func TestParseRecipeDuplicateFieldFails(t *testing.T) {
	src := `
host/foo {
	configure: "x",
	configure: "y"
}
`
	if _, _, err := NewParser("foo.chariot", src).ParseFile(); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestParseRecipeMissingRequiredFieldFails(t *testing.T) {
	src := `
source/bad {
	type: tar.gz
}
`
	if _, _, err := NewParser("bad.chariot", src).ParseFile(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestParseRecipeLocalSourceForbidsB2SumFails(t *testing.T) {
	src := `
source/bad {
	url: "x",
	type: local,
	b2sum: "bogus",
	commit: "deadbeef"
}
`
	if _, _, err := NewParser("bad.chariot", src).ParseFile(); !errors.Is(err, ErrForbiddenField) {
		t.Fatalf("expected ErrForbiddenField, got %v", err)
	}
}

func TestParseRecipeTarSourceForbidsCommitFails(t *testing.T) {
	src := `
source/bad {
	url: "https://example.com/a.tar.gz",
	type: tar.gz,
	b2sum: "abcdef0123",
	commit: "deadbeef"
}
`
	if _, _, err := NewParser("bad.chariot", src).ParseFile(); !errors.Is(err, ErrForbiddenField) {
		t.Fatalf("expected ErrForbiddenField, got %v", err)
	}
}

func TestParseRecipeGitSourceForbidsB2SumFails(t *testing.T) {
	src := `
source/bad {
	url: "https://example.com/repo.git",
	type: git,
	commit: "deadbeef",
	b2sum: "abcdef0123"
}
`
	if _, _, err := NewParser("bad.chariot", src).ParseFile(); !errors.Is(err, ErrForbiddenField) {
		t.Fatalf("expected ErrForbiddenField, got %v", err)
	}
}

func TestParseRecipeUnknownFieldFails(t *testing.T) {
	src := `
source/bad {
	url: "u",
	type: local,
	extra: "x"
}
`
	if _, _, err := NewParser("bad.chariot", src).ParseFile(); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestParseRecipeUnsupportedModifierFails(t *testing.T) {
	src := `
target/bad {
	dependencies: [ %target/x ]
}
`
	if _, _, err := NewParser("bad.chariot", src).ParseFile(); !errors.Is(err, ErrUnsupportedModifier) {
		t.Fatalf("expected ErrUnsupportedModifier, got %v", err)
	}
}

func TestParseImportDirective(t *testing.T) {
	src := `@import "./lib.chariot"

target/app { }
`
	recipes, imports, err := NewParser("app.chariot", src).ParseFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(imports) != 1 || imports[0] != "./lib.chariot" {
		t.Fatalf("unexpected imports: %v", imports)
	}
	if len(recipes) != 1 || recipes[0].Name != "app" {
		t.Fatalf("unexpected recipes: %+v", recipes)
	}
}
