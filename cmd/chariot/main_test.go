package main

import (
	"reflect"
	"testing"

	"go.chariot.build/chariot/internal/recipe"
)

func TestSplitRecipeRef(t *testing.T) {
	cases := []struct {
		ref     string
		wantNS  recipe.Namespace
		wantNam string
		wantOK  bool
	}{
		{"target/zlib", recipe.Target, "zlib", true},
		{"source/zlib", recipe.Source, "zlib", true},
		{"host/gcc-cross", recipe.Host, "gcc-cross", true},
		{"bogus/zlib", "", "", false},
		{"target/", "", "", false},
		{"zlib", "", "", false},
	}

	for _, c := range cases {
		ns, name, ok := splitRecipeRef(c.ref)
		if ok != c.wantOK || ns != c.wantNS || name != c.wantNam {
			t.Errorf("splitRecipeRef(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.ref, ns, name, ok, c.wantNS, c.wantNam, c.wantOK)
		}
	}
}

func TestParseRecipeRefsSkipsUnknown(t *testing.T) {
	forced, skipped := parseRecipeRefs([]string{"target/zlib", "nonsense", "host/gcc"})

	want := []recipe.RecipeKey{
		{Namespace: recipe.Target, Name: "zlib"},
		{Namespace: recipe.Host, Name: "gcc"},
	}
	if !reflect.DeepEqual(forced, want) {
		t.Fatalf("forced = %+v, want %+v", forced, want)
	}
	if !reflect.DeepEqual(skipped, []string{"nonsense"}) {
		t.Fatalf("skipped = %v, want [nonsense]", skipped)
	}
}
