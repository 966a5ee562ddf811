package netns

import "testing"

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	got := shellQuote("it's-a-package")
	want := `'it'\''s-a-package'`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestHasOption(t *testing.T) {
	if !hasOption([]string{"bind", "ro"}, "ro") {
		t.Fatalf("expected ro option to be found")
	}
	if hasOption([]string{"bind"}, "ro") {
		t.Fatalf("expected ro option to be absent")
	}
}
