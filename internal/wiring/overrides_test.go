package wiring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadOverridesParsesPairs(t *testing.T) {
	dir := t.TempDir()
	contents := "zlib: ../vendor/zlib\n# comment\n\nopenssl: /abs/path/openssl\n"
	if err := os.WriteFile(filepath.Join(dir, ".chariot-overrides"), []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := readOverrides(dir)
	if err != nil {
		t.Fatalf("readOverrides: %v", err)
	}
	want := map[string]string{"zlib": "../vendor/zlib", "openssl": "/abs/path/openssl"}
	for name, path := range want {
		if got[name] != path {
			t.Errorf("got[%q] = %q, want %q", name, got[name], path)
		}
	}
}

func TestReadOverridesMissingFileIsNotAnError(t *testing.T) {
	got, err := readOverrides(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil overrides for a missing file, got %v", got)
	}
}

func TestReadOverridesMalformedLineFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".chariot-overrides"), []byte("not-a-pair\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := readOverrides(dir); err == nil {
		t.Fatalf("expected an error for a malformed overrides line")
	}
}
