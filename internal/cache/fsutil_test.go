package cache

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCleanRemovesDirectoryTree(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "victim")
	mustWriteFile(t, filepath.Join(target, "a", "b.txt"), "hi")

	if err := Clean(target); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected victim to be gone, stat err = %v", err)
	}
}

func TestCleanMissingPathIsNoop(t *testing.T) {
	if err := Clean(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("expected no error for a missing path, got %v", err)
	}
}

func TestCleanContentsHonorsExceptions(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "keep.txt"), "x")
	mustWriteFile(t, filepath.Join(root, "drop.txt"), "x")

	if err := CleanContents(root, []string{"keep.txt"}); err != nil {
		t.Fatalf("CleanContents: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "keep.txt")); err != nil {
		t.Fatalf("expected keep.txt to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "drop.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected drop.txt to be removed")
	}
}

func TestLinkTreeHardlinksRegularFiles(t *testing.T) {
	src := t.TempDir()
	mustWriteFile(t, filepath.Join(src, "nested", "file.txt"), "payload")

	dst := t.TempDir()
	if err := LinkTree(src, dst); err != nil {
		t.Fatalf("LinkTree: %v", err)
	}

	srcInfo, err := os.Stat(filepath.Join(src, "nested", "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	dstInfo, err := os.Stat(filepath.Join(dst, "nested", "file.txt"))
	if err != nil {
		t.Fatalf("expected linked file to exist: %v", err)
	}
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatalf("expected dst file to share an inode with src")
	}
}

func TestCopyTreeSkipsExistingFileAndWarns(t *testing.T) {
	src := t.TempDir()
	mustWriteFile(t, filepath.Join(src, "conflict.txt"), "new")
	mustWriteFile(t, filepath.Join(src, "fresh.txt"), "fresh")

	dst := t.TempDir()
	mustWriteFile(t, filepath.Join(dst, "conflict.txt"), "old")

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	if err := CopyTree(log, src, dst, true); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "conflict.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "old" {
		t.Fatalf("expected pre-existing file to be left untouched, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(dst, "fresh.txt")); err != nil {
		t.Fatalf("expected non-conflicting file to be copied: %v", err)
	}
	if !bytes.Contains(logs.Bytes(), []byte("conflict")) {
		t.Fatalf("expected a conflict warning to be logged")
	}
}

func TestCopyTreeSuppressesWarningWhenDisabled(t *testing.T) {
	src := t.TempDir()
	mustWriteFile(t, filepath.Join(src, "conflict.txt"), "new")

	dst := t.TempDir()
	mustWriteFile(t, filepath.Join(dst, "conflict.txt"), "old")

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	if err := CopyTree(log, src, dst, false); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	if bytes.Contains(logs.Bytes(), []byte("conflict")) {
		t.Fatalf("expected no conflict warning when disabled")
	}
}
