package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesLayoutSkeleton(t *testing.T) {
	root := t.TempDir()

	c, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(c.ProcDir()); err != nil {
		t.Fatalf("expected proc dir to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.ProcDir(), "proc.lock")); err != nil {
		t.Fatalf("expected proc.lock to exist: %v", err)
	}
}

func TestOpenReapsStaleProcDir(t *testing.T) {
	root := t.TempDir()
	procCaches := filepath.Join(root, "proc")
	if err := os.MkdirAll(procCaches, DefaultDirMode); err != nil {
		t.Fatal(err)
	}

	stale := filepath.Join(procCaches, "999999")
	if err := os.MkdirAll(stale, DefaultDirMode); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "leftover"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale proc dir to be reaped, stat err = %v", err)
	}
}

func TestLockIsExclusive(t *testing.T) {
	root := t.TempDir()

	c1, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()

	if err := c1.Lock(); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	defer c1.Unlock()

	locked, err := acquireLockfile(c1.lockPath())
	if err == nil {
		locked.Close()
		t.Fatalf("expected second lock attempt to fail while first is held")
	}
}

func TestUnlockThenLockAgainSucceeds(t *testing.T) {
	root := t.TempDir()
	c, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Lock(); err != nil {
		t.Fatal(err)
	}
	if err := c.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := c.Lock(); err != nil {
		t.Fatalf("second Lock after Unlock: %v", err)
	}
	c.Unlock()
}

func TestPathBuilders(t *testing.T) {
	c := &Cache{root: "/cache"}

	cases := []struct {
		got, want string
	}{
		{c.SourceDir("zlib"), "/cache/source/zlib"},
		{c.SourceArchive("zlib"), "/cache/source/zlib/archive"},
		{c.SourceTree("zlib"), "/cache/source/zlib/src"},
		{c.HostDir("make"), "/cache/host/make"},
		{c.TargetDir("busybox"), "/cache/target/busybox"},
		{c.BuildDir("host", "make"), "/cache/host/make/build"},
		{c.BuildCacheDir("host", "make"), "/cache/host/make/cache"},
		{c.InstallDir("host", "make"), "/cache/host/make/install"},
		{c.DepsSourceDir(), "/cache/deps/source"},
		{c.DepsHostDir(), "/cache/deps/host"},
		{c.DepsTargetDir(), "/cache/deps/target"},
		{c.SetsDir(), "/cache/sets"},
		{c.PatchesDir(), "/cache/patches"},
		{c.PatchFile("fix.patch"), "/cache/patches/fix.patch"},
	}

	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestEnsureDirsAndWipeDepsDirs(t *testing.T) {
	root := t.TempDir()
	c, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	marker := filepath.Join(c.DepsSourceDir(), "leftover-from-prior-recipe")
	if err := os.WriteFile(marker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.WipeDepsDirs(); err != nil {
		t.Fatalf("WipeDepsDirs: %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir contents to be wiped")
	}
	if _, err := os.Stat(c.DepsSourceDir()); err != nil {
		t.Fatalf("expected scratch dir itself to survive wipe: %v", err)
	}
}
