// Package cache implements the on-disk cache layout of spec.md §3: path
// builders for every path in the layout table, the whole-cache advisory
// lockfile of spec.md §5, and the per-process scratch directory under
// `proc/<pid>/` that the dependency-copy stage uses during a build.
package cache

import (
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/zerr"
)

var (
	// ErrLockHeld is returned by [Cache.Lock] when another process already
	// holds the exclusive cache lock.
	ErrLockHeld = zerr.New("cache already locked by another process")
)

// DefaultDirMode is the permission mode used for every directory this
// package creates.
const DefaultDirMode os.FileMode = 0755

// Cache roots every on-disk path the engine reads or writes at a single
// directory, per spec.md §3.
type Cache struct {
	root     string
	lockFile *os.File
	procDir  string
	procLock *os.File
}

// Open creates root (and its `proc/` subdirectory) if missing, releases any
// stale per-process lock left behind by a process that no longer exists,
// and returns a [Cache] rooted at it. It does not acquire the whole-cache
// lock; call [Cache.Lock] for that.
func Open(root string) (*Cache, error) {
	if err := os.MkdirAll(root, DefaultDirMode); err != nil {
		return nil, zerr.Wrap(err, "create cache root")
	}
	procCaches := filepath.Join(root, "proc")
	if err := os.MkdirAll(procCaches, DefaultDirMode); err != nil {
		return nil, zerr.Wrap(err, "create proc directory")
	}

	if err := reapStaleProcDirs(procCaches); err != nil {
		return nil, err
	}

	c := &Cache{root: root}
	c.procDir = filepath.Join(procCaches, strconv.Itoa(os.Getpid()))

	if err := Clean(c.procDir); err != nil {
		return nil, zerr.Wrap(err, "clean stale proc directory")
	}
	if err := os.MkdirAll(c.procDir, DefaultDirMode); err != nil {
		return nil, zerr.Wrap(err, "create proc directory")
	}

	procLock, err := acquireLockfile(filepath.Join(c.procDir, "proc.lock"))
	if err != nil {
		return nil, zerr.Wrap(err, "acquire proc lock")
	}
	c.procLock = procLock

	return c, nil
}

// reapStaleProcDirs visits every existing `proc/<pid>/` entry and, if a
// `proc.lock` inside it can be acquired (meaning its owning process is
// gone), removes the whole directory. A lock that is still held is left
// alone — that process is still running.
func reapStaleProcDirs(procCaches string) error {
	entries, err := os.ReadDir(procCaches)
	if err != nil {
		return zerr.Wrap(err, "read proc directory")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(procCaches, entry.Name())
		lockPath := filepath.Join(dir, "proc.lock")

		lock, err := acquireLockfile(lockPath)
		if err != nil {
			// Still held: the owning process is alive. Leave it.
			continue
		}
		lock.Close()
		if err := Clean(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "remove stale proc directory"), "dir", dir)
		}
	}
	return nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// Lock acquires the single whole-cache advisory lockfile at the cache
// root, held for the lifetime of the engine run. Acquisition failure
// (another engine instance already holds it) returns [ErrLockHeld].
func (c *Cache) Lock() error {
	lock, err := acquireLockfile(c.lockPath())
	if err != nil {
		return zerr.Wrap(ErrLockHeld, err.Error())
	}
	c.lockFile = lock
	return nil
}

// Unlock releases the whole-cache lockfile. It is a no-op if [Cache.Lock]
// was never called (e.g. the `--no-lockfile` escape hatch was used).
func (c *Cache) Unlock() error {
	if c.lockFile == nil {
		return nil
	}
	err := c.lockFile.Close()
	c.lockFile = nil
	if err != nil {
		return zerr.Wrap(err, "release cache lock")
	}
	return nil
}

// Close releases the per-process scratch lock acquired by [Open]. Callers
// that also acquired the whole-cache lock should call [Cache.Unlock] first.
func (c *Cache) Close() error {
	if c.procLock == nil {
		return nil
	}
	err := c.procLock.Close()
	c.procLock = nil
	if err != nil {
		return zerr.Wrap(err, "release proc lock")
	}
	return nil
}

func (c *Cache) lockPath() string { return filepath.Join(c.root, "cache.lock") }

// ProcDir returns this process's scratch directory, `<root>/proc/<pid>/`.
func (c *Cache) ProcDir() string { return c.procDir }

// DependencyCacheDir returns this process's scratch dependency cache,
// `<root>/proc/<pid>/depcache/`. It is distinct from the per-recipe
// `deps/` scratch directories. This package only builds the path; it does
// not create the directory.
func (c *Cache) DependencyCacheDir() string {
	return filepath.Join(c.procDir, "depcache")
}

// SourceDir returns `<root>/source/<name>/`, the cache directory of a
// `source` recipe.
func (c *Cache) SourceDir(name string) string {
	return filepath.Join(c.root, "source", name)
}

// SourceArchive returns the path a downloaded tarball is saved to before
// verification, `<root>/source/<name>/archive`.
func (c *Cache) SourceArchive(name string) string {
	return filepath.Join(c.SourceDir(name), "archive")
}

// SourceB2Sums returns `<root>/source/<name>/b2sums.txt`.
func (c *Cache) SourceB2Sums(name string) string {
	return filepath.Join(c.SourceDir(name), "b2sums.txt")
}

// SourceTree returns the unpacked upstream source tree,
// `<root>/source/<name>/src/`.
func (c *Cache) SourceTree(name string) string {
	return filepath.Join(c.SourceDir(name), "src")
}

// HostDir returns `<root>/host/<name>/`, the cache directory of a `host`
// recipe.
func (c *Cache) HostDir(name string) string {
	return filepath.Join(c.root, "host", name)
}

// TargetDir returns `<root>/target/<name>/`, the cache directory of a
// `target` recipe.
func (c *Cache) TargetDir(name string) string {
	return filepath.Join(c.root, "target", name)
}

// RecipeDir returns the cache directory of the named recipe under
// namespace ns ("source", "host", or "target").
func (c *Cache) RecipeDir(ns, name string) string {
	return filepath.Join(c.root, ns, name)
}

// BuildDir returns `<root>/<ns>/<name>/build/`, the scratch build
// directory mounted at `/chariot/build`.
func (c *Cache) BuildDir(ns, name string) string {
	return filepath.Join(c.RecipeDir(ns, name), "build")
}

// BuildCacheDir returns `<root>/<ns>/<name>/cache/`, the persistent
// incremental-build tree mounted at `/chariot/cache`. Unlike build/ and
// install/ it survives across builds unless `--clean-cache` is given.
func (c *Cache) BuildCacheDir(ns, name string) string {
	return filepath.Join(c.RecipeDir(ns, name), "cache")
}

// InstallDir returns `<root>/<ns>/<name>/install/`, the DESTDIR mounted at
// `/chariot/install`.
func (c *Cache) InstallDir(ns, name string) string {
	return filepath.Join(c.RecipeDir(ns, name), "install")
}

// DepsDir returns `<root>/deps/`, the parent of the three per-build-time
// scratch trees.
func (c *Cache) DepsDir() string {
	return filepath.Join(c.root, "deps")
}

// DepsSourceDir returns `<root>/deps/source/`, mounted at
// `/chariot/sources` during a recipe's pipeline.
func (c *Cache) DepsSourceDir() string {
	return filepath.Join(c.DepsDir(), "source")
}

// DepsHostDir returns `<root>/deps/host/`, mounted at `/usr/local` during
// a recipe's pipeline.
func (c *Cache) DepsHostDir() string {
	return filepath.Join(c.DepsDir(), "host")
}

// DepsTargetDir returns `<root>/deps/target/`, mounted at
// `/chariot/sysroot` during a recipe's pipeline.
func (c *Cache) DepsTargetDir() string {
	return filepath.Join(c.DepsDir(), "target")
}

// SetsDir returns `<root>/sets/`, the root of the image-set layer tree
// consumed by [go.chariot.build/chariot/internal/layer.Cache].
func (c *Cache) SetsDir() string {
	return filepath.Join(c.root, "sets")
}

// PatchesDir returns `<root>/patches/`, the user-supplied patchfile
// directory bind-mounted read-only at `/chariot/patches`.
func (c *Cache) PatchesDir() string {
	return filepath.Join(c.root, "patches")
}

// PatchFile returns `<root>/patches/<name>`.
func (c *Cache) PatchFile(name string) string {
	return filepath.Join(c.PatchesDir(), name)
}

// EnsureDirs creates every directory in the on-disk layout that must
// exist ahead of a run: `deps/{source,host,target}`, `sets/`, `patches/`.
// Per-recipe directories are created lazily by the executor on first
// build.
func (c *Cache) EnsureDirs() error {
	for _, dir := range []string{c.DepsSourceDir(), c.DepsHostDir(), c.DepsTargetDir(), c.SetsDir(), c.PatchesDir()} {
		if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
			return zerr.With(zerr.Wrap(err, "create cache directory"), "dir", dir)
		}
	}
	return nil
}

// WipeDepsDirs cleans `deps/{source,host,target}` in preparation for one
// recipe's pipeline (spec.md §4.5 step a — these are scratch directories,
// never read across recipes).
func (c *Cache) WipeDepsDirs() error {
	for _, dir := range []string{c.DepsSourceDir(), c.DepsHostDir(), c.DepsTargetDir()} {
		if err := Clean(dir); err != nil {
			return zerr.With(err, "dir", dir)
		}
		if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
			return zerr.With(zerr.Wrap(err, "recreate scratch directory"), "dir", dir)
		}
	}
	return nil
}
