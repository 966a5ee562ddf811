// Package layer implements the image-set layer cache (spec.md §4.4): a
// tree of hardlink-cloned rootfs directories, one per distinct sorted set
// of distribution packages, rooted at a one-time-bootstrapped base layer.
package layer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/cache"
)

var (
	// ErrLayerInstallFailed is returned when the package manager
	// invocation inside a freshly cloned layer fails; the caller's layer
	// directory is already removed by the time this is returned.
	ErrLayerInstallFailed = zerr.New("layer package install failed")

	// ErrRootfsMissing is returned when a layer is requested before
	// [Cache.Bootstrap] has produced the base layer.
	ErrRootfsMissing = zerr.New("base rootfs not bootstrapped")
)

// Installer abstracts "install package P into rootfs R" against the
// container harness, so this package does not depend on how a package is
// actually installed (spec.md §4.4 names `pacman` only as a reference
// example).
type Installer interface {
	InstallPackage(ctx context.Context, rootfs, pkg string) error
}

// Cache manages the layer tree under one cache root directory, typically
// `<cache>/sets`.
type Cache struct {
	root    string
	install Installer
	log     *slog.Logger
}

// NewCache creates a [Cache] rooted at root, using install to materialize
// packages into freshly cloned layers.
func NewCache(root string, install Installer, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{root: root, install: install, log: log}
}

// RootfsPath returns the base layer's rootfs directory, `<root>/rootfs`.
func (c *Cache) RootfsPath() string {
	return filepath.Join(c.root, "rootfs")
}

// Bootstrap materializes the base layer if it does not already exist:
// extract is called to populate [Cache.RootfsPath] (typically unpacking a
// pinned distribution tarball), then each of packages is installed
// directly into it. Bootstrap is a no-op if the base layer already
// exists — it is a one-time side effect, not a per-run step.
func (c *Cache) Bootstrap(ctx context.Context, extract func(dest string) error, packages []string) error {
	rootfs := c.RootfsPath()
	if info, err := os.Stat(rootfs); err == nil && info.IsDir() {
		c.log.Debug("base rootfs already bootstrapped", "rootfs", rootfs)
		return nil
	}

	if err := os.MkdirAll(rootfs, 0o755); err != nil {
		return zerr.Wrap(err, "create base rootfs directory")
	}
	if err := extract(rootfs); err != nil {
		return zerr.Wrap(err, "extract base rootfs tarball")
	}

	for _, pkg := range packages {
		c.log.Info("installing bootstrap package", "package", pkg)
		if err := c.install.InstallPackage(ctx, rootfs, pkg); err != nil {
			return zerr.With(zerr.Wrap(err, "bootstrap package install"), "package", pkg)
		}
	}
	return nil
}

// Resolve returns the rootfs directory for the canonicalized set of
// packages, materializing any missing layers along the way. An empty
// packages set resolves to the base layer itself.
func (c *Cache) Resolve(ctx context.Context, packages []string) (string, error) {
	base := c.RootfsPath()
	if _, err := os.Stat(base); err != nil {
		return "", zerr.Wrap(ErrRootfsMissing, base)
	}

	canonical := Canonicalize(packages)
	c.log.Debug("resolving image-set layer", "packages", canonical, "fingerprint", Fingerprint(canonical))

	parentDir := c.root
	parentRootfs := base
	for _, pkg := range canonical {
		layerDir := filepath.Join(parentDir, pkg)
		layerRootfs := filepath.Join(layerDir, "rootfs")

		if info, err := os.Stat(layerRootfs); err == nil && info.IsDir() {
			parentDir, parentRootfs = layerDir, layerRootfs
			continue
		}

		if err := c.createLayer(ctx, parentRootfs, layerDir, layerRootfs, pkg); err != nil {
			return "", err
		}
		parentDir, parentRootfs = layerDir, layerRootfs
	}

	return parentRootfs, nil
}

// createLayer hardlink-clones parentRootfs into layerRootfs and installs
// pkg into it. On any failure the partially-created layerDir is removed
// so a re-run sees a clean miss (spec.md §4.4's "failure on a layer
// install" rule).
func (c *Cache) createLayer(ctx context.Context, parentRootfs, layerDir, layerRootfs, pkg string) error {
	c.log.Info("creating image-set layer", "package", pkg, "parent", parentRootfs)

	if err := os.MkdirAll(layerRootfs, 0o755); err != nil {
		return zerr.Wrap(err, "create layer directory")
	}

	if err := cache.LinkTree(parentRootfs, layerRootfs); err != nil {
		os.RemoveAll(layerDir)
		return zerr.Wrap(err, "clone parent layer")
	}

	if err := c.install.InstallPackage(ctx, layerRootfs, pkg); err != nil {
		os.RemoveAll(layerDir)
		return zerr.With(zerr.Wrap(ErrLayerInstallFailed, err.Error()), "package", pkg)
	}

	return nil
}

// Canonicalize sorts and deduplicates a package-name set, giving the
// lexicographic order spec.md §4.4 defines as canonical.
func Canonicalize(packages []string) []string {
	seen := make(map[string]bool, len(packages))
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Fingerprint renders a content digest plus a short xxhash suffix for a
// canonicalized package set, for log lines and diagnostics only — the
// on-disk layer path, not this string, is the canonical identity of a
// layer (spec.md §3's tree invariant).
func Fingerprint(canonical []string) string {
	joined := strings.Join(canonical, "\n")
	d := digest.FromString(joined)
	short := xxhash.Sum64String(joined)
	return fmt.Sprintf("%s+%016x", d.String(), short)
}
