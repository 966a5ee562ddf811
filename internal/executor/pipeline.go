package executor

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/cache"
	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/recipe"
)

// processRecipe runs the shared per-recipe pipeline preamble (spec.md
// §4.5, steps a-e) for one recipe: wipe scratch dirs, stage dependencies,
// materialize the image-set layer, compose mounts, create the container,
// and dispatch to the namespace-specific stage sequence.
func (e *Engine) processRecipe(ctx context.Context, r *recipe.Recipe) error {
	e.log.Info("processing recipe", "namespace", r.Namespace, "recipe", r.Name)

	// a. wipe scratch staging dirs.
	if err := e.cache.WipeDepsDirs(); err != nil {
		return zerr.Wrap(err, "wipe dependency scratch directories")
	}

	// b+c. stage dependency artifacts and accumulate the image-set.
	images, err := e.stageDependencies(r)
	if err != nil {
		return err
	}

	// c. materialize the image-set layer; its rootfs is the container root.
	rootfs, err := e.layers.Resolve(ctx, images)
	if err != nil {
		return zerr.Wrap(err, "resolve image-set layer")
	}

	// prepare this recipe's own output directories before they're mounted.
	if err := e.prepareRecipeDirs(r); err != nil {
		return err
	}

	// d. compose the container mount table.
	mounts := e.composeMounts(r)

	ctr, err := e.harness.NewContainer(ctx, rootfs, mounts)
	if err != nil {
		return zerr.Wrap(err, "create container")
	}
	defer ctr.Destroy(ctx)

	// e. dispatch on namespace.
	switch r.Namespace {
	case recipe.Source:
		return e.runSource(ctx, r, ctr)
	default:
		return e.runHostTarget(ctx, r, ctr)
	}
}

// stageDependencies implements spec.md §4.5b/c: for every non-runtime-only
// dependency of r, copy its published artifact into the scratch staging
// dirs, then walk its runtime closure doing the same — reusing
// [recipe.Graph.RuntimeClosure] for the "once inside a dependency's
// subtree, only `*`-flagged edges are followed" half. Image dependencies
// are accumulated alongside the same traversal, per the decision recorded
// in DESIGN.md: r's own non-runtime images build r itself; a staged
// dependency's runtime images are forwarded because its artifact is now
// present.
func (e *Engine) stageDependencies(r *recipe.Recipe) ([]string, error) {
	var images []string
	installed := make(map[recipe.RecipeKey]bool)

	stage := func(dep *recipe.Recipe, forwardedOnly bool) error {
		key := dep.Key()
		if installed[key] {
			return nil
		}
		installed[key] = true

		if err := e.copyArtifact(dep); err != nil {
			return zerr.With(err, "dependency", dep.String())
		}
		for _, img := range dep.Images {
			if !forwardedOnly || img.Runtime {
				images = append(images, img.Name)
			}
		}
		return nil
	}

	for _, img := range r.Images {
		if !img.Runtime {
			images = append(images, img.Name)
		}
	}

	for _, edge := range r.Dependencies {
		if edge.Runtime {
			continue
		}
		target := edge.Target()
		if err := stage(target, true); err != nil {
			return nil, err
		}
		for _, dep := range e.graph.RuntimeClosure(target) {
			if err := stage(dep, true); err != nil {
				return nil, err
			}
		}
	}

	return images, nil
}

// copyArtifact publishes dep's built output into the scratch staging
// directory appropriate to its namespace, per spec.md §4.5b's three rules.
func (e *Engine) copyArtifact(dep *recipe.Recipe) error {
	switch dep.Namespace {
	case recipe.Source:
		src := e.cache.SourceTree(dep.Name)
		dst := filepath.Join(e.cache.DepsSourceDir(), dep.Name)
		if err := os.MkdirAll(dst, cache.DefaultDirMode); err != nil {
			return zerr.Wrap(err, "create source dependency scratch directory")
		}
		return cache.CopyTree(e.log, src, dst, e.warnConflicts)

	case recipe.Host:
		src := filepath.Join(e.cache.InstallDir("host", dep.Name), "usr", "local")
		return cache.CopyTree(e.log, src, e.cache.DepsHostDir(), e.warnConflicts)

	default: // recipe.Target
		src := e.cache.InstallDir("target", dep.Name)
		return cache.CopyTree(e.log, src, e.cache.DepsTargetDir(), e.warnConflicts)
	}
}

// prepareRecipeDirs clean-and-recreates r's own on-disk output directories
// ahead of mounting them, per spec.md §4.5e's per-namespace preamble.
func (e *Engine) prepareRecipeDirs(r *recipe.Recipe) error {
	ns := string(r.Namespace)

	if r.Namespace == recipe.Source {
		dir := e.cache.RecipeDir(ns, r.Name)
		if err := cache.Clean(dir); err != nil {
			return zerr.Wrap(err, "clean source recipe directory")
		}
		return os.MkdirAll(e.cache.SourceTree(r.Name), cache.DefaultDirMode)
	}

	if err := cache.Clean(e.cache.BuildDir(ns, r.Name)); err != nil {
		return zerr.Wrap(err, "clean build directory")
	}
	if err := cache.Clean(e.cache.InstallDir(ns, r.Name)); err != nil {
		return zerr.Wrap(err, "clean install directory")
	}
	if e.cleanCache {
		if err := cache.Clean(e.cache.BuildCacheDir(ns, r.Name)); err != nil {
			return zerr.Wrap(err, "clean incremental build cache")
		}
	}

	for _, dir := range []string{
		e.cache.BuildDir(ns, r.Name),
		e.cache.InstallDir(ns, r.Name),
		e.cache.BuildCacheDir(ns, r.Name),
	} {
		if err := os.MkdirAll(dir, cache.DefaultDirMode); err != nil {
			return zerr.Wrap(err, "create recipe directory")
		}
	}
	return nil
}

// composeMounts builds r's container mount table per spec.md §4.5d's fixed
// table: the three dependency-scratch mounts, r's own build/cache/install
// scratch (host/target only), its resolved source's tree (if it has one),
// and — for source recipes with a patch — a read-only mount of the shared
// patch directory.
func (e *Engine) composeMounts(r *recipe.Recipe) []container.Mount {
	mounts := []container.Mount{
		{Source: e.cache.DepsSourceDir(), Destination: "/chariot/sources", Options: []string{"bind"}},
		{Source: e.cache.DepsHostDir(), Destination: "/usr/local", Options: []string{"bind"}},
		{Source: e.cache.DepsTargetDir(), Destination: "/chariot/sysroot", Options: []string{"bind"}},
	}

	if r.Namespace == recipe.Source {
		mounts = append(mounts, container.Mount{
			Source: e.cache.SourceDir(r.Name), Destination: "/chariot/source", Options: []string{"bind"},
		})
		if r.Source.Patch != "" {
			mounts = append(mounts, container.Mount{
				Source: e.cache.PatchesDir(), Destination: "/chariot/patches", Options: []string{"bind", "ro"},
			})
		}
		return mounts
	}

	ns := string(r.Namespace)
	mounts = append(mounts,
		container.Mount{Source: e.cache.BuildDir(ns, r.Name), Destination: "/chariot/build", Options: []string{"bind"}},
		container.Mount{Source: e.cache.BuildCacheDir(ns, r.Name), Destination: "/chariot/cache", Options: []string{"bind"}},
		container.Mount{Source: e.cache.InstallDir(ns, r.Name), Destination: "/chariot/install", Options: []string{"bind"}},
	)
	if src := r.ResolvedSource(); src != nil {
		mounts = append(mounts, container.Mount{
			Source: e.cache.SourceTree(src.Name), Destination: "/chariot/source", Options: []string{"bind"},
		})
	}
	return mounts
}
