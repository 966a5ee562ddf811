// Package executor implements the stage executor (spec.md §4.5): the
// top-level run driver, the per-recipe pipeline of scratch-clean / dependency
// staging / mount composition / namespace dispatch, and the skip and
// failure-cleanup rules that make a run idempotent and best-effort clean.
package executor

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/cache"
	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/layer"
	"go.chariot.build/chariot/internal/recipe"
)

// Options configures an [Engine] for one run.
type Options struct {
	ConfigDir     string            // base directory for resolving relative `local` source paths
	UserVariables map[string]string // already filtered through interp.FilterUserVariables
	ThreadCount   int
	CleanCache    bool
	WarnConflicts bool // !--hide-conflicts
}

// Engine drives the dependency graph through the stage pipeline against one
// cache root and one container harness.
type Engine struct {
	graph   *recipe.Graph
	cache   *cache.Cache
	layers  *layer.Cache
	harness container.Harness
	log     *slog.Logger

	configDir     string
	userVars      map[string]string
	threadCount   int
	cleanCache    bool
	warnConflicts bool
}

// New creates an [Engine]. graph must already be resolved
// ([recipe.Graph.Resolve]).
func New(graph *recipe.Graph, c *cache.Cache, layers *layer.Cache, harness container.Harness, log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		graph:         graph,
		cache:         c,
		layers:        layers,
		harness:       harness,
		log:           log,
		configDir:     opts.ConfigDir,
		userVars:      opts.UserVariables,
		threadCount:   opts.ThreadCount,
		cleanCache:    opts.CleanCache,
		warnConflicts: opts.WarnConflicts,
	}
}

// Run processes each forced recipe in turn: marks it (and, transitively,
// nothing else — invalidation does not propagate to dependencies)
// invalidated, then walks its post-order traversal through the
// per-recipe pipeline. A failure aborts only the forced recipe currently
// being processed; the remaining forced recipes are still attempted, and
// [ErrRunFailed] is returned naming every one that failed (spec.md §6's
// "exit code is 0 on success, nonzero if any forced recipe fails").
func (e *Engine) Run(ctx context.Context, forced []recipe.RecipeKey) error {
	targets := make([]*recipe.Recipe, 0, len(forced))
	for _, key := range forced {
		r, ok := e.graph.Lookup(key.Namespace, key.Name)
		if !ok {
			e.log.Warn("unknown recipe, skipping", "recipe", string(key.Namespace)+"/"+key.Name)
			continue
		}
		r.Status.Invalidated = true
		targets = append(targets, r)
	}

	var failed []string
	for _, r := range targets {
		if err := e.runForced(ctx, r); err != nil {
			e.log.Error("forced recipe failed", "recipe", r.String(), "error", err)
			failed = append(failed, r.String())
		}
	}

	if len(failed) > 0 {
		return zerr.With(ErrRunFailed, "recipes", strings.Join(failed, ", "))
	}
	return nil
}

// runForced processes one forced recipe's full post-order traversal.
func (e *Engine) runForced(ctx context.Context, forced *recipe.Recipe) error {
	order, err := e.graph.PostOrder([]recipe.RecipeKey{forced.Key()})
	if err != nil {
		return err
	}

	for _, r := range order {
		if r.Status.Failed {
			return zerr.With(ErrDependencyFailed, "recipe", r.String())
		}
		if e.skip(r) {
			continue
		}

		if err := e.processRecipe(ctx, r); err != nil {
			r.Status.Failed = true
			dir := e.cache.RecipeDir(string(r.Namespace), r.Name)
			if derr := cache.Clean(dir); derr != nil {
				e.log.Warn("failed to remove recipe directory after failure", "recipe", r.String(), "error", derr)
			}
			return zerr.With(err, "recipe", r.String())
		}
		r.Status.Built = true
	}
	return nil
}

// Exec runs command in the base rootfs layer with no mounts and no
// namespace dispatch, per spec.md §6's "`--exec <cmd>` runs a shell
// command in the base rootfs layer and exits."
func (e *Engine) Exec(ctx context.Context, command string) (*container.ExecResult, error) {
	ctr, err := e.harness.NewContainer(ctx, e.layers.RootfsPath(), nil)
	if err != nil {
		return nil, zerr.Wrap(err, "create container")
	}
	defer ctr.Destroy(ctx)
	return ctr.Exec(ctx, "/bin/sh", command, nil, "/")
}

// skip implements spec.md §4.5's skip rule: a recipe already built or
// failed this run is always skipped; otherwise it is skipped if its
// on-disk recipe directory already exists and it was not invalidated.
func (e *Engine) skip(r *recipe.Recipe) bool {
	if r.Status.Built || r.Status.Failed {
		return true
	}
	if r.Status.Invalidated {
		return false
	}
	dir := e.cache.RecipeDir(string(r.Namespace), r.Name)
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
