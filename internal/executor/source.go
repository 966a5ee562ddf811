package executor

import (
	"context"
	"path/filepath"

	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/fetch"
	"go.chariot.build/chariot/internal/interp"
	"go.chariot.build/chariot/internal/recipe"
)

// runSource executes a source recipe's fetch/patch/strap sequence (spec.md
// §4.5e): acquire the upstream tree by kind, apply the optional patch, then
// run the optional strap script with the `sources_dir` variable in scope.
func (e *Engine) runSource(ctx context.Context, r *recipe.Recipe, ctr container.Container) error {
	payload := r.Source
	f := fetch.New(ctr)

	switch payload.Kind {
	case recipe.SourceTarGz:
		if err := f.FetchTarball(ctx, payload.URL, payload.B2Sum, false); err != nil {
			return zerr.Wrap(err, "fetch tarball")
		}
	case recipe.SourceTarXz:
		if err := f.FetchTarball(ctx, payload.URL, payload.B2Sum, true); err != nil {
			return zerr.Wrap(err, "fetch tarball")
		}
	case recipe.SourceGit:
		if err := f.FetchGit(ctx, payload.URL, payload.Commit); err != nil {
			return zerr.Wrap(err, "fetch git source")
		}
	case recipe.SourceLocal:
		if err := f.FetchLocal(ctx, e.resolveLocalPath(payload.URL)); err != nil {
			return zerr.Wrap(err, "fetch local source")
		}
	}

	if payload.Patch != "" {
		if err := f.ApplyPatch(ctx, payload.Patch); err != nil {
			return zerr.Wrap(err, "apply patch")
		}
	}

	if payload.Strap == "" {
		return nil
	}

	reserved := map[string]string{"sources_dir": "/chariot/sources"}
	table := interp.NewTable(reserved, e.userVars)
	script, err := interp.Expand(payload.Strap, table)
	if err != nil {
		return zerr.Wrap(err, "interpolate strap script")
	}

	result, err := ctr.Exec(ctx, "/bin/sh", script, envFromVars(reserved, e.userVars), "/chariot/source")
	if err != nil {
		return zerr.Wrap(err, "run strap script")
	}
	if result.ExitCode != 0 {
		return zerr.With(container.ErrExecFailed, "stage", "strap", "exit_code", result.ExitCode, "stderr", result.Stderr)
	}
	return nil
}

// resolveLocalPath joins a relative `local` source URL against the config
// directory; an absolute path is used as-is.
func (e *Engine) resolveLocalPath(p string) string {
	if p == "" || filepath.IsAbs(p) || e.configDir == "" {
		return p
	}
	return filepath.Join(e.configDir, p)
}
