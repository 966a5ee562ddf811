package executor

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/interp"
	"go.chariot.build/chariot/internal/recipe"
)

// stage names a `configure`/`build`/`install` step: its script body and the
// extra reserved variables visible only during that stage.
type stage struct {
	name  string
	body  string
	extra map[string]string
}

// runHostTarget executes a host or target recipe's configure/build/install
// sequence in that fixed order (spec.md §4.5e), skipping any stage whose
// script body is empty. Every stage shares the base reserved variable set
// of the table in §4.5; `thread_count` is added for `build` only,
// `install_dir` for `install` only, and `source_dir` for all three iff the
// recipe refers to a source recipe.
func (e *Engine) runHostTarget(ctx context.Context, r *recipe.Recipe, ctr container.Container) error {
	base := map[string]string{
		"prefix":      installPrefix(r.Namespace),
		"sysroot_dir": "/chariot/sysroot",
		"sources_dir": "/chariot/sources",
		"cache_dir":   "/chariot/cache",
		"build_dir":   "/chariot/build",
	}
	if r.ResolvedSource() != nil {
		base["source_dir"] = "/chariot/source"
	}

	stages := []stage{
		{name: "configure", body: r.HostTarget.Configure},
		{name: "build", body: r.HostTarget.Build, extra: map[string]string{"thread_count": strconv.Itoa(e.threadCount)}},
		{name: "install", body: r.HostTarget.Install, extra: map[string]string{"install_dir": "/chariot/install"}},
	}

	for _, s := range stages {
		if s.body == "" {
			continue
		}
		if err := e.runStage(ctx, ctr, s, base); err != nil {
			return zerr.With(err, "stage", s.name)
		}
	}
	return nil
}

func (e *Engine) runStage(ctx context.Context, ctr container.Container, s stage, base map[string]string) error {
	reserved := make(map[string]string, len(base)+len(s.extra))
	for k, v := range base {
		reserved[k] = v
	}
	for k, v := range s.extra {
		reserved[k] = v
	}

	table := interp.NewTable(reserved, e.userVars)
	script, err := interp.Expand(s.body, table)
	if err != nil {
		return zerr.Wrap(err, "interpolate script")
	}

	result, err := ctr.Exec(ctx, "/bin/sh", script, envFromVars(reserved, e.userVars), "/chariot/build")
	if err != nil {
		return zerr.Wrap(err, "run script")
	}
	if result.ExitCode != 0 {
		return zerr.With(container.ErrExecFailed, "exit_code", result.ExitCode, "stderr", result.Stderr)
	}
	return nil
}

// installPrefix returns the installation prefix for a host or target
// recipe, per spec.md §4.5e.
func installPrefix(ns recipe.Namespace) string {
	if ns == recipe.Host {
		return "/usr/local"
	}
	return "/usr"
}

// envFromVars renders reserved and user variables as shell environment
// entries, per spec.md §6: reserved variables under their own uppercased
// name, user variables under `OPTION_<NAME>`. Keys are sorted for
// deterministic ordering.
func envFromVars(reserved, user map[string]string) []string {
	env := make([]string, 0, len(reserved)+len(user))

	reservedKeys := make([]string, 0, len(reserved))
	for k := range reserved {
		reservedKeys = append(reservedKeys, k)
	}
	sort.Strings(reservedKeys)
	for _, k := range reservedKeys {
		env = append(env, strings.ToUpper(k)+"="+reserved[k])
	}

	userKeys := make([]string, 0, len(user))
	for k := range user {
		userKeys = append(userKeys, k)
	}
	sort.Strings(userKeys)
	for _, k := range userKeys {
		env = append(env, "OPTION_"+strings.ToUpper(k)+"="+user[k])
	}

	return env
}
