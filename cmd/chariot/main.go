// Package main is the entry point for the chariot build orchestrator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal"
	"go.chariot.build/chariot/internal/executor"
	"go.chariot.build/chariot/internal/fetch"
	"go.chariot.build/chariot/internal/paths"
	"go.chariot.build/chariot/internal/recipe"
	"go.chariot.build/chariot/internal/wiring"
)

// CLI is the flat flag set of spec.md §6's minimum CLI contract.
// Subcommand splitting (`build`/`exec`/`purge`/...) is a later revision
// per spec and out of scope here; the core contract — flags plus
// positional recipe references — is implemented as a single root command.
var CLI struct {
	Config        string            `short:"c" help:"DSL entry file." default:"chariot.chariot"`
	Cache         string            `help:"Cache root directory." placeholder:"PATH"`
	Verbose       bool              `short:"v" help:"Enable verbose output."`
	Quiet         bool              `short:"q" help:"Suppress informational output."`
	HideConflicts bool              `help:"Suppress overlay-copy conflict warnings."`
	Var           map[string]string `short:"o" name:"var" help:"User variable, KEY=VAL. Repeatable." placeholder:"KEY=VAL"`
	CleanCache    bool              `help:"Wipe each recipe's incremental build cache before running."`
	WipeContainer bool              `help:"Wipe the image-set layer tree, forcing a fresh rootfs bootstrap."`
	ThreadCount   int               `help:"Thread count exposed to build scripts." default:"4"`
	NoLockfile    bool              `help:"Skip acquiring the cache lockfile."`
	Exec          string            `help:"Run a shell command in the base rootfs layer and exit."`
	Verify        string            `help:"Check a source recipe's host-cached archive against its declared checksum and exit." placeholder:"source/<name>"`
	Recipes       []string          `arg:"" optional:"" help:"Recipes to build, as <source|host|target>/<name>."`
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kong.Parse(&CLI,
		kong.Name(internal.Name),
		kong.Description("Bootstraps an operating system from source inside a reproducible Linux container."),
		kong.UsageOnError(),
		kong.Vars{"version": internal.VersionString()},
	)

	actions := 0
	for _, set := range []bool{CLI.Exec != "", CLI.Verify != "", len(CLI.Recipes) > 0} {
		if set {
			actions++
		}
	}
	if actions > 1 {
		fmt.Fprintln(os.Stderr, "--exec, --verify, and recipe arguments are mutually exclusive")
		return 1
	}

	configureFlags()

	components, _, err := graft.ExecuteFor[*wiring.Components](ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}
	defer shutdown(components)

	if CLI.Exec != "" {
		if err := runExec(ctx, components.Engine); err != nil {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
			return 1
		}
		return 0
	}

	if CLI.Verify != "" {
		ok, err := runVerify(components)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
			return 1
		}
		if !ok {
			return 1
		}
		return 0
	}

	forced, skipped := parseRecipeRefs(CLI.Recipes)
	for _, s := range skipped {
		slog.Warn("unknown recipe reference, skipping", "recipe", s)
	}

	if err := components.Engine.Run(ctx, forced); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}
	return 0
}

// shutdown releases the whole-cache lock (spec.md §5: "acquired at
// startup and released at shutdown") and the per-process scratch lock.
func shutdown(components *wiring.Components) {
	if components == nil {
		return
	}
	if err := components.Cache.Unlock(); err != nil {
		slog.Warn("failed to release cache lock", "error", err)
	}
	if err := components.Cache.Close(); err != nil {
		slog.Warn("failed to release proc lock", "error", err)
	}
}

// configureFlags copies the parsed CLI struct into [wiring.Flags] before
// any graft node's Run closure executes — ExecuteFor is what actually
// triggers them, and that call happens after this, mirroring the
// teacher's kong.Parse-then-configureLogger sequencing
// (internal/cli/root.go, before this module dropped it). Quiet and
// verbose also fall back to the ldflags-baked internal.IsQuiet/IsDebug/
// IsVerbose defaults when the corresponding flag isn't passed, the same
// build-time-override pattern the teacher's cruxd entrypoint used.
func configureFlags() {
	wiring.Flags.ConfigPath = CLI.Config
	wiring.Flags.CachePath = CLI.Cache
	if wiring.Flags.CachePath == "" {
		if env := os.Getenv("CHARIOT_CACHE"); env != "" {
			wiring.Flags.CachePath = env
		} else {
			wiring.Flags.CachePath = paths.DefaultCacheRoot()
		}
	}
	wiring.Flags.Verbose = CLI.Verbose || internal.IsVerbose() || internal.IsDebug()
	wiring.Flags.Quiet = CLI.Quiet || internal.IsQuiet()
	wiring.Flags.HideConflicts = CLI.HideConflicts
	wiring.Flags.Vars = CLI.Var
	wiring.Flags.CleanCache = CLI.CleanCache
	wiring.Flags.WipeContainer = CLI.WipeContainer
	wiring.Flags.ThreadCount = CLI.ThreadCount
	wiring.Flags.NoLockfile = CLI.NoLockfile
	wiring.Flags.ExecCmd = CLI.Exec
	wiring.Flags.Recipes = CLI.Recipes
}

// runExec implements `--exec`: run a shell command in the base rootfs
// layer and report its outcome.
func runExec(ctx context.Context, engine *executor.Engine) error {
	result, err := engine.Exec(ctx, CLI.Exec)
	if err != nil {
		return err
	}
	fmt.Print(result.Stdout)
	fmt.Fprint(os.Stderr, result.Stderr)
	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}

// runVerify implements `--verify`: check a source recipe's host-cached
// archive (`cache.Cache.SourceArchive`) against its declared checksum
// without a container round-trip. Reports false (without an error) for a
// checksum mismatch so the caller can exit 1 with no extra noise.
func runVerify(components *wiring.Components) (bool, error) {
	ns, name, ok := splitRecipeRef(CLI.Verify)
	if !ok || ns != recipe.Source {
		return false, fmt.Errorf("--verify wants a source/<name> reference, got %q", CLI.Verify)
	}

	r, ok := components.Graph.Lookup(recipe.Source, name)
	if !ok {
		return false, fmt.Errorf("no such source recipe: %s", name)
	}
	if r.Source == nil || (r.Source.Kind != recipe.SourceTarGz && r.Source.Kind != recipe.SourceTarXz) {
		return false, fmt.Errorf("source/%s is not a tarball source, nothing to verify", name)
	}

	archive, err := os.Open(components.Cache.SourceArchive(name))
	if os.IsNotExist(err) {
		fmt.Printf("source/%s: no cached archive\n", name)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer archive.Close()

	sum, err := fetch.HostChecksum(archive)
	if err != nil {
		return false, err
	}
	if sum != r.Source.B2Sum {
		fmt.Printf("source/%s: checksum mismatch (cached %s, expected %s)\n", name, sum, r.Source.B2Sum)
		return false, nil
	}
	fmt.Printf("source/%s: ok\n", name)
	return true, nil
}

// parseRecipeRefs parses each "<namespace>/<name>" CLI argument into a
// [recipe.RecipeKey]. A malformed or unknown-namespace reference produces
// a warning and is skipped, per spec.md §6 ("Unknown recipes produce a
// warning and are skipped").
func parseRecipeRefs(refs []string) (forced []recipe.RecipeKey, skipped []string) {
	for _, ref := range refs {
		ns, name, ok := splitRecipeRef(ref)
		if !ok {
			skipped = append(skipped, ref)
			continue
		}
		forced = append(forced, recipe.RecipeKey{Namespace: ns, Name: name})
	}
	return forced, skipped
}

func splitRecipeRef(ref string) (recipe.Namespace, string, bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] != '/' {
			continue
		}
		ns, name := ref[:i], ref[i+1:]
		switch recipe.Namespace(ns) {
		case recipe.Source, recipe.Host, recipe.Target:
			if name == "" {
				return "", "", false
			}
			return recipe.Namespace(ns), name, true
		}
		return "", "", false
	}
	return "", "", false
}
