// Package wiring assembles the recipe graph, cache, layer cache, and
// container harness into a running [executor.Engine] via graft-registered
// nodes, mirroring the teacher pack's dependency-injection layer
// (traiproject-same's internal/app/node.go).
package wiring

// Flags holds the parsed CLI configuration that graft nodes read when
// their Run closures execute. cmd/chariot populates it by value from the
// kong-parsed command struct before calling graft.ExecuteFor — node Run
// closures only execute at that point, so Flags is always fully populated
// by the time any node reads it, matching the teacher's own
// kong.Parse-then-configureLogger sequencing (internal/cli/root.go).
var Flags struct {
	ConfigPath    string
	CachePath     string
	Verbose       bool
	Quiet         bool
	HideConflicts bool
	Vars          map[string]string
	CleanCache    bool
	WipeContainer bool
	ThreadCount   int
	NoLockfile    bool
	ExecCmd       string
	Recipes       []string
}
