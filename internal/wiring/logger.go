package wiring

import (
	"context"
	"log/slog"
	"os"

	"github.com/grindlemire/graft"
)

// LoggerNodeID identifies the structured logger node. Every other node
// depends on it, directly or transitively, mirroring the teacher pack's
// convention of wiring the logger first (traiproject-same's
// internal/adapters/logger/node.go).
const LoggerNodeID graft.ID = "wiring.logger"

func init() {
	graft.Register(graft.Node[*slog.Logger]{
		ID:        LoggerNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*slog.Logger, error) {
			level := slog.LevelInfo
			switch {
			case Flags.Quiet:
				level = slog.LevelWarn
			case Flags.Verbose:
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			return slog.New(handler), nil
		},
	})
}

// loggerDep fetches the shared logger node's value; a small shorthand
// used by every node below it in the dependency graph.
func loggerDep(ctx context.Context) (*slog.Logger, error) {
	return graft.Dep[*slog.Logger](ctx)
}
