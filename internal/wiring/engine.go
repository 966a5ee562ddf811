package wiring

import (
	"context"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/cache"
	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/executor"
	"go.chariot.build/chariot/internal/interp"
	"go.chariot.build/chariot/internal/layer"
	"go.chariot.build/chariot/internal/recipe"
)

// EngineNodeID identifies the fully assembled stage executor node, which
// [ComponentsNodeID] aggregates for cmd/chariot.
const EngineNodeID graft.ID = "wiring.engine"

func init() {
	graft.Register(graft.Node[*executor.Engine]{
		ID:        EngineNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{GraphNodeID, CacheNodeID, LayerNodeID, HarnessNodeID, LoggerNodeID},
		Run: func(ctx context.Context) (*executor.Engine, error) {
			g, err := graft.Dep[*recipe.Graph](ctx)
			if err != nil {
				return nil, err
			}
			c, err := graft.Dep[*cache.Cache](ctx)
			if err != nil {
				return nil, err
			}
			layers, err := graft.Dep[*layer.Cache](ctx)
			if err != nil {
				return nil, err
			}
			harness, err := graft.Dep[container.Harness](ctx)
			if err != nil {
				return nil, err
			}
			log, err := loggerDep(ctx)
			if err != nil {
				return nil, err
			}

			opts := executor.Options{
				ConfigDir:     ConfigDir(),
				UserVariables: interp.FilterUserVariables(log, Flags.Vars),
				ThreadCount:   Flags.ThreadCount,
				CleanCache:    Flags.CleanCache,
				WarnConflicts: !Flags.HideConflicts,
			}
			return executor.New(g, c, layers, harness, log, opts), nil
		},
	})
}
