package wiring

import (
	"context"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/cache"
	"go.chariot.build/chariot/internal/executor"
	"go.chariot.build/chariot/internal/recipe"
)

// ComponentsNodeID identifies the top-level assembly node cmd/chariot
// actually requests, mirroring traiproject-same's app.Components node:
// the stage executor, the cache handle main needs for lock/unlock at
// shutdown, and the resolved graph `--verify` looks recipes up in.
const ComponentsNodeID graft.ID = "wiring.components"

// Components is the root of the wired dependency graph.
type Components struct {
	Engine *executor.Engine
	Cache  *cache.Cache
	Graph  *recipe.Graph
}

func init() {
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{EngineNodeID, CacheNodeID, GraphNodeID},
		Run: func(ctx context.Context) (*Components, error) {
			engine, err := graft.Dep[*executor.Engine](ctx)
			if err != nil {
				return nil, err
			}
			c, err := graft.Dep[*cache.Cache](ctx)
			if err != nil {
				return nil, err
			}
			g, err := graft.Dep[*recipe.Graph](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{Engine: engine, Cache: c, Graph: g}, nil
		},
	})
}
