package wiring

import (
	"context"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/container/netns"
)

// HarnessNodeID identifies the container harness node. The same
// [*netns.Harness] instance satisfies both [container.Harness] (the stage
// executor's container port) and [layer.Installer] (the layer cache's
// package-install port), so wiring only needs one node for both roles.
const HarnessNodeID graft.ID = "wiring.harness"

func init() {
	graft.Register(graft.Node[container.Harness]{
		ID:        HarnessNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{LoggerNodeID},
		Run: func(ctx context.Context) (container.Harness, error) {
			log, err := loggerDep(ctx)
			if err != nil {
				return nil, err
			}
			return netns.New(log), nil
		},
	})
}
