package wiring

import (
	"context"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/container"
	"go.chariot.build/chariot/internal/layer"
)

// InstallerNodeID identifies the layer.Installer view of the same harness
// instance produced by [HarnessNodeID] — [*netns.Harness] satisfies both
// ports, so this node just re-exposes it under the other port's type.
const InstallerNodeID graft.ID = "wiring.installer"

func init() {
	graft.Register(graft.Node[layer.Installer]{
		ID:        InstallerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{HarnessNodeID},
		Run: func(ctx context.Context) (layer.Installer, error) {
			h, err := graft.Dep[container.Harness](ctx)
			if err != nil {
				return nil, err
			}
			installer, ok := h.(layer.Installer)
			if !ok {
				return nil, zerrNotInstaller
			}
			return installer, nil
		},
	})
}
