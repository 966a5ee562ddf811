package wiring

import (
	"context"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/cache"
	"go.chariot.build/chariot/internal/layer"
)

// LayerNodeID identifies the image-set layer cache node.
const LayerNodeID graft.ID = "wiring.layer"

func init() {
	graft.Register(graft.Node[*layer.Cache]{
		ID:        LayerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{CacheNodeID, InstallerNodeID, LoggerNodeID},
		Run: func(ctx context.Context) (*layer.Cache, error) {
			c, err := graft.Dep[*cache.Cache](ctx)
			if err != nil {
				return nil, err
			}
			installer, err := graft.Dep[layer.Installer](ctx)
			if err != nil {
				return nil, err
			}
			log, err := loggerDep(ctx)
			if err != nil {
				return nil, err
			}

			if Flags.WipeContainer {
				if err := cache.Clean(c.SetsDir()); err != nil {
					return nil, err
				}
			}
			layers := layer.NewCache(c.SetsDir(), installer, log)
			extract := func(dest string) error { return bootstrapExtract(ctx, dest) }
			if err := layers.Bootstrap(ctx, extract, bootstrapPackages); err != nil {
				return nil, err
			}
			return layers, nil
		},
	})
}
