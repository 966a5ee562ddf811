package wiring

import (
	"context"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/cache"
	"go.chariot.build/chariot/internal/paths"
)

// CacheNodeID identifies the on-disk cache node.
const CacheNodeID graft.ID = "wiring.cache"

func init() {
	graft.Register(graft.Node[*cache.Cache]{
		ID:        CacheNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{LoggerNodeID},
		Run: func(ctx context.Context) (*cache.Cache, error) {
			root := Flags.CachePath
			if root == "" {
				root = paths.DefaultCacheRoot()
			}

			c, err := cache.Open(root)
			if err != nil {
				return nil, err
			}
			if err := c.EnsureDirs(); err != nil {
				return nil, err
			}
			if !Flags.NoLockfile {
				if err := c.Lock(); err != nil {
					return nil, err
				}
			}
			return c, nil
		},
	})
}
