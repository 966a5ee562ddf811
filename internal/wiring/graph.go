package wiring

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"

	"go.chariot.build/chariot/internal/dsl"
	"go.chariot.build/chariot/internal/recipe"
)

// GraphNodeID identifies the resolved recipe graph node: DSL parse tree,
// `.chariot-overrides` substitution, and edge resolution.
const GraphNodeID graft.ID = "wiring.graph"

func init() {
	graft.Register(graft.Node[*recipe.Graph]{
		ID:        GraphNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{LoggerNodeID},
		Run: func(ctx context.Context) (*recipe.Graph, error) {
			recipes, err := dsl.ParseTreeWithGlob(Flags.ConfigPath, readFile, filepath.Glob)
			if err != nil {
				return nil, err
			}

			g := recipe.NewGraph()
			for _, r := range recipes {
				if err := g.Add(r); err != nil {
					return nil, err
				}
			}

			overrides, err := readOverrides(ConfigDir())
			if err != nil {
				return nil, err
			}
			g.ApplyOverrides(overrides)

			if err := g.Resolve(); err != nil {
				return nil, err
			}
			return g, nil
		},
	})
}

// ConfigDir returns the directory holding the DSL entry file, used to
// resolve relative `local` source paths and to locate
// `.chariot-overrides`.
func ConfigDir() string {
	return filepath.Dir(Flags.ConfigPath)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
