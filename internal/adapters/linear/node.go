package linear

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/buildlog"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the linear renderer Graft node.
const NodeID graft.ID = "adapter.linear"

func init() {
	graft.Register(graft.Node[ports.Renderer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{buildlog.NodeID},
		Run: func(ctx context.Context) (ports.Renderer, error) {
			log, err := graft.Dep[ports.BuildLog](ctx)
			if err != nil {
				return nil, err
			}
			return NewRenderer(nil, log), nil
		},
	})
}
