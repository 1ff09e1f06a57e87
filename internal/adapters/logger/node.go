package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/buildlog"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{buildlog.NodeID},
		Run: func(ctx context.Context) (ports.Logger, error) {
			sink, err := graft.Dep[ports.BuildLog](ctx)
			if err != nil {
				return nil, err
			}
			return New(sink), nil
		},
	})
}
