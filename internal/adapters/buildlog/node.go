package buildlog

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the build log Graft node.
const NodeID graft.ID = "adapter.build_log"

func init() {
	graft.Register(graft.Node[ports.BuildLog]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.BuildLog, error) {
			return New(), nil
		},
	})
}
