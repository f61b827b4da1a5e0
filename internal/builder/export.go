package builder

import (
	"encoding/json"

	"github.com/specialistvlad/treeforge/internal/nodewrapper"
)

// Snapshot returns the current state of every node, ordered by id.
func (b *Builder) Snapshot() []nodewrapper.Snapshot {
	snaps := make([]nodewrapper.Snapshot, len(b.wrappers))
	for i, w := range b.wrappers {
		snaps[i] = w.Snapshot()
	}
	return snaps
}

// MarshalGraph renders Snapshot as indented JSON, for visualization tools.
func (b *Builder) MarshalGraph() ([]byte, error) {
	return json.MarshalIndent(b.Snapshot(), "", "  ")
}
