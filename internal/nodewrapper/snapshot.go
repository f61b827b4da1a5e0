package nodewrapper

import "github.com/specialistvlad/treeforge/internal/node"

// Snapshot is the serializable projection of a wrapper used for graph
// export and visualization.
type Snapshot struct {
	ID                int          `json:"id"`
	NodeInfo          InfoSnapshot `json:"nodeInfo"`
	Label             string       `json:"label"`
	InputNodeWrappers []int        `json:"inputNodeWrappers"`
	CachePath         *string      `json:"cachePath"`
	OutputPath        *string      `json:"outputPath"`
	BuildState        *BuildState  `json:"buildState"`
}

// InfoSnapshot carries the fields relevant to the node's type. Annotation
// is nil when the node has none.
type InfoSnapshot struct {
	NodeType         node.Type `json:"nodeType"`
	SourceDirectory  string    `json:"sourceDirectory,omitempty"`
	Watched          *bool     `json:"watched,omitempty"`
	Name             string    `json:"name"`
	Annotation       *string   `json:"annotation"`
	PersistentOutput *bool     `json:"persistentOutput,omitempty"`
}

// Snapshot returns the current state of w.
func (w *Wrapper) Snapshot() Snapshot {
	ids := make([]int, len(w.InputWrappers))
	for i, in := range w.InputWrappers {
		ids[i] = in.ID
	}

	info := InfoSnapshot{Name: w.Name(), Annotation: optional(w.Info.Annotation)}
	if w.IsSource() {
		watched := w.Info.Watched
		info.NodeType = node.SourceType
		info.SourceDirectory = w.Info.SourceDirectory
		info.Watched = &watched
	} else {
		persistent := w.Info.PersistentOutput
		info.NodeType = node.TransformType
		info.PersistentOutput = &persistent
	}

	return Snapshot{
		ID:                w.ID,
		NodeInfo:          info,
		Label:             w.Label(),
		InputNodeWrappers: ids,
		CachePath:         optional(w.CachePath),
		OutputPath:        optional(w.OutputPath),
		BuildState:        w.BuildState(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
