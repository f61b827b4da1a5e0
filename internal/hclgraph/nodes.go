package hclgraph

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/specialistvlad/treeforge/internal/node"
)

// Source is a source directory declared by a source block.
type Source struct {
	Label      string
	Path       string
	Watched    bool
	Annotation string
	DefRange   hcl.Range
}

// NodeInfo implements node.Node.
func (s *Source) NodeInfo() node.Info {
	name := node.WatchedDirName
	if !s.Watched {
		name = node.UnwatchedDirName
	}
	return node.Info{
		Type:               node.SourceType,
		Name:               name,
		Annotation:         s.Annotation,
		InstantiationStack: declaredAt(s.DefRange),
		SourceDirectory:    s.Path,
		Watched:            s.Watched,
	}
}

// Transform is a plugin instance declared by a transform block. Inputs is
// filled in once every block of the graph is known.
type Transform struct {
	Label            string
	Plugin           string
	Name             string
	Annotation       string
	PersistentOutput bool
	Callback         node.Callback
	Inputs           []any
	DefRange         hcl.Range
}

// NodeInfo implements node.Node.
func (t *Transform) NodeInfo() node.Info {
	return node.Info{
		Type:               node.TransformType,
		Name:               t.Name,
		Annotation:         t.Annotation,
		InstantiationStack: declaredAt(t.DefRange),
		InputNodes:         t.Inputs,
		PersistentOutput:   t.PersistentOutput,
		Callback:           t.Callback,
	}
}

// declaredAt stands in for an instantiation stack: for a node declared in a
// graph file the block is where it was created.
func declaredAt(r hcl.Range) string {
	return "    at " + r.String()
}
