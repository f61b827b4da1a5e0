package graph

import (
	"strings"

	"github.com/specialistvlad/treeforge/internal/builderror"
	"github.com/specialistvlad/treeforge/internal/nodewrapper"
)

// CycleError reports a node that is, directly or indirectly, an input of
// itself.
type CycleError struct {
	// Path lists node names from the first node of the cycle back to itself.
	Path []string
}

func newCycleError(frames []frame, name string) *CycleError {
	path := make([]string, 0, len(frames)+1)
	for _, f := range frames {
		path = append(path, f.name)
	}
	return &CycleError{Path: append(path, name)}
}

func (e *CycleError) Error() string {
	return "Cycle in node graph: " + strings.Join(e.Path, " -> ")
}

// InvalidNodeError reports a value in the graph that cannot be built.
type InvalidNodeError struct {
	// Err is the classification failure, a *node.InvalidError.
	Err error
	// ParentLabel is empty when the invalid value is the root.
	ParentLabel string
	ParentStack string
}

func newInvalidNodeError(err error, parent *nodewrapper.Wrapper) *InvalidNodeError {
	e := &InvalidNodeError{Err: err}
	if parent != nil {
		e.ParentLabel = parent.Label()
		e.ParentStack = parent.InstantiationStack
	}
	return e
}

func (e *InvalidNodeError) Error() string {
	if e.ParentLabel == "" {
		return e.Err.Error() + " as output node"
	}
	return e.Err.Error() + "\nused as input node to " + e.ParentLabel + "\n" + builderror.Marker + "\n" + e.ParentStack
}

func (e *InvalidNodeError) Unwrap() error { return e.Err }
