package graph

import (
	"context"
	"reflect"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/node"
	"github.com/specialistvlad/treeforge/internal/nodewrapper"
)

type walker struct {
	ctx      context.Context
	wrappers []*nodewrapper.Wrapper
	wrapped  map[any]*nodewrapper.Wrapper

	// Values currently being expanded, outermost first.
	stack []frame
	// stackTrace is used for nodes that did not record where they were made.
	stackTrace string
}

type frame struct {
	key  any
	name string
}

// Build wraps root and everything reachable from it. The returned wrappers
// are ordered by id, dependencies first.
func Build(ctx context.Context, root any) ([]*nodewrapper.Wrapper, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	w := &walker{
		ctx:        ctx,
		wrapped:    make(map[any]*nodewrapper.Wrapper),
		stackTrace: node.CaptureStack(),
	}
	if _, err := w.visit(root, nil); err != nil {
		logger.Debug("Build: Graph construction failed.", "error", err)
		return nil, err
	}

	logger.Debug("Build: Graph construction successful.", "node_count", len(w.wrappers))
	return w.wrappers, nil
}

func (w *walker) visit(v any, parent *nodewrapper.Wrapper) (*nodewrapper.Wrapper, error) {
	desc, err := node.Classify(v)
	if err != nil {
		return nil, newInvalidNodeError(err, parent)
	}
	if desc.Info.Name == "" {
		desc.Info.Name = typeName(v)
	}

	// Classify only accepts comparable values, so v is a valid map key.
	for i, f := range w.stack {
		if f.key == v {
			return nil, newCycleError(w.stack[i:], desc.Info.Name)
		}
	}
	if existing, ok := w.wrapped[v]; ok {
		return existing, nil
	}

	nw := nodewrapper.New(desc, w.stackTrace)
	if desc.Kind == node.PathSource {
		w.register(v, nw)
		return nw, nil
	}

	w.stack = append(w.stack, frame{key: v, name: desc.Info.Name})
	inputs := make([]*nodewrapper.Wrapper, 0, len(desc.Info.InputNodes))
	for _, in := range desc.Info.InputNodes {
		iw, err := w.visit(in, nw)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, iw)
	}
	w.stack = w.stack[:len(w.stack)-1]

	nw.InputWrappers = inputs
	w.register(v, nw)
	return nw, nil
}

func (w *walker) register(key any, nw *nodewrapper.Wrapper) {
	nw.ID = len(w.wrappers)
	w.wrappers = append(w.wrappers, nw)
	w.wrapped[key] = nw
	ctxlog.FromContext(w.ctx).Debug("Build: Node wrapped.", "node_id", nw.ID, "label", nw.Label())
}

// typeName names a node after its Go type when it did not name itself.
func typeName(v any) string {
	if _, ok := v.(string); ok {
		return ""
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
