package node

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrDeprecatedAPI is matched by errors.Is when a value implements the old
// read/rebuild protocol instead of Node.
var ErrDeprecatedAPI = errors.New("the .read/.rebuild API is no longer supported")

// InvalidError explains why a value is not a buildable node. Its message is
// a single line; the graph builder adds the graph context around it.
type InvalidError struct {
	Value      any
	Deprecated bool
	Reason     string
}

func (e *InvalidError) Error() string {
	if e.Deprecated {
		return fmt.Sprintf("The .read/.rebuild API is no longer supported. Nodes must implement node.Node. Got .read/.rebuild based node %s", Describe(e.Value))
	}
	if e.Reason != "" {
		return fmt.Sprintf("Expected tree node, got %s (%s)", Describe(e.Value), e.Reason)
	}
	return fmt.Sprintf("Expected tree node, got %s", Describe(e.Value))
}

func (e *InvalidError) Is(target error) bool {
	return e.Deprecated && target == ErrDeprecatedAPI
}

// Classify inspects v and returns its normalized descriptor. It has no side
// effects. Rules apply in order: strings are watched sources, Node values are
// sources or transforms according to their Info, values with the legacy
// read/rebuild methods are rejected with a dedicated message, and anything
// else is invalid.
func Classify(v any) (Descriptor, error) {
	if isNilValue(v) {
		return Descriptor{}, &InvalidError{Value: v}
	}
	switch t := v.(type) {
	case string:
		return Descriptor{Kind: PathSource, Info: pathInfo(t)}, nil
	case Node:
		if !reflect.ValueOf(v).Comparable() {
			return Descriptor{}, &InvalidError{Value: v, Reason: "node values must be comparable; pass a pointer"}
		}
		info := t.NodeInfo()
		switch info.Type {
		case SourceType:
			return Descriptor{Kind: PathSource, Info: info}, nil
		case TransformType:
			if info.Callback == nil {
				return Descriptor{}, &InvalidError{Value: v, Reason: "transform node has no build callback"}
			}
			return Descriptor{Kind: TransformNode, Info: info}, nil
		default:
			return Descriptor{}, &InvalidError{Value: v, Reason: fmt.Sprintf("unknown node type %q", info.Type)}
		}
	}
	if isLegacy(v) {
		return Descriptor{}, &InvalidError{Value: v, Deprecated: true}
	}
	return Descriptor{}, &InvalidError{Value: v}
}

// isNilValue reports whether v is a typed nil, such as a nil *WatchedDir.
// Methods must not be called on such values.
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// isLegacy reports whether v has the method set of the pre-plugin protocol.
// The protocol predates Node, so it is matched by method name only.
func isLegacy(v any) bool {
	return hasMethod(v, "Read") || hasMethod(v, "Rebuild")
}

func hasMethod(v any, name string) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	_, ok := t.MethodByName(name)
	return ok
}

type describer interface {
	Description() string
}

// Describe renders v for diagnostics.
func Describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", t)
	}
	if isNilValue(v) {
		return fmt.Sprintf("nil (%T)", v)
	}
	switch t := v.(type) {
	case describer:
		return fmt.Sprintf("%q", t.Description())
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
