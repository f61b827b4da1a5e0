// Package node defines the contract between the build engine and the values a
// user places in a build graph: plain source paths, watched and unwatched
// source directories, and transform plugins. It also classifies arbitrary
// values into one of those variants.
package node

import (
	"context"
)

// Type is the node type a plugin declares in its Info.
type Type string

const (
	// SourceType marks a node whose contents come from an existing directory.
	SourceType Type = "source"
	// TransformType marks a node whose contents are produced by a callback.
	TransformType Type = "transform"
)

// Paths are the resolved directories handed to a transform's callbacks.
type Paths struct {
	// InputPaths holds the output path of every input node, in declaration order.
	InputPaths []string
	// OutputPath is the directory the node must write its result tree into.
	OutputPath string
	// CachePath is a private scratch directory that survives between builds.
	CachePath string
}

// Callback is the build operation of a transform node. Build is invoked once
// per builder build. Long running callbacks should return when ctx is done.
type Callback interface {
	Build(ctx context.Context, paths Paths) error
}

// Setupper is optionally implemented by a Callback that needs one-time
// initialization before the first build. A Callback may also implement
// io.Closer; Close is called once when the builder is cleaned up.
type Setupper interface {
	Setup(ctx context.Context, paths Paths) error
}

// BuildFunc adapts a plain function to the Callback interface.
type BuildFunc func(ctx context.Context, paths Paths) error

// Build calls f(ctx, paths).
func (f BuildFunc) Build(ctx context.Context, paths Paths) error {
	return f(ctx, paths)
}

// Info describes a node to the engine. Which fields are meaningful depends on
// Type.
type Info struct {
	Type       Type
	Name       string
	Annotation string
	// InstantiationStack is where the node was created, for diagnostics. The
	// engine captures a stack itself when it is empty.
	InstantiationStack string

	// Source nodes.
	SourceDirectory string
	Watched         bool

	// Transform nodes.
	InputNodes       []any
	PersistentOutput bool
	Callback         Callback
}

// Node is implemented by every plugin. Implementing it is the marker the
// engine looks for.
type Node interface {
	NodeInfo() Info
}

// Kind is the variant a value was classified as.
type Kind int

const (
	// Invalid is anything the engine cannot build.
	Invalid Kind = iota
	// PathSource is a source directory, watched or not.
	PathSource
	// TransformNode is a plugin that produces a tree from its inputs.
	TransformNode
)

func (k Kind) String() string {
	switch k {
	case PathSource:
		return "source"
	case TransformNode:
		return "transform"
	default:
		return "invalid"
	}
}

// Descriptor is the normalized form of a classified value.
type Descriptor struct {
	Kind Kind
	Info Info
}
