package merge

import (
	"context"
	"fmt"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/fsutil"
	"github.com/specialistvlad/treeforge/internal/node"
	"github.com/specialistvlad/treeforge/internal/registry"
)

// PluginName is the name graph files use for this plugin.
const PluginName = "merge"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Args defines the arguments for the merge plugin.
type Args struct {
	// Overwrite lets later inputs replace files of earlier ones. Without it
	// a file present in two inputs fails the build.
	Overwrite bool `hcl:"overwrite,optional"`
}

// Callback merges the input trees into the output directory, in input order.
type Callback struct {
	Args Args
}

// Build implements node.Callback.
func (c *Callback) Build(ctx context.Context, paths node.Paths) error {
	logger := ctxlog.FromContext(ctx).With("plugin", PluginName)
	for i, in := range paths.InputPaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("Merging input tree.", "input", i, "path", in)
		if err := fsutil.CopyTree(in, paths.OutputPath, c.Args.Overwrite); err != nil {
			return err
		}
	}
	return nil
}

// Node is a merge transform for graphs assembled in Go.
type Node struct {
	Inputs     []any
	Annotation string
	Args       Args
	stack      string
}

// New returns a merge node over inputs.
func New(inputs []any, args Args, annotation string) *Node {
	return &Node{Inputs: inputs, Annotation: annotation, Args: args, stack: node.CaptureStack()}
}

// NodeInfo implements node.Node.
func (n *Node) NodeInfo() node.Info {
	return node.Info{
		Type:               node.TransformType,
		Name:               "MergePlugin",
		Annotation:         n.Annotation,
		InstantiationStack: n.stack,
		InputNodes:         n.Inputs,
		Callback:           &Callback{Args: n.Args},
	}
}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginName, &registry.RegisteredPlugin{
		Name:    "MergePlugin",
		NewArgs: func() any { return new(Args) },
		NewCallback: func(args any) (node.Callback, error) {
			a, ok := args.(*Args)
			if !ok {
				return nil, fmt.Errorf("merge: unexpected args type %T", args)
			}
			return &Callback{Args: *a}, nil
		},
	})
}
