package funnel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/fsutil"
	"github.com/specialistvlad/treeforge/internal/node"
	"github.com/specialistvlad/treeforge/internal/registry"
)

// PluginName is the name graph files use for this plugin.
const PluginName = "funnel"

// ErrInputCount is returned when a funnel is not given exactly one input.
var ErrInputCount = errors.New("funnel takes exactly one input")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Args defines the arguments for the funnel plugin. Both directories are
// relative; empty means the root of the tree.
type Args struct {
	SrcDir  string `hcl:"src_dir,optional"`
	DestDir string `hcl:"dest_dir,optional"`
}

// Callback copies SrcDir of its single input to DestDir of its output.
type Callback struct {
	args Args
}

// NewCallback validates args and returns the callback.
func NewCallback(args Args) (*Callback, error) {
	for attr, dir := range map[string]string{"src_dir": args.SrcDir, "dest_dir": args.DestDir} {
		if dir != "" && !filepath.IsLocal(filepath.FromSlash(dir)) {
			return nil, fmt.Errorf("funnel: %s %q must be relative and stay inside the tree", attr, dir)
		}
	}
	return &Callback{args: args}, nil
}

// Build implements node.Callback.
func (c *Callback) Build(ctx context.Context, paths node.Paths) error {
	if len(paths.InputPaths) != 1 {
		return fmt.Errorf("%w, got %d", ErrInputCount, len(paths.InputPaths))
	}
	src := filepath.Join(paths.InputPaths[0], filepath.FromSlash(c.args.SrcDir))
	dst := filepath.Join(paths.OutputPath, filepath.FromSlash(c.args.DestDir))

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("funnel: %s is not a directory", src)
	}

	ctxlog.FromContext(ctx).Debug("Funnelling tree.", "plugin", PluginName, "src", src, "dest", dst)
	return fsutil.CopyTree(src, dst, true)
}

// Node is a funnel transform for graphs assembled in Go.
type Node struct {
	Input      any
	Annotation string
	cb         *Callback
	stack      string
}

// New returns a funnel node over input.
func New(input any, args Args, annotation string) (*Node, error) {
	cb, err := NewCallback(args)
	if err != nil {
		return nil, err
	}
	return &Node{Input: input, Annotation: annotation, cb: cb, stack: node.CaptureStack()}, nil
}

// NodeInfo implements node.Node.
func (n *Node) NodeInfo() node.Info {
	return node.Info{
		Type:               node.TransformType,
		Name:               "FunnelPlugin",
		Annotation:         n.Annotation,
		InstantiationStack: n.stack,
		InputNodes:         []any{n.Input},
		Callback:           n.cb,
	}
}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginName, &registry.RegisteredPlugin{
		Name:    "FunnelPlugin",
		NewArgs: func() any { return new(Args) },
		NewCallback: func(args any) (node.Callback, error) {
			a, ok := args.(*Args)
			if !ok {
				return nil, fmt.Errorf("funnel: unexpected args type %T", args)
			}
			return NewCallback(*a)
		},
	})
}
