package writefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/node"
	"github.com/specialistvlad/treeforge/internal/registry"
)

// PluginName is the name graph files use for this plugin.
const PluginName = "write_files"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Args defines the arguments for the write_files plugin.
type Args struct {
	// Files maps a slash separated path below the output directory to the
	// file's contents.
	Files map[string]string `hcl:"files"`
}

// Callback writes a fixed set of files.
type Callback struct {
	files map[string]string
}

// NewCallback validates files and returns a callback that writes them.
func NewCallback(files map[string]string) (*Callback, error) {
	for name := range files {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return nil, fmt.Errorf("write_files: path %q must be relative and stay inside the output directory", name)
		}
	}
	return &Callback{files: files}, nil
}

// Build implements node.Callback.
func (c *Callback) Build(ctx context.Context, paths node.Paths) error {
	names := make([]string, 0, len(c.files))
	for name := range c.files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(paths.OutputPath, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(c.files[name]), 0o644); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Debug("Files written.", "plugin", PluginName, "count", len(names))
	return nil
}

// Node is a write_files transform for graphs assembled in Go.
type Node struct {
	Annotation string
	cb         *Callback
	stack      string
}

// New returns a node that writes files. It fails on paths that would escape
// the output directory.
func New(files map[string]string, annotation string) (*Node, error) {
	cb, err := NewCallback(files)
	if err != nil {
		return nil, err
	}
	return &Node{Annotation: annotation, cb: cb, stack: node.CaptureStack()}, nil
}

// NodeInfo implements node.Node.
func (n *Node) NodeInfo() node.Info {
	return node.Info{
		Type:               node.TransformType,
		Name:               "WriteFilesPlugin",
		Annotation:         n.Annotation,
		InstantiationStack: n.stack,
		Callback:           n.cb,
	}
}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginName, &registry.RegisteredPlugin{
		Name:    "WriteFilesPlugin",
		NewArgs: func() any { return new(Args) },
		NewCallback: func(args any) (node.Callback, error) {
			a, ok := args.(*Args)
			if !ok {
				return nil, fmt.Errorf("write_files: unexpected args type %T", args)
			}
			return NewCallback(a.Files)
		},
	})
}
