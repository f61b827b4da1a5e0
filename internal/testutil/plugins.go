package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/treeforge/internal/fsutil"
	"github.com/specialistvlad/treeforge/internal/node"
)

// Plugin is a transform node whose behaviour is supplied by the constructor.
// It counts how often it was built.
type Plugin struct {
	Name             string
	Annotation       string
	Inputs           []any
	PersistentOutput bool

	build  func(ctx context.Context, p node.Paths) error
	stack  string
	builds atomic.Int32
}

// NodeInfo implements node.Node.
func (p *Plugin) NodeInfo() node.Info {
	return node.Info{
		Type:               node.TransformType,
		Name:               p.Name,
		Annotation:         p.Annotation,
		InstantiationStack: p.stack,
		InputNodes:         p.Inputs,
		PersistentOutput:   p.PersistentOutput,
		Callback:           node.BuildFunc(p.run),
	}
}

func (p *Plugin) run(ctx context.Context, paths node.Paths) error {
	p.builds.Add(1)
	return p.build(ctx, paths)
}

// Builds returns how many times the node's build callback ran.
func (p *Plugin) Builds() int { return int(p.builds.Load()) }

// NewPlugin returns a plugin that runs build.
func NewPlugin(name string, inputs []any, build func(ctx context.Context, p node.Paths) error) *Plugin {
	return &Plugin{Name: name, Inputs: inputs, build: build, stack: node.CaptureStack()}
}

// NewVeggies writes veggies.txt containing "tasty".
func NewVeggies() *Plugin {
	p := NewPlugin("VeggiesPlugin", nil, func(_ context.Context, paths node.Paths) error {
		return os.WriteFile(filepath.Join(paths.OutputPath, "veggies.txt"), []byte("tasty"), 0o644)
	})
	p.stack = node.CaptureStack()
	return p
}

// NewMerge copies input i into the subdirectory "i" of its output.
func NewMerge(annotation string, inputs ...any) *Plugin {
	p := NewPlugin("MergePlugin", inputs, func(_ context.Context, paths node.Paths) error {
		for i, in := range paths.InputPaths {
			if err := fsutil.CopyTree(in, filepath.Join(paths.OutputPath, strconv.Itoa(i)), true); err != nil {
				return err
			}
		}
		return nil
	})
	p.Annotation = annotation
	p.stack = node.CaptureStack()
	return p
}

// NewFailing fails every build with v. Errors are returned; anything else,
// including strings, is raised with panic.
func NewFailing(v any, annotation string) *Plugin {
	p := NewPlugin("FailingPlugin", nil, func(context.Context, node.Paths) error {
		if err, ok := v.(error); ok {
			return err
		}
		panic(v)
	})
	p.Annotation = annotation
	p.stack = node.CaptureStack()
	return p
}

// NewSleeping sleeps for a few milliseconds on every build.
func NewSleeping(inputs ...any) *Plugin {
	p := NewPlugin("SleepingPlugin", inputs, func(context.Context, node.Paths) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	p.stack = node.CaptureStack()
	return p
}

// Blocking is a plugin whose build waits until Release is called or, unless
// IgnoreContext is set, until the build context is done.
type Blocking struct {
	*Plugin
	IgnoreContext bool

	started     chan struct{}
	release     chan struct{}
	startOnce   sync.Once
	releaseOnce sync.Once
}

// NewBlocking returns a Blocking plugin.
func NewBlocking(inputs ...any) *Blocking {
	b := &Blocking{started: make(chan struct{}), release: make(chan struct{})}
	b.Plugin = NewPlugin("BlockingPlugin", inputs, func(ctx context.Context, _ node.Paths) error {
		b.startOnce.Do(func() { close(b.started) })
		if b.IgnoreContext {
			<-b.release
			return nil
		}
		select {
		case <-b.release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	b.stack = node.CaptureStack()
	return b
}

// Started is closed when the first build begins.
func (b *Blocking) Started() <-chan struct{} { return b.started }

// Release lets pending and future builds finish.
func (b *Blocking) Release() { b.releaseOnce.Do(func() { close(b.release) }) }

// Cyclical uses itself as its only input.
type Cyclical struct{}

// NodeInfo implements node.Node.
func (c *Cyclical) NodeInfo() node.Info {
	return node.Info{
		Type:       node.TransformType,
		Name:       "CyclicalPlugin",
		InputNodes: []any{c},
		Callback:   node.BuildFunc(func(context.Context, node.Paths) error { return nil }),
	}
}

// FailingSetup fails its one-time setup with Err.
type FailingSetup struct {
	Err   error
	stack string
}

// NewFailingSetup returns a FailingSetup plugin.
func NewFailingSetup(err error) *FailingSetup {
	return &FailingSetup{Err: err, stack: node.CaptureStack()}
}

// NodeInfo implements node.Node.
func (f *FailingSetup) NodeInfo() node.Info {
	return node.Info{
		Type:               node.TransformType,
		Name:               "FailingSetupPlugin",
		InstantiationStack: f.stack,
		Callback:           f,
	}
}

// Setup implements node.Setupper.
func (f *FailingSetup) Setup(context.Context, node.Paths) error { return f.Err }

// Build implements node.Callback.
func (f *FailingSetup) Build(context.Context, node.Paths) error { return nil }
