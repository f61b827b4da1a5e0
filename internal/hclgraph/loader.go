package hclgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/fsutil"
	"github.com/specialistvlad/treeforge/internal/registry"
)

// Graph is the result of loading one or more graph files.
type Graph struct {
	// Root is the output node, ready to be handed to the builder.
	Root       any
	Sources    map[string]*Source
	Transforms map[string]*Transform
	Files      []string
}

// Loader reads graph files and turns them into node values.
type Loader struct {
	reg *registry.Registry
}

// NewLoader creates a loader that resolves plugins against reg.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{reg: reg}
}

// parsedFile is a decoded file plus the directory its relative paths are
// resolved against.
type parsedFile struct {
	name string
	dir  string
	root fileRoot
}

// Load parses every .hcl file found in paths (files or directories) and
// builds the node graph they describe.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL graph loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl graph files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]*parsedFile, 0, len(files))
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		pf := &parsedFile{name: file}
		diags = gohcl.DecodeBody(hclFile.Body, nil, &pf.root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if pf.dir, err = filepath.Abs(filepath.Dir(file)); err != nil {
			return nil, fmt.Errorf("failed to resolve directory of %s: %w", file, err)
		}
		parsed = append(parsed, pf)
	}

	g := &Graph{
		Sources:    make(map[string]*Source),
		Transforms: make(map[string]*Transform),
		Files:      files,
	}

	// Phase 1: one node per block.
	for _, pf := range parsed {
		for _, sb := range pf.root.Sources {
			if err := g.addSource(pf, sb); err != nil {
				return nil, err
			}
		}
		for _, tb := range pf.root.Transforms {
			if err := l.addTransform(ctx, g, tb); err != nil {
				return nil, err
			}
		}
	}

	// Phase 2: references between nodes.
	var output hcl.Expression
	var outputFile *parsedFile
	for _, pf := range parsed {
		for _, tb := range pf.root.Transforms {
			inputs, err := g.resolveInputs(ctx, pf, tb)
			if err != nil {
				return nil, err
			}
			g.Transforms[tb.Name].Inputs = inputs
		}
		if !isExprDefined(ctx, pf.root.Output, "output") {
			continue
		}
		if output != nil {
			return nil, fmt.Errorf("%s: output is already declared at %s", pf.root.Output.Range(), output.Range())
		}
		output, outputFile = pf.root.Output, pf
	}
	if output == nil {
		return nil, fmt.Errorf("no output declared in %v", files)
	}

	g.Root, err = g.resolveRef(outputFile, output)
	if err != nil {
		return nil, err
	}

	logger.Debug("HCL graph loading complete.", "sources", len(g.Sources), "transforms", len(g.Transforms))
	return g, nil
}

func (g *Graph) addSource(pf *parsedFile, sb *sourceBlock) error {
	if prev, ok := g.Sources[sb.Name]; ok {
		return fmt.Errorf("%s: duplicate source %q, first declared at %s", sb.DefRange, sb.Name, prev.DefRange)
	}
	s := &Source{
		Label:      sb.Name,
		Path:       resolvePath(pf.dir, sb.Path),
		Watched:    true,
		Annotation: sb.Name,
		DefRange:   sb.DefRange,
	}
	if sb.Watched != nil {
		s.Watched = *sb.Watched
	}
	if sb.Annotation != nil {
		s.Annotation = *sb.Annotation
	}
	g.Sources[sb.Name] = s
	return nil
}

func (l *Loader) addTransform(ctx context.Context, g *Graph, tb *transformBlock) error {
	if prev, ok := g.Transforms[tb.Name]; ok {
		return fmt.Errorf("%s: duplicate transform %q, first declared at %s", tb.DefRange, tb.Name, prev.DefRange)
	}
	p, ok := l.reg.Plugin(tb.Plugin)
	if !ok {
		return fmt.Errorf("%s: transform %q uses unknown plugin %q (available: %v)", tb.DefRange, tb.Name, tb.Plugin, l.reg.Names())
	}

	var body hcl.Body = hcl.EmptyBody()
	if tb.Args != nil {
		body = tb.Args.Body
	}

	var args any
	if p.NewArgs != nil {
		args = p.NewArgs()
		if diags := gohcl.DecodeBody(body, nil, args); diags.HasErrors() {
			return fmt.Errorf("failed to decode args of transform %q: %w", tb.Name, diags)
		}
	} else if diags := gohcl.DecodeBody(body, nil, &struct{}{}); diags.HasErrors() {
		return fmt.Errorf("plugin %q takes no args, transform %q: %w", tb.Plugin, tb.Name, diags)
	}

	cb, err := p.NewCallback(args)
	if err != nil {
		return fmt.Errorf("%s: failed to create plugin %q for transform %q: %w", tb.DefRange, tb.Plugin, tb.Name, err)
	}

	t := &Transform{
		Label:            tb.Name,
		Plugin:           tb.Plugin,
		Name:             p.Name,
		Annotation:       tb.Name,
		PersistentOutput: tb.PersistentOutput,
		Callback:         cb,
		DefRange:         tb.DefRange,
	}
	if tb.Annotation != nil {
		t.Annotation = *tb.Annotation
	}
	g.Transforms[tb.Name] = t
	ctxlog.FromContext(ctx).Debug("Transform declared.", "transform", tb.Name, "plugin", tb.Plugin)
	return nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

// findAllHCLFiles walks all given paths and returns a de-duplicated list of
// all .hcl files found. Files of one directory come in lexical order.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}
