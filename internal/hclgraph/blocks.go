package hclgraph

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all top-level constructs of a file.
type fileRoot struct {
	Sources    []*sourceBlock    `hcl:"source,block"`
	Transforms []*transformBlock `hcl:"transform,block"`
	Output     hcl.Expression    `hcl:"output,optional"`
}

type sourceBlock struct {
	Name       string    `hcl:"name,label"`
	Path       string    `hcl:"path"`
	Watched    *bool     `hcl:"watched,optional"`
	Annotation *string   `hcl:"annotation,optional"`
	DefRange   hcl.Range `hcl:",def_range"`
}

type transformBlock struct {
	Name             string         `hcl:"name,label"`
	Plugin           string         `hcl:"plugin"`
	Inputs           hcl.Expression `hcl:"inputs,optional"`
	Annotation       *string        `hcl:"annotation,optional"`
	PersistentOutput bool           `hcl:"persistent_output,optional"`
	Args             *argsBlock     `hcl:"args,block"`
	DefRange         hcl.Range      `hcl:",def_range"`
}

// argsBlock holds plugin arguments. They are decoded later against the
// plugin's own argument struct.
type argsBlock struct {
	Body hcl.Body `hcl:",remain"`
}
