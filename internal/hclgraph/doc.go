// Package hclgraph loads a node graph from HCL graph files.
//
// A graph file declares source directories, transforms built by registered
// plugins, and the single output node:
//
//	source "app" {
//	  path = "app"
//	}
//
//	source "vendor" {
//	  path    = "vendor"
//	  watched = false
//	}
//
//	transform "all" {
//	  plugin = "merge"
//	  inputs = [source.app, source.vendor, "styles"]
//	  args {
//	    overwrite = true
//	  }
//	}
//
//	output = transform.all
//
// Inputs are references to other blocks (source.<name>, transform.<name>) or
// string paths, which are shorthand for watched sources. Relative paths are
// resolved against the directory of the file that declares them.
//
// Loading happens in two phases. The first phase decodes every block and
// constructs one node per block. The second phase resolves the inputs and
// the output expression into node values. Graph validation (cycles, invalid
// nodes) is left to the graph package, which reports it exactly as it does
// for graphs built in Go.
package hclgraph
