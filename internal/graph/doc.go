// Package graph turns the root value of a build graph into the ordered list
// of node wrappers the builder executes.
//
// # Traversal
//
// The graph is walked depth-first from the root. Every value is classified
// with node.Classify before anything else happens, so invalid values are
// reported with the label of the node that used them as input.
//
// Values are deduplicated by identity: the same pointer used as input twice
// (or the same string path) yields one wrapper, which is what makes diamond
// shaped graphs build each shared node once.
//
// # Ordering
//
// Source wrappers get their id on first visit. Transform wrappers get their
// id only after all of their inputs have been wrapped. The returned slice is
// indexed by id, and every input has a lower id than the nodes that use it.
//
// # Errors
//
// A value reached again while it is still being expanded is a cycle and
// fails with *CycleError. Values that are not nodes fail with
// *InvalidNodeError.
package graph
