/*
Package builder runs the build graph declared by a single root node.

A Builder goes through three phases:

 1. Construction: New wraps the graph (see package graph), creates the
    temporary directory, allocates a cache and an output directory for every
    transform node and runs the optional Setup of each transform in id order.
    Any failure removes the temporary directory again before New returns.

 2. Building: Build executes every node in id order, one at a time, so inputs
    are always built before the nodes using them. Sources are checked for
    existence; transforms get their output directory emptied (unless they
    declared a persistent output) and their callback invoked. Failures are
    returned as *builderror.BuildError and leave the builder usable for the
    next Build.

 3. Cleanup: Cleanup removes the temporary directory. When a build is still
    running it is canceled first: the build context is canceled, no further
    node is started, and Build returns a silent *builderror.CancelationError.

Progress is reported through the embedded event emitter with the events
beginBuild, beginNode, endNode and endBuild. Node events carry the
*nodewrapper.Wrapper, build events a *BuildEvent.
*/
package builder
