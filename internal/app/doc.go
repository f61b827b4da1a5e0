// Package app contains the core application logic. It wires the plugin
// registry, the graph-file loader and the builder together, runs a single
// build, and optionally exposes the build over a status server and a
// Socket.IO notification channel. It is decoupled from any specific
// entrypoint like a CLI.
package app
