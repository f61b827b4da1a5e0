// Package registry maps the plugin names used in graph files (e.g. "merge")
// to the compiled Go code that implements them.
//
// Plugins are contributed by modules. Each module registers one or more
// plugins at startup; the registry is then validated once so that a mistake
// in a plugin's argument struct is reported before any graph file is read.
package registry
