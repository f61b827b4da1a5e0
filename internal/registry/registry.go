package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/treeforge/internal/node"
)

// Module is the interface that all plugin modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredPlugin holds the compiled Go parts of a plugin.
type RegisteredPlugin struct {
	// Name is the display name used in labels, e.g. "MergePlugin".
	Name string
	// NewArgs returns a pointer to a zero argument struct with hcl tags, or
	// nil when the plugin takes no arguments.
	NewArgs func() any
	// NewCallback builds the callback from decoded arguments. args is the
	// value returned by NewArgs, or nil.
	NewCallback func(args any) (node.Callback, error)
}

// Registry holds the plugins available to a single application instance.
type Registry struct {
	PluginRegistry map[string]*RegisteredPlugin
}

// New creates and initializes a new Registry instance.
func New(modules ...Module) *Registry {
	r := &Registry{PluginRegistry: make(map[string]*RegisteredPlugin)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterPlugin registers a plugin under name. Registering a name twice is
// a programmer error and panics.
func (r *Registry) RegisterPlugin(name string, p *RegisteredPlugin) {
	if _, exists := r.PluginRegistry[name]; exists {
		panic(fmt.Sprintf("plugin with name '%s' already registered", name))
	}
	if p.Name == "" {
		p.Name = name
	}
	slog.Debug("Registering plugin.", "name", name)
	r.PluginRegistry[name] = p
}

// Plugin looks up a plugin by name.
func (r *Registry) Plugin(name string) (*RegisteredPlugin, bool) {
	p, ok := r.PluginRegistry[name]
	return p, ok
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.PluginRegistry))
	for name := range r.PluginRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
