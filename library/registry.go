package library

import "fmt"

// RegisteredPlugin is one entry of the plugin registry: a plugin name
// bound to its active version and capability set.
type RegisteredPlugin struct {
	Name         string
	Version      string
	Capabilities Capabilities
}

// PluginRegistry is an immutable mapping from plugin name to its
// registered version and capabilities. It is built once at startup by
// an explicit registration step; there is no runtime plugin loading.
type PluginRegistry struct {
	plugins map[string]RegisteredPlugin
}

// NewPluginRegistry builds a registry from the given plugins. Later
// entries with the same name win.
func NewPluginRegistry(plugins ...RegisteredPlugin) *PluginRegistry {
	m := make(map[string]RegisteredPlugin, len(plugins))
	for _, p := range plugins {
		m[p.Name] = p
	}
	return &PluginRegistry{plugins: m}
}

// Version resolves the currently registered version of a plugin.
func (r *PluginRegistry) Version(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	p, ok := r.plugins[name]
	return p.Version, ok
}

// Lookup returns the full registration entry for a plugin.
func (r *PluginRegistry) Lookup(name string) (RegisteredPlugin, bool) {
	if r == nil {
		return RegisteredPlugin{}, false
	}
	p, ok := r.plugins[name]
	return p, ok
}

// String lists the registered plugins, mostly for status output.
func (r *PluginRegistry) String() string {
	if r == nil || len(r.plugins) == 0 {
		return "no plugins registered"
	}
	out := ""
	for name, p := range r.plugins {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s@%s", name, p.Version)
	}
	return out
}
