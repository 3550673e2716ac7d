// Package registry maps variant tags from the topology to capability
// implementations. Builtin is the only place variants are registered.
package registry

import (
	"sort"
	"sync"

	"github.com/imamik/testbench/internal/provisioning"
)

type (
	RuntimeFactory func() provisioning.ClusterRuntime
	PluginFactory  func() provisioning.NetworkPlugin
	ToolFactory    func() provisioning.Tool
)

// Registry holds one factory per variant tag. Factories are called once
// per lookup; callers decide whether to share the returned instance.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]RuntimeFactory
	plugins  map[string]PluginFactory
	tools    map[string]ToolFactory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		runtimes: make(map[string]RuntimeFactory),
		plugins:  make(map[string]PluginFactory),
		tools:    make(map[string]ToolFactory),
	}
}

func (r *Registry) RegisterRuntime(tag string, f RuntimeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[tag] = f
}

func (r *Registry) RegisterPlugin(tag string, f PluginFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[tag] = f
}

func (r *Registry) RegisterTool(tag string, f ToolFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tag] = f
}

// Runtime returns the runtime registered under tag.
func (r *Registry) Runtime(tag string) (provisioning.ClusterRuntime, error) {
	r.mu.RLock()
	f, ok := r.runtimes[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, unknown("runtime", tag, r.RuntimeTags())
	}
	return f(), nil
}

// Plugin returns the network plugin registered under tag.
func (r *Registry) Plugin(tag string) (provisioning.NetworkPlugin, error) {
	r.mu.RLock()
	f, ok := r.plugins[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, unknown("network plugin", tag, r.PluginTags())
	}
	return f(), nil
}

// Tool returns the tool registered under tag.
func (r *Registry) Tool(tag string) (provisioning.Tool, error) {
	r.mu.RLock()
	f, ok := r.tools[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, unknown("tool", tag, r.ToolTags())
	}
	return f(), nil
}

func (r *Registry) RuntimeTags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.runtimes)
}

func (r *Registry) PluginTags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.plugins)
}

func (r *Registry) ToolTags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.tools)
}

func unknown(what, tag string, known []string) error {
	return provisioning.Errorf(provisioning.KindUnknownVariant, tag, "unknown %s %q (known: %v)", what, tag, known)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
