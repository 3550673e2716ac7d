package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
)

// Runtime is a ClusterRuntime that creates nothing.
type Runtime struct {
	Tag     string
	Plugins []string

	// CreateErrors and PluginErrors fail the named clusters.
	CreateErrors map[string]error
	PluginErrors map[string]error

	// OnCreate, when set, runs inside Create before it returns.
	OnCreate func(ctx context.Context, spec config.ClusterSpec)

	mu       sync.Mutex
	created  []string
	plugins  map[string][]string
	deleted  []string
	networks map[string]provisioning.NetworkRef
}

var _ provisioning.ClusterRuntime = (*Runtime)(nil)

// NewRuntime creates a fake runtime supporting the given plugin tags.
// Without tags every plugin is supported.
func NewRuntime(tag string, plugins ...string) *Runtime {
	return &Runtime{
		Tag:          tag,
		Plugins:      plugins,
		CreateErrors: map[string]error{},
		PluginErrors: map[string]error{},
	}
}

func (r *Runtime) Name() string { return r.Tag }

func (r *Runtime) Create(ctx context.Context, spec config.ClusterSpec, network provisioning.NetworkRef) (*provisioning.Handle, error) {
	if r.OnCreate != nil {
		r.OnCreate(ctx, spec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, spec.Name)
	if r.networks == nil {
		r.networks = map[string]provisioning.NetworkRef{}
	}
	r.networks[spec.Name] = network

	if err := r.CreateErrors[spec.Name]; err != nil {
		return nil, err
	}

	return &provisioning.Handle{
		Name:        spec.Name,
		Runtime:     r.Tag,
		Kubeconfig:  []byte(fmt.Sprintf("kubeconfig-%s", spec.Name)),
		PodCIDR:     spec.PodCIDR,
		ServiceCIDR: spec.ServiceCIDR,
	}, nil
}

func (r *Runtime) InstallNetworkPlugin(ctx context.Context, h *provisioning.Handle, plugin provisioning.NetworkPlugin) error {
	r.mu.Lock()
	if r.plugins == nil {
		r.plugins = map[string][]string{}
	}
	r.plugins[h.Name] = append(r.plugins[h.Name], plugin.Name())
	err := r.PluginErrors[h.Name]
	r.mu.Unlock()

	if err != nil {
		return provisioning.Wrap(provisioning.KindPluginInstall, h.Name, err)
	}
	return provisioning.InstallPlugin(ctx, h, plugin, 0)
}

func (r *Runtime) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, name)
	return nil
}

func (r *Runtime) SupportsPlugin(tag string) bool {
	if len(r.Plugins) == 0 {
		return true
	}
	for _, p := range r.Plugins {
		if p == tag {
			return true
		}
	}
	return false
}

// Created returns the names passed to Create, in call order.
func (r *Runtime) Created() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.created...)
}

// PluginInstalls returns the plugins installed into a cluster.
func (r *Runtime) PluginInstalls(cluster string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.plugins[cluster]...)
}

// Deleted returns the names passed to Delete, in call order.
func (r *Runtime) Deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

// Network returns the network a cluster was created on.
func (r *Runtime) Network(cluster string) provisioning.NetworkRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.networks[cluster]
}
