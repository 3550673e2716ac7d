package provisioning

import (
	"context"
	"time"

	"github.com/imamik/testbench/internal/config"
)

// Phase defines the interface for one stage of a run.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the phase. A returned error ends the run.
	Provision(ctx *Context) error
}

// NetworkRef identifies the isolation network shared by all clusters of a run.
type NetworkRef struct {
	// Name of the container network the cluster nodes attach to.
	Name string

	// RegistryProxy is the http address of the pull-through image cache,
	// empty when no proxy runs.
	RegistryProxy string
}

// Handle is the live reference to a created cluster.
type Handle struct {
	Name    string
	Runtime string

	// Kubeconfig is the connection descriptor returned by the runtime.
	Kubeconfig []byte

	PodCIDR     string
	ServiceCIDR string
}

// ClusterRuntime creates clusters on one container backend.
type ClusterRuntime interface {
	// Name returns the runtime tag, e.g. "k3d".
	Name() string

	// Create provisions the cluster nodes attached to network and returns a
	// handle carrying the kubeconfig. It is called at most once per spec.
	Create(ctx context.Context, spec config.ClusterSpec, network NetworkRef) (*Handle, error)

	// InstallNetworkPlugin installs plugin into the cluster and blocks until
	// the plugin is ready or its timeout elapsed.
	InstallNetworkPlugin(ctx context.Context, h *Handle, plugin NetworkPlugin) error

	// Delete removes the cluster. Deleting a missing cluster is not an error.
	Delete(ctx context.Context, name string) error

	// SupportsPlugin reports whether the runtime can host the named plugin.
	SupportsPlugin(tag string) bool
}

// NetworkPlugin installs pod networking into a cluster.
type NetworkPlugin interface {
	// Name returns the plugin tag, e.g. "calico".
	Name() string

	// Install applies the plugin manifests or chart.
	Install(ctx context.Context, h *Handle, podCIDR, serviceCIDR string) error

	// WaitReady polls until the plugin reports healthy or timeout elapses.
	WaitReady(ctx context.Context, h *Handle, timeout time.Duration) error
}

// Tool installs cross-cluster tooling and establishes peerings.
type Tool interface {
	// Name returns the tool tag, e.g. "liqo".
	Name() string

	// Install installs the tool into one cluster. An empty version selects
	// the tool's default.
	Install(ctx context.Context, h *Handle, version string) error

	// Peer links two clusters that both have the tool installed by this
	// instance. Otherwise it fails with KindPreconditionViolation.
	Peer(ctx context.Context, a, b *Handle) error
}
