// Package kind creates clusters with kind, Kubernetes nodes running as
// docker containers.
package kind

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/kind/pkg/apis/config/v1alpha4"

	"github.com/imamik/testbench/internal/cni"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/runtime"
	"github.com/imamik/testbench/internal/util/labels"
	"github.com/imamik/testbench/internal/util/naming"
	"github.com/imamik/testbench/internal/util/shell"
)

const (
	// Name is the runtime tag.
	Name = "kind"

	DefaultImage = "kindest/node:v1.30.0"

	// Private ranges bypass the registry proxy.
	noProxy = "127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"

	maxReadyWait = 5 * time.Minute
	// Budget kept back from the node-ready wait for the proxy and
	// kubeconfig steps that follow creation.
	postCreateReserve = time.Minute
)

var supportedPlugins = map[string]bool{
	cni.Kindnet: true,
	cni.Calico:  true,
	cni.Cilium:  true,
}

// Runtime creates clusters through the kind API. Node commands go through
// the docker CLI.
type Runtime struct {
	Provider Provider
	Runner   shell.Runner
	Timeouts *config.Timeouts
	Log      logr.Logger
}

var _ provisioning.ClusterRuntime = (*Runtime)(nil)

// New creates a kind runtime.
func New(provider Provider, runner shell.Runner, timeouts *config.Timeouts, log logr.Logger) *Runtime {
	return &Runtime{
		Provider: provider,
		Runner:   runner,
		Timeouts: timeouts,
		Log:      log.WithValues("runtime", Name),
	}
}

func (r *Runtime) Name() string { return Name }

func (r *Runtime) SupportsPlugin(tag string) bool { return supportedPlugins[tag] }

// Create creates the cluster on the network and, when the network runs a
// registry proxy, points every node's containerd at it.
func (r *Runtime) Create(ctx context.Context, spec config.ClusterSpec, network provisioning.NetworkRef) (*provisioning.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, provisioning.Wrap(provisioning.KindProvisioning, spec.Name, err)
	}

	if err := r.Provider.Create(spec.Name, clusterConfig(spec), network.Name, readyWait(ctx, spec)); err != nil {
		return nil, provisioning.Errorf(provisioning.KindProvisioning, spec.Name, "kind create cluster failed: %w", err)
	}

	if network.RegistryProxy != "" {
		if err := r.configureRegistryProxy(ctx, spec.Name, network.RegistryProxy); err != nil {
			return nil, provisioning.Errorf(provisioning.KindProvisioning, spec.Name, "failed to configure registry proxy: %w", err)
		}
	}

	kubeconfig, err := r.Provider.KubeConfig(spec.Name)
	if err != nil {
		return nil, provisioning.Errorf(provisioning.KindProvisioning, spec.Name, "failed to get kubeconfig: %w", err)
	}

	return &provisioning.Handle{
		Name:        spec.Name,
		Runtime:     Name,
		Kubeconfig:  []byte(kubeconfig),
		PodCIDR:     spec.PodCIDR,
		ServiceCIDR: spec.ServiceCIDR,
	}, nil
}

func (r *Runtime) InstallNetworkPlugin(ctx context.Context, h *provisioning.Handle, plugin provisioning.NetworkPlugin) error {
	if !r.SupportsPlugin(plugin.Name()) {
		return runtime.Unsupported(Name, h, plugin)
	}
	return provisioning.InstallPlugin(ctx, h, plugin, r.Timeouts.PluginReady)
}

func (r *Runtime) Delete(_ context.Context, name string) error {
	if err := r.Provider.Delete(name); err != nil {
		return fmt.Errorf("kind delete cluster %s: %w", name, err)
	}
	return nil
}

// readyWait is how long kind waits for the control plane to become Ready.
// Without kindnet the nodes stay NotReady until the plugin is installed, so
// kind must not wait at all; readiness is then the plugin's WaitReady job.
func readyWait(ctx context.Context, spec config.ClusterSpec) time.Duration {
	if spec.CNI != cni.Kindnet {
		return 0
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return maxReadyWait
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0
	}
	wait := remaining - min(postCreateReserve, remaining/4)
	return min(wait, maxReadyWait)
}

// configureRegistryProxy runs the proxy's systemd setup script on every
// node, rewritten for containerd.
func (r *Runtime) configureRegistryProxy(ctx context.Context, cluster, proxy string) error {
	nodes, err := r.Provider.NodeNames(cluster)
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	script := fmt.Sprintf(
		`curl -fsSL %s/setup/systemd | sed s/docker\.service/containerd\.service/g | sed '/Environment/ s/$/ "NO_PROXY=%s"/' | bash`,
		proxy, noProxy,
	)
	for _, node := range nodes {
		r.Log.V(1).Info("configuring registry proxy", "cluster", cluster, "node", node)
		if _, err := r.Runner.Run(ctx, shell.Command{Name: "docker", Args: []string{"exec", node, "sh", "-c", script}}); err != nil {
			return err
		}
	}
	return nil
}

// clusterConfig renders the kind config: one control-plane node and
// nodes-1 workers labeled by tier. The default CNI is disabled unless
// kindnet is requested.
func clusterConfig(spec config.ClusterSpec) *v1alpha4.Cluster {
	image := spec.Image
	if image == "" {
		image = DefaultImage
	}

	cfg := &v1alpha4.Cluster{
		TypeMeta: v1alpha4.TypeMeta{
			Kind:       "Cluster",
			APIVersion: "kind.x-k8s.io/v1alpha4",
		},
		Networking: v1alpha4.Networking{
			PodSubnet:         spec.PodCIDR,
			ServiceSubnet:     spec.ServiceCIDR,
			DisableDefaultCNI: spec.CNI != cni.Kindnet,
		},
	}

	for i := 0; i < spec.Nodes; i++ {
		role := v1alpha4.WorkerRole
		if i == 0 {
			role = v1alpha4.ControlPlaneRole
		}
		cfg.Nodes = append(cfg.Nodes, v1alpha4.Node{
			Role:   role,
			Image:  image,
			Labels: map[string]string{labels.KeyTier: naming.Tier(i)},
		})
	}

	return cfg
}
