// Package k3d creates clusters with k3d, k3s running in docker containers.
package k3d

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/yaml"

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
	Name = "k3d"

	DefaultImage = "docker.io/rancher/k3s:v1.30.2-k3s2"
)

var supportedPlugins = map[string]bool{
	cni.Flannel: true,
	cni.Calico:  true,
	cni.Cilium:  true,
}

// Runtime drives the k3d CLI.
type Runtime struct {
	Runner   shell.Runner
	Timeouts *config.Timeouts
	Log      logr.Logger
}

var _ provisioning.ClusterRuntime = (*Runtime)(nil)

// New creates a k3d runtime.
func New(runner shell.Runner, timeouts *config.Timeouts, log logr.Logger) *Runtime {
	return &Runtime{Runner: runner, Timeouts: timeouts, Log: log.WithValues("runtime", Name)}
}

func (r *Runtime) Name() string { return Name }

func (r *Runtime) SupportsPlugin(tag string) bool { return supportedPlugins[tag] }

// Create creates the cluster on network and reads back its kubeconfig.
// Flannel is disabled unless it is the requested plugin.
func (r *Runtime) Create(ctx context.Context, spec config.ClusterSpec, network provisioning.NetworkRef) (*provisioning.Handle, error) {
	simple, err := clusterConfig(spec, network)
	if err != nil {
		return nil, provisioning.Wrap(provisioning.KindProvisioning, spec.Name, err)
	}

	args := []string{"cluster", "create", spec.Name, "--config", "-", "--kubeconfig-update-default=false"}
	if spec.CNI != cni.Flannel {
		args = append(args,
			"--k3s-arg", "--flannel-backend=none@server:*",
			"--k3s-arg", "--disable-network-policy@server:*",
		)
	}
	if network.RegistryProxy != "" {
		r.Log.Info("registry proxy is not wired into k3d nodes", "cluster", spec.Name)
	}

	start := time.Now()
	if _, err := r.Runner.Run(ctx, shell.Command{Name: "k3d", Args: args, Stdin: simple}); err != nil {
		return nil, provisioning.Errorf(provisioning.KindProvisioning, spec.Name, "k3d cluster create failed: %w", err)
	}
	r.Log.V(1).Info("cluster created", "cluster", spec.Name, "duration", time.Since(start).Round(time.Second))

	kubeconfig, err := r.Runner.Run(ctx, shell.Command{Name: "k3d", Args: []string{"kubeconfig", "get", spec.Name}})
	if err != nil {
		return nil, provisioning.Errorf(provisioning.KindProvisioning, spec.Name, "failed to get kubeconfig: %w", err)
	}

	return &provisioning.Handle{
		Name:        spec.Name,
		Runtime:     Name,
		Kubeconfig:  kubeconfig,
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

func (r *Runtime) Delete(ctx context.Context, name string) error {
	if _, err := r.Runner.Run(ctx, shell.Command{Name: "k3d", Args: []string{"cluster", "delete", name}}); err != nil {
		return fmt.Errorf("k3d cluster delete %s: %w", name, err)
	}
	return nil
}

// clusterConfig renders a k3d.io/v1alpha5 Simple config with one server
// and nodes-1 agents, each labeled with its tier.
func clusterConfig(spec config.ClusterSpec, network provisioning.NetworkRef) ([]byte, error) {
	image := spec.Image
	if image == "" {
		image = DefaultImage
	}

	nodeLabels := []interface{}{
		map[string]interface{}{
			"label":       labels.KeyTier + "=" + naming.Tier(0),
			"nodeFilters": []string{"server:0"},
		},
	}
	for i := 1; i < spec.Nodes; i++ {
		nodeLabels = append(nodeLabels, map[string]interface{}{
			"label":       labels.KeyTier + "=" + naming.Tier(i),
			"nodeFilters": []string{fmt.Sprintf("agent:%d", i-1)},
		})
	}

	simple := map[string]interface{}{
		"apiVersion": "k3d.io/v1alpha5",
		"kind":       "Simple",
		"image":      image,
		"servers":    1,
		"agents":     spec.Nodes - 1,
		"network":    network.Name,
		"options": map[string]interface{}{
			"k3s": map[string]interface{}{
				"extraArgs": []interface{}{
					map[string]interface{}{
						"arg":         "--cluster-cidr=" + spec.PodCIDR,
						"nodeFilters": []string{"server:*"},
					},
					map[string]interface{}{
						"arg":         "--service-cidr=" + spec.ServiceCIDR,
						"nodeFilters": []string{"server:*"},
					},
				},
				"nodeLabels": nodeLabels,
			},
		},
	}

	data, err := yaml.Marshal(simple)
	if err != nil {
		return nil, fmt.Errorf("failed to render k3d config: %w", err)
	}
	return data, nil
}
