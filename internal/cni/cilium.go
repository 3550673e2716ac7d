package cni

import (
	"context"
	"time"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/helm"
	"github.com/imamik/testbench/internal/k8s"
	"github.com/imamik/testbench/internal/provisioning"
)

const (
	// Cilium is the tag of the cilium plugin.
	Cilium = "cilium"

	DefaultCiliumVersion = "1.18.6"
	ciliumChartsRepo     = "https://helm.cilium.io/"

	ciliumNamespace = "kube-system"
	ciliumDaemonSet = "cilium"
)

// CiliumPlugin installs cilium from its helm chart.
type CiliumPlugin struct {
	Version   string
	Helm      helm.Installer
	NewClient k8s.Factory
	Timeouts  *config.Timeouts
}

var _ provisioning.NetworkPlugin = (*CiliumPlugin)(nil)

// NewCilium creates the cilium plugin with its default version.
func NewCilium(installer helm.Installer, timeouts *config.Timeouts) *CiliumPlugin {
	return &CiliumPlugin{
		Version:   DefaultCiliumVersion,
		Helm:      installer,
		NewClient: k8s.NewFromKubeconfig,
		Timeouts:  timeouts,
	}
}

func (c *CiliumPlugin) Name() string { return Cilium }

// Install installs the chart without waiting; WaitReady polls the agent.
func (c *CiliumPlugin) Install(ctx context.Context, h *provisioning.Handle, podCIDR, _ string) error {
	return c.Helm.InstallOrUpgrade(ctx, h.Kubeconfig, helm.Release{
		Name:      "cilium",
		Namespace: ciliumNamespace,
		Chart: helm.Chart{
			RepoURL: ciliumChartsRepo,
			Name:    "cilium",
			Version: c.Version,
		},
		Values:  ciliumValues(podCIDR),
		Timeout: c.installTimeout(),
	})
}

// WaitReady waits until the cilium agent DaemonSet is ready on every node.
func (c *CiliumPlugin) WaitReady(ctx context.Context, h *provisioning.Handle, timeout time.Duration) error {
	client, err := c.NewClient(h.Kubeconfig)
	if err != nil {
		return err
	}

	interval := config.MinPollInterval
	if c.Timeouts != nil && c.Timeouts.PollInterval > interval {
		interval = c.Timeouts.PollInterval
	}
	return client.WaitForDaemonSet(ctx, ciliumNamespace, ciliumDaemonSet, interval, timeout)
}

func (c *CiliumPlugin) installTimeout() time.Duration {
	if c.Timeouts == nil {
		return 5 * time.Minute
	}
	return c.Timeouts.PluginInstall
}

// ciliumValues keeps cilium off liqo virtual nodes and hands it the pod CIDR.
func ciliumValues(podCIDR string) map[string]interface{} {
	return map[string]interface{}{
		"affinity": map[string]interface{}{
			"nodeAffinity": map[string]interface{}{
				"requiredDuringSchedulingIgnoredDuringExecution": map[string]interface{}{
					"nodeSelectorTerms": []interface{}{
						map[string]interface{}{
							"matchExpressions": []interface{}{
								map[string]interface{}{
									"key":      "liqo.io/type",
									"operator": "DoesNotExist",
								},
							},
						},
					},
				},
			},
		},
		"ipam": map[string]interface{}{
			"operator": map[string]interface{}{
				"clusterPoolIPv4PodCIDRList": []interface{}{podCIDR},
			},
		},
	}
}
