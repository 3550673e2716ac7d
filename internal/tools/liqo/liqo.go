// Package liqo installs liqo with liqoctl and peers clusters with it.
package liqo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/k8s"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/naming"
	"github.com/imamik/testbench/internal/util/shell"
)

// Name is the tool tag.
const Name = "liqo"

// liqoctl install targets by runtime tag.
var installTargets = map[string]string{
	"k3d":  "k3s",
	"kind": "kind",
}

// Tool drives liqoctl. An instance remembers which clusters it installed
// liqo into and refuses to peer anything else.
type Tool struct {
	Runner    shell.Runner
	NewClient k8s.Factory
	Log       logr.Logger

	mu        sync.Mutex
	installed map[string]bool
}

var _ provisioning.Tool = (*Tool)(nil)

// New creates a liqo tool.
func New(runner shell.Runner, log logr.Logger) *Tool {
	return &Tool{
		Runner:    runner,
		NewClient: k8s.NewFromKubeconfig,
		Log:       log.WithValues("tool", Name),
		installed: map[string]bool{},
	}
}

func (t *Tool) Name() string { return Name }

// Install runs liqoctl install against h. version is empty or "latest" for
// the liqoctl default, "<repo-url>@<ref>" for a build from a fork, or a
// plain release ref.
func (t *Tool) Install(ctx context.Context, h *provisioning.Handle, version string) error {
	target, ok := installTargets[h.Runtime]
	if !ok {
		return provisioning.Errorf(provisioning.KindToolInstall, h.Name, "liqo cannot be installed on runtime %q", h.Runtime)
	}

	client, err := t.NewClient(h.Kubeconfig)
	if err != nil {
		return provisioning.Wrap(provisioning.KindToolInstall, h.Name, err)
	}
	ip, err := client.ControlPlaneInternalIP(ctx)
	if err != nil {
		return provisioning.Errorf(provisioning.KindToolInstall, h.Name, "failed to find API server address: %w", err)
	}

	dir, err := os.MkdirTemp("", "testbench-liqo-")
	if err != nil {
		return provisioning.Wrap(provisioning.KindToolInstall, h.Name, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	kubeconfig, err := writeKubeconfig(dir, h)
	if err != nil {
		return provisioning.Wrap(provisioning.KindToolInstall, h.Name, err)
	}

	args := []string{"install", target,
		"--cluster-id", naming.ClusterID(h.Name),
		"--pod-cidr", h.PodCIDR,
		"--service-cidr", h.ServiceCIDR,
		"--kubeconfig", kubeconfig,
		"--api-server-url", fmt.Sprintf("https://%s:%d", ip, config.KubeAPIPort),
	}
	repoURL, ref := ParseVersion(version)
	if repoURL != "" {
		args = append(args, "--repo-url", repoURL)
	}
	if ref != "" {
		args = append(args, "--version", ref)
	}

	t.Log.Info("installing liqo", "cluster", h.Name, "version", versionLabel(version))
	if _, err := t.Runner.Run(ctx, shell.Command{Name: "liqoctl", Args: args}); err != nil {
		return provisioning.Errorf(provisioning.KindToolInstall, h.Name, "liqoctl install failed: %w", err)
	}

	t.mu.Lock()
	t.installed[h.Name] = true
	t.mu.Unlock()
	return nil
}

// Peer peers a with b. The remote gateway is exposed as a LoadBalancer on
// k3d, whose built-in load balancer serves it, and as a NodePort elsewhere.
func (t *Tool) Peer(ctx context.Context, a, b *provisioning.Handle) error {
	pair := config.Peering{A: a.Name, B: b.Name}.String()

	t.mu.Lock()
	missing := ""
	for _, h := range []*provisioning.Handle{a, b} {
		if !t.installed[h.Name] {
			missing = h.Name
			break
		}
	}
	t.mu.Unlock()
	if missing != "" {
		return provisioning.Errorf(provisioning.KindPreconditionViolation, pair, "liqo is not installed in cluster %s", missing)
	}

	dir, err := os.MkdirTemp("", "testbench-liqo-")
	if err != nil {
		return provisioning.Wrap(provisioning.KindPeering, pair, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	local, err := writeKubeconfig(dir, a)
	if err != nil {
		return provisioning.Wrap(provisioning.KindPeering, pair, err)
	}
	remote, err := writeKubeconfig(dir, b)
	if err != nil {
		return provisioning.Wrap(provisioning.KindPeering, pair, err)
	}

	serviceType := "NodePort"
	if b.Runtime == "k3d" {
		serviceType = "LoadBalancer"
	}

	t.Log.Info("peering clusters", "pair", pair, "gatewayServiceType", serviceType)
	_, err = t.Runner.Run(ctx, shell.Command{Name: "liqoctl", Args: []string{"peer",
		"--kubeconfig", local,
		"--remote-kubeconfig", remote,
		"--gw-server-service-type", serviceType,
	}})
	if err != nil {
		return provisioning.Errorf(provisioning.KindPeering, pair, "liqoctl peer failed: %w", err)
	}
	return nil
}

// ParseVersion splits "<repo-url>@<ref>". Empty and "latest" yield nothing.
func ParseVersion(version string) (repoURL, ref string) {
	if version == "" || version == "latest" {
		return "", ""
	}
	if i := strings.LastIndex(version, "@"); i >= 0 {
		return version[:i], version[i+1:]
	}
	return "", version
}

func versionLabel(version string) string {
	if version == "" {
		return "latest"
	}
	return version
}

func writeKubeconfig(dir string, h *provisioning.Handle) (string, error) {
	path := filepath.Join(dir, naming.KubeconfigFile(h.Name))
	if err := os.WriteFile(path, h.Kubeconfig, 0o600); err != nil {
		return "", fmt.Errorf("failed to write kubeconfig: %w", err)
	}
	return path, nil
}
