package network

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/labels"
	"github.com/imamik/testbench/internal/util/naming"
	"github.com/imamik/testbench/internal/util/netutil"
	"github.com/imamik/testbench/internal/util/shell"
)

const (
	RegistryProxyImage = "rpardini/docker-registry-proxy:0.6.5"
	registryProxyPort  = 3128

	registryProxyWaitTimeout = 30 * time.Second
)

// Manager creates and removes the isolation network.
type Manager struct {
	Runner shell.Runner
	Log    logr.Logger

	// StateDir holds the registry proxy CA and cache volumes.
	StateDir string

	// WaitPort probes the registry proxy after it got an address.
	WaitPort func(ctx context.Context, host string, port int, timeout time.Duration) error
}

// NewManager creates a manager keeping proxy state under stateDir.
func NewManager(runner shell.Runner, stateDir string, log logr.Logger) *Manager {
	return &Manager{Runner: runner, StateDir: stateDir, Log: log, WaitPort: netutil.WaitForPort}
}

// Ensure creates the network unless it exists and, when requested, starts
// the registry proxy on it. Existing objects are reused.
func (m *Manager) Ensure(ctx context.Context, spec config.NetworkSpec) (provisioning.NetworkRef, error) {
	ref := provisioning.NetworkRef{Name: spec.Name}

	exists, err := m.exists(ctx, "network", spec.Name)
	if err != nil {
		return ref, provisioning.Wrap(provisioning.KindNetwork, spec.Name, err)
	}
	if exists {
		m.Log.Info("reusing docker network", "network", spec.Name)
	} else {
		args := []string{"network", "create", "--driver", "bridge"}
		args = append(args, labels.NewLabelBuilder(spec.Name).WithRole(labels.RoleNetwork).DockerArgs()...)
		args = append(args, spec.Name)
		if _, err := m.docker(ctx, args...); err != nil {
			return ref, provisioning.Errorf(provisioning.KindNetwork, spec.Name, "failed to create network: %w", err)
		}
		m.Log.Info("created docker network", "network", spec.Name)
	}

	if !spec.RegistryProxy {
		return ref, nil
	}

	proxy, err := m.ensureRegistryProxy(ctx, spec.Name)
	if err != nil {
		return ref, provisioning.Errorf(provisioning.KindNetwork, spec.Name, "failed to start registry proxy: %w", err)
	}
	ref.RegistryProxy = proxy
	return ref, nil
}

// Remove deletes the registry proxy container and the network. Objects that
// are already gone are not an error.
func (m *Manager) Remove(ctx context.Context, spec config.NetworkSpec) error {
	var errs []error

	proxy := naming.RegistryProxy(spec.Name)
	if _, err := m.docker(ctx, "rm", "--force", proxy); err != nil && !isNotFound(err) {
		errs = append(errs, fmt.Errorf("failed to remove %s: %w", proxy, err))
	}
	if _, err := m.docker(ctx, "network", "rm", spec.Name); err != nil && !isNotFound(err) {
		errs = append(errs, fmt.Errorf("failed to remove network %s: %w", spec.Name, err))
	}

	return errors.Join(errs...)
}

func (m *Manager) ensureRegistryProxy(ctx context.Context, network string) (string, error) {
	name := naming.RegistryProxy(network)

	running, err := m.exists(ctx, "container", name)
	if err != nil {
		return "", err
	}
	if !running {
		caDir := filepath.Join(m.StateDir, "registry-proxy", "ca")
		cacheDir := filepath.Join(m.StateDir, "registry-proxy", "cache")
		for _, dir := range []string{caDir, cacheDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		caDir, _ = filepath.Abs(caDir)
		cacheDir, _ = filepath.Abs(cacheDir)

		args := []string{"run", "--detach", "--name", name, "--network", network,
			"--env", "ENABLE_MANIFEST_CACHE=true",
			"--volume", caDir + ":/ca",
			"--volume", cacheDir + ":/docker_mirror_cache",
		}
		args = append(args, labels.NewLabelBuilder(network).WithRole(labels.RoleRegistryProxy).DockerArgs()...)
		args = append(args, RegistryProxyImage)
		if _, err := m.docker(ctx, args...); err != nil {
			return "", err
		}
		m.Log.Info("started registry proxy", "container", name, "image", RegistryProxyImage)
	}

	format := fmt.Sprintf(`{{(index .NetworkSettings.Networks %q).IPAddress}}`, network)
	out, err := m.docker(ctx, "container", "inspect", "--format", format, name)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(out))
	if ip == "" || ip == "<no value>" {
		return "", fmt.Errorf("container %s is not attached to network %s", name, network)
	}

	// Container addresses are not routable from every docker host, so an
	// unanswered probe only degrades to a warning.
	if m.WaitPort != nil {
		if err := m.WaitPort(ctx, ip, registryProxyPort, registryProxyWaitTimeout); err != nil {
			m.Log.Info("registry proxy not reachable from host", "container", name, "error", err.Error())
		}
	}

	return fmt.Sprintf("http://%s:%d", ip, registryProxyPort), nil
}

// exists inspects a docker object and maps "no such object" to false.
func (m *Manager) exists(ctx context.Context, kind, name string) (bool, error) {
	_, err := m.docker(ctx, kind, "inspect", "--format", "{{.Name}}", name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (m *Manager) docker(ctx context.Context, args ...string) ([]byte, error) {
	return m.Runner.Run(ctx, shell.Command{Name: "docker", Args: args})
}

func isNotFound(err error) bool {
	var shellErr *shell.Error
	if !errors.As(err, &shellErr) {
		return false
	}
	msg := strings.ToLower(shellErr.Stderr)
	return strings.Contains(msg, "no such") || strings.Contains(msg, "not found")
}
