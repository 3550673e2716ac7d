//go:build kind

// Package kind runs testbench end to end against local kind clusters.
// It needs a running docker daemon and kubectl. The kind runtime itself is
// linked in as a library.
package kind

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/testbench/internal/artifacts"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/network"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/registry"
	"github.com/imamik/testbench/internal/util/shell"
)

const networkName = "testbench-e2e"

// podCIDRs are the cluster CIDRs of the suite topology.
var podCIDRs = map[string]string{
	"e2e-a": "10.210.0.0/16",
	"e2e-b": "10.211.0.0/16",
}

// Framework owns the single testbench run shared by all tests.
type Framework struct {
	mu       sync.RWMutex
	topology *config.Topology
	orch     *orchestration.Orchestrator
	summary  *orchestration.Summary
	runErr   error
	outDir   string
	sink     *artifacts.FileSink
	log      logr.Logger
}

// NewFramework creates a test framework instance.
func NewFramework() *Framework {
	return &Framework{log: zap.New(zap.UseDevMode(true), zap.WriteTo(os.Stdout))}
}

// Setup brings up the suite topology with the kind runtime and kindnet.
func (f *Framework) Setup() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkPrerequisites(); err != nil {
		return err
	}

	topo, err := config.LoadTopologyFromBytes([]byte(topologyYAML()))
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}
	f.topology = topo

	f.outDir, err = os.MkdirTemp("", "testbench-e2e-*")
	if err != nil {
		return err
	}
	f.sink = artifacts.NewFileSink(f.outDir)

	timeouts := config.LoadTimeouts()
	f.orch = orchestration.New(
		registry.Builtin(registry.DefaultDeps(timeouts, f.log)),
		network.NewManager(shell.NewExecRunner(f.log.WithName("exec")), f.outDir, f.log.WithName("network")),
		f.sink,
		provisioning.NewLogObserver(f.log.WithName("run")),
	)
	f.orch.Timeouts = timeouts

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	fmt.Printf("Bringing up %d kind clusters on network %s\n", len(topo.Clusters), networkName)
	f.summary, f.runErr = f.orch.Run(ctx, topo)
	if f.summary == nil {
		return fmt.Errorf("run: %w", f.runErr)
	}
	return nil
}

// Teardown deletes the clusters unless KEEP_TESTBENCH_CLUSTERS is set.
func (f *Framework) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orch == nil {
		return
	}

	if os.Getenv("KEEP_TESTBENCH_CLUSTERS") != "" {
		fmt.Printf("\nClusters preserved, kubeconfigs in %s\n", f.outDir)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := f.orch.Down(ctx, f.topology); err != nil {
		fmt.Printf("Teardown incomplete: %v\n", err)
	}
	_ = os.RemoveAll(f.outDir)
}

// missingPrerequisiteError makes the suite skip instead of fail.
type missingPrerequisiteError struct{ what string }

func (e *missingPrerequisiteError) Error() string { return e.what }

func (f *Framework) checkPrerequisites() error {
	if _, err := exec.LookPath("kubectl"); err != nil {
		return &missingPrerequisiteError{what: "kubectl not found"}
	}
	if err := exec.Command("docker", "info").Run(); err != nil {
		return &missingPrerequisiteError{what: "docker not running"}
	}
	return nil
}

// topologyYAML renders the suite topology. E2E_NODES sets the node count
// per cluster and defaults to 1.
func topologyYAML() string {
	nodes := 1
	if v := os.Getenv("E2E_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			nodes = n
		}
	}

	return fmt.Sprintf(`network:
  name: %s
defaults:
  runtime: kind
  cni: kindnet
  nodes: %d
clusters:
  - name: e2e-a
    cluster_cidr: %s
    service_cidr: 10.110.0.0/16
  - name: e2e-b
    cluster_cidr: %s
    service_cidr: 10.111.0.0/16
`, networkName, nodes, podCIDRs["e2e-a"], podCIDRs["e2e-b"])
}

// Summary returns the outcome of the shared run.
func (f *Framework) Summary() (*orchestration.Summary, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.summary, f.runErr
}

// Nodes returns the configured node count of every cluster.
func (f *Framework) Nodes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.topology.Clusters[0].Nodes
}

// KubeconfigPath returns the kubeconfig written for cluster.
func (f *Framework) KubeconfigPath(cluster string) string {
	return f.sink.Path(cluster)
}
