package orchestration_test

import (
	"context"
	"sync"
	"time"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/provisioning/fake"
	"github.com/imamik/testbench/internal/registry"
)

type fakeNetwork struct {
	mu      sync.Mutex
	err     error
	ensured []string
	removed []string
}

func (n *fakeNetwork) Ensure(_ context.Context, spec config.NetworkSpec) (provisioning.NetworkRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensured = append(n.ensured, spec.Name)
	if n.err != nil {
		return provisioning.NetworkRef{}, n.err
	}
	return provisioning.NetworkRef{Name: spec.Name}, nil
}

func (n *fakeNetwork) Remove(_ context.Context, spec config.NetworkSpec) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, spec.Name)
	return nil
}

type memorySink struct {
	mu      sync.Mutex
	err     error
	written map[string][]byte
	removed []string
}

func newMemorySink() *memorySink {
	return &memorySink{written: map[string][]byte{}}
}

func (s *memorySink) Write(_ context.Context, cluster string, kubeconfig []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.written[cluster] = kubeconfig
	return "mem://" + cluster, nil
}

func (s *memorySink) Remove(cluster string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, cluster)
	return nil
}

// bench wires an orchestrator to fake capabilities registered under the
// real tags.
type bench struct {
	runtime  *fake.Runtime
	plugin   *fake.Plugin
	tool     *fake.Tool
	network  *fakeNetwork
	sink     *memorySink
	observer *provisioning.MockObserver
	orch     *orchestration.Orchestrator
}

func newBench() *bench {
	b := &bench{
		runtime:  fake.NewRuntime("k3d", "calico", "flannel"),
		plugin:   fake.NewPlugin("calico"),
		tool:     fake.NewTool("liqo"),
		network:  &fakeNetwork{},
		sink:     newMemorySink(),
		observer: provisioning.NewMockObserver(),
	}

	reg := registry.New()
	reg.RegisterRuntime("k3d", func() provisioning.ClusterRuntime { return b.runtime })
	reg.RegisterPlugin("calico", func() provisioning.NetworkPlugin { return b.plugin })
	reg.RegisterPlugin("flannel", func() provisioning.NetworkPlugin { return fake.NewPlugin("flannel") })
	reg.RegisterTool("liqo", func() provisioning.Tool { return b.tool })

	b.orch = orchestration.New(reg, b.network, b.sink, b.observer)
	b.orch.Timeouts = testTimeouts()
	return b
}

func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		ClusterCreate: time.Minute,
		PluginInstall: time.Minute,
		PluginReady:   time.Minute,
		ToolInstall:   time.Minute,
		Peering:       time.Minute,
		Delete:        time.Minute,
		PollInterval:  config.MinPollInterval,
		ManifestFetch: 1,
	}
}

// topology builds a resolved topology of calico k3d clusters with liqo
// installed on installs and peering pairs.
func topology(clusters []string, installs []string, peerings ...[2]string) *config.Topology {
	f := &config.File{
		Defaults: config.ClusterDefaults{Runtime: "k3d", CNI: "calico"},
		Tools:    map[string]config.ToolSpec{},
	}
	for _, name := range clusters {
		f.Clusters = append(f.Clusters, config.ClusterConfig{Name: name})
	}
	if len(installs) > 0 || len(peerings) > 0 {
		spec := config.ToolSpec{}
		for _, c := range installs {
			spec.Installations = append(spec.Installations, config.Installation{Cluster: c})
		}
		for _, p := range peerings {
			spec.Peerings = append(spec.Peerings, config.Peering{A: p[0], B: p[1]})
		}
		f.Tools["liqo"] = spec
	}

	topo, err := config.Resolve(f)
	if err != nil {
		panic(err)
	}
	return topo
}
