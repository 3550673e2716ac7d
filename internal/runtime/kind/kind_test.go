package kind

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/kind/pkg/apis/config/v1alpha4"

	"github.com/imamik/testbench/internal/cni"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/shell"
)

type fakeProvider struct {
	mu        sync.Mutex
	createErr error
	nodes     []string
	created   map[string]*v1alpha4.Cluster
	networks  map[string]string
	waits     map[string]time.Duration
	deleted   []string

	// sleepNotReady blocks for the whole wait when no CNI is deployed,
	// like kind does when nodes never become Ready.
	sleepNotReady bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		created:  map[string]*v1alpha4.Cluster{},
		networks: map[string]string{},
		waits:    map[string]time.Duration{},
	}
}

func (f *fakeProvider) Create(name string, cfg *v1alpha4.Cluster, network string, wait time.Duration) error {
	if f.sleepNotReady && cfg.Networking.DisableDefaultCNI {
		time.Sleep(wait)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits[name] = wait
	if f.createErr != nil {
		return f.createErr
	}
	f.created[name] = cfg
	f.networks[name] = network
	return nil
}

func (f *fakeProvider) KubeConfig(name string) (string, error) {
	return "kubeconfig-" + name, nil
}

func (f *fakeProvider) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeProvider) NodeNames(string) ([]string, error) {
	return f.nodes, nil
}

func testSpec(cniTag string, nodes int) config.ClusterSpec {
	return config.ClusterSpec{Name: "beta", Runtime: Name, CNI: cniTag, Nodes: nodes, PodCIDR: "10.3.0.0/16", ServiceCIDR: "10.4.0.0/16"}
}

func newRuntime(p Provider, runner shell.Runner) *Runtime {
	return New(p, runner, &config.Timeouts{PluginReady: time.Minute}, logr.Discard())
}

func TestCreate(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()
	runner := shell.NewFakeRunner()
	r := newRuntime(p, runner)

	h, err := r.Create(context.Background(), testSpec(cni.Kindnet, 2), provisioning.NetworkRef{Name: "testbench-net"})

	require.NoError(t, err)
	assert.Equal(t, "kubeconfig-beta", string(h.Kubeconfig))
	assert.Equal(t, Name, h.Runtime)
	assert.Equal(t, "testbench-net", p.networks["beta"])
	assert.Empty(t, runner.Commands())
}

func TestCreate_RegistryProxy(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()
	p.nodes = []string{"beta-control-plane", "beta-worker"}
	runner := shell.NewFakeRunner()
	r := newRuntime(p, runner)

	_, err := r.Create(context.Background(), testSpec(cni.Calico, 2), provisioning.NetworkRef{Name: "n", RegistryProxy: "http://172.18.0.5:3128"})

	require.NoError(t, err)
	cmds := runner.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, []string{"exec", "beta-worker", "sh", "-c"}, cmds[1].Args[:4])
	assert.Contains(t, cmds[1].Args[4], "curl -fsSL http://172.18.0.5:3128/setup/systemd")
	assert.Contains(t, cmds[1].Args[4], "containerd")
}

func TestCreate_ReadyWait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cni      string
		deadline time.Duration
		min, max time.Duration
	}{
		{name: "calico skips the wait", cni: cni.Calico, deadline: 10 * time.Minute, min: 0, max: 0},
		{name: "cilium skips the wait", cni: cni.Cilium, deadline: 10 * time.Minute, min: 0, max: 0},
		{name: "calico without deadline", cni: cni.Calico, min: 0, max: 0},
		{name: "kindnet is capped", cni: cni.Kindnet, deadline: 10 * time.Minute, min: maxReadyWait, max: maxReadyWait},
		{name: "kindnet without deadline", cni: cni.Kindnet, min: maxReadyWait, max: maxReadyWait},
		{name: "kindnet keeps a minute back", cni: cni.Kindnet, deadline: 3 * time.Minute, min: 115 * time.Second, max: 2 * time.Minute},
		{name: "kindnet short deadline", cni: cni.Kindnet, deadline: 400 * time.Millisecond, min: time.Millisecond, max: 300 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			if tt.deadline > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.deadline)
				defer cancel()
			}
			p := newFakeProvider()

			_, err := newRuntime(p, shell.NewFakeRunner()).Create(ctx, testSpec(tt.cni, 1), provisioning.NetworkRef{Name: "n"})

			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.waits["beta"], tt.min)
			assert.LessOrEqual(t, p.waits["beta"], tt.max)
		})
	}
}

func TestCreate_WithoutCNILeavesBudgetForProxy(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()
	p.nodes = []string{"beta-control-plane"}
	p.sleepNotReady = true
	runner := shell.NewFakeRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newRuntime(p, runner).Create(ctx, testSpec(cni.Calico, 1), provisioning.NetworkRef{Name: "n", RegistryProxy: "http://proxy:3128"})

	require.NoError(t, err)
	assert.Zero(t, p.waits["beta"])
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Len(t, runner.Commands(), 1)
}

func TestCreate_Failures(t *testing.T) {
	t.Parallel()

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		p.createErr = errors.New("node image not found")

		_, err := newRuntime(p, shell.NewFakeRunner()).Create(context.Background(), testSpec(cni.Kindnet, 1), provisioning.NetworkRef{})

		assert.True(t, provisioning.IsKind(err, provisioning.KindProvisioning))
		assert.Contains(t, err.Error(), "node image not found")
	})

	t.Run("registry proxy", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		p.nodes = []string{"beta-control-plane"}
		runner := shell.NewFakeRunner().On("docker exec", "", errors.New("curl: connection refused"))

		_, err := newRuntime(p, runner).Create(context.Background(), testSpec(cni.Kindnet, 1), provisioning.NetworkRef{RegistryProxy: "http://proxy:3128"})

		assert.True(t, provisioning.IsKind(err, provisioning.KindProvisioning))
		assert.Contains(t, err.Error(), "failed to configure registry proxy")
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newRuntime(p, shell.NewFakeRunner()).Create(ctx, testSpec(cni.Kindnet, 1), provisioning.NetworkRef{})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, p.created)
	})
}

func TestClusterConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cni         string
		nodes       int
		wantDisable bool
	}{
		{name: "kindnet", cni: cni.Kindnet, nodes: 1, wantDisable: false},
		{name: "calico", cni: cni.Calico, nodes: 3, wantDisable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := clusterConfig(testSpec(tt.cni, tt.nodes))

			assert.Equal(t, tt.wantDisable, cfg.Networking.DisableDefaultCNI)
			assert.Equal(t, "10.3.0.0/16", cfg.Networking.PodSubnet)
			assert.Equal(t, "10.4.0.0/16", cfg.Networking.ServiceSubnet)
			require.Len(t, cfg.Nodes, tt.nodes)
			assert.Equal(t, v1alpha4.ControlPlaneRole, cfg.Nodes[0].Role)
			assert.Equal(t, DefaultImage, cfg.Nodes[0].Image)
			assert.Equal(t, "worker-0", cfg.Nodes[0].Labels["tier"])
			for i := 1; i < tt.nodes; i++ {
				assert.Equal(t, v1alpha4.WorkerRole, cfg.Nodes[i].Role)
			}
		})
	}
}

func TestInstallNetworkPlugin_RejectsFlannel(t *testing.T) {
	t.Parallel()
	r := newRuntime(newFakeProvider(), shell.NewFakeRunner())
	h := &provisioning.Handle{Name: "beta"}

	err := r.InstallNetworkPlugin(context.Background(), h, cni.NewBuiltin(cni.Flannel))
	assert.True(t, provisioning.IsKind(err, provisioning.KindPreconditionViolation))

	assert.NoError(t, r.InstallNetworkPlugin(context.Background(), h, cni.NewBuiltin(cni.Kindnet)))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()

	require.NoError(t, newRuntime(p, shell.NewFakeRunner()).Delete(context.Background(), "beta"))
	assert.Equal(t, []string{"beta"}, p.deleted)
}
