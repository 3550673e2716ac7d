package kind

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"sigs.k8s.io/kind/pkg/apis/config/v1alpha4"
	"sigs.k8s.io/kind/pkg/cluster"
)

// Provider is the subset of the kind cluster API the runtime needs.
type Provider interface {
	Create(name string, cfg *v1alpha4.Cluster, network string, wait time.Duration) error
	KubeConfig(name string) (string, error)
	Delete(name string) error
	NodeNames(name string) ([]string, error)
}

// kind reads the docker network from the environment of the calling process.
const networkEnv = "KIND_EXPERIMENTAL_DOCKER_NETWORK"

var dockerNetwork = newEnvLease(networkEnv)

// envLease shares one value of an environment variable between concurrent
// holders. A different value waits until every holder released; the
// previous value is restored when the last holder leaves.
type envLease struct {
	key  string
	mu   sync.Mutex
	cond *sync.Cond

	value   string
	holders int
	prev    string
	hadPrev bool
}

func newEnvLease(key string) *envLease {
	l := &envLease{key: key}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *envLease) acquire(value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.holders > 0 && l.value != value {
		l.cond.Wait()
	}
	if l.holders == 0 {
		l.prev, l.hadPrev = os.LookupEnv(l.key)
		if err := os.Setenv(l.key, value); err != nil {
			return err
		}
		l.value = value
	}
	l.holders++
	return nil
}

func (l *envLease) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders--
	if l.holders > 0 {
		return
	}
	if l.hadPrev {
		_ = os.Setenv(l.key, l.prev)
	} else {
		_ = os.Unsetenv(l.key)
	}
	l.cond.Broadcast()
}

type kindProvider struct {
	provider *cluster.Provider
}

// NewProvider returns a Provider backed by sigs.k8s.io/kind.
func NewProvider() Provider {
	return &kindProvider{provider: cluster.NewProvider()}
}

func (p *kindProvider) Create(name string, cfg *v1alpha4.Cluster, network string, wait time.Duration) error {
	// Keep the user's default kubeconfig untouched.
	dir, err := os.MkdirTemp("", "testbench-kind-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	// Clusters on the same network are created concurrently.
	if network != "" {
		if err := dockerNetwork.acquire(network); err != nil {
			return err
		}
		defer dockerNetwork.release()
	}

	return p.provider.Create(name,
		cluster.CreateWithV1Alpha4Config(cfg),
		cluster.CreateWithKubeconfigPath(filepath.Join(dir, "kubeconfig")),
		cluster.CreateWithWaitForReady(wait),
		cluster.CreateWithDisplayUsage(false),
		cluster.CreateWithDisplaySalutation(false),
	)
}

func (p *kindProvider) KubeConfig(name string) (string, error) {
	return p.provider.KubeConfig(name, false)
}

func (p *kindProvider) Delete(name string) error {
	dir, err := os.MkdirTemp("", "testbench-kind-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	return p.provider.Delete(name, filepath.Join(dir, "kubeconfig"))
}

func (p *kindProvider) NodeNames(name string) ([]string, error) {
	nodes, err := p.provider.ListNodes(name)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.String())
	}
	return names, nil
}
