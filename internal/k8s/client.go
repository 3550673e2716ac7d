package k8s

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// Client is what capabilities need from a freshly created cluster.
type Client interface {
	// ApplyManifests server-side applies a multi-document YAML stream as
	// fieldManager.
	ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error

	// RefreshDiscovery drops cached API discovery so CRDs installed since
	// the client was built become mappable.
	RefreshDiscovery(ctx context.Context) error

	// DaemonSetReady reports whether every scheduled pod of a DaemonSet is
	// ready and available. A missing DaemonSet is not ready, not an error.
	DaemonSetReady(ctx context.Context, namespace, name string) (bool, error)

	// WaitForDaemonSet polls DaemonSetReady every interval until it holds or
	// timeout elapses.
	WaitForDaemonSet(ctx context.Context, namespace, name string, interval, timeout time.Duration) error

	// ControlPlaneInternalIP returns the InternalIP of the first control-plane node.
	ControlPlaneInternalIP(ctx context.Context) (string, error)
}

// Factory builds a Client from a cluster's kubeconfig.
type Factory func(kubeconfig []byte) (Client, error)

type client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper

	// nil for clients built from fakes
	discovery discovery.CachedDiscoveryInterface
	reset     func()
}

// NewFromKubeconfig connects to the cluster described by kubeconfig.
// Discovery is lazy and cached in memory.
func NewFromKubeconfig(kubeconfig []byte) (Client, error) {
	cfg, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("invalid kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("clientset: %w", err)
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamic client: %w", err)
	}

	cached := memory.NewMemCacheClient(clientset.Discovery())
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(cached)

	return &client{
		clientset:     clientset,
		dynamicClient: dyn,
		mapper:        mapper,
		discovery:     cached,
		reset:         mapper.Reset,
	}, nil
}

// NewFromClients wraps existing clients, typically fakes in tests.
// RefreshDiscovery is a no-op on the result.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) Client {
	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
	}
}

func (c *client) RefreshDiscovery(_ context.Context) error {
	if c.discovery == nil {
		return nil
	}
	c.discovery.Invalidate()
	c.reset()
	return nil
}
