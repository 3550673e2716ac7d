package config

// Built-in values used when neither a cluster nor the defaults block sets a field.
const (
	DefaultRuntime     = "k3d"
	DefaultCNI         = "calico"
	DefaultNodes       = 1
	DefaultPodCIDR     = "10.200.0.0/16"
	DefaultServiceCIDR = "10.71.0.0/16"

	// DefaultNetworkName is the docker network every cluster is attached to.
	DefaultNetworkName = "testbench-net"
)

// DefaultTopologyFilename is the topology file looked up when no path is given.
const DefaultTopologyFilename = "testbench.yaml"

// KubeAPIPort is the API server port inside the cluster network.
const KubeAPIPort = 6443
