package labels

import (
	"sort"
)

// Standard label keys for docker objects.
const (
	// KeyNetwork identifies the isolation network an object belongs to
	KeyNetwork = "testbench.io/network"

	// KeyRole identifies what an object is (network, registry-proxy)
	KeyRole = "testbench.io/role"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "testbench.io/managed-by"

	// KeyTier is the Kubernetes node label carrying the node's position
	// within its cluster.
	KeyTier = "tier"
)

// Role values
const (
	RoleNetwork       = "network"
	RoleRegistryProxy = "registry-proxy"
)

// ManagedByTestbench is the value of KeyManagedBy.
const ManagedByTestbench = "testbench"

// LabelBuilder provides a fluent interface for building docker labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the network name pre-set.
func NewLabelBuilder(network string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyNetwork:   network,
			KeyManagedBy: ManagedByTestbench,
		},
	}
}

// WithRole adds a role label.
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// DockerArgs renders the labels as docker CLI flags in key order.
func (lb *LabelBuilder) DockerArgs() []string {
	keys := make([]string, 0, len(lb.labels))
	for k := range lb.labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, "--label", k+"="+lb.labels[k])
	}
	return args
}

// FilterForNetwork returns a docker --filter value matching every object
// labeled for network.
func FilterForNetwork(network string) string {
	return "label=" + KeyNetwork + "=" + network
}
