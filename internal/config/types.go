package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the topology document as written by the user.
type File struct {
	Network  NetworkSpec         `yaml:"network,omitempty"`
	Defaults ClusterDefaults     `yaml:"defaults,omitempty"`
	Clusters []ClusterConfig     `yaml:"clusters"`
	Tools    map[string]ToolSpec `yaml:"tools,omitempty"`
}

// NetworkSpec configures the isolation network shared by all clusters.
type NetworkSpec struct {
	// Name of the docker network. Defaults to DefaultNetworkName.
	Name string `yaml:"name,omitempty" json:"name"`

	// RegistryProxy starts a pull-through image cache on the network.
	RegistryProxy bool `yaml:"registry_proxy,omitempty" json:"registryProxy"`
}

// ClusterDefaults is a partial cluster spec. Empty fields are inherited.
type ClusterDefaults struct {
	Runtime     string `yaml:"runtime,omitempty"`
	CNI         string `yaml:"cni,omitempty"`
	Nodes       *int   `yaml:"nodes,omitempty"`
	PodCIDR     string `yaml:"cluster_cidr,omitempty"`
	ServiceCIDR string `yaml:"service_cidr,omitempty"`
	Image       string `yaml:"image,omitempty"`
}

// ClusterConfig is one entry of the clusters list.
type ClusterConfig struct {
	Name            string `yaml:"name"`
	ClusterDefaults `yaml:",inline"`
}

// ClusterSpec is a fully resolved cluster declaration.
type ClusterSpec struct {
	Name        string
	Runtime     string
	CNI         string
	Nodes       int
	PodCIDR     string
	ServiceCIDR string

	// Image overrides the runtime's default node image when set.
	Image string
}

// ToolSpec configures one cross-cluster tool. The tool variant is the key
// under which the tool appears in the tools map.
type ToolSpec struct {
	Installations []Installation `yaml:"installations,omitempty" json:"installations,omitempty"`
	Peerings      []Peering      `yaml:"peerings,omitempty" json:"peerings,omitempty"`
}

// Installation targets one cluster with an optional tool version.
type Installation struct {
	Cluster string `yaml:"cluster" json:"cluster"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

// Peering is an unordered pair of cluster names, written as [a, b].
type Peering struct {
	A string
	B string
}

// Normalize returns the pair with its members in lexical order, so that
// (a,b) and (b,a) compare equal.
func (p Peering) Normalize() Peering {
	if p.B < p.A {
		return Peering{A: p.B, B: p.A}
	}
	return p
}

// Involves reports whether the pair names the given cluster.
func (p Peering) Involves(cluster string) bool {
	return p.A == cluster || p.B == cluster
}

func (p Peering) String() string {
	return fmt.Sprintf("%s<->%s", p.A, p.B)
}

// UnmarshalYAML decodes a two element sequence.
func (p *Peering) UnmarshalYAML(value *yaml.Node) error {
	var pair []string
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("peering must be a list of two cluster names: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: peering must name exactly two clusters, got %d", value.Line, len(pair))
	}
	p.A, p.B = pair[0], pair[1]
	return nil
}

// MarshalYAML encodes the pair as a flow sequence.
func (p Peering) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, name := range []string{p.A, p.B} {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name})
	}
	return node, nil
}

// MarshalJSON encodes the pair as a two element array, matching the YAML form.
func (p Peering) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.A, p.B})
}

// UnmarshalJSON decodes a two element array.
func (p *Peering) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("peering must be a list of two cluster names: %w", err)
	}
	p.A, p.B = pair[0], pair[1]
	return nil
}

// Topology is the validated, defaults-merged description of one run.
type Topology struct {
	Network  NetworkSpec
	Defaults ClusterDefaults

	// Clusters keeps declaration order, which is the creation request order.
	Clusters []ClusterSpec
	Tools    map[string]ToolSpec
}

// Cluster looks up a cluster by name.
func (t *Topology) Cluster(name string) (ClusterSpec, bool) {
	for _, c := range t.Clusters {
		if c.Name == name {
			return c, true
		}
	}
	return ClusterSpec{}, false
}

// ClusterNames returns cluster names in declaration order.
func (t *Topology) ClusterNames() []string {
	names := make([]string, 0, len(t.Clusters))
	for _, c := range t.Clusters {
		names = append(names, c.Name)
	}
	return names
}

// ToolNames returns the configured tool variants sorted by name.
func (t *Topology) ToolNames() []string {
	names := make([]string, 0, len(t.Tools))
	for name := range t.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
