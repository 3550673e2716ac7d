package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadTopology reads, merges and validates a topology file.
func LoadTopology(path string) (*Topology, error) {
	// #nosec G304 - path is supplied by the operator on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}

	return LoadTopologyFromBytes(data)
}

// LoadTopologyFromBytes parses, merges and validates a topology document.
func LoadTopologyFromBytes(data []byte) (*Topology, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return Resolve(f)
}

// Parse decodes a topology document without merging or validating it.
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("topology file is empty")
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("topology file is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &f, nil
}

// Resolve merges the defaults block into every cluster and validates the
// result. Merging happens here and nowhere else.
func Resolve(f *File) (*Topology, error) {
	t := &Topology{
		Network:  f.Network,
		Defaults: f.Defaults,
		Clusters: make([]ClusterSpec, 0, len(f.Clusters)),
		Tools:    f.Tools,
	}
	if t.Network.Name == "" {
		t.Network.Name = DefaultNetworkName
	}
	if t.Tools == nil {
		t.Tools = map[string]ToolSpec{}
	}

	for _, c := range f.Clusters {
		t.Clusters = append(t.Clusters, mergeDefaults(c, f.Defaults))
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("topology validation failed: %w", err)
	}

	return t, nil
}

// mergeDefaults resolves a cluster entry: explicit value, then the defaults
// block, then the built-in default.
func mergeDefaults(c ClusterConfig, d ClusterDefaults) ClusterSpec {
	spec := ClusterSpec{
		Name:        c.Name,
		Runtime:     firstNonEmpty(c.Runtime, d.Runtime, DefaultRuntime),
		CNI:         firstNonEmpty(c.CNI, d.CNI, DefaultCNI),
		PodCIDR:     firstNonEmpty(c.PodCIDR, d.PodCIDR, DefaultPodCIDR),
		ServiceCIDR: firstNonEmpty(c.ServiceCIDR, d.ServiceCIDR, DefaultServiceCIDR),
		Image:       firstNonEmpty(c.Image, d.Image),
		Nodes:       DefaultNodes,
	}

	switch {
	case c.Nodes != nil:
		spec.Nodes = *c.Nodes
	case d.Nodes != nil:
		spec.Nodes = *d.Nodes
	}

	return spec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FindTopologyFile looks for DefaultTopologyFilename in the current
// directory and then in each parent directory.
func FindTopologyFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		path := filepath.Join(dir, DefaultTopologyFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("topology file %s not found", DefaultTopologyFilename)
}

// SaveFile writes a topology document to path.
func SaveFile(f *File, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal topology: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write topology file: %w", err)
	}

	return nil
}
