package config

import (
	"errors"
	"fmt"
	"regexp"
)

// clusterNameRegex matches names accepted by both k3d and kind: lowercase
// DNS labels, since the name ends up in container and context names.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

const maxClusterNameLength = 32

// Validate checks cross-entity consistency of a resolved topology. All
// problems are reported at once, each prefixed with its location.
func (t *Topology) Validate() error {
	var errs []error

	if len(t.Clusters) == 0 {
		errs = append(errs, errors.New("clusters: at least one cluster is required"))
	}

	seen := make(map[string]int, len(t.Clusters))
	for i, c := range t.Clusters {
		if first, dup := seen[c.Name]; dup && c.Name != "" {
			errs = append(errs, fmt.Errorf("clusters.%d.name: duplicate cluster name %q (first declared at clusters.%d)", i, c.Name, first))
			continue
		}
		seen[c.Name] = i

		for _, err := range c.validate() {
			errs = append(errs, fmt.Errorf("clusters.%d.%w", i, err))
		}
	}

	for _, name := range t.ToolNames() {
		for _, err := range t.Tools[name].validate(seen) {
			errs = append(errs, fmt.Errorf("tools.%s.%w", name, err))
		}
	}

	return errors.Join(errs...)
}

func (c ClusterSpec) validate() []error {
	var errs []error

	switch {
	case c.Name == "":
		errs = append(errs, errors.New("name: is required"))
	case len(c.Name) > maxClusterNameLength:
		errs = append(errs, fmt.Errorf("name: %q is longer than %d characters", c.Name, maxClusterNameLength))
	case !clusterNameRegex.MatchString(c.Name):
		errs = append(errs, fmt.Errorf("name: %q must be lowercase alphanumeric or '-', starting and ending with an alphanumeric character", c.Name))
	}

	if c.Nodes < 1 {
		errs = append(errs, fmt.Errorf("nodes: must be at least 1, got %d", c.Nodes))
	}

	podOK, svcOK := true, true
	if _, err := parseIPv4Prefix(c.PodCIDR); err != nil {
		errs = append(errs, fmt.Errorf("cluster_cidr: %w", err))
		podOK = false
	}
	if _, err := parseIPv4Prefix(c.ServiceCIDR); err != nil {
		errs = append(errs, fmt.Errorf("service_cidr: %w", err))
		svcOK = false
	}
	if podOK && svcOK {
		if overlap, _ := CIDRsOverlap(c.PodCIDR, c.ServiceCIDR); overlap {
			errs = append(errs, fmt.Errorf("service_cidr: %s overlaps cluster_cidr %s", c.ServiceCIDR, c.PodCIDR))
		}
	}

	return errs
}

// validate checks tool references against the declared cluster names.
func (s ToolSpec) validate(clusters map[string]int) []error {
	var errs []error

	targets := make(map[string]bool, len(s.Installations))
	for i, inst := range s.Installations {
		if _, ok := clusters[inst.Cluster]; !ok {
			errs = append(errs, fmt.Errorf("installations.%d.cluster: unknown cluster %q", i, inst.Cluster))
			continue
		}
		if targets[inst.Cluster] {
			errs = append(errs, fmt.Errorf("installations.%d.cluster: cluster %q is already an installation target", i, inst.Cluster))
			continue
		}
		targets[inst.Cluster] = true
	}

	for i, p := range s.Peerings {
		for _, name := range []string{p.A, p.B} {
			if _, ok := clusters[name]; !ok {
				errs = append(errs, fmt.Errorf("peerings.%d: unknown cluster %q", i, name))
			}
		}
		if p.A == p.B {
			errs = append(errs, fmt.Errorf("peerings.%d: cluster %q cannot peer with itself", i, p.A))
		}
	}

	return errs
}
