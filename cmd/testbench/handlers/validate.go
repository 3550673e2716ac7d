package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
)

// resolvedCluster is one line of the validate output.
type resolvedCluster struct {
	Name        string `json:"name"`
	Runtime     string `json:"runtime"`
	CNI         string `json:"cni"`
	Nodes       int    `json:"nodes"`
	PodCIDR     string `json:"podCIDR"`
	ServiceCIDR string `json:"serviceCIDR"`
	Image       string `json:"image,omitempty"`
}

type resolvedTopology struct {
	Network  config.NetworkSpec         `json:"network"`
	Clusters []resolvedCluster          `json:"clusters"`
	Tools    map[string]config.ToolSpec `json:"tools,omitempty"`
}

// Validate handles the validate command. It loads and resolves the
// topology without creating anything.
func Validate(configPath string, jsonOutput bool) error {
	topo, err := loadTopology(configPath)
	if err != nil {
		return err
	}

	if _, err := orchestration.Resolve(topo, newResolver(config.LoadTimeouts(), logr.Discard())); err != nil {
		return err
	}

	out := resolvedTopology{Network: topo.Network, Tools: topo.Tools}
	for _, c := range topo.Clusters {
		out.Clusters = append(out.Clusters, resolvedCluster(c))
	}

	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal topology: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	fmt.Fprint(os.Stdout, renderTopology(out))
	return nil
}

func renderTopology(t resolvedTopology) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Topology is valid"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Network: %s", t.Network.Name)
	if t.Network.RegistryProxy {
		b.WriteString(dimStyle.Render(" (registry proxy)"))
	}
	b.WriteString("\n\n")

	for _, c := range t.Clusters {
		fmt.Fprintf(&b, "  %-20s %-5s %-8s nodes=%d pods=%s services=%s\n",
			c.Name, c.Runtime, c.CNI, c.Nodes, c.PodCIDR, c.ServiceCIDR)
	}

	for _, name := range sortedToolNames(t.Tools) {
		spec := t.Tools[name]
		fmt.Fprintf(&b, "\n  %s: %d installations, %d peerings\n", name, len(spec.Installations), len(spec.Peerings))
	}

	return b.String()
}
