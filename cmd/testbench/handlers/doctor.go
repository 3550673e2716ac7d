package handlers

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/imamik/testbench/internal/util/prerequisites"
)

// Doctor handles the doctor command. With a topology only the binaries it
// needs are checked, otherwise every known binary is.
func Doctor(configPath string) error {
	tools := prerequisites.ForCapabilities("k3d", "kind", "liqo")
	scope := "all runtimes and tools"

	if topo, err := loadTopology(configPath); err == nil {
		tools = prerequisites.ForCapabilities(capabilityTags(topo)...)
		scope = fmt.Sprintf("%d clusters", len(topo.Clusters))
	} else if configPath != "" {
		return err
	}

	results := checkAllTools(tools)
	fmt.Fprint(os.Stdout, renderDoctor(scope, results))
	return results.Error()
}

// checkAllTools is replaced in tests.
var checkAllTools = prerequisites.CheckAll

func renderDoctor(scope string, results *prerequisites.CheckResults) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  testbench doctor"))
	b.WriteString(dimStyle.Render("  (" + scope + ")"))
	b.WriteString("\n")
	section(&b, "Tools")

	for _, r := range results.Results {
		switch {
		case r.Found:
			fmt.Fprintf(&b, "    %s %-10s %s\n", okStyle.Render("✓"), r.Tool.Name, dimStyle.Render(r.Version))
		case r.Tool.Required:
			fmt.Fprintf(&b, "    %s %-10s %s\n", failStyle.Render("✗"), r.Tool.Name, r.Tool.Description)
			b.WriteString(dimStyle.Render("      install: "+r.Tool.InstallURL) + "\n")
		default:
			fmt.Fprintf(&b, "    %s %-10s %s\n", warnStyle.Render("-"), r.Tool.Name, dimStyle.Render("optional, "+r.Tool.Description))
		}
	}

	b.WriteString("\n")
	return b.String()
}

// isInteractiveTTY reports whether stdout is a terminal.
func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
