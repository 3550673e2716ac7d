// Package prerequisites checks that the external binaries a topology shells
// out to are installed.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/testbench/internal/util/shell"
)

// Tool is an external binary testbench may shell out to.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	Description string
	InstallURL  string

	// VersionArgs print a version line. Empty skips the probe.
	VersionArgs []string
}

var (
	docker = Tool{
		Name:        "docker",
		Required:    true,
		Description: "Required for the isolation network, cluster nodes and the registry proxy",
		InstallURL:  "https://docs.docker.com/engine/install/",
		VersionArgs: []string{"--version"},
	}

	kubectl = Tool{
		Name:        "kubectl",
		Description: "Useful for inspecting clusters through the written kubeconfigs",
		InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
		VersionArgs: []string{"version", "--client"},
	}

	// byCapability maps runtime and tool tags to the binary they shell out
	// to. kind runs through its Go library and needs none.
	byCapability = map[string]Tool{
		"k3d": {
			Name:        "k3d",
			Required:    true,
			Description: "Required for clusters with runtime k3d",
			InstallURL:  "https://k3d.io/#installation",
			VersionArgs: []string{"version"},
		},
		"liqo": {
			Name:        "liqoctl",
			Required:    true,
			Description: "Required for installing and peering liqo",
			InstallURL:  "https://docs.liqo.io/en/stable/installation/liqoctl.html",
			VersionArgs: []string{"version", "--client"},
		},
	}
)

// DefaultTools returns the tools every run needs.
func DefaultTools() []Tool {
	return []Tool{docker}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{kubectl}
}

// ForCapabilities returns the default tools plus the binaries needed by the
// given runtime and tool tags, each once.
func ForCapabilities(tags ...string) []Tool {
	tools := DefaultTools()
	for _, tag := range tags {
		tool, ok := byCapability[tag]
		if !ok || slices.ContainsFunc(tools, func(t Tool) bool { return t.Name == tool.Name }) {
			continue
		}
		tools = append(tools, tool)
	}
	return tools
}

// CheckResult is the outcome for a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults holds the outcome for a list of tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors reports whether a required tool is missing.
func (r *CheckResults) HasErrors() bool {
	return slices.ContainsFunc(r.Missing, func(t Tool) bool { return t.Required })
}

// Error lists the missing required tools, or returns nil.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Checker resolves binaries in PATH and probes their version.
type Checker struct {
	LookPath func(file string) (string, error)
	Runner   shell.Runner

	// Timeout bounds each version probe.
	Timeout time.Duration
}

// NewChecker creates a checker on the real PATH.
func NewChecker() *Checker {
	return &Checker{
		LookPath: exec.LookPath,
		Runner:   shell.NewExecRunner(logr.Discard()),
		Timeout:  5 * time.Second,
	}
}

// Check looks up every tool. A failed version probe leaves Version empty.
func (c *Checker) Check(ctx context.Context, tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := c.LookPath(tool.Name)
		if err != nil {
			results.Missing = append(results.Missing, tool)
		} else {
			result.Found = true
			result.Path = path
			result.Version = c.version(ctx, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

func (c *Checker) version(ctx context.Context, tool Tool) string {
	if len(tool.VersionArgs) == 0 || c.Runner == nil {
		return ""
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	out, err := c.Runner.Run(ctx, shell.Command{Name: tool.Name, Args: tool.VersionArgs})
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line)
}

// Check verifies tools on the real PATH.
func Check(tools []Tool) *CheckResults {
	return NewChecker().Check(context.Background(), tools)
}

// CheckAll checks the given tools plus the optional ones.
func CheckAll(tools []Tool) *CheckResults {
	return Check(append(slices.Clone(tools), OptionalTools()...))
}
