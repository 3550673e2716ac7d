package orchestration

import (
	"errors"
	"fmt"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
)

// Resolver looks up capability variants by tag.
type Resolver interface {
	Runtime(tag string) (provisioning.ClusterRuntime, error)
	Plugin(tag string) (provisioning.NetworkPlugin, error)
	Tool(tag string) (provisioning.Tool, error)
}

// Resolve maps every tag in topo to a capability instance and checks that
// each cluster's runtime can host its plugin. It has no side effects. One
// runtime and one tool instance is shared per tag; plugins are per cluster.
// All problems are reported together.
func Resolve(topo *config.Topology, r Resolver) (*provisioning.Plan, error) {
	plan := provisioning.NewPlan()
	runtimes := make(map[string]provisioning.ClusterRuntime)
	var errs []error

	for _, c := range topo.Clusters {
		rt, ok := runtimes[c.Runtime]
		if !ok {
			var err error
			rt, err = r.Runtime(c.Runtime)
			if err != nil {
				errs = append(errs, fmt.Errorf("cluster %s: %w", c.Name, err))
				continue
			}
			runtimes[c.Runtime] = rt
		}
		plan.Runtimes[c.Name] = rt

		plugin, err := r.Plugin(c.CNI)
		if err != nil {
			errs = append(errs, fmt.Errorf("cluster %s: %w", c.Name, err))
			continue
		}
		if !rt.SupportsPlugin(c.CNI) {
			errs = append(errs, provisioning.Errorf(provisioning.KindPreconditionViolation, c.Name,
				"runtime %s does not support network plugin %s", c.Runtime, c.CNI))
			continue
		}
		plan.Plugins[c.Name] = plugin
	}

	for _, tag := range topo.ToolNames() {
		tool, err := r.Tool(tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("tool %s: %w", tag, err))
			continue
		}
		plan.Tools[tag] = tool
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to resolve topology: %w", errors.Join(errs...))
	}
	return plan, nil
}
