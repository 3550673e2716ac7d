package provisioning

import (
	"context"

	"github.com/imamik/testbench/internal/config"
)

// Plan holds the capability instances resolved for a topology before any
// side effect happens.
type Plan struct {
	// Runtimes and Plugins are keyed by cluster name.
	Runtimes map[string]ClusterRuntime
	Plugins  map[string]NetworkPlugin

	// Tools is keyed by tool tag.
	Tools map[string]Tool
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{
		Runtimes: make(map[string]ClusterRuntime),
		Plugins:  make(map[string]NetworkPlugin),
		Tools:    make(map[string]Tool),
	}
}

// Context wraps all dependencies and state needed by a run phase.
type Context struct {
	context.Context
	Topology *config.Topology
	Plan     *Plan
	State    *RunState
	Observer Observer
	Timeouts *config.Timeouts

	// Network is set once the isolation network exists.
	Network NetworkRef

	// Workers bounds concurrent capability calls. Zero means one worker per entity.
	Workers int
}

// NewContext creates a run context with a fresh RunState and timeouts
// loaded from the environment.
func NewContext(ctx context.Context, topo *config.Topology, plan *Plan, observer Observer) *Context {
	return &Context{
		Context:  ctx,
		Topology: topo,
		Plan:     plan,
		State:    NewRunState(),
		Observer: observer,
		Timeouts: config.LoadTimeouts(),
	}
}

// Dispatchable reports whether new capability calls may still be started.
// Calls already in flight are not affected by run cancellation.
func (c *Context) Dispatchable() bool {
	return c.Err() == nil
}
