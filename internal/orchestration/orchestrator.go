package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/testbench/internal/artifacts"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
)

// NetworkManager creates and removes the isolation network.
type NetworkManager interface {
	Ensure(ctx context.Context, spec config.NetworkSpec) (provisioning.NetworkRef, error)
	Remove(ctx context.Context, spec config.NetworkSpec) error
}

const reasonCancelled = "run cancelled"

// Orchestrator runs topologies.
type Orchestrator struct {
	Resolver Resolver
	Network  NetworkManager
	Sink     artifacts.Sink
	Observer provisioning.Observer

	// Workers bounds concurrent capability calls. Zero means unbounded.
	Workers int

	// Timeouts overrides the environment derived per-call timeouts.
	Timeouts *config.Timeouts

	// Metrics, when set, records the outcome of every run.
	Metrics *Metrics
}

// New creates an orchestrator.
func New(resolver Resolver, network NetworkManager, sink artifacts.Sink, observer provisioning.Observer) *Orchestrator {
	return &Orchestrator{
		Resolver: resolver,
		Network:  network,
		Sink:     sink,
		Observer: observer,
	}
}

// Run provisions topo. A resolution failure returns a nil summary and
// nothing is created. Otherwise the summary is always returned; the error
// is non-nil when the run ended in PartiallyFailed.
//
// Cancelling ctx stops further dispatch. Calls already running finish under
// their own timeout.
func (o *Orchestrator) Run(ctx context.Context, topo *config.Topology) (*Summary, error) {
	start := time.Now()

	plan, err := Resolve(topo, o.Resolver)
	if err != nil {
		return nil, err
	}

	pctx := provisioning.NewContext(ctx, topo, plan, o.Observer)
	if o.Timeouts != nil {
		pctx.Timeouts = o.Timeouts
	}
	pctx.Workers = o.Workers
	declare(pctx)

	pipeline := provisioning.NewPipeline(
		&networkPhase{manager: o.Network},
		&clustersPhase{sink: o.Sink, metrics: o.Metrics},
		&toolsPhase{},
		&peeringPhase{},
	)

	runErr := pipeline.Run(pctx)
	// A cancellation that left nothing undispatched does not fail the run.
	if runErr == nil && ctx.Err() != nil {
		pctx.State.Finalize(reasonCancelled)
		if pctx.State.SkippedFor(reasonCancelled) > 0 {
			runErr = fmt.Errorf("%s: %w", reasonCancelled, ctx.Err())
		}
	}

	if runErr != nil {
		reason := abortReason(runErr)
		if ctx.Err() != nil {
			reason = reasonCancelled
		}
		pctx.State.Finalize(reason)
		pctx.State.SetStage(provisioning.StagePartiallyFailed)
	} else {
		pctx.State.SetStage(provisioning.StageDone)
	}

	summary := NewSummary(pctx.State, time.Since(start))
	if o.Metrics != nil {
		o.Metrics.Observe(summary)
	}
	return summary, runErr
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return reasonCancelled
	case provisioning.IsKind(err, provisioning.KindNetwork):
		return "isolation network unavailable"
	case errors.Is(err, errNoReadyClusters):
		return errNoReadyClusters.Error()
	default:
		return "run aborted"
	}
}

// declare creates a RunState slot for every entity of the topology, so that
// entities never reached still get an outcome.
func declare(pctx *provisioning.Context) {
	for _, c := range pctx.Topology.Clusters {
		pctx.State.DeclareCluster(c.Name)
	}
	for _, tag := range pctx.Topology.ToolNames() {
		spec := pctx.Topology.Tools[tag]
		for _, inst := range spec.Installations {
			pctx.State.DeclareInstall(provisioning.InstallKey{Tool: tag, Cluster: inst.Cluster}, inst.Version)
		}
		for _, pair := range spec.Peerings {
			pctx.State.DeclarePeering(provisioning.PeeringKey{Tool: tag, Pair: pair})
		}
	}
}

// detached returns a context that survives run cancellation, bounded by
// timeout.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
