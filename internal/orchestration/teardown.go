package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/async"
)

// artifactRemover is implemented by sinks that can drop a stored artifact.
type artifactRemover interface {
	Remove(cluster string) error
}

// Down deletes every cluster of topo with its runtime, then the isolation
// network. It keeps going past failures and returns them joined.
func (o *Orchestrator) Down(ctx context.Context, topo *config.Topology) error {
	timeouts := o.Timeouts
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}

	var errs []error
	tasks := make([]async.Task, 0, len(topo.Clusters))
	for _, spec := range topo.Clusters {
		rt, err := o.Resolver.Runtime(spec.Runtime)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", spec.Name, err))
			continue
		}
		tasks = append(tasks, async.Task{
			Name: spec.Name,
			Func: func(ctx context.Context) error {
				return o.deleteCluster(ctx, rt, spec.Name, timeouts)
			},
		})
	}
	if err := async.RunParallel(ctx, tasks, o.Workers); err != nil {
		errs = append(errs, err)
	}

	if o.Network != nil {
		if err := o.Network.Remove(ctx, topo.Network); err != nil {
			errs = append(errs, fmt.Errorf("network %s: %w", topo.Network.Name, err))
		} else {
			o.Observer.Printf("Removed network %s", topo.Network.Name)
		}
	}

	return errors.Join(errs...)
}

func (o *Orchestrator) deleteCluster(ctx context.Context, rt provisioning.ClusterRuntime, name string, timeouts *config.Timeouts) error {
	callCtx, cancel := context.WithTimeout(ctx, timeouts.Delete)
	defer cancel()

	if err := rt.Delete(callCtx, name); err != nil {
		provisioning.LogEntityFailed(o.Observer, "teardown", name, err)
		return err
	}

	if remover, ok := o.Sink.(artifactRemover); ok {
		if err := remover.Remove(name); err != nil {
			provisioning.LogWarning(o.Observer, "teardown", name, err.Error())
		}
	}

	o.Observer.Printf("Deleted cluster %s", name)
	return nil
}
