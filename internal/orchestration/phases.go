package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/testbench/internal/artifacts"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/async"
)

var errNoReadyClusters = errors.New("no cluster became ready")

// networkPhase creates the isolation network. Its failure ends the run.
type networkPhase struct {
	manager NetworkManager
}

func (p *networkPhase) Name() string { return "network" }

func (p *networkPhase) Provision(ctx *provisioning.Context) error {
	if !ctx.Dispatchable() {
		return fmt.Errorf("%s: %w", reasonCancelled, ctx.Err())
	}

	callCtx, cancel := detached(ctx, ctx.Timeouts.ClusterCreate)
	defer cancel()

	ref, err := p.manager.Ensure(callCtx, ctx.Topology.Network)
	if err != nil {
		return provisioning.Wrap(provisioning.KindNetwork, ctx.Topology.Network.Name, err)
	}

	ctx.Network = ref
	ctx.State.SetStage(provisioning.StageNetworkReady)
	return nil
}

// clustersPhase runs one create-then-plugin sub-pipeline per cluster.
type clustersPhase struct {
	sink    artifacts.Sink
	metrics *Metrics
}

func (p *clustersPhase) Name() string { return "clusters" }

func (p *clustersPhase) Provision(ctx *provisioning.Context) error {
	ctx.State.SetStage(provisioning.StageClustersProvisioning)

	tasks := make([]async.Task, 0, len(ctx.Topology.Clusters))
	for _, spec := range ctx.Topology.Clusters {
		tasks = append(tasks, async.Task{
			Name: spec.Name,
			Func: func(context.Context) error {
				p.provisionCluster(ctx, spec)
				return nil
			},
		})
	}
	_ = async.RunParallel(ctx, tasks, ctx.Workers)

	if len(ctx.State.ReadyClusters()) == 0 {
		return provisioning.NewError(provisioning.KindProvisioning, "", errNoReadyClusters)
	}

	ctx.State.SetStage(provisioning.StageClustersReady)
	return nil
}

func (p *clustersPhase) provisionCluster(ctx *provisioning.Context, spec config.ClusterSpec) {
	const stage = "clusters"
	name := spec.Name

	if !ctx.Dispatchable() {
		ctx.State.SkipCluster(name, reasonCancelled)
		provisioning.LogEntitySkipped(ctx.Observer, stage, name, reasonCancelled)
		return
	}
	if err := ctx.State.BeginCluster(name); err != nil {
		provisioning.LogEntityFailed(ctx.Observer, stage, name, err)
		return
	}

	runtime := ctx.Plan.Runtimes[name]
	plugin := ctx.Plan.Plugins[name]
	start := time.Now()

	provisioning.LogEntityStarted(ctx.Observer, stage, name, "creating cluster with "+runtime.Name())
	createCtx, cancel := detached(ctx, ctx.Timeouts.ClusterCreate)
	h, err := runtime.Create(createCtx, spec, ctx.Network)
	cancel()
	p.metrics.observeCreate(runtime.Name(), time.Since(start), err)
	if err != nil {
		err = provisioning.Wrap(provisioning.KindProvisioning, name, err)
		ctx.State.FailCluster(name, nil, err)
		provisioning.LogEntityFailed(ctx.Observer, stage, name, err)
		return
	}

	p.writeArtifact(ctx, name, h)

	if !ctx.Dispatchable() {
		err := provisioning.NewError(provisioning.KindSkippedDependency, name, errors.New(reasonCancelled))
		ctx.State.FailCluster(name, h, err)
		provisioning.LogEntitySkipped(ctx.Observer, stage, name, reasonCancelled)
		return
	}

	provisioning.LogEntityStarted(ctx.Observer, stage, name, "installing "+plugin.Name())
	pluginCtx, cancel := detached(ctx, ctx.Timeouts.PluginInstall+ctx.Timeouts.PluginReady)
	err = runtime.InstallNetworkPlugin(pluginCtx, h, plugin)
	cancel()
	if err != nil {
		err = provisioning.Wrap(provisioning.KindPluginInstall, name, err)
		ctx.State.FailCluster(name, h, err)
		provisioning.LogEntityFailed(ctx.Observer, stage, name, err)
		return
	}

	ctx.State.CompleteCluster(name, h)
	provisioning.LogEntitySucceeded(ctx.Observer, stage, name, "cluster ready", time.Since(start))
}

// writeArtifact stores the kubeconfig. Failures become warnings.
func (p *clustersPhase) writeArtifact(ctx *provisioning.Context, name string, h *provisioning.Handle) {
	if p.sink == nil {
		return
	}
	loc, err := p.sink.Write(context.WithoutCancel(ctx), name, h.Kubeconfig)
	if loc != "" {
		ctx.State.SetArtifact(name, loc)
	}
	if err != nil {
		msg := fmt.Sprintf("failed to store kubeconfig: %v", err)
		ctx.State.AddClusterWarning(name, msg)
		provisioning.LogWarning(ctx.Observer, "clusters", name, msg)
	}
}

// toolsPhase installs every tool into its Ready target clusters. All
// installs join before the phase ends.
type toolsPhase struct{}

func (p *toolsPhase) Name() string { return "tools" }

func (p *toolsPhase) Provision(ctx *provisioning.Context) error {
	const stage = "tools"
	ctx.State.SetStage(provisioning.StageToolsInstalling)

	var tasks []async.Task
	for _, tag := range ctx.Topology.ToolNames() {
		tool := ctx.Plan.Tools[tag]
		for _, inst := range ctx.Topology.Tools[tag].Installations {
			key := provisioning.InstallKey{Tool: tag, Cluster: inst.Cluster}

			h, ready := ctx.State.ReadyHandle(inst.Cluster)
			if !ready {
				reason := fmt.Sprintf("cluster %s is not ready", inst.Cluster)
				ctx.State.SkipInstall(key, reason)
				provisioning.LogEntitySkipped(ctx.Observer, stage, key.String(), reason)
				continue
			}

			version := inst.Version
			tasks = append(tasks, async.Task{
				Name: key.String(),
				Func: func(context.Context) error {
					installTool(ctx, tool, key, h, version)
					return nil
				},
			})
		}
	}

	_ = async.RunParallel(ctx, tasks, ctx.Workers)
	return nil
}

func installTool(ctx *provisioning.Context, tool provisioning.Tool, key provisioning.InstallKey, h *provisioning.Handle, version string) {
	const stage = "tools"
	entity := key.String()

	if !ctx.Dispatchable() {
		ctx.State.SkipInstall(key, reasonCancelled)
		provisioning.LogEntitySkipped(ctx.Observer, stage, entity, reasonCancelled)
		return
	}
	if err := ctx.State.BeginInstall(key); err != nil {
		provisioning.LogEntityFailed(ctx.Observer, stage, entity, err)
		return
	}

	start := time.Now()
	provisioning.LogEntityStarted(ctx.Observer, stage, entity, "installing "+tool.Name())
	callCtx, cancel := detached(ctx, ctx.Timeouts.ToolInstall)
	err := tool.Install(callCtx, h, version)
	cancel()
	if err != nil {
		err = provisioning.Wrap(provisioning.KindToolInstall, entity, err)
		ctx.State.FailInstall(key, err)
		provisioning.LogEntityFailed(ctx.Observer, stage, entity, err)
		return
	}

	ctx.State.CompleteInstall(key)
	provisioning.LogEntitySucceeded(ctx.Observer, stage, entity, "installed", time.Since(start))
}

// peeringPhase peers pairs whose both sides were installed by the owning
// tool. Peerings run one at a time in declaration order.
type peeringPhase struct{}

func (p *peeringPhase) Name() string { return "peering" }

func (p *peeringPhase) Provision(ctx *provisioning.Context) error {
	const stage = "peering"
	ctx.State.SetStage(provisioning.StagePeering)

	for _, tag := range ctx.Topology.ToolNames() {
		tool := ctx.Plan.Tools[tag]
		seen := make(map[config.Peering]bool)

		for _, pair := range ctx.Topology.Tools[tag].Peerings {
			key := provisioning.PeeringKey{Tool: tag, Pair: pair.Normalize()}
			if seen[key.Pair] {
				continue
			}
			seen[key.Pair] = true
			entity := key.String()

			if missing := notInstalled(ctx, tag, key.Pair); missing != "" {
				reason := fmt.Sprintf("%s is not installed in cluster %s", tag, missing)
				ctx.State.SkipPeering(key, reason)
				provisioning.LogEntitySkipped(ctx.Observer, stage, entity, reason)
				continue
			}
			if !ctx.Dispatchable() {
				ctx.State.SkipPeering(key, reasonCancelled)
				provisioning.LogEntitySkipped(ctx.Observer, stage, entity, reasonCancelled)
				continue
			}
			if err := ctx.State.BeginPeering(key); err != nil {
				provisioning.LogEntityFailed(ctx.Observer, stage, entity, err)
				continue
			}

			a, _ := ctx.State.ReadyHandle(key.Pair.A)
			b, _ := ctx.State.ReadyHandle(key.Pair.B)

			start := time.Now()
			provisioning.LogEntityStarted(ctx.Observer, stage, entity, "peering")
			callCtx, cancel := detached(ctx, ctx.Timeouts.Peering)
			err := tool.Peer(callCtx, a, b)
			cancel()
			if err != nil {
				err = provisioning.Wrap(provisioning.KindPeering, entity, err)
				ctx.State.FailPeering(key, err)
				provisioning.LogEntityFailed(ctx.Observer, stage, entity, err)
				continue
			}

			ctx.State.CompletePeering(key)
			provisioning.LogEntitySucceeded(ctx.Observer, stage, entity, "peered", time.Since(start))
		}
	}

	return nil
}

// notInstalled returns the first side of pair the tool is not installed on.
func notInstalled(ctx *provisioning.Context, tool string, pair config.Peering) string {
	for _, name := range []string{pair.A, pair.B} {
		if ctx.State.InstallStatus(provisioning.InstallKey{Tool: tool, Cluster: name}) != provisioning.Installed {
			return name
		}
	}
	return ""
}
