package registry

import (
	"github.com/go-logr/logr"

	"github.com/imamik/testbench/internal/cni"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/helm"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/runtime/k3d"
	"github.com/imamik/testbench/internal/runtime/kind"
	"github.com/imamik/testbench/internal/tools/liqo"
	"github.com/imamik/testbench/internal/util/shell"
)

// Deps are the shared collaborators of the built-in variants.
type Deps struct {
	Runner   shell.Runner
	Kind     kind.Provider
	Helm     helm.Installer
	Timeouts *config.Timeouts
	Log      logr.Logger
}

// DefaultDeps wires the real process runner, kind provider and helm client.
func DefaultDeps(timeouts *config.Timeouts, log logr.Logger) Deps {
	return Deps{
		Runner:   shell.NewExecRunner(log.WithName("exec")),
		Kind:     kind.NewProvider(),
		Helm:     helm.NewClient(log.WithName("helm")),
		Timeouts: timeouts,
		Log:      log,
	}
}

// Builtin registers every variant testbench ships with.
func Builtin(deps Deps) *Registry {
	r := New()

	r.RegisterRuntime(k3d.Name, func() provisioning.ClusterRuntime {
		return k3d.New(deps.Runner, deps.Timeouts, deps.Log)
	})
	r.RegisterRuntime(kind.Name, func() provisioning.ClusterRuntime {
		return kind.New(deps.Kind, deps.Runner, deps.Timeouts, deps.Log)
	})

	r.RegisterPlugin(cni.Calico, func() provisioning.NetworkPlugin {
		return cni.NewCalico(deps.Timeouts, deps.Log.WithName(cni.Calico))
	})
	r.RegisterPlugin(cni.Cilium, func() provisioning.NetworkPlugin {
		return cni.NewCilium(deps.Helm, deps.Timeouts)
	})
	r.RegisterPlugin(cni.Flannel, func() provisioning.NetworkPlugin { return cni.NewBuiltin(cni.Flannel) })
	r.RegisterPlugin(cni.Kindnet, func() provisioning.NetworkPlugin { return cni.NewBuiltin(cni.Kindnet) })

	r.RegisterTool(liqo.Name, func() provisioning.Tool {
		return liqo.New(deps.Runner, deps.Log)
	})

	return r
}
