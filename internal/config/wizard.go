package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// WizardResult holds the answers of the init wizard.
type WizardResult struct {
	Clusters      string
	Runtime       string
	CNI           string
	Liqo          bool
	RegistryProxy bool
}

// RunWizard asks for a small topology: a set of clusters sharing one
// runtime and plugin, optionally meshed with liqo.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Clusters: "cluster-a, cluster-b",
		Runtime:  DefaultRuntime,
		CNI:      DefaultCNI,
		Liqo:     true,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster names").
				Description("Comma separated, lowercase DNS labels").
				Value(&result.Clusters).
				Validate(validateClusterList),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Runtime").
				Description("k3d runs k3s in docker, kind runs kubeadm nodes in docker").
				Options(
					huh.NewOption("k3d", "k3d"),
					huh.NewOption("kind", "kind"),
				).
				Value(&result.Runtime),

			huh.NewSelect[string]().
				Title("Network plugin").
				OptionsFunc(func() []huh.Option[string] {
					return cniOptions(result.Runtime)
				}, &result.Runtime).
				Value(&result.CNI),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Install liqo and peer every pair of clusters?").
				Value(&result.Liqo),

			huh.NewConfirm().
				Title("Start a registry pull-through cache?").
				Description("Speeds up repeated runs; images are cached under out/").
				Value(&result.RegistryProxy),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

func cniOptions(runtime string) []huh.Option[string] {
	builtin := "flannel"
	if runtime == "kind" {
		builtin = "kindnet"
	}
	return []huh.Option[string]{
		huh.NewOption("calico", "calico"),
		huh.NewOption("cilium", "cilium"),
		huh.NewOption(builtin+" (runtime default)", builtin),
	}
}

// Names returns the cluster names entered, trimmed and without blanks.
func (r *WizardResult) Names() []string {
	var names []string
	for _, n := range strings.Split(r.Clusters, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// ToFile converts the answers into a topology document. Clusters get
// disjoint pod and service CIDRs so they can be peered.
func (r *WizardResult) ToFile() *File {
	f := &File{
		Network:  NetworkSpec{RegistryProxy: r.RegistryProxy},
		Defaults: ClusterDefaults{Runtime: r.Runtime, CNI: r.CNI},
	}

	names := r.Names()
	for i, name := range names {
		f.Clusters = append(f.Clusters, ClusterConfig{
			Name: name,
			ClusterDefaults: ClusterDefaults{
				PodCIDR:     fmt.Sprintf("10.%d.0.0/16", 200+i),
				ServiceCIDR: fmt.Sprintf("10.%d.0.0/16", 100+i),
			},
		})
	}

	if r.Liqo {
		spec := ToolSpec{}
		for i, a := range names {
			spec.Installations = append(spec.Installations, Installation{Cluster: a})
			for _, b := range names[i+1:] {
				spec.Peerings = append(spec.Peerings, Peering{A: a, B: b})
			}
		}
		f.Tools = map[string]ToolSpec{"liqo": spec}
	}

	return f
}

func validateClusterList(s string) error {
	names := (&WizardResult{Clusters: s}).Names()
	if len(names) == 0 {
		return fmt.Errorf("at least one cluster name is required")
	}
	seen := map[string]bool{}
	for _, n := range names {
		if len(n) > maxClusterNameLength || !clusterNameRegex.MatchString(n) {
			return fmt.Errorf("%q is not a valid cluster name", n)
		}
		if seen[n] {
			return fmt.Errorf("%q is listed twice", n)
		}
		seen[n] = true
	}
	return nil
}
