package helm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

// Chart identifies a chart in a classic (non-OCI) repository.
type Chart struct {
	RepoURL string
	Name    string
	Version string
}

func (c Chart) String() string {
	return fmt.Sprintf("%s/%s@%s", c.RepoURL, c.Name, c.Version)
}

// Release describes one release to install or upgrade.
type Release struct {
	Name      string
	Namespace string
	Chart     Chart
	Values    map[string]interface{}

	// Wait blocks until the release's resources are ready. Plugins that poll
	// readiness themselves leave it off.
	Wait    bool
	Timeout time.Duration
}

// Installer installs releases into the cluster described by kubeconfig.
type Installer interface {
	InstallOrUpgrade(ctx context.Context, kubeconfig []byte, rel Release) error
}

// Client installs releases with the helm SDK.
type Client struct {
	Log logr.Logger
}

var _ Installer = (*Client)(nil)

// NewClient creates a helm client.
func NewClient(log logr.Logger) *Client {
	return &Client{Log: log}
}

// InstallOrUpgrade installs rel, or upgrades it when a release of the same
// name already exists in its namespace.
func (c *Client) InstallOrUpgrade(ctx context.Context, kubeconfig []byte, rel Release) error {
	actionConfig := new(action.Configuration)
	restGetter, err := newKubeconfigGetter(kubeconfig, rel.Namespace)
	if err != nil {
		return fmt.Errorf("invalid kubeconfig: %w", err)
	}
	debug := func(format string, v ...interface{}) {
		c.Log.V(2).Info(fmt.Sprintf(format, v...), "release", rel.Name)
	}
	if err := actionConfig.Init(restGetter, rel.Namespace, "secret", debug); err != nil {
		return fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	ch, err := loadChart(rel.Chart)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(rel.Name); err != nil {
		c.Log.Info("installing helm release", "release", rel.Name, "chart", rel.Chart.String())
		install := action.NewInstall(actionConfig)
		install.ReleaseName = rel.Name
		install.Namespace = rel.Namespace
		install.CreateNamespace = true
		install.Version = rel.Chart.Version
		install.Wait = rel.Wait
		install.Timeout = rel.Timeout
		_, err = install.RunWithContext(ctx, ch, rel.Values)
		return err
	}

	c.Log.Info("upgrading helm release", "release", rel.Name, "chart", rel.Chart.String())
	upgrade := action.NewUpgrade(actionConfig)
	upgrade.Namespace = rel.Namespace
	upgrade.Version = rel.Chart.Version
	upgrade.Wait = rel.Wait
	upgrade.Timeout = rel.Timeout
	upgrade.ReuseValues = false
	_, err = upgrade.RunWithContext(ctx, rel.Name, ch, rel.Values)
	return err
}

func loadChart(ref Chart) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(
		ref.RepoURL,
		ref.Name,
		ref.Version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", ref.Name, ref.RepoURL, err)
	}

	// Clean up the downloaded chart after loading
	defer func() {
		_ = os.Remove(chartPath)
	}()

	return loader.Load(chartPath)
}
