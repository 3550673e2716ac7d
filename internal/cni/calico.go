package cni

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/yaml"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/k8s"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/util/retry"
)

const (
	// Calico is the tag of the calico plugin.
	Calico = "calico"

	DefaultCalicoVersion = "3.30.3"
	calicoManifestsURL   = "https://raw.githubusercontent.com/projectcalico/calico"

	calicoNamespace = "calico-system"
	calicoDaemonSet = "calico-node"

	fieldManager = "testbench"
)

// CalicoPlugin installs calico through the tigera operator.
type CalicoPlugin struct {
	Version string

	// BaseURL hosts the release manifests under v{Version}/manifests/.
	BaseURL string

	HTTP         *http.Client
	NewClient    k8s.Factory
	Timeouts     *config.Timeouts
	Log          logr.Logger
	RetryBackoff time.Duration

	// CRDTimeout bounds how long the operator's custom resources may take to
	// become servable after the CRDs were applied.
	CRDTimeout time.Duration
}

var _ provisioning.NetworkPlugin = (*CalicoPlugin)(nil)

// NewCalico creates the calico plugin with its default version.
func NewCalico(timeouts *config.Timeouts, log logr.Logger) *CalicoPlugin {
	return &CalicoPlugin{
		Version:      DefaultCalicoVersion,
		BaseURL:      calicoManifestsURL,
		HTTP:         &http.Client{Timeout: 2 * time.Minute},
		NewClient:    k8s.NewFromKubeconfig,
		Timeouts:     timeouts,
		Log:          log,
		RetryBackoff: 2 * time.Second,
		CRDTimeout:   2 * time.Minute,
	}
}

func (c *CalicoPlugin) Name() string { return Calico }

// Install applies the operator CRDs and the operator, then the resources
// that make the operator roll out calico with podCIDR as its IP pool.
func (c *CalicoPlugin) Install(ctx context.Context, h *provisioning.Handle, podCIDR, _ string) error {
	client, err := c.NewClient(h.Kubeconfig)
	if err != nil {
		return err
	}

	for _, manifest := range []string{"operator-crds.yaml", "tigera-operator.yaml"} {
		data, err := c.fetchManifest(ctx, manifest)
		if err != nil {
			return err
		}
		c.Log.V(1).Info("applying calico manifest", "cluster", h.Name, "manifest", manifest)
		if err := client.ApplyManifests(ctx, data, fieldManager); err != nil {
			return fmt.Errorf("failed to apply %s: %w", manifest, err)
		}
	}

	resources, err := calicoResources(podCIDR)
	if err != nil {
		return err
	}

	// The CRDs were just created; discovery catches up asynchronously.
	var lastErr error
	err = wait.PollUntilContextTimeout(ctx, c.pollInterval(), c.CRDTimeout, true, func(ctx context.Context) (bool, error) {
		if err := client.RefreshDiscovery(ctx); err != nil {
			lastErr = err
			return false, nil
		}
		if err := client.ApplyManifests(ctx, resources, fieldManager); err != nil {
			lastErr = err
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		return fmt.Errorf("failed to apply calico resources: %w", err)
	}

	return nil
}

// WaitReady waits until the calico-node DaemonSet is ready on every node.
func (c *CalicoPlugin) WaitReady(ctx context.Context, h *provisioning.Handle, timeout time.Duration) error {
	client, err := c.NewClient(h.Kubeconfig)
	if err != nil {
		return err
	}
	return client.WaitForDaemonSet(ctx, calicoNamespace, calicoDaemonSet, c.pollInterval(), timeout)
}

func (c *CalicoPlugin) pollInterval() time.Duration {
	if c.Timeouts == nil || c.Timeouts.PollInterval < config.MinPollInterval {
		return config.MinPollInterval
	}
	return c.Timeouts.PollInterval
}

func (c *CalicoPlugin) fetchAttempts() int {
	if c.Timeouts == nil {
		return 3
	}
	return c.Timeouts.ManifestFetch
}

// fetchManifest downloads one release manifest. Client errors are not retried.
func (c *CalicoPlugin) fetchManifest(ctx context.Context, name string) ([]byte, error) {
	url := fmt.Sprintf("%s/v%s/manifests/%s", strings.TrimSuffix(c.BaseURL, "/"), c.Version, name)

	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Fatal(err)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Fatal(fmt.Errorf("GET %s: %s", url, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: %s", url, resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	},
		retry.WithAttempts(c.fetchAttempts()),
		retry.WithInitialDelay(c.RetryBackoff),
		retry.WithOnRetry(func(attempt int, err error) {
			c.Log.Info("retrying manifest download", "url", url, "attempt", attempt, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}

	return body, nil
}

// calicoResources renders the operator custom resources. Liqo interfaces
// are excluded from node address autodetection.
func calicoResources(podCIDR string) ([]byte, error) {
	resources := []map[string]interface{}{
		{
			"apiVersion": "operator.tigera.io/v1",
			"kind":       "Installation",
			"metadata":   map[string]interface{}{"name": "default"},
			"spec": map[string]interface{}{
				"calicoNetwork": map[string]interface{}{
					"nodeAddressAutodetectionV4": map[string]interface{}{
						"skipInterface": "liqo.*",
					},
					"ipPools": []interface{}{
						map[string]interface{}{
							"name":          "default-ipv4-ippool",
							"blockSize":     26,
							"cidr":          podCIDR,
							"encapsulation": "VXLAN",
							"natOutgoing":   "Enabled",
							"nodeSelector":  "all()",
						},
					},
				},
			},
		},
		{
			"apiVersion": "operator.tigera.io/v1",
			"kind":       "APIServer",
			"metadata":   map[string]interface{}{"name": "default"},
			"spec":       map[string]interface{}{},
		},
		{
			"apiVersion": "operator.tigera.io/v1",
			"kind":       "Goldmane",
			"metadata":   map[string]interface{}{"name": "default"},
		},
		{
			"apiVersion": "operator.tigera.io/v1",
			"kind":       "Whisker",
			"metadata":   map[string]interface{}{"name": "default"},
		},
	}

	docs := make([]string, 0, len(resources))
	for _, r := range resources {
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", r["kind"], err)
		}
		docs = append(docs, string(data))
	}
	return []byte(strings.Join(docs, "---\n")), nil
}
