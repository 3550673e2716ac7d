package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/ui/tui"
	"github.com/imamik/testbench/internal/util/prerequisites"
)

func TestUp_Success(t *testing.T) {
	f := useFakes(t)
	out := t.TempDir()
	metrics := filepath.Join(out, "run.prom")

	var err error
	output := captureOutput(func() {
		err = Up(context.Background(), LogOptions{}, UpOptions{
			ConfigPath:  topologyFile(t, testTopology),
			OutDir:      out,
			MetricsFile: metrics,
		})
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Done")
	assert.Contains(t, output, "liqo/a<->b")
	assert.ElementsMatch(t, []string{"a", "b"}, f.runtime.Created())
	assert.Equal(t, [][2]string{{"a", "b"}}, f.tool.Peers())

	assert.FileExists(t, filepath.Join(out, "kubeconfigs", "a.yaml"))
	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "testbench_run_succeeded 1")
}

func TestUp_ProgressView(t *testing.T) {
	f := useFakes(t)
	progressView = func() bool { return true }

	origRun := runWithProgress
	t.Cleanup(func() { runWithProgress = origRun })

	view := provisioning.NewMockObserver()
	var title string
	runWithProgress = func(ctx context.Context, got string, next provisioning.Observer, fn tui.RunFunc) (*orchestration.Summary, error) {
		title = got
		require.NotNil(t, next)
		return fn(ctx, view)
	}

	var err error
	output := captureOutput(func() {
		err = Up(context.Background(), LogOptions{}, UpOptions{
			ConfigPath: topologyFile(t, testTopology),
			OutDir:     t.TempDir(),
		})
	})

	require.NoError(t, err)
	assert.Equal(t, config.DefaultNetworkName, title)
	assert.Contains(t, output, "Done")
	assert.ElementsMatch(t, []string{"a", "b"}, f.runtime.Created())
	assert.NotEmpty(t, view.EventsOfType(provisioning.EventEntitySucceeded))
}

func TestUp_JSONSkipsProgressView(t *testing.T) {
	useFakes(t)
	progressView = func() bool { return true }

	origRun := runWithProgress
	t.Cleanup(func() { runWithProgress = origRun })
	runWithProgress = func(context.Context, string, provisioning.Observer, tui.RunFunc) (*orchestration.Summary, error) {
		t.Fatal("progress view must not run with --json")
		return nil, nil
	}

	var err error
	captureOutput(func() {
		err = Up(context.Background(), LogOptions{}, UpOptions{
			ConfigPath: topologyFile(t, testTopology),
			OutDir:     t.TempDir(),
			JSON:       true,
		})
	})

	require.NoError(t, err)
}

func TestUp_JSONSummary(t *testing.T) {
	f := useFakes(t)
	f.runtime.CreateErrors["b"] = errors.New("port already allocated")

	var err error
	output := captureOutput(func() {
		err = Up(context.Background(), LogOptions{}, UpOptions{
			ConfigPath: topologyFile(t, testTopology),
			OutDir:     t.TempDir(),
			JSON:       true,
		})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed entities")

	var summary orchestration.Summary
	require.NoError(t, json.Unmarshal([]byte(output), &summary))
	assert.Equal(t, provisioning.StageDone, summary.Stage)
	assert.Len(t, summary.Failures(), 3)
}

func TestUp_PrerequisitesMissing(t *testing.T) {
	f := useFakes(t)
	var checked []string
	checkTools = func(tools []prerequisites.Tool) error {
		for _, tool := range tools {
			checked = append(checked, tool.Name)
		}
		return errors.New("missing required tools: k3d")
	}

	err := Up(context.Background(), LogOptions{}, UpOptions{
		ConfigPath: topologyFile(t, testTopology),
		OutDir:     t.TempDir(),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "prerequisite check failed")
	assert.Equal(t, []string{"docker", "k3d", "liqoctl"}, checked)
	assert.Empty(t, f.runtime.Created())
}

func TestUp_ResolutionFailure(t *testing.T) {
	f := useFakes(t)
	topo := `
clusters:
  - name: a
    runtime: k3d
    cni: weave
`

	err := Up(context.Background(), LogOptions{}, UpOptions{
		ConfigPath: topologyFile(t, topo),
		OutDir:     t.TempDir(),
	})

	require.Error(t, err)
	assert.Equal(t, provisioning.KindUnknownVariant, provisioning.KindOf(err))
	assert.Empty(t, f.runtime.Created())
}

func TestUp_WithS3Bucket(t *testing.T) {
	useFakes(t)

	var err error
	captureOutput(func() {
		err = Up(context.Background(), LogOptions{}, UpOptions{
			ConfigPath: topologyFile(t, testTopology),
			OutDir:     t.TempDir(),
			S3Bucket:   "kubeconfigs",
		})
	})

	require.NoError(t, err)
}

func TestDown(t *testing.T) {
	f := useFakes(t)
	out := t.TempDir()
	kubeconfig := filepath.Join(out, "kubeconfigs", "a.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(kubeconfig), 0o755))
	require.NoError(t, os.WriteFile(kubeconfig, []byte("x"), 0o600))

	err := Down(context.Background(), LogOptions{}, DownOptions{
		ConfigPath: topologyFile(t, testTopology),
		OutDir:     out,
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, f.runtime.Deleted())
	assert.Equal(t, 1, f.network.removed)
	assert.NoFileExists(t, kubeconfig)
}

func TestLoadTopology_NotFound(t *testing.T) {
	_, err := loadTopology(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load topology")
}
