package handlers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/imamik/testbench/internal/artifacts"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/provisioning/fake"
	"github.com/imamik/testbench/internal/registry"
	"github.com/imamik/testbench/internal/util/prerequisites"
)

const testTopology = `
defaults:
  runtime: k3d
  cni: calico
clusters:
  - name: a
  - name: b
    cluster_cidr: 10.201.0.0/16
tools:
  liqo:
    installations:
      - cluster: a
      - cluster: b
    peerings:
      - [a, b]
`

// captureOutput returns what f writes to stdout.
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func topologyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultTopologyFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type nopNetwork struct{ removed int }

func (n *nopNetwork) Ensure(_ context.Context, spec config.NetworkSpec) (provisioning.NetworkRef, error) {
	return provisioning.NetworkRef{Name: spec.Name}, nil
}

func (n *nopNetwork) Remove(context.Context, config.NetworkSpec) error {
	n.removed++
	return nil
}

type fakes struct {
	runtime *fake.Runtime
	tool    *fake.Tool
	network *nopNetwork
}

// useFakes replaces every external collaborator with in-memory fakes for
// the duration of the test.
func useFakes(t *testing.T) *fakes {
	t.Helper()

	f := &fakes{
		runtime: fake.NewRuntime("k3d"),
		tool:    fake.NewTool("liqo"),
		network: &nopNetwork{},
	}

	origResolver, origNetwork, origS3, origCheck, origStderr := newResolver, newNetworkManager, newS3Sink, checkTools, stderr
	origProgress := progressView
	t.Cleanup(func() {
		newResolver, newNetworkManager, newS3Sink, checkTools, stderr = origResolver, origNetwork, origS3, origCheck, origStderr
		progressView = origProgress
	})

	newResolver = func(*config.Timeouts, logr.Logger) orchestration.Resolver {
		reg := registry.New()
		reg.RegisterRuntime("k3d", func() provisioning.ClusterRuntime { return f.runtime })
		reg.RegisterPlugin("calico", func() provisioning.NetworkPlugin { return fake.NewPlugin("calico") })
		reg.RegisterTool("liqo", func() provisioning.Tool { return f.tool })
		return reg
	}
	newNetworkManager = func(string, logr.Logger) orchestration.NetworkManager { return f.network }
	newS3Sink = func(context.Context, artifacts.S3Options) (artifacts.Sink, error) {
		return artifacts.NewFileSink(t.TempDir()), nil
	}
	checkTools = func([]prerequisites.Tool) error { return nil }
	stderr = io.Discard
	progressView = func() bool { return false }

	return f
}
