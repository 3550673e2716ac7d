package handlers

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/testbench/internal/artifacts"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/network"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/registry"
	"github.com/imamik/testbench/internal/util/prerequisites"
	"github.com/imamik/testbench/internal/util/shell"
)

// Factory function variables - can be replaced in tests.
var (
	// newResolver creates the capability registry.
	newResolver = func(timeouts *config.Timeouts, log logr.Logger) orchestration.Resolver {
		return registry.Builtin(registry.DefaultDeps(timeouts, log))
	}

	// newNetworkManager creates the isolation network manager.
	newNetworkManager = func(stateDir string, log logr.Logger) orchestration.NetworkManager {
		return network.NewManager(shell.NewExecRunner(log.WithName("exec")), stateDir, log.WithName("network"))
	}

	// newS3Sink creates the optional S3 artifact sink.
	newS3Sink = func(ctx context.Context, opts artifacts.S3Options) (artifacts.Sink, error) {
		return artifacts.NewS3Sink(ctx, opts)
	}

	// checkTools verifies the binaries a topology needs are installed.
	checkTools = func(tools []prerequisites.Tool) error {
		return prerequisites.Check(tools).Error()
	}
)

// loadTopology loads the topology at path, or the nearest testbench.yaml
// when path is empty.
func loadTopology(path string) (*config.Topology, error) {
	if path == "" {
		found, err := config.FindTopologyFile()
		if err != nil {
			return nil, err
		}
		path = found
	}

	topo, err := config.LoadTopology(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load topology %s: %w", path, err)
	}
	return topo, nil
}

// capabilityTags lists the runtime and tool tags used by topo, for the
// prerequisite check.
func capabilityTags(topo *config.Topology) []string {
	var tags []string
	for _, c := range topo.Clusters {
		tags = append(tags, c.Runtime)
	}
	return append(tags, topo.ToolNames()...)
}

// newSink writes kubeconfigs to outDir and, when bucket is set, to S3.
func newSink(ctx context.Context, outDir, bucket, prefix string) (artifacts.Sink, error) {
	file := artifacts.NewFileSink(outDir)
	if bucket == "" {
		return file, nil
	}

	s3Sink, err := newS3Sink(ctx, artifacts.S3OptionsFromEnv(bucket, prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 upload: %w", err)
	}
	return artifacts.MultiSink{file, s3Sink}, nil
}
