package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/testbench/internal/artifacts"
	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
)

// DownOptions are the flags of the down command.
type DownOptions struct {
	ConfigPath string
	OutDir     string
	Workers    int
}

// Down handles the down command.
func Down(ctx context.Context, logOpts LogOptions, opts DownOptions) error {
	log, closer := newLogger(logOpts)
	defer func() { _ = closer.Close() }()

	topo, err := loadTopology(opts.ConfigPath)
	if err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	orch := orchestration.New(
		newResolver(timeouts, log),
		newNetworkManager(opts.OutDir, log),
		artifacts.NewFileSink(opts.OutDir),
		provisioning.NewLogObserver(log.WithName("down")),
	)
	orch.Workers = opts.Workers
	orch.Timeouts = timeouts

	if err := orch.Down(ctx, topo); err != nil {
		return fmt.Errorf("teardown incomplete: %w", err)
	}

	log.Info("Testbed removed", "clusters", len(topo.Clusters), "network", topo.Network.Name)
	return nil
}
