package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
	"github.com/imamik/testbench/internal/ui/tui"
	"github.com/imamik/testbench/internal/util/prerequisites"
)

// Progress view hooks - can be replaced in tests.
var (
	// progressView reports whether up shows the live progress view.
	progressView = isInteractiveTTY

	runWithProgress = func(ctx context.Context, title string, next provisioning.Observer, fn tui.RunFunc) (*orchestration.Summary, error) {
		return tui.Run(ctx, title, next, fn)
	}
)

// UpOptions are the flags of the up command.
type UpOptions struct {
	ConfigPath  string
	Workers     int
	OutDir      string
	S3Bucket    string
	S3Prefix    string
	MetricsFile string
	JSON        bool
}

// Up handles the up command.
//
// It loads the topology, checks the required binaries, runs the
// orchestrator and prints the summary. The returned error is non-nil when
// the run did not reach Done or any entity failed.
func Up(ctx context.Context, logOpts LogOptions, opts UpOptions) error {
	live := !opts.JSON && progressView()
	logOpts.quiet = live

	log, closer := newLogger(logOpts)
	defer func() { _ = closer.Close() }()

	topo, err := loadTopology(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err := checkTools(prerequisites.ForCapabilities(capabilityTags(topo)...)); err != nil {
		return fmt.Errorf("prerequisite check failed: %w", err)
	}

	sink, err := newSink(ctx, opts.OutDir, opts.S3Bucket, opts.S3Prefix)
	if err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	orch := orchestration.New(
		newResolver(timeouts, log),
		newNetworkManager(opts.OutDir, log),
		sink,
		provisioning.NewLogObserver(log.WithName("run")),
	)
	orch.Workers = opts.Workers
	orch.Timeouts = timeouts
	if opts.MetricsFile != "" {
		orch.Metrics = orchestration.NewMetrics()
	}

	log.Info("Starting run", "clusters", len(topo.Clusters), "network", topo.Network.Name, "workers", opts.Workers)
	var summary *orchestration.Summary
	var runErr error
	if live {
		summary, runErr = runWithProgress(ctx, topo.Network.Name, orch.Observer,
			func(ctx context.Context, observer provisioning.Observer) (*orchestration.Summary, error) {
				orch.Observer = observer
				return orch.Run(ctx, topo)
			})
	} else {
		summary, runErr = orch.Run(ctx, topo)
	}
	if summary == nil {
		return runErr
	}

	if opts.JSON {
		if err := printSummaryJSON(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprint(os.Stdout, renderSummary(summary))
	}

	if orch.Metrics != nil {
		if err := orch.Metrics.WriteTextfile(opts.MetricsFile); err != nil {
			log.Error(err, "Failed to write metrics", "path", opts.MetricsFile)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run ended in %s: %w", summary.Stage, runErr)
	}
	if failures := summary.Failures(); len(failures) > 0 {
		return fmt.Errorf("run finished with %d failed entities", len(failures))
	}
	return nil
}
