package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/testbench/cmd/testbench/handlers"
)

// Up returns the command that provisions a topology.
//
// Flags:
//
//	--config, -c: Path to topology file
//	--workers, -w: Maximum concurrent capability calls (0 = one per entity)
//	--out: Directory for kubeconfigs and registry proxy state
//	--s3-bucket, --s3-prefix: Also upload kubeconfigs to S3
//	--metrics-file: Write run metrics in Prometheus text format
//	--json: Print the run summary as JSON
func Up(logOpts *handlers.LogOptions) *cobra.Command {
	opts := handlers.UpOptions{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create clusters, install plugins and tools, peer clusters",
		Long: `Provision every cluster of the topology on a shared docker network.

Each cluster is created by its runtime and then receives its network plugin.
Clusters are provisioned concurrently; a failing cluster does not stop the
others. Once every cluster sub-pipeline has finished, cross-cluster tools are
installed into the ready clusters and the requested peerings are established.

Nothing is rolled back. Use 'testbench down' to remove what was created.

Press Ctrl-C to stop dispatching new work. Calls already running finish
under their own timeout and the summary still reports every entity.

Examples:
  # Provision testbench.yaml from the current directory
  testbench up

  # Two workers, kubeconfigs also in S3, metrics for node-exporter
  testbench up -c mesh.yaml -w 2 --s3-bucket ci-kubeconfigs \
    --metrics-file /var/lib/node_exporter/testbench.prom`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), *logOpts, opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Maximum concurrent capability calls (0 = one per entity)")
	cmd.Flags().StringVar(&opts.OutDir, "out", "out", "Directory for kubeconfigs and registry proxy state")
	cmd.Flags().StringVar(&opts.S3Bucket, "s3-bucket", "", "Also upload kubeconfigs to this S3 bucket (TESTBENCH_S3_* configure the endpoint)")
	cmd.Flags().StringVar(&opts.S3Prefix, "s3-prefix", "", "Key prefix for uploaded kubeconfigs")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the run summary as JSON")

	return cmd
}
