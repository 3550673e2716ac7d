package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/testbench/cmd/testbench/handlers"
)

// Down returns the command that removes everything a topology created.
func Down(logOpts *handlers.LogOptions) *cobra.Command {
	opts := handlers.DownOptions{}

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Delete the clusters, registry proxy and network of a topology",
		Long: `Delete every cluster declared in the topology with its runtime, remove
the stored kubeconfigs, the registry proxy and the isolation network.

Down keeps going past failures and reports them together at the end.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Down(cmd.Context(), *logOpts, opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	cmd.Flags().StringVar(&opts.OutDir, "out", "out", "Directory kubeconfigs were written to")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Maximum concurrent deletes (0 = one per cluster)")

	return cmd
}
