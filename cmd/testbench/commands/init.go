package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/testbench/cmd/testbench/handlers"
)

// Init returns the command for interactively creating a topology file.
//
// Flags:
//
//	--output, -o: Path to output file (default "testbench.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a topology file",
		Long: `Interactively create a topology file.

The wizard asks for the cluster names, the runtime and network plugin
shared by all clusters, whether to mesh them with liqo and whether to
start a registry pull-through cache. Every cluster gets its own pod and
service CIDR so that the clusters can be peered.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "testbench.yaml", "Output file path")

	return cmd
}
