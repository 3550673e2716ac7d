package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/testbench/cmd/testbench/handlers"
)

// Doctor returns the command that checks for the external binaries a
// topology needs.
func Doctor() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the required tools are installed",
		Long: `Check that docker and the binaries used by the topology's runtimes and
tools (k3d, liqoctl) are on PATH. Without a topology file every known
binary is checked.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Doctor(configPath)
		},
	}

	addConfigFlag(cmd, &configPath)

	return cmd
}
