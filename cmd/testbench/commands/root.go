// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/testbench/cmd/testbench/handlers"
)

// Root returns the root command for the testbench CLI.
//
// Logging flags are persistent so that every subcommand shares them.
func Root() *cobra.Command {
	var logOpts handlers.LogOptions

	cmd := &cobra.Command{
		Use:           "testbench",
		Short:         "Provision local multi-cluster Kubernetes testbeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&logOpts.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&logOpts.File, "log-file", "", "Also write logs to this file, rotated at 10MB")

	cmd.AddCommand(Up(&logOpts))
	cmd.AddCommand(Down(&logOpts))
	cmd.AddCommand(Validate())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Init())
	cmd.AddCommand(Version())

	return cmd
}

// addConfigFlag binds the topology file flag shared by most commands.
func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", "", "Path to topology file (default: testbench.yaml, searched upwards)")
}
