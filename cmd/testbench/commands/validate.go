package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/testbench/cmd/testbench/handlers"
)

// Validate returns the command that checks a topology without side effects.
func Validate() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a topology and resolve its capabilities",
		Long: `Parse the topology, merge defaults, validate it and resolve every runtime,
network plugin and tool tag. Nothing is created.

Reports unknown tags, plugins a runtime cannot host, duplicate names,
overlapping CIDRs and tool references to undeclared clusters.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Validate(configPath, jsonOutput)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the resolved topology as JSON")

	return cmd
}
