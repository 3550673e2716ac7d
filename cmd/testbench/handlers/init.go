package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imamik/testbench/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// interactive reports whether the wizard can prompt.
	interactive = isInteractiveTTY

	// runWizard runs the topology wizard.
	runWizard = config.RunWizard

	// writeTopology writes the topology to a file.
	writeTopology = config.SaveFile
)

// Init runs the topology wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string) error {
	if !interactive() {
		return errors.New("init needs an interactive terminal; write testbench.yaml by hand instead")
	}

	if fileExists(outputPath) {
		fmt.Printf("Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	f := result.ToFile()
	if _, err := config.Resolve(f); err != nil {
		return fmt.Errorf("wizard produced an invalid topology: %w", err)
	}

	if err := writeTopology(f, outputPath); err != nil {
		return fmt.Errorf("failed to write topology: %w", err)
	}

	printInitSuccess(outputPath, f)
	return nil
}

func printInitSuccess(outputPath string, f *config.File) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Topology saved!"))
	fmt.Println()
	fmt.Printf("  File:     %s\n", outputPath)
	fmt.Printf("  Clusters: %d x %s/%s\n", len(f.Clusters), f.Defaults.Runtime, f.Defaults.CNI)
	if liqo, ok := f.Tools["liqo"]; ok {
		fmt.Printf("  Liqo:     %d peerings\n", len(liqo.Peerings))
	}
	fmt.Println()
	fmt.Println(sectionStyle.Render("Next Steps"))
	fmt.Println("  testbench doctor")
	fmt.Println("  testbench up")
	fmt.Println()
}
