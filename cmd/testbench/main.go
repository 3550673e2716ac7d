// Package main is the entry point for the testbench CLI.
//
// testbench brings up several local Kubernetes clusters on one docker
// network, installs a network plugin into each and wires them together
// with a cross-cluster tool such as liqo. A run never rolls back: whatever
// could be built stays up for inspection until `testbench down`.
//
// Commands: up, down, validate, doctor, init, version.
//
// For detailed usage information, run:
//
//	testbench --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/testbench/cmd/testbench/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
