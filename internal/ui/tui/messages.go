// Package tui provides a Bubble Tea progress view for testbench runs.
package tui

import (
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
)

// EventMsg carries one run event.
type EventMsg struct {
	Event provisioning.Event
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run returned.
type DoneMsg struct {
	Summary *orchestration.Summary
}
