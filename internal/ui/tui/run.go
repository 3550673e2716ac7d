package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
)

// RunFunc performs a run, reporting through observer.
type RunFunc func(ctx context.Context, observer provisioning.Observer) (*orchestration.Summary, error)

// Run shows the progress view while fn executes. Events also reach next,
// which may be nil. Quitting the view cancels the context handed to fn, and
// Run still waits for fn to return.
func Run(ctx context.Context, title string, next provisioning.Observer, fn RunFunc, opts ...tea.ProgramOption) (*orchestration.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewRunModel(title), opts...)

	type result struct {
		summary *orchestration.Summary
		err     error
	}
	done := make(chan result, 1)

	go func() {
		summary, err := fn(ctx, &programObserver{send: p.Send, next: next})
		done <- result{summary: summary, err: err}
		p.Send(DoneMsg{Summary: summary})
	}()

	finalModel, err := p.Run()
	if err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	if fm, ok := finalModel.(Model); ok && fm.Cancelled {
		cancel()
	}

	r := <-done
	return r.summary, r.err
}

// programObserver forwards events to the running program.
type programObserver struct {
	send func(tea.Msg)
	next provisioning.Observer
}

// Printf implements provisioning.Logger.
func (o *programObserver) Printf(format string, v ...interface{}) {
	if o.next != nil {
		o.next.Printf(format, v...)
	}
}

// Event implements provisioning.Observer.
func (o *programObserver) Event(event provisioning.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	o.send(EventMsg{Event: event})
	if o.next != nil {
		o.next.Event(event)
	}
}

// WithFields implements provisioning.Observer.
func (o *programObserver) WithFields(fields map[string]string) provisioning.Observer {
	var next provisioning.Observer
	if o.next != nil {
		next = o.next.WithFields(fields)
	}
	return &programObserver{send: o.send, next: next}
}
