package fake

import (
	"context"
	"sync"
	"time"

	"github.com/imamik/testbench/internal/provisioning"
)

// Plugin is a NetworkPlugin that records installs.
type Plugin struct {
	Tag string

	InstallErr error
	ReadyErr   error

	mu       sync.Mutex
	installs []string
	waits    []string
}

var _ provisioning.NetworkPlugin = (*Plugin)(nil)

// NewPlugin creates a fake plugin that always succeeds.
func NewPlugin(tag string) *Plugin {
	return &Plugin{Tag: tag}
}

func (p *Plugin) Name() string { return p.Tag }

func (p *Plugin) Install(_ context.Context, h *provisioning.Handle, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installs = append(p.installs, h.Name)
	return p.InstallErr
}

func (p *Plugin) WaitReady(_ context.Context, h *provisioning.Handle, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, h.Name)
	return p.ReadyErr
}

// Installs returns the clusters Install was called for.
func (p *Plugin) Installs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.installs...)
}

// Waits returns the clusters WaitReady was called for.
func (p *Plugin) Waits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.waits...)
}
