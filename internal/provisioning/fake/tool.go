package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/testbench/internal/provisioning"
)

// Install records one Tool.Install call.
type Install struct {
	Cluster string
	Version string
}

// Tool is a Tool that tracks installed clusters and enforces the peering
// precondition like a real variant.
type Tool struct {
	Tag string

	// InstallErrors and PeerErrors fail the named cluster or "a<->b" pair.
	InstallErrors map[string]error
	PeerErrors    map[string]error

	// OnPeer, when set, runs at the start of Peer.
	OnPeer func(ctx context.Context, a, b *provisioning.Handle)

	mu        sync.Mutex
	installs  []Install
	installed map[string]bool
	peers     [][2]string
}

var _ provisioning.Tool = (*Tool)(nil)

// NewTool creates a fake tool.
func NewTool(tag string) *Tool {
	return &Tool{
		Tag:           tag,
		InstallErrors: map[string]error{},
		PeerErrors:    map[string]error{},
		installed:     map[string]bool{},
	}
}

func (t *Tool) Name() string { return t.Tag }

func (t *Tool) Install(_ context.Context, h *provisioning.Handle, version string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.installs = append(t.installs, Install{Cluster: h.Name, Version: version})
	if err := t.InstallErrors[h.Name]; err != nil {
		return err
	}
	t.installed[h.Name] = true
	return nil
}

func (t *Tool) Peer(ctx context.Context, a, b *provisioning.Handle) error {
	if t.OnPeer != nil {
		t.OnPeer(ctx, a, b)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, h := range []*provisioning.Handle{a, b} {
		if !t.installed[h.Name] {
			return provisioning.Errorf(provisioning.KindPreconditionViolation, h.Name,
				"%s is not installed in cluster %s", t.Tag, h.Name)
		}
	}
	t.peers = append(t.peers, [2]string{a.Name, b.Name})
	return t.PeerErrors[fmt.Sprintf("%s<->%s", a.Name, b.Name)]
}

// Installs returns every Install call in order.
func (t *Tool) Installs() []Install {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Install(nil), t.installs...)
}

// Peers returns every Peer call as (a, b) in order.
func (t *Tool) Peers() [][2]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][2]string(nil), t.peers...)
}
