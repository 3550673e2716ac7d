package cni

import (
	"context"
	"time"

	"github.com/imamik/testbench/internal/provisioning"
)

// Tags of the plugins a runtime ships with.
const (
	Flannel = "flannel"
	Kindnet = "kindnet"
)

// Builtin is the variant for a plugin the runtime already installed while
// creating the cluster. Install and WaitReady always succeed immediately.
type Builtin struct {
	tag string
}

var _ provisioning.NetworkPlugin = (*Builtin)(nil)

// NewBuiltin creates a no-op plugin answering to tag.
func NewBuiltin(tag string) *Builtin {
	return &Builtin{tag: tag}
}

func (b *Builtin) Name() string { return b.tag }

func (b *Builtin) Install(context.Context, *provisioning.Handle, string, string) error {
	return nil
}

func (b *Builtin) WaitReady(context.Context, *provisioning.Handle, time.Duration) error {
	return nil
}
