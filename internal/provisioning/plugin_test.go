package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubPlugin struct {
	installErr error
	readyErr   error
	waited     bool
}

func (p *stubPlugin) Name() string { return "stub" }

func (p *stubPlugin) Install(_ context.Context, _ *Handle, _, _ string) error {
	return p.installErr
}

func (p *stubPlugin) WaitReady(_ context.Context, _ *Handle, _ time.Duration) error {
	p.waited = true
	return p.readyErr
}

func TestInstallPlugin(t *testing.T) {
	t.Parallel()
	h := &Handle{Name: "a", PodCIDR: "10.200.0.0/16", ServiceCIDR: "10.71.0.0/16"}

	tests := []struct {
		name     string
		plugin   *stubPlugin
		wantKind Kind
		waited   bool
	}{
		{name: "success", plugin: &stubPlugin{}, waited: true},
		{name: "install fails", plugin: &stubPlugin{installErr: errors.New("apply failed")}, wantKind: KindPluginInstall},
		{name: "never ready", plugin: &stubPlugin{readyErr: context.DeadlineExceeded}, wantKind: KindReadinessTimeout, waited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := InstallPlugin(context.Background(), h, tt.plugin, time.Second)
			if tt.wantKind == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantKind, KindOf(err))
			}
			assert.Equal(t, tt.waited, tt.plugin.waited)
		})
	}
}
