package provisioning

import (
	"context"
	"fmt"
	"time"
)

// InstallPlugin runs Install followed by WaitReady and classifies failures,
// keeping "install failed" and "never became ready" apart. Runtimes use it
// to implement InstallNetworkPlugin.
func InstallPlugin(ctx context.Context, h *Handle, plugin NetworkPlugin, readyTimeout time.Duration) error {
	if err := plugin.Install(ctx, h, h.PodCIDR, h.ServiceCIDR); err != nil {
		return Wrap(KindPluginInstall, h.Name, fmt.Errorf("failed to install %s: %w", plugin.Name(), err))
	}

	if err := plugin.WaitReady(ctx, h, readyTimeout); err != nil {
		return Wrap(KindReadinessTimeout, h.Name, fmt.Errorf("%s did not become ready: %w", plugin.Name(), err))
	}

	return nil
}
