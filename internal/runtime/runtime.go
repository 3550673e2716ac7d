// Package runtime holds what the k3d and kind cluster runtimes share.
package runtime

import (
	"github.com/imamik/testbench/internal/provisioning"
)

// Unsupported reports a plugin a runtime cannot host. Resolution rejects
// such plans up front, so hitting it at install time is a caller bug.
func Unsupported(runtime string, h *provisioning.Handle, plugin provisioning.NetworkPlugin) error {
	return provisioning.Errorf(provisioning.KindPreconditionViolation, h.Name,
		"runtime %s does not support network plugin %s", runtime, plugin.Name())
}
