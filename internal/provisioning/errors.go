package provisioning

import (
	"errors"
	"fmt"
)

// Kind classifies a failure recorded for an entity of the run.
type Kind string

const (
	// KindProvisioning is an infrastructure-level cluster creation failure.
	KindProvisioning Kind = "ProvisioningError"
	// KindPluginInstall means applying the network plugin failed.
	KindPluginInstall Kind = "PluginInstallError"
	// KindReadinessTimeout means the plugin was accepted but never became ready.
	KindReadinessTimeout Kind = "ReadinessTimeoutError"
	// KindToolInstall is a failed tool installation into one cluster.
	KindToolInstall Kind = "ToolInstallError"
	// KindPeering is a failed peering between two clusters.
	KindPeering Kind = "PeeringError"
	// KindPreconditionViolation means a capability was invoked out of contract.
	KindPreconditionViolation Kind = "PreconditionViolation"
	// KindUnknownVariant means a tag names no registered capability.
	KindUnknownVariant Kind = "UnknownVariantError"
	// KindNetwork is a failure to set up the shared isolation network.
	KindNetwork Kind = "NetworkError"
	// KindSkippedDependency marks an entity that was never dispatched.
	KindSkippedDependency Kind = "SkippedDependency"
)

// Error attaches a Kind and the affected entity to an error.
type Error struct {
	Kind   Kind
	Entity string
	Err    error
}

func (e *Error) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Kind, e.Entity, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind Kind, entity string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Err: err}
}

// Errorf creates a classified error from a format string.
func Errorf(kind Kind, entity, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Entity: entity, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err with kind unless it already carries a Kind, in which
// case it is returned unchanged. Wrap(nil) returns nil.
func Wrap(kind Kind, entity string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return NewError(kind, entity, err)
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or the empty Kind when err is unclassified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
