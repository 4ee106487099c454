package cudafy

import (
	"fmt"

	"github.com/pkg/errors"
)

// UnsupportedKindError is returned when a DeviceKind outside the supported
// set reaches any operation that dispatches on the kind. The offending kind
// is carried so callers can report it; extract with errors.As.
type UnsupportedKindError struct {
	Kind DeviceKind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported device kind %s", e.Kind)
}

// errUnsupportedKind builds the error with a stack trace attached.
func errUnsupportedKind(kind DeviceKind) error {
	return errors.WithStack(&UnsupportedKindError{Kind: kind})
}

// checkKindIndex validates the (kind, index) pair every keyed operation
// receives, before any collaborator is consulted.
func checkKindIndex(kind DeviceKind, index int) error {
	if !kind.IsADeviceKind() {
		return errUnsupportedKind(kind)
	}
	if index < 0 {
		return errors.Errorf("device index must be non-negative, got %d", index)
	}
	return nil
}
