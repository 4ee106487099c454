package cudafy

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestUnsupportedKindError(t *testing.T) {
	err := errUnsupportedKind(DeviceKind(42))
	require.EqualError(t, errors.Cause(err), "unsupported device kind DeviceKind(42)")

	// The kind survives the stack trace wrapper.
	var ukErr *UnsupportedKindError
	require.ErrorAs(t, err, &ukErr)
	require.Equal(t, DeviceKind(42), ukErr.Kind)
}

func TestCheckKindIndex(t *testing.T) {
	require.NoError(t, checkKindIndex(Cuda, 0))
	require.NoError(t, checkKindIndex(Emulator, 31))

	var ukErr *UnsupportedKindError
	require.ErrorAs(t, checkKindIndex(DeviceKind(7), 0), &ukErr)
	require.ErrorContains(t, checkKindIndex(Cuda, -2), "non-negative")
}
