package cudafy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The disposed-handle paths return before any driver call, so they are
// testable on machines without libcuda. The live paths need hardware and are
// covered by the cuda package's tests.
func TestCudaDevice_DisposeIsIdempotent(t *testing.T) {
	d := &CudaDevice{index: 2, disposed: true}

	require.NoError(t, d.Dispose())
	require.True(t, d.IsDisposed())
	require.NoError(t, d.FreeAll(), "FreeAll on a disposed handle is a no-op")

	// New work is rejected.
	_, err := d.Malloc(16)
	require.ErrorContains(t, err, "disposed")
	_, err = d.GetDeviceProperties(false)
	require.ErrorContains(t, err, "disposed")
}
