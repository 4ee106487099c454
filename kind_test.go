package cudafy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceKindStrings(t *testing.T) {
	require.Equal(t, "Cuda", Cuda.String())
	require.Equal(t, "Emulator", Emulator.String())
	require.Equal(t, "DeviceKind(99)", DeviceKind(99).String())

	require.Equal(t, []DeviceKind{Cuda, Emulator}, DeviceKindValues())
	require.True(t, Cuda.IsADeviceKind())
	require.False(t, DeviceKind(-1).IsADeviceKind())
}

func TestDeviceKindString_Parse(t *testing.T) {
	for _, s := range []string{"Cuda", "cuda"} {
		kind, err := DeviceKindString(s)
		require.NoError(t, err)
		require.Equal(t, Cuda, kind)
	}
	_, err := DeviceKindString("opencl")
	require.Error(t, err)
}

func TestDeviceKeyString(t *testing.T) {
	require.Equal(t, "Cuda0", deviceKey{kind: Cuda, index: 0}.String())
	require.Equal(t, "Emulator2", deviceKey{kind: Emulator, index: 2}.String())
}
