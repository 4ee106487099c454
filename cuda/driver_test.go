package cuda

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func TestCUresultError(t *testing.T) {
	require.Equal(t, "CUDA_SUCCESS", CUDA_SUCCESS.Error())
	require.Equal(t, "CUDA_ERROR_OUT_OF_MEMORY (2)", CUDA_ERROR_OUT_OF_MEMORY.Error())
	require.Equal(t, "CUDA_ERROR (777)", CUresult(777).Error())
}

func TestCUresultErrOr(t *testing.T) {
	require.NoError(t, CUDA_SUCCESS.errOr("cuInit"))

	err := CUDA_ERROR_NO_DEVICE.errOr("cuDeviceGetCount")
	require.ErrorContains(t, err, "cuDeviceGetCount")

	// The raw code stays recoverable.
	var r CUresult
	require.ErrorAs(t, err, &r)
	require.Equal(t, CUDA_ERROR_NO_DEVICE, r)
}

// TestDriver exercises whichever side of the driver boundary this machine
// has: the real device enumeration when libcuda is present, the error paths
// when it is not.
func TestDriver(t *testing.T) {
	if !Available() {
		fmt.Println("No CUDA driver on this machine, testing the failure paths.")
		require.ErrorContains(t, Init(), "CUDA driver")
		_, err := DeviceCount()
		require.Error(t, err)
		_, _, err = DriverVersion()
		require.Error(t, err)
		// The allocation entry points must fail the same way, not call
		// through an unregistered driver function.
		_, err = MemAlloc(16)
		require.Error(t, err)
		_, _, err = MemGetInfo()
		require.Error(t, err)
		return
	}

	major, minor, err := DriverVersion()
	require.NoError(t, err)
	fmt.Printf("CUDA driver version %d.%d\n", major, minor)
	require.GreaterOrEqual(t, major, 1)

	count, err := DeviceCount()
	require.NoError(t, err)
	fmt.Printf("%d CUDA device(s)\n", count)

	for i := range count {
		dev, err := DeviceGet(i)
		require.NoError(t, err)
		name, err := dev.Name()
		require.NoError(t, err)
		require.NotEmpty(t, name)
		totalMem, err := dev.TotalMem()
		require.NoError(t, err)
		require.Positive(t, totalMem)
		warp, err := dev.Attribute(CU_DEVICE_ATTRIBUTE_WARP_SIZE)
		require.NoError(t, err)
		require.Equal(t, 32, warp)
		fmt.Printf("  #%d: %s, %d bytes, warp size %d\n", i, name, totalMem, warp)
	}
}

func TestContextAndMemory(t *testing.T) {
	if !Available() {
		t.Skip("no CUDA driver on this machine")
	}
	count, err := DeviceCount()
	require.NoError(t, err)
	if count == 0 {
		t.Skip("driver present but no devices")
	}

	dev, err := DeviceGet(0)
	require.NoError(t, err)
	ctx, err := CtxCreate(dev, 0)
	require.NoError(t, err)
	defer func() { require.NoError(t, ctx.Destroy()) }()
	require.NoError(t, ctx.SetCurrent())

	free, total, err := MemGetInfo()
	require.NoError(t, err)
	require.Positive(t, total)
	require.LessOrEqual(t, free, total)

	ptr, err := MemAlloc(1 << 20)
	require.NoError(t, err)
	require.NotZero(t, ptr)
	require.NoError(t, ptr.Free())

	require.NoError(t, DevicePtr(0).Free(), "freeing the null pointer is a no-op")
}
