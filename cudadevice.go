package cudafy

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/lillo42/cudafy/cuda"
)

// CudaDevice binds one physical CUDA device. Construction resolves the device
// ordinal and creates a driver context on it; the context lives until Dispose.
//
// Raw device allocations made through Malloc are tracked per handle so FreeAll
// can release them without tearing the context down.
type CudaDevice struct {
	index    int
	dev      cuda.Device
	name     string
	platform string
	totalMem uint64

	mu          sync.Mutex
	disposed    bool
	ctx         cuda.Context
	allocations map[cuda.DevicePtr]uint64
}

var _ Device = (*CudaDevice)(nil)

func newCudaDevice(index int) (*CudaDevice, error) {
	dev, err := cuda.DeviceGet(index)
	if err != nil {
		return nil, err
	}
	ctx, err := cuda.CtxCreate(dev, 0)
	if err != nil {
		return nil, err
	}
	d := &CudaDevice{
		index:       index,
		dev:         dev,
		ctx:         ctx,
		allocations: make(map[cuda.DevicePtr]uint64),
	}

	// Static identification is read once at construction. Failures here are
	// not fatal, the device works without its name.
	d.name, err = dev.Name()
	if err != nil {
		klog.Errorf("failed to read the name of CUDA device #%d: %v", index, err)
	}
	d.totalMem, err = dev.TotalMem()
	if err != nil {
		klog.Errorf("failed to read the total memory of CUDA device #%d: %v", index, err)
	}
	if major, minor, err := cuda.DriverVersion(); err == nil {
		d.platform = fmt.Sprintf("CUDA %d.%d", major, minor)
	} else {
		d.platform = "CUDA"
		klog.Errorf("failed to read the CUDA driver version: %v", err)
	}

	runtime.SetFinalizer(d, finalizeCudaDevice)
	return d, nil
}

func finalizeCudaDevice(d *CudaDevice) {
	if err := d.Dispose(); err != nil {
		klog.Errorf("CudaDevice.Dispose failed: %v", err)
	}
}

// Kind implements Device.
func (d *CudaDevice) Kind() DeviceKind { return Cuda }

// Index implements Device.
func (d *CudaDevice) Index() int { return d.index }

// IsDisposed implements Device.
func (d *CudaDevice) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose implements Device: it destroys the driver context, which also
// releases any device memory still allocated in it. The handle counts as
// disposed even when the native teardown reports a failure.
func (d *CudaDevice) Dispose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return nil
	}
	err := d.ctx.Destroy()
	d.disposed = true
	d.ctx = 0
	d.allocations = nil
	return err
}

// Malloc allocates size bytes of device memory in this device's context.
func (d *CudaDevice) Malloc(size uint64) (cuda.DevicePtr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return 0, errors.Errorf("CUDA device #%d is disposed", d.index)
	}
	if err := d.ctx.SetCurrent(); err != nil {
		return 0, err
	}
	ptr, err := cuda.MemAlloc(size)
	if err != nil {
		return 0, err
	}
	d.allocations[ptr] = size
	return ptr, nil
}

// Free releases one device allocation made with Malloc.
func (d *CudaDevice) Free(ptr cuda.DevicePtr) error {
	if ptr == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return errors.Errorf("CUDA device #%d is disposed", d.index)
	}
	if _, found := d.allocations[ptr]; !found {
		return errors.Errorf("CUDA device #%d has no allocation %#x", d.index, uintptr(ptr))
	}
	if err := d.ctx.SetCurrent(); err != nil {
		return err
	}
	if err := ptr.Free(); err != nil {
		return err
	}
	delete(d.allocations, ptr)
	return nil
}

// FreeAll implements Device. Allocations that fail to free stay tracked.
func (d *CudaDevice) FreeAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return nil
	}
	if len(d.allocations) == 0 {
		return nil
	}
	if err := d.ctx.SetCurrent(); err != nil {
		return err
	}
	freed := 0
	for ptr := range d.allocations {
		if err := ptr.Free(); err != nil {
			return err
		}
		delete(d.allocations, ptr)
		freed++
	}
	klog.V(1).Infof("freed %d allocation(s) on CUDA device #%d", freed, d.index)
	return nil
}

// GetDeviceProperties implements Device.
func (d *CudaDevice) GetDeviceProperties(useAdvanced bool) (DeviceProperties, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return DeviceProperties{}, errors.Errorf("CUDA device #%d is disposed", d.index)
	}

	var firstErr error
	attr := func(a cuda.DeviceAttribute) int {
		v, err := d.dev.Attribute(a)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	props := DeviceProperties{
		Kind:                   Cuda,
		DeviceID:               d.index,
		Name:                   d.name,
		PlatformName:           d.platform,
		TotalGlobalMem:         d.totalMem,
		SharedMemPerBlock:      attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_SHARED_MEMORY_PER_BLOCK),
		TotalConstMem:          attr(cuda.CU_DEVICE_ATTRIBUTE_TOTAL_CONSTANT_MEMORY),
		RegsPerBlock:           attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_REGISTERS_PER_BLOCK),
		WarpSize:               attr(cuda.CU_DEVICE_ATTRIBUTE_WARP_SIZE),
		MaxThreadsPerBlock:     attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_THREADS_PER_BLOCK),
		ClockRateKHz:           attr(cuda.CU_DEVICE_ATTRIBUTE_CLOCK_RATE),
		MemoryClockRateKHz:     attr(cuda.CU_DEVICE_ATTRIBUTE_MEMORY_CLOCK_RATE),
		MemoryBusWidth:         attr(cuda.CU_DEVICE_ATTRIBUTE_GLOBAL_MEMORY_BUS_WIDTH),
		L2CacheSize:            attr(cuda.CU_DEVICE_ATTRIBUTE_L2_CACHE_SIZE),
		MultiProcessorCount:    attr(cuda.CU_DEVICE_ATTRIBUTE_MULTIPROCESSOR_COUNT),
		ComputeCapabilityMajor: attr(cuda.CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MAJOR),
		ComputeCapabilityMinor: attr(cuda.CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MINOR),
		Integrated:             attr(cuda.CU_DEVICE_ATTRIBUTE_INTEGRATED) != 0,
		CanMapHostMemory:       attr(cuda.CU_DEVICE_ATTRIBUTE_CAN_MAP_HOST_MEMORY) != 0,
		ConcurrentKernels:      attr(cuda.CU_DEVICE_ATTRIBUTE_CONCURRENT_KERNELS) != 0,
		ECCEnabled:             attr(cuda.CU_DEVICE_ATTRIBUTE_ECC_ENABLED) != 0,
		AsyncEngineCount:       attr(cuda.CU_DEVICE_ATTRIBUTE_ASYNC_ENGINE_COUNT),
		PCIBusID:               attr(cuda.CU_DEVICE_ATTRIBUTE_PCI_BUS_ID),
		PCIDeviceID:            attr(cuda.CU_DEVICE_ATTRIBUTE_PCI_DEVICE_ID),
	}
	props.MaxThreadsDim = [3]int{
		attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_BLOCK_DIM_X),
		attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_BLOCK_DIM_Y),
		attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_BLOCK_DIM_Z),
	}
	props.MaxGridSize = [3]int{
		attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_GRID_DIM_X),
		attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_GRID_DIM_Y),
		attr(cuda.CU_DEVICE_ATTRIBUTE_MAX_GRID_DIM_Z),
	}
	if firstErr != nil {
		return DeviceProperties{}, firstErr
	}

	if useAdvanced {
		props.UseAdvanced = true
		if err := d.ctx.SetCurrent(); err != nil {
			return DeviceProperties{}, err
		}
		free, total, err := cuda.MemGetInfo()
		if err != nil {
			return DeviceProperties{}, err
		}
		props.FreeMem = free
		if props.TotalGlobalMem == 0 {
			props.TotalGlobalMem = total
		}
		if major, minor, err := cuda.DriverVersion(); err == nil {
			props.DriverVersion = fmt.Sprintf("%d.%d", major, minor)
		}
		// Management library readings, compiled in with the cuda build tag.
		nvmlFill(&props, d.index)
	}
	return props, nil
}
