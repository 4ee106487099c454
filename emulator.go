package cudafy

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// emulatorTotalMem is the advertised capacity of an emulated device. Mallocs
// beyond it fail the same way a real device reports out of memory.
const emulatorTotalMem uint64 = 16 << 30

// EmulatorDevice emulates a GPU on the host CPU. Construction never touches
// native code and cannot fail, which is what makes the registry's default
// device guarantee unconditional.
//
// Allocations are backed by ordinary host memory and tracked per handle, so
// FreeAll and Dispose release exactly what this device handed out.
type EmulatorDevice struct {
	index int

	mu          sync.Mutex
	disposed    bool
	nextPtr     uintptr
	allocations map[uintptr][]byte
}

var _ Device = (*EmulatorDevice)(nil)

func newEmulatorDevice(index int) *EmulatorDevice {
	return &EmulatorDevice{
		index:       index,
		allocations: make(map[uintptr][]byte),
	}
}

// Kind implements Device.
func (e *EmulatorDevice) Kind() DeviceKind { return Emulator }

// Index implements Device.
func (e *EmulatorDevice) Index() int { return e.index }

// IsDisposed implements Device.
func (e *EmulatorDevice) IsDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// Dispose implements Device. It never fails for emulated devices.
func (e *EmulatorDevice) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	e.disposed = true
	e.allocations = nil
	return nil
}

// Malloc reserves size bytes of emulated device memory and returns an opaque
// handle for it.
func (e *EmulatorDevice) Malloc(size uint64) (uintptr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return 0, errors.Errorf("emulator device #%d is disposed", e.index)
	}
	// Checked as a subtraction so a huge size cannot wrap the sum.
	if size > emulatorTotalMem || e.allocatedLocked() > emulatorTotalMem-size {
		return 0, errors.Errorf("emulator device #%d is out of memory allocating %d bytes", e.index, size)
	}
	e.nextPtr++
	ptr := e.nextPtr
	e.allocations[ptr] = make([]byte, size)
	return ptr, nil
}

// Free releases one allocation. Freeing the zero handle is a no-op, matching
// the native driver's treatment of the null device pointer.
func (e *EmulatorDevice) Free(ptr uintptr) error {
	if ptr == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, found := e.allocations[ptr]; !found {
		return errors.Errorf("emulator device #%d has no allocation %#x", e.index, ptr)
	}
	delete(e.allocations, ptr)
	return nil
}

// FreeAll implements Device.
func (e *EmulatorDevice) FreeAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	e.allocations = make(map[uintptr][]byte)
	return nil
}

// AllocatedBytes reports the total emulated device memory currently reserved.
func (e *EmulatorDevice) AllocatedBytes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allocatedLocked()
}

func (e *EmulatorDevice) allocatedLocked() uint64 {
	var total uint64
	for _, buf := range e.allocations {
		total += uint64(len(buf))
	}
	return total
}

// GetDeviceProperties implements Device. Values are synthesized from the
// host: multiprocessors map to CPU cores and execution is serial per core,
// hence the warp size of 1. Fields describing real hardware limits that have
// no emulated equivalent stay zero.
func (e *EmulatorDevice) GetDeviceProperties(useAdvanced bool) (DeviceProperties, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return DeviceProperties{}, errors.Errorf("emulator device #%d is disposed", e.index)
	}
	props := DeviceProperties{
		Kind:                   Emulator,
		DeviceID:               e.index,
		Name:                   "Emulator",
		PlatformName:           fmt.Sprintf("Emulator (%s/%s)", runtime.GOOS, runtime.GOARCH),
		TotalGlobalMem:         emulatorTotalMem,
		WarpSize:               1,
		MaxThreadsPerBlock:     1024,
		MaxThreadsDim:          [3]int{1024, 1024, 64},
		MaxGridSize:            [3]int{65535, 65535, 65535},
		MultiProcessorCount:    runtime.NumCPU(),
		ComputeCapabilityMajor: 1,
		Integrated:             true,
		CanMapHostMemory:       true,
	}
	if useAdvanced {
		props.UseAdvanced = true
		props.FreeMem = emulatorTotalMem - e.allocatedLocked()
		props.DriverVersion = runtime.Version()
	}
	return props, nil
}
