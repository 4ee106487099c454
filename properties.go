package cudafy

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// DeviceProperties is a snapshot of one device's characteristics, as reported
// by Device.GetDeviceProperties.
//
// The core fields are always populated. The advanced fields cost extra native
// calls (memory info, management library readings) and are only filled when
// the query asked for them; UseAdvanced records which flavor this snapshot is.
type DeviceProperties struct {
	// Kind and DeviceID identify the device the snapshot was taken from.
	Kind     DeviceKind
	DeviceID int

	// Name is the device's marketing name, e.g. "NVIDIA GeForce RTX 4090",
	// or "Emulator" for emulated devices.
	Name string

	// PlatformName describes the backing runtime.
	PlatformName string

	// TotalGlobalMem is the total global memory in bytes.
	TotalGlobalMem uint64

	SharedMemPerBlock  int
	TotalConstMem      int
	RegsPerBlock       int
	WarpSize           int
	MaxThreadsPerBlock int
	MaxThreadsDim      [3]int
	MaxGridSize        [3]int

	// Clock rates are in kHz, as the driver reports them.
	ClockRateKHz       int
	MemoryClockRateKHz int

	MemoryBusWidth      int
	L2CacheSize         int
	MultiProcessorCount int

	ComputeCapabilityMajor int
	ComputeCapabilityMinor int

	Integrated        bool
	CanMapHostMemory  bool
	ConcurrentKernels bool
	ECCEnabled        bool
	AsyncEngineCount  int

	PCIBusID    int
	PCIDeviceID int

	// UseAdvanced reports whether the fields below were populated.
	UseAdvanced bool

	// FreeMem is the free global memory in bytes at query time.
	FreeMem uint64

	DriverVersion string
	UUID          string

	// UtilizationGPU is the instantaneous GPU utilization in percent.
	UtilizationGPU int

	TemperatureC    int
	PowerMilliwatts int
}

// Capability returns the compute capability in its usual "major.minor" form.
func (p DeviceProperties) Capability() string {
	return fmt.Sprintf("%d.%d", p.ComputeCapabilityMajor, p.ComputeCapabilityMinor)
}

func (p DeviceProperties) String() string {
	return fmt.Sprintf("%s #%d: %s (capability %s, %d SMs, %s)",
		p.Kind, p.DeviceID, p.Name, p.Capability(), p.MultiProcessorCount,
		humanize.IBytes(p.TotalGlobalMem))
}
