package cudafy

// DeviceKind identifies which implementation backs a device handle.
type DeviceKind int

//go:generate go tool enumer -type=DeviceKind kind.go

const (
	// Cuda devices wrap a physical GPU through the CUDA Driver API.
	Cuda DeviceKind = iota

	// Emulator devices run entirely on the host CPU, with no native
	// dependency. One is always registered, so code paths that need some
	// device keep working on machines without a GPU.
	Emulator
)
