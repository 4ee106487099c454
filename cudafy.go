// Package cudafy manages the GPU device handles of a process: devices are
// constructed lazily, cached under their (kind, index) key in a registry (the
// Host), and disposed through it.
//
// Two device kinds are supported. Cuda devices wrap physical GPUs through the
// CUDA Driver API, loaded at runtime by the cudafy/cuda package, so binaries
// build and run on machines without any NVIDIA software. Emulator devices are
// a pure Go stand-in; the registry guarantees one at index 0 from the start,
// so there is always a device to fall back on.
//
// The package-level functions mirror the Host API on a shared process-wide
// host:
//
//	dev, err := cudafy.GetDevice(cudafy.Cuda, 0)
//	if err != nil { ... }
//	props, err := dev.GetDeviceProperties(true)
//
// Enumeration is lazy and restartable:
//
//	for props, err := range cudafy.GetDeviceProperties(cudafy.Cuda, false) {
//		if err != nil { ... }
//		fmt.Println(props)
//	}
package cudafy
