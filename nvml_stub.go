//go:build !cuda

package cudafy

// nvmlFill is a no-op without the cuda build tag. The tag gates the NVML
// dependency, which needs cgo; default builds stay pure Go.
func nvmlFill(props *DeviceProperties, index int) {}
