package cudafy

// Device is one cached GPU handle, either a real CUDA device or an emulated
// one. Handles are created and owned by a Host; the registry compares them by
// identity, so implementations must be pointer types.
//
// A handle is live until disposed. Disposal is terminal and idempotent:
// calling Dispose on an already disposed handle is a no-op. The Host never
// hands out a disposed handle, but callers holding one from before disposal
// can still observe it through IsDisposed.
type Device interface {
	// Kind reports which implementation backs the handle.
	Kind() DeviceKind

	// Index is the logical device index the handle was registered under.
	Index() int

	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool

	// Dispose releases everything the handle owns (device allocations,
	// native context). Idempotent. A native teardown failure is returned,
	// but the handle counts as disposed regardless.
	Dispose() error

	// GetDeviceProperties takes a snapshot of the device's characteristics.
	// With useAdvanced it additionally fills the advanced fields, which cost
	// extra native calls. Fails on a disposed handle.
	GetDeviceProperties(useAdvanced bool) (DeviceProperties, error)

	// FreeAll releases every outstanding device memory allocation but keeps
	// the handle usable. On a disposed handle it is a no-op, since disposal
	// already released everything.
	FreeAll() error
}
