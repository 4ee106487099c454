package cudafy

import (
	"fmt"
	"iter"
	"os"
	"slices"
	"strconv"
	"sync"

	"k8s.io/klog/v2"

	"github.com/lillo42/cudafy/cuda"
)

// deviceKey identifies one registry entry. Two keys are equal iff both the
// kind and the index match.
type deviceKey struct {
	kind  DeviceKind
	index int
}

func (k deviceKey) String() string {
	return fmt.Sprintf("%s%d", k.kind, k.index)
}

// deviceFactory abstracts device construction and native enumeration, so the
// registry logic can be exercised against fakes.
type deviceFactory interface {
	// NewDevice constructs a live handle for (kind, index).
	NewDevice(kind DeviceKind, index int) (Device, error)

	// DeviceCount enumerates devices natively. Only meaningful for kinds
	// whose devices exist outside the registry, i.e. Cuda.
	DeviceCount(kind DeviceKind) (int, error)
}

// nativeFactory is the production factory.
type nativeFactory struct{}

func (nativeFactory) NewDevice(kind DeviceKind, index int) (Device, error) {
	switch kind {
	case Cuda:
		return newCudaDevice(index)
	case Emulator:
		return newEmulatorDevice(index), nil
	}
	return nil, errUnsupportedKind(kind)
}

func (nativeFactory) DeviceCount(kind DeviceKind) (int, error) {
	switch kind {
	case Cuda:
		return cuda.DeviceCount()
	}
	return 0, errUnsupportedKind(kind)
}

// KeepProbedDevicesEnv is the environment variable read by NewHost as the
// default for the KeepProbedDevices option. Takes the usual boolean
// spellings ("1", "true", ...).
const KeepProbedDevicesEnv = "CUDAFY_KEEP_PROBED_DEVICES"

// Host is the process's device registry: at most one handle per (kind, index)
// key, created lazily and cached until removed. All methods are safe for
// concurrent use; a single mutex makes every check-then-create-or-replace
// sequence atomic.
//
// Most programs use the package-level functions, which delegate to the shared
// host returned by Default. Separate hosts are only needed to isolate device
// lifecycles, typically in tests.
type Host struct {
	mu      sync.Mutex
	devices map[deviceKey]Device

	factory    deviceFactory
	keepProbed bool
}

// HostOption configures a Host created with NewHost.
type HostOption func(h *Host)

// WithKeepProbedDevices controls what GetDeviceProperties does with the
// transient Cuda handles it creates for uncached indices: discard them when
// done (the default) or register them as if created with GetDevice.
func WithKeepProbedDevices(keep bool) HostOption {
	return func(h *Host) { h.keepProbed = keep }
}

// withFactory substitutes device construction, for tests.
func withFactory(factory deviceFactory) HostOption {
	return func(h *Host) { h.factory = factory }
}

// NewHost creates an empty registry and ensures the default emulated device
// (Emulator, index 0) is registered, so there is always at least one device
// to fall back on.
func NewHost(options ...HostOption) *Host {
	h := &Host{
		devices: make(map[deviceKey]Device),
		factory: nativeFactory{},
	}
	if value := os.Getenv(KeepProbedDevicesEnv); value != "" {
		keep, err := strconv.ParseBool(value)
		if err != nil {
			klog.Warningf("cudafy: invalid %s value %q, ignored", KeepProbedDevicesEnv, value)
		} else {
			h.keepProbed = keep
		}
	}
	for _, opt := range options {
		opt(h)
	}
	h.ensureDefaultDevice()
	return h
}

// ensureDefaultDevice registers the default emulated device. A failure is
// logged and not fatal: GetDeviceCount re-establishes the guarantee the next
// time the emulated devices are counted.
func (h *Host) ensureDefaultDevice() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.getOrCreateLocked(Emulator, 0); err != nil {
		klog.Errorf("cudafy: failed to create the default emulated device: %+v", err)
	}
}

// getOrCreateLocked returns the cached live handle for (kind, index). A
// missing entry is created; an entry whose handle was disposed is replaced by
// a fresh one under the same key. On construction failure the registry is
// left unchanged.
func (h *Host) getOrCreateLocked(kind DeviceKind, index int) (Device, error) {
	key := deviceKey{kind: kind, index: index}
	if dev, found := h.devices[key]; found {
		if !dev.IsDisposed() {
			return dev, nil
		}
		klog.V(1).Infof("cudafy: cached device %s is disposed, replacing it", key)
	}
	dev, err := h.factory.NewDevice(kind, index)
	if err != nil {
		return nil, err
	}
	h.devices[key] = dev
	klog.V(1).Infof("cudafy: created device %s", key)
	return dev, nil
}

// removeLocked disposes and deletes every entry whose handle is dev itself
// (identity, not equivalence). Aliased keys each trigger a Dispose call;
// Dispose is idempotent. A disposal failure stops the scan, leaving
// unvisited matches in place.
func (h *Host) removeLocked(dev Device) (bool, error) {
	removed := false
	for key, cached := range h.devices {
		if cached != dev {
			continue
		}
		if err := cached.Dispose(); err != nil {
			return removed, err
		}
		delete(h.devices, key)
		removed = true
		klog.V(1).Infof("cudafy: removed device %s", key)
	}
	return removed, nil
}

func (h *Host) countKindLocked(kind DeviceKind) int {
	count := 0
	for key := range h.devices {
		if key.kind == kind {
			count++
		}
	}
	return count
}

// GetDevice returns the cached handle for (kind, index), creating it on first
// use. A cached handle that has been disposed, by RemoveDevice or directly by
// the caller, is replaced with a freshly constructed one; the method never
// returns a disposed handle.
func (h *Host) GetDevice(kind DeviceKind, index int) (Device, error) {
	if err := checkKindIndex(kind, index); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.getOrCreateLocked(kind, index)
}

// CreateDevice constructs a brand-new handle for (kind, index) whether or not
// one is cached: an existing entry is first removed and disposed, then the
// replacement is registered. Use it to force reinitialization; GetDevice is
// the cheap path.
func (h *Host) CreateDevice(kind DeviceKind, index int) (Device, error) {
	if err := checkKindIndex(kind, index); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := deviceKey{kind: kind, index: index}
	if old, found := h.devices[key]; found {
		if _, err := h.removeLocked(old); err != nil {
			return nil, err
		}
	}
	dev, err := h.factory.NewDevice(kind, index)
	if err != nil {
		return nil, err
	}
	h.devices[key] = dev
	klog.V(1).Infof("cudafy: recreated device %s", key)
	return dev, nil
}

// DeviceCreated reports whether a handle is cached under (kind, index). It is
// a pure key lookup: a disposed but still cached handle counts, and kinds the
// registry does not support are simply never present.
func (h *Host) DeviceCreated(kind DeviceKind, index int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, found := h.devices[deviceKey{kind: kind, index: index}]
	return found
}

// GetDeviceCount returns how many devices of the kind exist. Cuda asks the
// native driver and never touches the cache. Emulator counts cached emulated
// entries; when there are none the default (Emulator, 0) device is created
// first, so the count is at least one.
func (h *Host) GetDeviceCount(kind DeviceKind) (int, error) {
	if !kind.IsADeviceKind() {
		return 0, errUnsupportedKind(kind)
	}
	if kind == Cuda {
		return h.factory.DeviceCount(Cuda)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	count := h.countKindLocked(Emulator)
	if count == 0 {
		if _, err := h.getOrCreateLocked(Emulator, 0); err != nil {
			return 0, err
		}
		count = 1
	}
	return count, nil
}

// RemoveDevice removes dev from the registry and disposes it, returning
// whether anything was removed. Matching is by identity, so a handle
// registered under several keys is removed from all of them, with one
// (idempotent) Dispose call per key. Removing a handle that was never
// registered, or was removed before, reports false.
func (h *Host) RemoveDevice(dev Device) (bool, error) {
	if dev == nil {
		return false, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(dev)
}

// ClearDevices empties the registry: every distinct cached handle is removed
// and disposed as if passed to RemoveDevice. Returns how many handles were
// removed. On a disposal failure the error is returned with the handles not
// yet visited still registered.
func (h *Host) ClearDevices() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cleared := 0
	for _, dev := range h.distinctDevicesLocked() {
		removed, err := h.removeLocked(dev)
		if removed {
			cleared++
		}
		if err != nil {
			return cleared, err
		}
	}
	klog.V(1).Infof("cudafy: cleared %d device(s)", cleared)
	return cleared, nil
}

// distinctDevicesLocked snapshots the cached handles, deduplicated by
// identity so aliased keys contribute one entry.
func (h *Host) distinctDevicesLocked() []Device {
	devices := make([]Device, 0, len(h.devices))
	seen := make(map[Device]bool, len(h.devices))
	for _, dev := range h.devices {
		if seen[dev] {
			continue
		}
		seen[dev] = true
		devices = append(devices, dev)
	}
	return devices
}

// ClearAllDeviceMemories calls FreeAll on every cached handle. Handles stay
// registered and usable; only their device memory allocations are released.
// The first failure aborts the sweep.
func (h *Host) ClearAllDeviceMemories() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, dev := range h.distinctDevicesLocked() {
		if err := dev.FreeAll(); err != nil {
			return err
		}
	}
	return nil
}

// GetDeviceProperties returns a lazy sequence of property snapshots for every
// device of the kind, in index order. The sequence is recomputed each time it
// is ranged over. A failure is yielded as the final element's error and ends
// the sequence.
//
// Emulated devices exist only in the registry, so the Emulator sequence
// covers the cached emulated handles. The Cuda sequence covers the native
// device count: a cached handle is queried in place, an uncached index is
// probed with a transient handle that is disposed again before the snapshot
// is yielded, leaving the registry as it was (see WithKeepProbedDevices for
// the alternative).
func (h *Host) GetDeviceProperties(kind DeviceKind, useAdvanced bool) iter.Seq2[DeviceProperties, error] {
	return func(yield func(DeviceProperties, error) bool) {
		if !kind.IsADeviceKind() {
			yield(DeviceProperties{}, errUnsupportedKind(kind))
			return
		}
		if kind == Cuda {
			h.yieldCudaProperties(useAdvanced, yield)
		} else {
			h.yieldEmulatorProperties(useAdvanced, yield)
		}
	}
}

func (h *Host) yieldEmulatorProperties(useAdvanced bool, yield func(DeviceProperties, error) bool) {
	type entry struct {
		index int
		dev   Device
	}
	h.mu.Lock()
	entries := make([]entry, 0, len(h.devices))
	for key, dev := range h.devices {
		if key.kind == Emulator {
			entries = append(entries, entry{index: key.index, dev: dev})
		}
	}
	h.mu.Unlock()
	slices.SortFunc(entries, func(a, b entry) int { return a.index - b.index })

	for _, ent := range entries {
		props, err := ent.dev.GetDeviceProperties(useAdvanced)
		if err != nil {
			yield(DeviceProperties{}, err)
			return
		}
		if !yield(props, nil) {
			return
		}
	}
}

func (h *Host) yieldCudaProperties(useAdvanced bool, yield func(DeviceProperties, error) bool) {
	count, err := h.factory.DeviceCount(Cuda)
	if err != nil {
		yield(DeviceProperties{}, err)
		return
	}
	for index := range count {
		props, err := h.probeCudaDevice(index, useAdvanced)
		if err != nil {
			yield(DeviceProperties{}, err)
			return
		}
		if !yield(props, nil) {
			return
		}
	}
}

// probeCudaDevice takes one snapshot for a native index. Cached handles are
// queried directly. An uncached index gets a transient handle, disposed again
// before returning unless the host keeps probed devices. Check, construction
// and query happen under the registry lock, so a concurrent GetDevice cannot
// race the probe into creating a second handle for the same key.
func (h *Host) probeCudaDevice(index int, useAdvanced bool) (DeviceProperties, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := deviceKey{kind: Cuda, index: index}
	if dev, found := h.devices[key]; found {
		return dev.GetDeviceProperties(useAdvanced)
	}
	dev, err := h.factory.NewDevice(Cuda, index)
	if err != nil {
		return DeviceProperties{}, err
	}
	if h.keepProbed {
		h.devices[key] = dev
		klog.V(1).Infof("cudafy: created device %s while probing", key)
		return dev.GetDeviceProperties(useAdvanced)
	}
	props, err := dev.GetDeviceProperties(useAdvanced)
	if derr := dev.Dispose(); derr != nil && err == nil {
		err = derr
	}
	return props, err
}
