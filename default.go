package cudafy

import (
	"iter"
	"sync"
)

var (
	defaultHostOnce sync.Once
	defaultHost     *Host
)

// Default returns the process-wide Host, creating it on first use. Options
// cannot be passed here; programs needing a configured registry create their
// own with NewHost.
func Default() *Host {
	defaultHostOnce.Do(func() {
		defaultHost = NewHost()
	})
	return defaultHost
}

// GetDevice calls Host.GetDevice on the default host.
func GetDevice(kind DeviceKind, index int) (Device, error) {
	return Default().GetDevice(kind, index)
}

// CreateDevice calls Host.CreateDevice on the default host.
func CreateDevice(kind DeviceKind, index int) (Device, error) {
	return Default().CreateDevice(kind, index)
}

// DeviceCreated calls Host.DeviceCreated on the default host.
func DeviceCreated(kind DeviceKind, index int) bool {
	return Default().DeviceCreated(kind, index)
}

// GetDeviceCount calls Host.GetDeviceCount on the default host.
func GetDeviceCount(kind DeviceKind) (int, error) {
	return Default().GetDeviceCount(kind)
}

// GetDeviceProperties calls Host.GetDeviceProperties on the default host.
func GetDeviceProperties(kind DeviceKind, useAdvanced bool) iter.Seq2[DeviceProperties, error] {
	return Default().GetDeviceProperties(kind, useAdvanced)
}

// RemoveDevice calls Host.RemoveDevice on the default host.
func RemoveDevice(dev Device) (bool, error) {
	return Default().RemoveDevice(dev)
}

// ClearDevices calls Host.ClearDevices on the default host.
func ClearDevices() (int, error) {
	return Default().ClearDevices()
}

// ClearAllDeviceMemories calls Host.ClearAllDeviceMemories on the default host.
func ClearAllDeviceMemories() error {
	return Default().ClearAllDeviceMemories()
}
