/*
 *	Copyright 2026 The cudafy Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package cuda

// Bindings for the subset of the CUDA Driver API used by cudafy:
//   - cuInit, cuDriverGetVersion
//   - cuDeviceGetCount, cuDeviceGet, cuDeviceGetName, cuDeviceTotalMem,
//     cuDeviceGetAttribute
//   - cuCtxCreate, cuCtxSetCurrent, cuCtxDestroy
//   - cuMemAlloc, cuMemFree, cuMemGetInfo
//
// Symbol names follow the driver's "_v2" ABI where one exists.

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// CUresult is the raw status code returned by every Driver API call.
// It implements error so native failures can propagate untranslated.
type CUresult int32

const (
	CUDA_SUCCESS               CUresult = 0
	CUDA_ERROR_INVALID_VALUE   CUresult = 1
	CUDA_ERROR_OUT_OF_MEMORY   CUresult = 2
	CUDA_ERROR_NOT_INITIALIZED CUresult = 3
	CUDA_ERROR_DEINITIALIZED   CUresult = 4
	CUDA_ERROR_NO_DEVICE       CUresult = 100
	CUDA_ERROR_INVALID_DEVICE  CUresult = 101
	CUDA_ERROR_INVALID_CONTEXT CUresult = 201
	CUDA_ERROR_INVALID_HANDLE  CUresult = 400
	CUDA_ERROR_NOT_FOUND       CUresult = 500
	CUDA_ERROR_NOT_READY       CUresult = 600
	CUDA_ERROR_UNKNOWN         CUresult = 999
)

var curesultNames = map[CUresult]string{
	CUDA_ERROR_INVALID_VALUE:   "INVALID_VALUE",
	CUDA_ERROR_OUT_OF_MEMORY:   "OUT_OF_MEMORY",
	CUDA_ERROR_NOT_INITIALIZED: "NOT_INITIALIZED",
	CUDA_ERROR_DEINITIALIZED:   "DEINITIALIZED",
	CUDA_ERROR_NO_DEVICE:       "NO_DEVICE",
	CUDA_ERROR_INVALID_DEVICE:  "INVALID_DEVICE",
	CUDA_ERROR_INVALID_CONTEXT: "INVALID_CONTEXT",
	CUDA_ERROR_INVALID_HANDLE:  "INVALID_HANDLE",
	CUDA_ERROR_NOT_FOUND:       "NOT_FOUND",
	CUDA_ERROR_NOT_READY:       "NOT_READY",
	CUDA_ERROR_UNKNOWN:         "UNKNOWN",
}

func (r CUresult) Error() string {
	if r == CUDA_SUCCESS {
		return "CUDA_SUCCESS"
	}
	if name, ok := curesultNames[r]; ok {
		return fmt.Sprintf("CUDA_ERROR_%s (%d)", name, int32(r))
	}
	return fmt.Sprintf("CUDA_ERROR (%d)", int32(r))
}

// errOr converts a CUresult to nil or to an error carrying the call site.
// The CUresult stays recoverable with errors.As.
func (r CUresult) errOr(op string) error {
	if r == CUDA_SUCCESS {
		return nil
	}
	return errors.WithMessage(r, op)
}

// DeviceAttribute selects a CUdevice_attribute for Device.Attribute.
type DeviceAttribute int32

const (
	CU_DEVICE_ATTRIBUTE_MAX_THREADS_PER_BLOCK       DeviceAttribute = 1
	CU_DEVICE_ATTRIBUTE_MAX_BLOCK_DIM_X             DeviceAttribute = 2
	CU_DEVICE_ATTRIBUTE_MAX_BLOCK_DIM_Y             DeviceAttribute = 3
	CU_DEVICE_ATTRIBUTE_MAX_BLOCK_DIM_Z             DeviceAttribute = 4
	CU_DEVICE_ATTRIBUTE_MAX_GRID_DIM_X              DeviceAttribute = 5
	CU_DEVICE_ATTRIBUTE_MAX_GRID_DIM_Y              DeviceAttribute = 6
	CU_DEVICE_ATTRIBUTE_MAX_GRID_DIM_Z              DeviceAttribute = 7
	CU_DEVICE_ATTRIBUTE_MAX_SHARED_MEMORY_PER_BLOCK DeviceAttribute = 8
	CU_DEVICE_ATTRIBUTE_TOTAL_CONSTANT_MEMORY       DeviceAttribute = 9
	CU_DEVICE_ATTRIBUTE_WARP_SIZE                   DeviceAttribute = 10
	CU_DEVICE_ATTRIBUTE_MAX_PITCH                   DeviceAttribute = 11
	CU_DEVICE_ATTRIBUTE_MAX_REGISTERS_PER_BLOCK     DeviceAttribute = 12
	CU_DEVICE_ATTRIBUTE_CLOCK_RATE                  DeviceAttribute = 13
	CU_DEVICE_ATTRIBUTE_TEXTURE_ALIGNMENT           DeviceAttribute = 14
	CU_DEVICE_ATTRIBUTE_GPU_OVERLAP                 DeviceAttribute = 15
	CU_DEVICE_ATTRIBUTE_MULTIPROCESSOR_COUNT        DeviceAttribute = 16
	CU_DEVICE_ATTRIBUTE_INTEGRATED                  DeviceAttribute = 18
	CU_DEVICE_ATTRIBUTE_CAN_MAP_HOST_MEMORY         DeviceAttribute = 19
	CU_DEVICE_ATTRIBUTE_CONCURRENT_KERNELS          DeviceAttribute = 31
	CU_DEVICE_ATTRIBUTE_ECC_ENABLED                 DeviceAttribute = 32
	CU_DEVICE_ATTRIBUTE_PCI_BUS_ID                  DeviceAttribute = 33
	CU_DEVICE_ATTRIBUTE_PCI_DEVICE_ID               DeviceAttribute = 34
	CU_DEVICE_ATTRIBUTE_MEMORY_CLOCK_RATE           DeviceAttribute = 36
	CU_DEVICE_ATTRIBUTE_GLOBAL_MEMORY_BUS_WIDTH     DeviceAttribute = 37
	CU_DEVICE_ATTRIBUTE_L2_CACHE_SIZE               DeviceAttribute = 38
	CU_DEVICE_ATTRIBUTE_ASYNC_ENGINE_COUNT          DeviceAttribute = 40
	CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MAJOR    DeviceAttribute = 75
	CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MINOR    DeviceAttribute = 76
)

// Driver function pointers, registered by registerFuncs after dlopen.
var (
	cuInit             func(flags uint32) CUresult
	cuDriverGetVersion func(version *int32) CUresult

	cuDeviceGetCount     func(count *int32) CUresult
	cuDeviceGet          func(device *int32, ordinal int32) CUresult
	cuDeviceGetName      func(name *byte, len int32, dev int32) CUresult
	cuDeviceTotalMem     func(bytes *uint64, dev int32) CUresult
	cuDeviceGetAttribute func(pi *int32, attrib int32, dev int32) CUresult

	cuCtxCreate     func(pctx *uintptr, flags uint32, dev int32) CUresult
	cuCtxSetCurrent func(ctx uintptr) CUresult
	cuCtxDestroy    func(ctx uintptr) CUresult

	cuMemAlloc   func(dptr *uintptr, bytesize uint64) CUresult
	cuMemFree    func(dptr uintptr) CUresult
	cuMemGetInfo func(free, total *uint64) CUresult
)

func registerFuncs(lib uintptr) {
	purego.RegisterLibFunc(&cuInit, lib, "cuInit")
	purego.RegisterLibFunc(&cuDriverGetVersion, lib, "cuDriverGetVersion")
	purego.RegisterLibFunc(&cuDeviceGetCount, lib, "cuDeviceGetCount")
	purego.RegisterLibFunc(&cuDeviceGet, lib, "cuDeviceGet")
	purego.RegisterLibFunc(&cuDeviceGetName, lib, "cuDeviceGetName")
	purego.RegisterLibFunc(&cuDeviceTotalMem, lib, "cuDeviceTotalMem_v2")
	purego.RegisterLibFunc(&cuDeviceGetAttribute, lib, "cuDeviceGetAttribute")
	purego.RegisterLibFunc(&cuCtxCreate, lib, "cuCtxCreate_v2")
	purego.RegisterLibFunc(&cuCtxSetCurrent, lib, "cuCtxSetCurrent")
	purego.RegisterLibFunc(&cuCtxDestroy, lib, "cuCtxDestroy_v2")
	purego.RegisterLibFunc(&cuMemAlloc, lib, "cuMemAlloc_v2")
	purego.RegisterLibFunc(&cuMemFree, lib, "cuMemFree_v2")
	purego.RegisterLibFunc(&cuMemGetInfo, lib, "cuMemGetInfo_v2")
}

// DriverVersion returns the installed driver's CUDA version as (major, minor).
func DriverVersion() (major, minor int, err error) {
	if err = Init(); err != nil {
		return 0, 0, err
	}
	var v int32
	if err = cuDriverGetVersion(&v).errOr("cuDriverGetVersion"); err != nil {
		return 0, 0, err
	}
	return int(v) / 1000, int(v) % 1000 / 10, nil
}

// DeviceCount returns the number of CUDA capable devices visible to the driver.
func DeviceCount() (int, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	var count int32
	if err := cuDeviceGetCount(&count).errOr("cuDeviceGetCount"); err != nil {
		return 0, err
	}
	return int(count), nil
}

// Device is a CUdevice ordinal handle.
type Device int32

// DeviceGet resolves the device handle for the given ordinal.
func DeviceGet(ordinal int) (Device, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	var dev int32
	if err := cuDeviceGet(&dev, int32(ordinal)).errOr("cuDeviceGet"); err != nil {
		return 0, err
	}
	return Device(dev), nil
}

// Name returns the device's marketing name ("NVIDIA GeForce RTX 4090").
func (d Device) Name() (string, error) {
	buf := make([]byte, 256)
	if err := cuDeviceGetName(&buf[0], int32(len(buf)), int32(d)).errOr("cuDeviceGetName"); err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// TotalMem returns the device's total global memory in bytes.
func (d Device) TotalMem() (uint64, error) {
	var bytes uint64
	if err := cuDeviceTotalMem(&bytes, int32(d)).errOr("cuDeviceTotalMem"); err != nil {
		return 0, err
	}
	return bytes, nil
}

// Attribute queries a single CUdevice_attribute value.
func (d Device) Attribute(attr DeviceAttribute) (int, error) {
	var v int32
	if err := cuDeviceGetAttribute(&v, int32(attr), int32(d)).errOr("cuDeviceGetAttribute"); err != nil {
		return 0, err
	}
	return int(v), nil
}

// Context is a CUcontext handle.
type Context uintptr

// CtxCreate creates a driver context on the device and makes it current for
// the calling thread.
func CtxCreate(dev Device, flags uint32) (Context, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	var ctx uintptr
	if err := cuCtxCreate(&ctx, flags, int32(dev)).errOr("cuCtxCreate"); err != nil {
		return 0, err
	}
	return Context(ctx), nil
}

// SetCurrent binds the context to the calling thread.
func (c Context) SetCurrent() error {
	return cuCtxSetCurrent(uintptr(c)).errOr("cuCtxSetCurrent")
}

// Destroy tears the context down. The handle must not be used afterwards.
func (c Context) Destroy() error {
	return cuCtxDestroy(uintptr(c)).errOr("cuCtxDestroy")
}

// DevicePtr is a raw device memory address (CUdeviceptr).
type DevicePtr uintptr

// MemAlloc allocates size bytes of device memory in the current context.
func MemAlloc(size uint64) (DevicePtr, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	var dptr uintptr
	if err := cuMemAlloc(&dptr, size).errOr("cuMemAlloc"); err != nil {
		return 0, err
	}
	return DevicePtr(dptr), nil
}

// Free releases device memory. Freeing the zero pointer is a no-op.
func (p DevicePtr) Free() error {
	if p == 0 {
		return nil
	}
	return cuMemFree(uintptr(p)).errOr("cuMemFree")
}

// MemGetInfo reports free and total memory of the current context's device.
func MemGetInfo() (free, total uint64, err error) {
	if err = Init(); err != nil {
		return 0, 0, err
	}
	if err = cuMemGetInfo(&free, &total).errOr("cuMemGetInfo"); err != nil {
		return 0, 0, err
	}
	return free, total, nil
}
