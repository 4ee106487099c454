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

// Package cuda binds the CUDA Driver API ("libcuda") at runtime, using
// purego's dlopen support instead of cgo.
//
// Nothing links at build time: the library is resolved on first use, so the
// package (and everything importing it) compiles on machines without any
// NVIDIA software installed. On such machines Available returns false and
// every call returns an error naming the missing library.
//
// Only the small slice of the Driver API needed for device enumeration,
// property queries, context lifecycle and raw allocations is bound.
package cuda

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	muDriver   sync.Mutex
	driverLib  uintptr
	driverErr  error
	driverDone bool

	muInit   sync.Mutex
	initErr  error
	initDone bool
)

// driverLibraries returns the candidate shared library names for the current
// OS, tried in order.
func driverLibraries() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"nvcuda.dll"}
	case "darwin":
		return []string{"libcuda.dylib"}
	default:
		return []string{"libcuda.so.1", "libcuda.so"}
	}
}

// loadDriver dlopens libcuda and registers the bound functions.
// It runs at most once; later calls return the recorded outcome.
func loadDriver() error {
	muDriver.Lock()
	defer muDriver.Unlock()
	if driverDone {
		return driverErr
	}
	driverDone = true
	for _, name := range driverLibraries() {
		lib, err := openLibrary(name)
		if err != nil {
			klog.V(2).Infof("cuda: dlopen(%q) failed: %v", name, err)
			driverErr = err
			continue
		}
		klog.V(1).Infof("cuda: loaded driver library %q", name)
		driverLib = lib
		driverErr = nil
		registerFuncs(lib)
		return nil
	}
	driverErr = errors.Wrapf(driverErr, "failed to load the CUDA driver library (tried %v), is the NVIDIA driver installed?",
		driverLibraries())
	return driverErr
}

// Available reports whether the CUDA driver library could be loaded.
// It does not guarantee a usable device, only a resolvable libcuda.
func Available() bool {
	return loadDriver() == nil
}

// Init loads the driver library and runs cuInit once for the process.
// The other package-level functions call it implicitly; methods on Device,
// Context and DevicePtr act on handles those functions returned, with the
// driver already loaded.
func Init() error {
	if err := loadDriver(); err != nil {
		return err
	}
	muInit.Lock()
	defer muInit.Unlock()
	if initDone {
		return initErr
	}
	initDone = true
	initErr = cuInit(0).errOr("cuInit")
	return initErr
}
