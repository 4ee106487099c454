//go:build cuda

package cudafy

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"k8s.io/klog/v2"
)

// nvmlFill adds NVIDIA management library readings to an advanced property
// snapshot. The driver level fields already present stay authoritative; NVML
// only contributes what the Driver API cannot report (driver version string,
// board UUID, utilization, temperature, power draw).
//
// NVML problems are logged and otherwise ignored: a snapshot without these
// readings is still valid.
func nvmlFill(props *DeviceProperties, index int) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		klog.V(1).Infof("NVML unavailable: %s", nvml.ErrorString(ret))
		return
	}
	defer func() {
		if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
			klog.Errorf("NVML shutdown failed: %s", nvml.ErrorString(ret))
		}
	}()

	dev, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		klog.Warningf("NVML has no handle for device #%d: %s", index, nvml.ErrorString(ret))
		return
	}
	if version, ret := nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		props.DriverVersion = version
	}
	if uuid, ret := dev.GetUUID(); ret == nvml.SUCCESS {
		props.UUID = uuid
	}
	if util, ret := dev.GetUtilizationRates(); ret == nvml.SUCCESS {
		props.UtilizationGPU = int(util.Gpu)
	}
	if temp, ret := dev.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		props.TemperatureC = int(temp)
	}
	if power, ret := dev.GetPowerUsage(); ret == nvml.SUCCESS {
		props.PowerMilliwatts = int(power)
	}
}
