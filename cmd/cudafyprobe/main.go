// cudafyprobe lists the devices cudafy can see, with their properties.
//
// Usage:
//
//	cudafyprobe [-kind cuda|emulator|all] [-advanced=false]
//
// Pass -v=1 (klog verbosity) to also see the registry's create/remove traces.
package main

import (
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"k8s.io/klog/v2"

	"github.com/lillo42/cudafy"
	"github.com/lillo42/cudafy/cuda"
)

var (
	flagKind = flag.String("kind", "all",
		"Device kind to probe: \"cuda\", \"emulator\" or \"all\".")
	flagAdvanced = flag.Bool("advanced", true,
		"Also query advanced properties: free memory, driver version and, if NVML is compiled in, utilization readings.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var kinds []cudafy.DeviceKind
	if *flagKind == "all" {
		kinds = cudafy.DeviceKindValues()
	} else {
		kind, err := cudafy.DeviceKindString(*flagKind)
		if err != nil {
			klog.Fatal(err)
		}
		kinds = []cudafy.DeviceKind{kind}
	}

	for _, kind := range kinds {
		if kind == cudafy.Cuda && !cuda.Available() {
			color.Yellow("CUDA driver library not found, skipping Cuda devices.")
			continue
		}
		listed := 0
		for props, err := range cudafy.GetDeviceProperties(kind, *flagAdvanced) {
			if err != nil {
				klog.Fatalf("failed to enumerate %s devices: %+v", kind, err)
			}
			printDevice(props)
			listed++
		}
		if listed == 0 {
			fmt.Printf("No %s devices.\n", kind)
		}
	}
}

func printDevice(props cudafy.DeviceProperties) {
	title := color.New(color.FgGreen, color.Bold)
	fmt.Println(title.Sprintf("%s #%d: %s", props.Kind, props.DeviceID, props.Name))
	fmt.Printf("  platform:        %s\n", props.PlatformName)
	fmt.Printf("  capability:      %s\n", props.Capability())
	fmt.Printf("  global memory:   %s\n", humanize.IBytes(props.TotalGlobalMem))
	fmt.Printf("  multiprocessors: %d (warp size %d)\n", props.MultiProcessorCount, props.WarpSize)
	fmt.Printf("  max threads:     %d per block, block %v, grid %v\n",
		props.MaxThreadsPerBlock, props.MaxThreadsDim, props.MaxGridSize)
	if props.ClockRateKHz > 0 {
		fmt.Printf("  clocks:          core %d MHz, memory %d MHz, bus %d bit\n",
			props.ClockRateKHz/1000, props.MemoryClockRateKHz/1000, props.MemoryBusWidth)
	}
	if !props.UseAdvanced {
		return
	}
	fmt.Printf("  free memory:     %s\n", humanize.IBytes(props.FreeMem))
	if props.DriverVersion != "" {
		fmt.Printf("  driver:          %s\n", props.DriverVersion)
	}
	if props.UUID != "" {
		fmt.Printf("  uuid:            %s\n", props.UUID)
	}
	if props.PowerMilliwatts > 0 {
		fmt.Printf("  load:            %d%% gpu, %d C, %.1f W\n",
			props.UtilizationGPU, props.TemperatureC, float64(props.PowerMilliwatts)/1000)
	}
}
