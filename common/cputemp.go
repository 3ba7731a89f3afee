package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const InvalidCpuTemp = float32(-99.0)

const thermalZone = "/sys/class/thermal/thermal_zone0/temp"

type CpuTempUpdateFunc func(cpuTemp float32)

/* CpuTempMonitor reads the board temperature every second and calls
updater with it until stop is closed. It runs in its own goroutine because
reading the thermal zone can hang for a while on some boards. */

func CpuTempMonitor(updater CpuTempUpdateFunc, stop <-chan struct{}) {
	timer := time.NewTicker(1 * time.Second)
	defer timer.Stop()
	for {
		if t := ReadCpuTemp(thermalZone); t > InvalidCpuTemp {
			updater(t)
		}
		select {
		case <-timer.C:
		case <-stop:
			return
		}
	}
}

// ReadCpuTemp returns the temperature in degrees C from a sysfs thermal
// file, or InvalidCpuTemp.
func ReadCpuTemp(path string) float32 {
	raw, err := os.ReadFile(path)
	if err != nil {
		return InvalidCpuTemp
	}
	return parseCpuTemp(string(raw))
}

func parseCpuTemp(s string) float32 {
	tInt, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return InvalidCpuTemp
	}
	if tInt > 1000 {
		return float32(tInt) / float32(1000.0)
	}
	return float32(tInt) // some kernels report whole degrees
}

// Check if CPU temperature is valid. Assume <= 0 is invalid.
func IsCPUTempValid(cpuTemp float32) bool {
	return cpuTemp > 0
}
