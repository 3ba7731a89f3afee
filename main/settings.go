/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	settings.go: payloadd settings file, defaults and runtime status.
*/

package main

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

const defaultConfigLocation = "/etc/payload.conf"

type settings struct {
	DEBUG bool

	// Device is "bno055", "icm20948", "mpu9250", "bno08x-rvc" or "sim".
	Device     string
	I2CBus     byte
	SerialPort string

	Channels       []string
	PollIntervalMS int
	DataLog        bool
	DataLogPath    string
	LogDir         string
	ListenAddr     string

	// SafeModeAfterFailures is the number of consecutive failed reopen
	// attempts before safe mode. 0 never enters safe mode.
	SafeModeAfterFailures int
	ResetMethod           string
	ResetPin              int
	SimSpinRate           float64
	SimFaultEvery         int
}

type status struct {
	Version          string
	Device           string
	Connected        bool
	Channels         []string
	Uptime           int64
	UptimeHuman      string
	CPUTemp          float32
	LogDirFree       string
	Polls            uint64
	ReopenFailures   int
	LastPollTime     time.Time
	DataLogConnected bool
}

var (
	configLocation = defaultConfigLocation
	forceDebug     bool // -debug wins over the settings file
	globalSettings settings
	globalStatus   status
	settingsMutex  sync.Mutex
	statusMutex    sync.Mutex
)

func defaultSettings() settings {
	return settings{
		DEBUG:                 false,
		Device:                "bno055",
		I2CBus:                1,
		SerialPort:            "/dev/serial0",
		Channels:              []string{"acceleration", "gyroscope", "magnetometer", "rotation_vector"},
		PollIntervalMS:        1000,
		DataLog:               false,
		DataLogPath:           "/var/log/payload/telemetry.sqlite",
		LogDir:                "/var/log/payload",
		ListenAddr:            ":9980",
		SafeModeAfterFailures: 0,
		ResetMethod:           "reboot",
		ResetPin:              21,
		SimSpinRate:           0.05,
	}
}

// readSettings loads the settings file over the defaults. A missing or
// broken file leaves the defaults in place.
func readSettings() {
	newSettings := defaultSettings()
	buf, err := os.ReadFile(configLocation)
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
	} else if err = json.Unmarshal(buf, &newSettings); err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		newSettings = defaultSettings()
	} else {
		log.Printf("read in settings.\n")
	}
	if forceDebug {
		newSettings.DEBUG = true
	}
	if newSettings.PollIntervalMS <= 0 {
		newSettings.PollIntervalMS = defaultSettings().PollIntervalMS
	}

	settingsMutex.Lock()
	globalSettings = newSettings
	settingsMutex.Unlock()
}

func saveSettings() {
	settingsMutex.Lock()
	jsonSettings, err := json.MarshalIndent(&globalSettings, "", "  ")
	settingsMutex.Unlock()
	if err != nil {
		log.Printf("can't save settings %s: %s\n", configLocation, err.Error())
		return
	}
	if err = os.WriteFile(configLocation, jsonSettings, 0644); err != nil {
		log.Printf("can't save settings %s: %s\n", configLocation, err.Error())
		return
	}
	log.Printf("wrote settings.\n")
}

func currentSettings() settings {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	s := globalSettings
	s.Channels = append([]string(nil), globalSettings.Channels...)
	return s
}
