/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	payloadd.go: Payload daemon. Opens the IMU, keeps the enabled channels
	 polled, serves the management interface and falls back to safe mode.

*/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/takama/daemon"

	"github.com/yearling2/payload/common"
	"github.com/yearling2/payload/payload"
	"github.com/yearling2/payload/safemode"
	"github.com/yearling2/payload/sensors"
)

const (
	// name of the service
	name        = "payloadd"
	description = "satellite IMU payload telemetry service"
)

// Set at build time with -ldflags "-X main.payloadVersion=...".
var payloadVersion = "dev"

var stdlog, errlog *log.Logger

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// deviceOpener picks the adapter for settings.Device. The bus is nil for
// devices that are not on I2C.
func deviceOpener(s settings) (embd.I2CBus, sensors.Opener, error) {
	switch s.Device {
	case "bno055", "icm20948", "mpu9250":
		if err := embd.InitI2C(); err != nil {
			return nil, nil, fmt.Errorf("i2c init: %w", err)
		}
		open := map[string]sensors.Opener{
			"bno055":   sensors.OpenBNO055,
			"icm20948": sensors.OpenICM20948,
			"mpu9250":  sensors.OpenMPU9250,
		}[s.Device]
		return embd.NewI2CBus(s.I2CBus), open, nil
	case "bno08x-rvc":
		return nil, sensors.OpenBNO08xRVC(s.SerialPort), nil
	case "sim":
		return nil, sensors.OpenSim(s.SimSpinRate, s.SimFaultEvery), nil
	}
	return nil, nil, fmt.Errorf("unknown device %q", s.Device)
}

func resetterFor(s settings) safemode.Resetter {
	if s.ResetMethod == "gpio" {
		return safemode.GPIOResetter{Pin: s.ResetPin}
	}
	return safemode.RebootResetter{}
}

var safeModeOnce sync.Once

// enterSafeMode does not return unless the reset fails, in which case the
// process exits and leaves the restart to the service manager.
func enterSafeMode(reason string) {
	safeModeOnce.Do(func() {
		log.Printf("Payload Error: entering safe mode: %s\n", reason)
		err := safemode.Enter(safemode.Config{Resetter: resetterFor(currentSettings())})
		log.Printf("Payload Error: %s\n", err.Error())
		os.Exit(1)
	})
}

// supervise runs fn and sends any panic that escapes it to safe mode.
func supervise(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			enterSafeMode(fmt.Sprintf("%s panicked: %v", what, r))
		}
	}()
	fn()
}

func updateCPUTemp(cpuTemp float32) {
	if !common.IsCPUTempValid(cpuTemp) {
		return
	}
	statusMutex.Lock()
	globalStatus.CPUTemp = cpuTemp
	statusMutex.Unlock()
}

// applySettings is run on SIGUSR1 after the settings file was re-read.
func applySettings() {
	s := currentSettings()
	myPayload.SetDebug(s.DEBUG)
	if err := myPayload.UpdateConfiguration(s.Channels, payload.Replace); err != nil {
		log.Printf("Payload Error: %s\n", err.Error())
	}
}

func run() (string, error) {
	readSettings()
	s := currentSettings()
	initLogging(s.LogDir)
	log.Printf("payloadd %s starting, device %s\n", payloadVersion, s.Device)
	if !common.IsRunningAsRoot() {
		log.Printf("Payload Info: not running as root, bus and GPIO access may fail\n")
	}

	bus, opener, err := deviceOpener(s)
	if err != nil {
		return "Device setup failed", err
	}
	if bus != nil {
		defer bus.Close()
	}

	registerMetrics(prometheus.DefaultRegisterer)
	myPayload = payload.New(s.DEBUG, bus, opener, s.Channels,
		payload.WithMetrics(payload.NewMetrics(prometheus.DefaultRegisterer)))
	defer myPayload.Close()

	var dl *dataLog
	if s.DataLog {
		if dl, err = openDataLog(s.DataLogPath); err != nil {
			log.Printf("Payload Error: %s\n", err.Error())
			dl = nil
		} else {
			defer dl.Close()
		}
	}

	statusMutex.Lock()
	globalStatus.Version = payloadVersion
	globalStatus.Device = s.Device
	statusMutex.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	pl := newPoller(myPayload, dl, enterSafeMode)
	go supervise("poller", func() { pl.run(stop) })
	go supervise("cputemp", func() { common.CpuTempMonitor(updateCPUTemp, stop) })
	go supervise("stats", func() { updateStats(stop) })
	go supervise("management interface", func() { managementInterface(s.ListenAddr, s.LogDir) })

	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	// interrupt by system signal
	for {
		killSignal := <-interrupt
		log.Println("Got signal:", killSignal)
		switch killSignal {
		case syscall.SIGUSR1:
			readSettings()
			applySettings()
		case syscall.SIGINT:
			return "Daemon was interrupted by system signal", nil
		default:
			return "Daemon was killed", nil
		}
	}
}

// Manage by daemon commands or run the daemon
func (service *Service) Manage() (string, error) {
	config := flag.String("config", defaultConfigLocation, "Settings file")
	debug := flag.Bool("debug", false, "Force debug logging on")
	flag.Parse()

	usage := "Usage: " + name + " install | remove | start | stop | status"
	// if received any kind of command, do it
	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	configLocation = *config
	forceDebug = *debug
	return run()
}

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(1)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		errlog.Println(status, "\nError: ", err)
		os.Exit(1)
	}
	stdlog.Println(status)
}
