// Package sensors provides the payload interface to the IMU and the adapters
// for the devices it can be flown with.
package sensors

import (
	"errors"
	"fmt"

	"github.com/kidoman/embd"
)

var (
	// ErrNotConnected is returned when a device is used after Close or was never opened.
	ErrNotConnected = errors.New("imu not connected")
	// ErrUnsupportedChannel is returned by adapters for channels their chip cannot produce.
	ErrUnsupportedChannel = errors.New("channel not supported by device")
	// ErrChannelDisabled is returned when reading a channel that was never enabled on the device.
	ErrChannelDisabled = errors.New("channel not enabled on device")
)

// IMUDevice is a light abstraction on top of the concrete IMU drivers so that
// the payload can be flown with any of the supported chips without changing
// the telemetry code.
type IMUDevice interface {
	// EnableChannel asks the chip to start producing c.
	EnableChannel(c Channel) error
	// ReadChannel returns the most recent reading of c.
	ReadChannel(c Channel) (Vector, error)
	// Close stops reading from the device.
	Close() error
}

// Opener acquires a fresh IMUDevice on the given bus.
type Opener func(bus embd.I2CBus) (IMUDevice, error)

// HardwareFault is the error every adapter returns for bus or device failures.
type HardwareFault struct {
	Device  string
	Op      string
	Channel Channel
	Err     error
}

func (f *HardwareFault) Error() string {
	if f.Op == "open" || f.Op == "close" {
		return fmt.Sprintf("%s %s: %s", f.Device, f.Op, f.Err)
	}
	return fmt.Sprintf("%s %s %s: %s", f.Device, f.Op, f.Channel, f.Err)
}

func (f *HardwareFault) Unwrap() error {
	return f.Err
}

func fault(device, op string, c Channel, err error) error {
	return &HardwareFault{Device: device, Op: op, Channel: c, Err: err}
}
