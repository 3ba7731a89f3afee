package safemode

import (
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// GPIOResetter pulls an active-low reset line (BCM numbering) for Pulse.
type GPIOResetter struct {
	Pin   int
	Pulse time.Duration
}

func (g GPIOResetter) Reset() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("gpio open: %w", err)
	}
	defer rpio.Close()

	pulse := g.Pulse
	if pulse == 0 {
		pulse = 100 * time.Millisecond
	}
	pin := rpio.Pin(g.Pin)
	pin.Output()
	pin.Low()
	time.Sleep(pulse)
	pin.High()
	return nil
}
