package payload

import (
	"fmt"

	"github.com/yearling2/payload/sensors"
)

var errNoDevice = fmt.Errorf("no IMU device: %w", sensors.ErrNotConnected)

// enable asks the device to produce every channel in channels and seeds a
// zero cache entry for each one it accepts. Repeated channels are sent to the
// device again; the cache keeps one entry per channel. Callers pass the
// enabled channel list, so the cache only ever holds channels that were in
// it. enable returns the number of channels the device refused.
func (p *Payload) enable(channels []sensors.Channel) (faults int) {
	p.debugf("Enabling the following: %v", channels)
	for _, c := range channels {
		var err error
		if p.dev == nil {
			err = errNoDevice
		} else {
			err = p.dev.EnableChannel(c)
		}
		if err != nil {
			faults++
			p.metrics.enableFaults.WithLabelValues(c.String()).Inc()
			p.debugf("ERROR enabling %s: %s", c, err)
			continue
		}
		if _, ok := p.cache[c]; !ok {
			p.cache[c] = c.Zero()
		}
	}
	return faults
}
