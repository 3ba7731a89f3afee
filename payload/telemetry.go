package payload

import (
	"fmt"

	"github.com/yearling2/payload/sensors"
)

// Read returns the latest value of c. Enabled channels are fetched from the
// device and cached; if the fetch fails the previous value is returned.
// Channels that are not enabled return their cached value, or zeros if they
// were never read, without touching the device.
func (p *Payload) Read(c sensors.Channel) sensors.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.member[c]; ok {
		p.refresh(c)
	}
	if v, ok := p.cache[c]; ok {
		return v.Clone()
	}
	return c.Zero()
}

// ReadName is Read for a channel given by name. It reports false for names
// that are not channels.
func (p *Payload) ReadName(name string) (sensors.Vector, bool) {
	c, ok := sensors.ParseChannel(name)
	if !ok {
		return nil, false
	}
	return p.Read(c), true
}

func (p *Payload) refresh(c sensors.Channel) {
	p.metrics.reads.WithLabelValues(c.String()).Inc()
	var (
		v   sensors.Vector
		err error
	)
	if p.dev == nil {
		err = errNoDevice
	} else {
		v, err = p.dev.ReadChannel(c)
	}
	if err == nil && len(v) != c.Arity() {
		err = fmt.Errorf("device returned %d components, want %d", len(v), c.Arity())
	}
	p.lastFault[c] = err != nil
	if err != nil {
		p.metrics.readFaults.WithLabelValues(c.String()).Inc()
		p.debugf("ERROR reading %s, keeping last value: %s", c, err)
		return
	}
	p.cache[c] = v.Clone()
}

// Channels returns a copy of the enabled channel list, in the order it was
// configured.
func (p *Payload) Channels() []sensors.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sensors.Channel, len(p.data))
	copy(out, p.data)
	return out
}

// Snapshot returns a copy of every cached value. It never touches the device.
func (p *Payload) Snapshot() map[sensors.Channel]sensors.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[sensors.Channel]sensors.Vector, len(p.cache))
	for c, v := range p.cache {
		out[c] = v.Clone()
	}
	return out
}

// Acceleration is the acceleration in m/s^2, gravity included.
func (p *Payload) Acceleration() sensors.Vector {
	return p.Read(sensors.Acceleration)
}

// Gyroscope is the angular rate in rad/s.
func (p *Payload) Gyroscope() sensors.Vector {
	return p.Read(sensors.Gyroscope)
}

// Magnetometer is the magnetic field in uT.
func (p *Payload) Magnetometer() sensors.Vector {
	return p.Read(sensors.Magnetometer)
}

// LinearAcceleration is the acceleration in m/s^2 with gravity removed.
func (p *Payload) LinearAcceleration() sensors.Vector {
	return p.Read(sensors.LinearAcceleration)
}

// Rotation is the absolute orientation quaternion (i, j, k, real).
func (p *Payload) Rotation() sensors.Vector {
	return p.Read(sensors.RotationVector)
}

// GeomagneticRotation is the orientation quaternion computed without the gyroscope.
func (p *Payload) GeomagneticRotation() sensors.Vector {
	return p.Read(sensors.GeomagneticRotationVector)
}

// GameRotation is the orientation quaternion computed without the magnetometer.
func (p *Payload) GameRotation() sensors.Vector {
	return p.Read(sensors.GameRotationVector)
}

// RawAcceleration is the unscaled accelerometer output.
func (p *Payload) RawAcceleration() sensors.Vector {
	return p.Read(sensors.RawAcceleration)
}

// RawGyroscope is the unscaled gyroscope output.
func (p *Payload) RawGyroscope() sensors.Vector {
	return p.Read(sensors.RawGyroscope)
}

// RawMagnetometer is the unscaled magnetometer output.
func (p *Payload) RawMagnetometer() sensors.Vector {
	return p.Read(sensors.RawMagnetometer)
}
