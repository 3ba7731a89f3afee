package sensors

import (
	"errors"
	"math"
	"time"
)

const (
	standardGravity = 9.80665

	// Attempts at an averaged sample before giving up; the drivers hand out
	// empty averages when polled faster than they sample.
	mpuSampleTries = 5
)

var errNoSample = errors.New("no sample from IMU within timeout")

// mpuSample is one averaged reading from a goflying MPU style driver, in g,
// deg/s and uT, with the driver's own per-sensor errors.
type mpuSample struct {
	N             int
	A, G, M       [3]float64
	GAErr, MagErr error
}

// mpuDevice adapts the goflying MPU drivers. They sample all sensors
// continuously in their own goroutine, so enabling a channel only checks
// that the chip has it.
type mpuDevice struct {
	name    string
	mag     bool
	timeout time.Duration
	next    func(timeout time.Duration) (*mpuSample, error)
	stop    func()
	enabled [numChannels]bool
}

func mpuSupports(c Channel) bool {
	return c == Acceleration || c == Gyroscope || c == Magnetometer
}

func (m *mpuDevice) EnableChannel(c Channel) error {
	if m.stop == nil {
		return fault(m.name, "enable", c, ErrNotConnected)
	}
	if !mpuSupports(c) || (c == Magnetometer && !m.mag) {
		return fault(m.name, "enable", c, ErrUnsupportedChannel)
	}
	m.enabled[c] = true
	return nil
}

// ReadChannel returns the average since the previous read for c, in m/s^2,
// rad/s or uT.
func (m *mpuDevice) ReadChannel(c Channel) (Vector, error) {
	if m.stop == nil {
		return nil, fault(m.name, "read", c, ErrNotConnected)
	}
	if !c.Valid() || !m.enabled[c] {
		return nil, fault(m.name, "read", c, ErrChannelDisabled)
	}

	var s *mpuSample
	for i := 0; i < mpuSampleTries && (s == nil || s.N == 0); i++ {
		var err error
		if s, err = m.next(m.timeout); err != nil {
			return nil, fault(m.name, "read", c, err)
		}
	}
	if s.N == 0 {
		return nil, fault(m.name, "read", c, errNoSample)
	}

	v, err := mpuVector(c, s)
	if err != nil {
		return nil, fault(m.name, "read", c, err)
	}
	return v, nil
}

func mpuVector(c Channel, s *mpuSample) (Vector, error) {
	switch c {
	case Acceleration:
		if s.GAErr != nil {
			return nil, s.GAErr
		}
		return Vector{s.A[0] * standardGravity, s.A[1] * standardGravity, s.A[2] * standardGravity}, nil
	case Gyroscope:
		if s.GAErr != nil {
			return nil, s.GAErr
		}
		k := math.Pi / 180
		return Vector{s.G[0] * k, s.G[1] * k, s.G[2] * k}, nil
	case Magnetometer:
		if s.MagErr != nil {
			return nil, s.MagErr
		}
		return Vector{s.M[0], s.M[1], s.M[2]}, nil
	}
	return nil, ErrUnsupportedChannel
}

// Close stops the driver's polling goroutine.
func (m *mpuDevice) Close() error {
	if m.stop == nil {
		return nil
	}
	m.stop()
	m.stop = nil
	return nil
}
