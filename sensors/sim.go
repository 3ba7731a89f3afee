package sensors

import (
	"errors"
	"math"
	"time"

	"github.com/kidoman/embd"
)

var errSimFault = errors.New("simulated bus fault")

// SimIMU is a bench stand-in for the flight IMU: the body spins about z at
// SpinRate with gravity along +z and a fixed field in the x-z plane. Every
// FaultEvery-th read fails when FaultEvery > 0.
type SimIMU struct {
	SpinRate   float64 // rad/s
	FaultEvery int

	start   time.Time
	now     func() time.Time
	reads   int
	enabled [numChannels]bool
	closed  bool
}

// OpenSim returns an Opener for a SimIMU.
func OpenSim(spinRate float64, faultEvery int) Opener {
	return func(embd.I2CBus) (IMUDevice, error) {
		return newSimIMU(spinRate, faultEvery, time.Now), nil
	}
}

func newSimIMU(spinRate float64, faultEvery int, now func() time.Time) *SimIMU {
	return &SimIMU{SpinRate: spinRate, FaultEvery: faultEvery, start: now(), now: now}
}

func (s *SimIMU) EnableChannel(c Channel) error {
	if s.closed {
		return fault("sim", "enable", c, ErrNotConnected)
	}
	if !c.Valid() {
		return fault("sim", "enable", c, ErrUnsupportedChannel)
	}
	s.enabled[c] = true
	return nil
}

func (s *SimIMU) ReadChannel(c Channel) (Vector, error) {
	if s.closed {
		return nil, fault("sim", "read", c, ErrNotConnected)
	}
	if !c.Valid() || !s.enabled[c] {
		return nil, fault("sim", "read", c, ErrChannelDisabled)
	}
	s.reads++
	if s.FaultEvery > 0 && s.reads%s.FaultEvery == 0 {
		return nil, fault("sim", "read", c, errSimFault)
	}

	yaw := s.SpinRate * s.now().Sub(s.start).Seconds()
	const fieldH, fieldZ = 22.0, -42.0 // uT
	mag := Vector{fieldH * math.Cos(-yaw), fieldH * math.Sin(-yaw), fieldZ}
	q := Vector{0, 0, math.Sin(yaw / 2), math.Cos(yaw / 2)}

	switch c {
	case Acceleration:
		return Vector{0, 0, standardGravity}, nil
	case Gyroscope:
		return Vector{0, 0, s.SpinRate}, nil
	case Magnetometer:
		return mag, nil
	case LinearAcceleration:
		return Vector{0, 0, 0}, nil
	case RotationVector, GeomagneticRotationVector, GameRotationVector:
		return q, nil
	case RawAcceleration:
		return Vector{0, 0, math.Round(standardGravity * 100)}, nil
	case RawGyroscope:
		return Vector{0, 0, math.Round(s.SpinRate * 180 / math.Pi * 16)}, nil
	case RawMagnetometer:
		return Vector{math.Round(mag[0] * 16), math.Round(mag[1] * 16), math.Round(mag[2] * 16)}, nil
	}
	return nil, fault("sim", "read", c, ErrUnsupportedChannel)
}

func (s *SimIMU) Close() error {
	s.closed = true
	return nil
}
