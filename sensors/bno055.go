package sensors

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/kidoman/embd"
)

const (
	bno055Address = 0x28
	bno055ChipID  = 0xA0

	bno055RegChipID   = 0x00
	bno055RegAccel    = 0x08
	bno055RegMag      = 0x0E
	bno055RegGyro     = 0x14
	bno055RegQuat     = 0x20
	bno055RegLinAccel = 0x28
	bno055RegOprMode  = 0x3D
	bno055RegPwrMode  = 0x3E

	bno055ModeConfig = 0x00
	bno055ModeNDOF   = 0x0C
	bno055PwrNormal  = 0x00

	// Default UNIT_SEL: m/s^2, uT and dps, 16 LSB per dps.
	bno055AccelScale = 1.0 / 100.0
	bno055MagScale   = 1.0 / 16.0
	bno055GyroScale  = 1.0 / 16.0 * math.Pi / 180
	bno055QuatScale  = 1.0 / (1 << 14)
)

// registerBus is the part of embd.I2CBus the BNO055 needs.
type registerBus interface {
	ReadByteFromReg(addr, reg byte) (byte, error)
	ReadFromReg(addr, reg byte, value []byte) error
	WriteByteToReg(addr, reg, value byte) error
}

// BNO055 is a Bosch BNO055 attached to the I2C bus, running its own fusion
// in NDOF mode, and satisfies the IMUDevice interface.
type BNO055 struct {
	bus     registerBus
	address byte
	sleep   func(time.Duration)
	enabled [numChannels]bool
}

// OpenBNO055 connects to a BNO055 at its default address. It has the
// Opener signature.
func OpenBNO055(bus embd.I2CBus) (IMUDevice, error) {
	if bus == nil {
		return nil, fault("bno055", "open", 0, ErrNotConnected)
	}
	return newBNO055(bus, bno055Address, time.Sleep)
}

func newBNO055(bus registerBus, address byte, sleep func(time.Duration)) (*BNO055, error) {
	d := &BNO055{bus: bus, address: address, sleep: sleep}

	id, err := bus.ReadByteFromReg(address, bno055RegChipID)
	if err != nil {
		return nil, fault("bno055", "open", 0, err)
	}
	if id != bno055ChipID {
		return nil, fault("bno055", "open", 0, fmt.Errorf("unexpected chip id 0x%02X", id))
	}

	if err = d.setMode(bno055ModeConfig); err != nil {
		return nil, fault("bno055", "open", 0, err)
	}
	if err = bus.WriteByteToReg(address, bno055RegPwrMode, bno055PwrNormal); err != nil {
		return nil, fault("bno055", "open", 0, err)
	}
	if err = d.setMode(bno055ModeNDOF); err != nil {
		return nil, fault("bno055", "open", 0, err)
	}
	return d, nil
}

func (d *BNO055) setMode(mode byte) error {
	if err := d.bus.WriteByteToReg(d.address, bno055RegOprMode, mode); err != nil {
		return err
	}
	// Mode switches take up to 19 ms (datasheet table 3-6).
	d.sleep(20 * time.Millisecond)
	return nil
}

// bno055Register maps a channel to its data block, or false if the BNO055
// cannot produce it. Geomagnetic and game rotation vectors need fusion
// modes that exclude NDOF.
func bno055Register(c Channel) (reg byte, ok bool) {
	switch c {
	case Acceleration, RawAcceleration:
		return bno055RegAccel, true
	case Gyroscope, RawGyroscope:
		return bno055RegGyro, true
	case Magnetometer, RawMagnetometer:
		return bno055RegMag, true
	case LinearAcceleration:
		return bno055RegLinAccel, true
	case RotationVector:
		return bno055RegQuat, true
	}
	return 0, false
}

// EnableChannel checks the chip is still in NDOF mode and marks c enabled.
func (d *BNO055) EnableChannel(c Channel) error {
	if d.bus == nil {
		return fault("bno055", "enable", c, ErrNotConnected)
	}
	if _, ok := bno055Register(c); !ok {
		return fault("bno055", "enable", c, ErrUnsupportedChannel)
	}
	mode, err := d.bus.ReadByteFromReg(d.address, bno055RegOprMode)
	if err != nil {
		return fault("bno055", "enable", c, err)
	}
	if mode&0x0F != bno055ModeNDOF {
		if err = d.setMode(bno055ModeNDOF); err != nil {
			return fault("bno055", "enable", c, err)
		}
	}
	d.enabled[c] = true
	return nil
}

// ReadChannel reads the data block for c and scales it to SI units. The raw
// channels return the unscaled register counts.
func (d *BNO055) ReadChannel(c Channel) (Vector, error) {
	if d.bus == nil {
		return nil, fault("bno055", "read", c, ErrNotConnected)
	}
	reg, ok := bno055Register(c)
	if !ok {
		return nil, fault("bno055", "read", c, ErrUnsupportedChannel)
	}
	if !d.enabled[c] {
		return nil, fault("bno055", "read", c, ErrChannelDisabled)
	}

	buf := make([]byte, 2*c.Arity())
	if err := d.bus.ReadFromReg(d.address, reg, buf); err != nil {
		return nil, fault("bno055", "read", c, err)
	}
	raw := make([]float64, c.Arity())
	for i := range raw {
		raw[i] = float64(int16(binary.LittleEndian.Uint16(buf[2*i:])))
	}

	switch c {
	case Acceleration, LinearAcceleration:
		return scale(raw, bno055AccelScale), nil
	case Gyroscope:
		return scale(raw, bno055GyroScale), nil
	case Magnetometer:
		return scale(raw, bno055MagScale), nil
	case RotationVector:
		// Registers are w, x, y, z.
		q := scale(raw, bno055QuatScale)
		return Vector{q[1], q[2], q[3], q[0]}, nil
	}
	return Vector(raw), nil
}

// Close puts the chip back in config mode and drops the bus.
func (d *BNO055) Close() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.WriteByteToReg(d.address, bno055RegOprMode, bno055ModeConfig)
	d.bus = nil
	if err != nil {
		return fault("bno055", "close", 0, err)
	}
	return nil
}

func scale(v []float64, k float64) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}
