package sensors

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegisters is a BNO055 register map behind the registerBus interface.
type fakeRegisters struct {
	regs    [0x80]byte
	writes  []byte // registers written, in order
	readErr error
}

func newFakeBNO055() *fakeRegisters {
	f := &fakeRegisters{}
	f.regs[bno055RegChipID] = bno055ChipID
	return f
}

func (f *fakeRegisters) ReadByteFromReg(addr, reg byte) (byte, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.regs[reg], nil
}

func (f *fakeRegisters) ReadFromReg(addr, reg byte, value []byte) error {
	if f.readErr != nil {
		return f.readErr
	}
	copy(value, f.regs[reg:])
	return nil
}

func (f *fakeRegisters) WriteByteToReg(addr, reg, value byte) error {
	f.writes = append(f.writes, reg)
	f.regs[reg] = value
	return nil
}

func (f *fakeRegisters) putWords(reg byte, words ...int16) {
	for i, w := range words {
		binary.LittleEndian.PutUint16(f.regs[int(reg)+2*i:], uint16(w))
	}
}

func noSleep(time.Duration) {}

func TestBNO055OpenSetsNDOF(t *testing.T) {
	bus := newFakeBNO055()
	d, err := newBNO055(bus, bno055Address, noSleep)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, byte(bno055ModeNDOF), bus.regs[bno055RegOprMode])
	assert.Equal(t, byte(bno055PwrNormal), bus.regs[bno055RegPwrMode])
	assert.Equal(t, []byte{bno055RegOprMode, bno055RegPwrMode, bno055RegOprMode}, bus.writes)
}

func TestBNO055OpenWrongChip(t *testing.T) {
	bus := newFakeBNO055()
	bus.regs[bno055RegChipID] = 0x68

	_, err := newBNO055(bus, bno055Address, noSleep)
	var hf *HardwareFault
	require.True(t, errors.As(err, &hf))
	assert.Equal(t, "open", hf.Op)
}

func TestOpenBNO055WithoutBus(t *testing.T) {
	_, err := OpenBNO055(nil)
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestBNO055Readings(t *testing.T) {
	bus := newFakeBNO055()
	d, err := newBNO055(bus, bno055Address, noSleep)
	require.NoError(t, err)

	bus.putWords(bno055RegAccel, 100, -200, 981)
	bus.putWords(bno055RegGyro, 16, 0, -32)
	bus.putWords(bno055RegMag, 320, 0, -640)
	bus.putWords(bno055RegLinAccel, 0, 50, 0)
	bus.putWords(bno055RegQuat, 1<<14, 0, 0, 0)

	for _, c := range []Channel{Acceleration, Gyroscope, Magnetometer, LinearAcceleration, RotationVector, RawAcceleration, RawGyroscope, RawMagnetometer} {
		require.NoError(t, d.EnableChannel(c), c.String())
	}

	read := func(c Channel) Vector {
		v, err := d.ReadChannel(c)
		require.NoError(t, err, c.String())
		return v
	}

	assert.InDeltaSlice(t, []float64{1, -2, 9.81}, read(Acceleration), 1e-9)
	assert.InDeltaSlice(t, []float64{math.Pi / 180, 0, -2 * math.Pi / 180}, read(Gyroscope), 1e-9)
	assert.InDeltaSlice(t, []float64{20, 0, -40}, read(Magnetometer), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0.5, 0}, read(LinearAcceleration), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 1}, read(RotationVector), 1e-9)
	assert.Equal(t, Vector{100, -200, 981}, read(RawAcceleration))
	assert.Equal(t, Vector{16, 0, -32}, read(RawGyroscope))
	assert.Equal(t, Vector{320, 0, -640}, read(RawMagnetometer))
}

func TestBNO055UnsupportedAndDisabled(t *testing.T) {
	d, err := newBNO055(newFakeBNO055(), bno055Address, noSleep)
	require.NoError(t, err)

	assert.True(t, errors.Is(d.EnableChannel(GameRotationVector), ErrUnsupportedChannel))
	assert.True(t, errors.Is(d.EnableChannel(GeomagneticRotationVector), ErrUnsupportedChannel))

	_, err = d.ReadChannel(Acceleration)
	assert.True(t, errors.Is(err, ErrChannelDisabled))
}

func TestBNO055EnableRestoresNDOF(t *testing.T) {
	bus := newFakeBNO055()
	d, err := newBNO055(bus, bno055Address, noSleep)
	require.NoError(t, err)

	bus.regs[bno055RegOprMode] = bno055ModeConfig
	require.NoError(t, d.EnableChannel(Gyroscope))
	assert.Equal(t, byte(bno055ModeNDOF), bus.regs[bno055RegOprMode])
}

func TestBNO055BusErrors(t *testing.T) {
	bus := newFakeBNO055()
	d, err := newBNO055(bus, bno055Address, noSleep)
	require.NoError(t, err)
	require.NoError(t, d.EnableChannel(Acceleration))

	bus.readErr = errors.New("i2c: remote I/O error")
	_, err = d.ReadChannel(Acceleration)
	var hf *HardwareFault
	require.True(t, errors.As(err, &hf))
	assert.Equal(t, "read", hf.Op)
	assert.Equal(t, Acceleration, hf.Channel)
	assert.Contains(t, err.Error(), "remote I/O error")

	require.NoError(t, d.Close())
	assert.Equal(t, byte(bno055ModeConfig), bus.regs[bno055RegOprMode])
	_, err = d.ReadChannel(Acceleration)
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.NoError(t, d.Close())
}
