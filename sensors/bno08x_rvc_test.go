package sensors

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rvcFrameBytes(index uint8, yaw, pitch, roll, ax, ay, az int16) []byte {
	b := make([]byte, rvcFrameLen)
	b[0], b[1] = rvcHeader, rvcHeader
	b[2] = index
	for i, w := range []int16{yaw, pitch, roll, ax, ay, az} {
		binary.LittleEndian.PutUint16(b[3+2*i:], uint16(w))
	}
	var sum byte
	for _, x := range b[2:18] {
		sum += x
	}
	b[18] = sum
	return b
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestDecodeRVCFrame(t *testing.T) {
	f, err := decodeRVCFrame(rvcFrameBytes(7, 9000, -1500, 0, 0, -500, 1000)[2:])
	require.NoError(t, err)

	assert.Equal(t, uint8(7), f.Index)
	assert.InDelta(t, math.Pi/2, f.Yaw, 1e-9)
	assert.InDelta(t, -15*math.Pi/180, f.Pitch, 1e-9)
	assert.InDelta(t, 0, f.Roll, 1e-9)
	assert.InDeltaSlice(t, []float64{0, -standardGravity / 2, standardGravity}, f.Accel[:], 1e-9)
}

func TestDecodeRVCFrameChecksum(t *testing.T) {
	b := rvcFrameBytes(1, 0, 0, 0, 0, 0, 1000)
	b[18]++
	_, err := decodeRVCFrame(b[2:])
	assert.True(t, errors.Is(err, errRVCChecksum))
}

func TestReadRVCFrameResyncs(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x01, rvcHeader, 0x02, 0x03})
	stream.Write(rvcFrameBytes(42, 0, 0, 0, 0, 0, 1000))

	f, err := readRVCFrame(bufio.NewReader(&stream))
	require.NoError(t, err)
	assert.Equal(t, uint8(42), f.Index)

	_, err = readRVCFrame(bufio.NewReader(&stream))
	assert.True(t, errors.Is(err, io.EOF))
}

func TestEulerToQuaternion(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 0, 0, 1}, eulerToQuaternion(0, 0, 0), 1e-12)
	s := math.Sqrt2 / 2
	assert.InDeltaSlice(t, []float64{0, 0, s, s}, eulerToQuaternion(math.Pi/2, 0, 0), 1e-12)
	assert.InDeltaSlice(t, []float64{s, 0, 0, s}, eulerToQuaternion(0, 0, math.Pi/2), 1e-12)
}

func TestBNO08xRVCStream(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	pr, pw := io.Pipe()
	d := newBNO08xRVC(pr, clock.now)

	require.NoError(t, d.EnableChannel(Acceleration))
	require.NoError(t, d.EnableChannel(GameRotationVector))
	assert.True(t, errors.Is(d.EnableChannel(RotationVector), ErrUnsupportedChannel))

	_, err := d.ReadChannel(Acceleration)
	assert.True(t, errors.Is(err, errRVCStale), "no frame yet")

	go pw.Write(rvcFrameBytes(1, 9000, 0, 0, 0, 0, 1000))

	require.Eventually(t, func() bool {
		_, err := d.ReadChannel(Acceleration)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	a, err := d.ReadChannel(Acceleration)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, standardGravity}, a, 1e-9)

	q, err := d.ReadChannel(GameRotationVector)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, math.Sqrt2 / 2, math.Sqrt2 / 2}, q, 1e-9)

	_, err = d.ReadChannel(Magnetometer)
	assert.True(t, errors.Is(err, ErrChannelDisabled))

	clock.advance(time.Second)
	_, err = d.ReadChannel(Acceleration)
	assert.True(t, errors.Is(err, errRVCStale))

	require.NoError(t, d.Close())
	_, err = d.ReadChannel(Acceleration)
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.True(t, errors.Is(d.EnableChannel(Acceleration), ErrNotConnected))
}
