package sensors

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/kidoman/embd"
	"github.com/tarm/serial"
)

const (
	rvcBaud        = 115200
	rvcFrameLen    = 19
	rvcHeader      = 0xAA
	rvcMaxAge      = 500 * time.Millisecond
	rvcReadTimeout = 100 * time.Millisecond
)

var (
	errRVCChecksum = errors.New("rvc frame checksum mismatch")
	errRVCStale    = errors.New("no rvc frame received recently")
)

// rvcFrame is one decoded UART-RVC report. Angles are radians, acceleration m/s^2.
type rvcFrame struct {
	Index            uint8
	Yaw, Pitch, Roll float64
	Accel            [3]float64
	received         time.Time
}

// BNO08xRVC is a BNO085/BNO086 strapped for UART-RVC mode. The chip streams
// heading and acceleration at 100 Hz on its own, so a goroutine keeps the
// latest frame and reads are served from it.
type BNO08xRVC struct {
	port io.ReadCloser
	now  func() time.Time

	mu      sync.Mutex
	latest  rvcFrame
	have    bool
	readErr error
	enabled [numChannels]bool
	done    chan struct{}
}

// OpenBNO08xRVC returns an Opener for a BNO08x on the named serial port. The
// I2C bus argument is unused; RVC mode talks over the UART only.
func OpenBNO08xRVC(portName string) Opener {
	return func(embd.I2CBus) (IMUDevice, error) {
		port, err := serial.OpenPort(&serial.Config{
			Name:        portName,
			Baud:        rvcBaud,
			ReadTimeout: rvcReadTimeout,
		})
		if err != nil {
			return nil, fault("bno08x-rvc", "open", 0, err)
		}
		return newBNO08xRVC(port, time.Now), nil
	}
}

func newBNO08xRVC(port io.ReadCloser, now func() time.Time) *BNO08xRVC {
	d := &BNO08xRVC{port: port, now: now, done: make(chan struct{})}
	go d.run(port)
	return d
}

func (d *BNO08xRVC) run(port io.Reader) {
	defer close(d.done)
	r := bufio.NewReaderSize(port, 4*rvcFrameLen)
	for {
		f, err := readRVCFrame(r)
		if errors.Is(err, errRVCChecksum) {
			continue
		}
		// tarm/serial reports a read timeout as a zero-length read (io.EOF)
		// while the port is still open; only a closed port ends the loop.
		if (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) && !d.closed() {
			continue
		}
		d.mu.Lock()
		if err != nil {
			d.readErr = err
			d.mu.Unlock()
			return
		}
		f.received = d.now()
		d.latest = f
		d.have = true
		d.mu.Unlock()
	}
}

func (d *BNO08xRVC) closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port == nil
}

// readRVCFrame syncs on the 0xAA 0xAA header and decodes the next frame.
func readRVCFrame(r *bufio.Reader) (rvcFrame, error) {
	var prev byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return rvcFrame{}, err
		}
		if prev == rvcHeader && b == rvcHeader {
			break
		}
		prev = b
	}

	body := make([]byte, rvcFrameLen-2)
	if _, err := io.ReadFull(r, body); err != nil {
		return rvcFrame{}, err
	}
	return decodeRVCFrame(body)
}

// decodeRVCFrame decodes the 17 bytes following the header: index, yaw,
// pitch, roll (0.01 deg), x/y/z acceleration (mg), three reserved bytes and
// the checksum over everything before it.
func decodeRVCFrame(body []byte) (rvcFrame, error) {
	var sum byte
	for _, b := range body[:len(body)-1] {
		sum += b
	}
	if sum != body[len(body)-1] {
		return rvcFrame{}, errRVCChecksum
	}

	word := func(i int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(body[i:])))
	}
	const deg = math.Pi / 180
	const mg = standardGravity / 1000
	return rvcFrame{
		Index: body[0],
		Yaw:   word(1) * 0.01 * deg,
		Pitch: word(3) * 0.01 * deg,
		Roll:  word(5) * 0.01 * deg,
		Accel: [3]float64{word(7) * mg, word(9) * mg, word(11) * mg},
	}, nil
}

// eulerToQuaternion converts ZYX yaw, pitch, roll to a unit quaternion in
// i, j, k, real order.
func eulerToQuaternion(yaw, pitch, roll float64) Vector {
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	return Vector{
		sr*cp*cy - cr*sp*sy,
		cr*sp*cy + sr*cp*sy,
		cr*cp*sy - sr*sp*cy,
		cr*cp*cy + sr*sp*sy,
	}
}

// RVC orientation is derived from the chip's game rotation vector, so that
// is the only quaternion channel offered.
func rvcSupports(c Channel) bool {
	return c == Acceleration || c == GameRotationVector
}

// EnableChannel marks c enabled. RVC output cannot be configured over the wire.
func (d *BNO08xRVC) EnableChannel(c Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil || d.readErr != nil {
		return fault("bno08x-rvc", "enable", c, ErrNotConnected)
	}
	if !rvcSupports(c) {
		return fault("bno08x-rvc", "enable", c, ErrUnsupportedChannel)
	}
	d.enabled[c] = true
	return nil
}

// ReadChannel returns c from the latest frame, if it is fresh enough.
func (d *BNO08xRVC) ReadChannel(c Channel) (Vector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return nil, fault("bno08x-rvc", "read", c, ErrNotConnected)
	}
	if d.readErr != nil {
		return nil, fault("bno08x-rvc", "read", c, d.readErr)
	}
	if !d.enabled[c] {
		return nil, fault("bno08x-rvc", "read", c, ErrChannelDisabled)
	}
	if !d.have || d.now().Sub(d.latest.received) > rvcMaxAge {
		return nil, fault("bno08x-rvc", "read", c, errRVCStale)
	}

	f := d.latest
	if c == GameRotationVector {
		return eulerToQuaternion(f.Yaw, f.Pitch, f.Roll), nil
	}
	return Vector{f.Accel[0], f.Accel[1], f.Accel[2]}, nil
}

// Close closes the serial port and waits for the reader to exit.
func (d *BNO08xRVC) Close() error {
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.mu.Unlock()
	if port == nil {
		return nil
	}
	err := port.Close()
	<-d.done
	if err != nil {
		return fault("bno08x-rvc", "close", 0, err)
	}
	return nil
}
