// Package payload manages the IMU carried by the satellite: which measurement
// channels are enabled on the device and the last value read from each.
//
// Hardware faults never leave this package. They are logged through the debug
// sink, counted, and the caller keeps getting the last good reading.
package payload

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kidoman/embd"

	"github.com/yearling2/payload/sensors"
)

const debugTag = "[Payload]"

var errNoOpener = errors.New("no IMU opener configured")

// Payload owns the IMU device handle, the enabled channel list and the
// telemetry cache. All methods are safe for concurrent use.
type Payload struct {
	mu sync.Mutex

	debug   bool
	sink    func(string)
	metrics *Metrics

	bus  embd.I2CBus
	open sensors.Opener
	dev  sensors.IMUDevice

	data   []sensors.Channel
	member map[sensors.Channel]struct{}
	cache  map[sensors.Channel]sensors.Vector

	// Outcome of the latest read of each channel since the device was
	// last opened; true means it faulted.
	lastFault map[sensors.Channel]bool
}

// Option configures a Payload at construction.
type Option func(*Payload)

// WithDebugSink sends debug lines to sink instead of the standard logger.
func WithDebugSink(sink func(string)) Option {
	return func(p *Payload) {
		p.sink = sink
	}
}

// WithMetrics records enable and read outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Payload) {
		p.metrics = m
	}
}

// New opens the IMU on bus and enables initialChannels. A device that cannot
// be opened is logged and leaves the payload with no device; reads then
// return zero vectors until UpdateConfiguration succeeds in reopening it.
func New(debug bool, bus embd.I2CBus, open sensors.Opener, initialChannels []string, opts ...Option) *Payload {
	p := &Payload{
		debug:  debug,
		sink:   func(s string) { log.Println(s) },
		bus:    bus,
		open:   open,
		member:    make(map[sensors.Channel]struct{}),
		cache:     make(map[sensors.Channel]sensors.Vector),
		lastFault: make(map[sensors.Channel]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.debugf("Initializing IMU...")
	if err := p.openDevice(); err != nil {
		p.debugf("ERROR Initializing IMU sensor: %s", err)
	} else {
		p.debugf("Initialization of IMU complete without error!")
	}
	p.setData(parseChannels(initialChannels))
	p.enable(p.data)
	return p
}

// SetDebug turns debug output on or off.
func (p *Payload) SetDebug(debug bool) {
	p.mu.Lock()
	p.debug = debug
	p.mu.Unlock()
}

// Connected reports whether the payload holds an open device handle.
func (p *Payload) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev != nil
}

// Failing reports whether the latest read of every enabled channel faulted.
// It is false when no channel is enabled or some enabled channel has not
// been read since the device was last opened, so a device that opens but
// never answers shows up here rather than in Connected.
func (p *Payload) Failing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.member) == 0 {
		return false
	}
	for c := range p.member {
		if !p.lastFault[c] {
			return false
		}
	}
	return true
}

// Close releases the device handle. Cached values stay readable.
func (p *Payload) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeDevice()
}

func (p *Payload) debugf(format string, args ...interface{}) {
	if !p.debug {
		return
	}
	p.sink(debugTag + " " + fmt.Sprintf(format, args...))
}

func (p *Payload) openDevice() error {
	p.lastFault = make(map[sensors.Channel]bool)
	if p.open == nil {
		return errNoOpener
	}
	dev, err := p.open(p.bus)
	if err != nil {
		return err
	}
	p.dev = dev
	return nil
}

func (p *Payload) closeDevice() {
	if p.dev == nil {
		return
	}
	if err := p.dev.Close(); err != nil {
		p.debugf("ERROR closing IMU: %s", err)
	}
	p.dev = nil
}

func (p *Payload) setData(data []sensors.Channel) {
	p.data = data
	p.member = make(map[sensors.Channel]struct{}, len(data))
	for _, c := range data {
		p.member[c] = struct{}{}
	}
	p.metrics.enabled.Set(float64(len(p.member)))
}

// parseChannels keeps the recognized names, in order and with duplicates.
func parseChannels(names []string) []sensors.Channel {
	out := make([]sensors.Channel, 0, len(names))
	for _, name := range names {
		if c, ok := sensors.ParseChannel(name); ok {
			out = append(out, c)
		}
	}
	return out
}
