package payload

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// ErrInvalidArgument is returned for caller mistakes, as opposed to hardware
// faults which are never returned.
var ErrInvalidArgument = errors.New("invalid argument")

// Mode says how UpdateConfiguration combines the new channels with the
// current ones. The zero Mode is invalid.
type Mode int

const (
	Replace Mode = iota + 1
	Append
)

func (m Mode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Append:
		return "append"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "replace" or "append" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace":
		return Replace, nil
	case "append":
		return Append, nil
	}
	return 0, fmt.Errorf("%w: update mode %q, use \"append\" or \"replace\"", ErrInvalidArgument, s)
}

// UpdateConfiguration replaces or extends the enabled channel list and then
// reopens the device and enables the whole list again. Only an invalid mode
// is reported; in that case nothing changes. Device faults during the
// reinitialization are logged and leave the payload running with whatever
// channels could be enabled.
func (p *Payload) UpdateConfiguration(channels []string, mode Mode) error {
	requested := parseChannels(channels)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch mode {
	case Replace:
		p.setData(requested)
	case Append:
		p.setData(append(slices.Clone(p.data), requested...))
	default:
		return fmt.Errorf("%w: update mode %s", ErrInvalidArgument, mode)
	}
	p.reinit()
	return nil
}

func (p *Payload) reinit() {
	p.metrics.reinits.Inc()
	p.debugf("Reinitializing IMU...")

	p.closeDevice()
	if err := p.openDevice(); err != nil {
		p.debugf("ERROR Initializing IMU sensor: %s", err)
	}
	faults := p.enable(p.data)
	if p.dev != nil && faults == 0 {
		p.debugf("Reinitialization of IMU complete without error!")
	} else {
		p.debugf("Reinitialization of IMU complete, %d of %d channels failed", faults, len(p.data))
	}
}
