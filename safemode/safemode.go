// Package safemode is the last resort when the payload cannot keep running:
// it says so, waits for logs and telemetry to drain, and resets the
// controller.
package safemode

import (
	"errors"
	"fmt"
	"log"
	"time"
)

const (
	// DefaultMessage is announced on entry.
	DefaultMessage = "I am in safemode. Help!"
	// DefaultDelay leaves time for the log and telemetry to flush.
	DefaultDelay = 10 * time.Second
)

// ErrResetReturned is reported when a Resetter came back without resetting.
var ErrResetReturned = errors.New("safemode: controller reset did not take effect")

// Resetter resets the controller. On success it does not return.
type Resetter interface {
	Reset() error
}

// ResetFunc adapts a function to Resetter.
type ResetFunc func() error

func (f ResetFunc) Reset() error {
	return f()
}

// Config controls Enter. Zero fields take the defaults.
type Config struct {
	Message  string
	Delay    time.Duration
	Resetter Resetter
	Logger   *log.Logger
	Sleep    func(time.Duration)
}

// Enter announces safe mode, waits, and resets. It only returns if the
// reset fails.
func Enter(cfg Config) error {
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Resetter == nil {
		cfg.Resetter = RebootResetter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	cfg.Logger.Println(cfg.Message)
	cfg.Sleep(cfg.Delay)
	cfg.Logger.Println("Safemode: resetting controller")
	if err := cfg.Resetter.Reset(); err != nil {
		return fmt.Errorf("safemode: reset: %w", err)
	}
	return ErrResetReturned
}
