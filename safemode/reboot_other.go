//go:build !linux

package safemode

import "errors"

// RebootResetter is only implemented on Linux.
type RebootResetter struct{}

func (RebootResetter) Reset() error {
	return errors.New("safemode: reboot not supported on this platform")
}
