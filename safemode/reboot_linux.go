//go:build linux

package safemode

import "golang.org/x/sys/unix"

// RebootResetter flushes filesystems and restarts the Linux controller. The
// process needs CAP_SYS_BOOT.
type RebootResetter struct{}

func (RebootResetter) Reset() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
