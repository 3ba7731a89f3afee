package common

import "os/user"

// IsRunningAsRoot reports whether the process can open the I2C and GPIO
// devices without extra group membership.
func IsRunningAsRoot() bool {
	usr, err := user.Current()
	if err != nil {
		return false
	}
	return usr.Uid == "0"
}
