//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package privilege

import "golang.org/x/sys/unix"

// system changes the effective ids of the whole process.
type system struct{}

// SystemPlatform returns the Platform of the running system.
func SystemPlatform() Platform {
	return system{}
}

func (system) Supported() bool { return true }

func (system) Geteuid() int { return unix.Geteuid() }

func (system) Getegid() int { return unix.Getegid() }

func (system) Seteuid(euid int) error { return seteuid(euid) }

func (system) Setegid(egid int) error { return setegid(egid) }
