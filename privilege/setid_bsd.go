//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package privilege

import "golang.org/x/sys/unix"

func seteuid(euid int) error { return unix.Seteuid(euid) }

func setegid(egid int) error { return unix.Setegid(egid) }
