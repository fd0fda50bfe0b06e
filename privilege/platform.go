package privilege

import "os"

// Platform is the capability to read and change the effective ids of the
// process.
type Platform interface {
	// Supported reports whether effective ids can be changed at all.
	Supported() bool
	Geteuid() int
	Getegid() int
	Seteuid(euid int) error
	Setegid(egid int) error
}

// unsupported is the Platform of systems without seteuid/setegid. It reports
// the ids it was created with and never changes them.
type unsupported struct {
	uid int
	gid int
}

// UnsupportedPlatform returns a Platform that cannot change identities.
func UnsupportedPlatform() Platform {
	return unsupported{uid: os.Geteuid(), gid: os.Getegid()}
}

func (unsupported) Supported() bool { return false }

func (u unsupported) Geteuid() int { return u.uid }

func (u unsupported) Getegid() int { return u.gid }

func (unsupported) Seteuid(int) error { return errPlatformUnsupported("seteuid") }

func (unsupported) Setegid(int) error { return errPlatformUnsupported("setegid") }
