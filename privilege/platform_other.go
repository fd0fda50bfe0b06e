//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package privilege

// SystemPlatform returns the Platform of the running system, which has no
// support for effective id changes.
func SystemPlatform() Platform {
	return UnsupportedPlatform()
}
