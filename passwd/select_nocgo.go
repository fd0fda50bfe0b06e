//go:build !cgo || !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package passwd

// DefaultBackend returns the files backend. Binaries built without cgo cannot
// reach getpwnam_r, so only the local passwd and group files are consulted.
func DefaultBackend() Backend {
	return NewFiles()
}
