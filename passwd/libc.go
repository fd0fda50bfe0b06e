//go:build cgo && (linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package passwd

import (
	"syscall"
	"unsafe"
)

/*
#include <sys/types.h>
#include <pwd.h>
#include <grp.h>
#include <stdlib.h>
#include <unistd.h>

static int
de_lookup_uid(const char *name, char *buf, size_t buflen, uid_t *uid, int *found) {
  struct passwd pwd;
  struct passwd *result = NULL;
  int rc = getpwnam_r(name, &pwd, buf, buflen, &result);
  if (rc == 0 && result != NULL) {
    *uid = pwd.pw_uid;
    *found = 1;
  }
  return rc;
}

static int
de_lookup_gid(const char *name, char *buf, size_t buflen, gid_t *gid, int *found) {
  struct group grp;
  struct group *result = NULL;
  int rc = getgrnam_r(name, &grp, buf, buflen, &result);
  if (rc == 0 && result != NULL) {
    *gid = grp.gr_gid;
    *found = 1;
  }
  return rc;
}
*/
import "C"

// Libc looks names up through getpwnam_r(3) and getgrnam_r(3), so every
// source configured in nsswitch.conf is consulted.
type Libc struct{}

// NewLibc returns the libc backend.
func NewLibc() *Libc {
	return &Libc{}
}

// Name implements Backend.
func (*Libc) Name() string { return "libc" }

// UserBufferSize implements Backend using sysconf(_SC_GETPW_R_SIZE_MAX).
func (*Libc) UserBufferSize() int {
	return int(C.sysconf(C._SC_GETPW_R_SIZE_MAX))
}

// GroupBufferSize implements Backend using sysconf(_SC_GETGR_R_SIZE_MAX).
func (*Libc) GroupBufferSize() int {
	return int(C.sysconf(C._SC_GETGR_R_SIZE_MAX))
}

// LookupUser implements Backend.
func (*Libc) LookupUser(name string, bufSize int) (uint32, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	buf := C.malloc(C.size_t(bufSize))
	defer C.free(buf)

	var uid C.uid_t
	var found C.int
	rc := C.de_lookup_uid(cname, (*C.char)(buf), C.size_t(bufSize), &uid, &found)
	if err := lookupResult(rc, found); err != nil {
		return 0, err
	}
	return uint32(uid), nil
}

// LookupGroup implements Backend.
func (*Libc) LookupGroup(name string, bufSize int) (uint32, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	buf := C.malloc(C.size_t(bufSize))
	defer C.free(buf)

	var gid C.gid_t
	var found C.int
	rc := C.de_lookup_gid(cname, (*C.char)(buf), C.size_t(bufSize), &gid, &found)
	if err := lookupResult(rc, found); err != nil {
		return 0, err
	}
	return uint32(gid), nil
}

func lookupResult(rc, found C.int) error {
	switch {
	case syscall.Errno(rc) == syscall.ERANGE:
		return ErrRange
	case rc != 0:
		return syscall.Errno(rc)
	case found == 0:
		return ErrNotFound
	}
	return nil
}

// DefaultBackend returns the libc backend.
func DefaultBackend() Backend {
	return NewLibc()
}
