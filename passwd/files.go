package passwd

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"
)

const (
	// DefaultPasswdPath is the passwd(5) database read by Files.
	DefaultPasswdPath = "/etc/passwd"
	// DefaultGroupPath is the group(5) database read by Files.
	DefaultGroupPath = "/etc/group"

	maxLineLength = 1 << 20
)

// Files looks names up in passwd(5) and group(5) formatted files.
//
// It applies the same buffer contract as getpwnam_r(3): the string data of
// the matching entry, NUL terminated, plus the member pointer array for
// groups, must fit in the requested buffer or the lookup fails with ErrRange.
type Files struct {
	PasswdPath string
	GroupPath  string
}

// NewFiles returns a Files backend reading the system databases.
func NewFiles() *Files {
	return &Files{PasswdPath: DefaultPasswdPath, GroupPath: DefaultGroupPath}
}

// Name implements Backend.
func (f *Files) Name() string { return "files" }

// UserBufferSize implements Backend. Files has no recommendation.
func (f *Files) UserBufferSize() int { return -1 }

// GroupBufferSize implements Backend. Files has no recommendation.
func (f *Files) GroupBufferSize() int { return -1 }

// LookupUser implements Backend.
func (f *Files) LookupUser(name string, bufSize int) (uint32, error) {
	path := f.PasswdPath
	if path == "" {
		path = DefaultPasswdPath
	}
	// name:passwd:uid:gid:gecos:dir:shell
	fields, err := findEntry(path, name, 7)
	if err != nil {
		return 0, err
	}
	if passwdEntrySize(fields) > bufSize {
		return 0, ErrRange
	}
	return parseID(fields[2])
}

// LookupGroup implements Backend.
func (f *Files) LookupGroup(name string, bufSize int) (uint32, error) {
	path := f.GroupPath
	if path == "" {
		path = DefaultGroupPath
	}
	// name:passwd:gid:member,member
	fields, err := findEntry(path, name, 4)
	if err != nil {
		return 0, err
	}
	if groupEntrySize(fields) > bufSize {
		return 0, ErrRange
	}
	return parseID(fields[2])
}

func findEntry(path, name string, nfields int) ([]string, error) {
	// A name containing a field or record separator is never an entry's name.
	if strings.ContainsAny(name, ":\n") {
		return nil, ErrNotFound
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	prefix := []byte(name + ":")
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' || line[0] == '+' || line[0] == '-' {
			continue
		}
		if !bytes.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Split(string(line), ":")
		if len(fields) != nfields || fields[0] != name {
			continue
		}
		if _, err := parseID(fields[2]); err != nil {
			continue
		}
		return fields, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return nil, ErrNotFound
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric id %q: %w", s, err)
	}
	return uint32(n), nil
}

// passwdEntrySize is the space getpwnam_r needs for pw_name, pw_passwd,
// pw_gecos, pw_dir and pw_shell.
func passwdEntrySize(fields []string) int {
	n := 0
	for _, i := range []int{0, 1, 4, 5, 6} {
		n += len(fields[i]) + 1
	}
	return n
}

// groupEntrySize is the space getgrnam_r needs for gr_name, gr_passwd and
// the NULL terminated gr_mem array with its strings.
func groupEntrySize(fields []string) int {
	n := len(fields[0]) + 1 + len(fields[1]) + 1
	var members []string
	if fields[3] != "" {
		members = strings.Split(fields[3], ",")
	}
	n += (len(members) + 1) * int(unsafe.Sizeof(uintptr(0)))
	for _, m := range members {
		n += len(m) + 1
	}
	return n
}
