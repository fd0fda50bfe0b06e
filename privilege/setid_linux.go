package privilege

import "golang.org/x/sys/unix"

// Linux has no seteuid(2) of its own. setresuid(2) with -1 for the real and
// saved ids changes only the effective id, and x/sys applies it to every
// thread of the process.

func seteuid(euid int) error { return unix.Setresuid(-1, euid, -1) }

func setegid(egid int) error { return unix.Setresgid(-1, egid, -1) }
