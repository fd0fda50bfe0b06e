// privhelper drops a process to an unprivileged identity and raises it back
// around privileged operations.
//
// Commands:
//
//	whoami   - Show the privileged, normal and effective identities
//	resolve  - Resolve a user or group name to its numeric id
//	serve    - Bind listeners privileged, then serve with privileges dropped
//	version  - Print version information
package main

import (
	"fmt"
	"os"

	"privhelper-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "privhelper: %v\n", err)
		os.Exit(1)
	}
}
