// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Name resolution errors.
var (
	// ErrBufferTooLarge indicates a lookup would need a buffer beyond the cap.
	ErrBufferTooLarge = &PrivilegeError{
		Kind:   ErrBufferAllocation,
		Detail: "cannot allocate large enough lookup buffer",
	}

	// ErrNameNotFound indicates the user or group name does not exist.
	ErrNameNotFound = &PrivilegeError{
		Kind:   ErrLookup,
		Detail: "name not found",
	}
)

// Platform errors.
var (
	// ErrPlatformUnsupported indicates dropping and raising privileges is
	// not supported on this platform.
	ErrPlatformUnsupported = &PrivilegeError{
		Kind:   ErrUnsupportedPlatform,
		Detail: "dropping and raising privileges is not supported on this platform",
	}
)

// Transition errors.
var (
	// ErrSetID indicates a setegid or seteuid call failed.
	ErrSetID = &PrivilegeError{
		Kind:   ErrSyscall,
		Detail: "failed to change effective id",
	}

	// ErrAlreadyTransitioned indicates the normal identity can no longer be
	// changed because a transition has already happened.
	ErrAlreadyTransitioned = &PrivilegeError{
		Kind:   ErrInvalidState,
		Detail: "cannot initialize after privileges were dropped or raised",
	}
)

// Configuration errors.
var (
	// ErrInvalidListenAddress indicates a listen address could not be parsed.
	ErrInvalidListenAddress = &PrivilegeError{
		Kind:   ErrInvalidConfig,
		Detail: "invalid listen address",
	}

	// ErrInvalidLookup indicates an unknown lookup backend was configured.
	ErrInvalidLookup = &PrivilegeError{
		Kind:   ErrInvalidConfig,
		Detail: "invalid lookup backend",
	}
)
