// Package privilege switches the effective identity of a process between the
// privileged identity it was started with and a normal, unprivileged one.
//
// A Helper is created once at startup, before anything has changed the
// effective ids, and is passed to every caller that needs to drop or raise
// privileges. The Helper does no locking: callers that transition from more
// than one goroutine must serialize Drop and Raise themselves, because a
// failed transition can leave the process halfway between the two identities.
package privilege

import (
	"errors"
	"fmt"
	"log/slog"

	perrors "privhelper-go/errors"
	"privhelper-go/logging"
	"privhelper-go/passwd"
)

// Identity is an effective user and group id pair.
type Identity struct {
	UID uint32 `json:"uid"`
	GID uint32 `json:"gid"`
}

// String returns the identity as "uid=N gid=M".
func (id Identity) String() string {
	return fmt.Sprintf("uid=%d gid=%d", id.UID, id.GID)
}

// Mode tells which recorded identity the process currently runs as.
type Mode int

const (
	// ModeUnknown means the effective identity matches neither recorded identity.
	ModeUnknown Mode = iota
	// ModePrivileged means the effective identity is the privileged one.
	ModePrivileged
	// ModeDropped means the effective identity is the normal one.
	ModeDropped
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModePrivileged:
		return "privileged"
	case ModeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Resolver maps user and group names to ids.
type Resolver interface {
	ResolveUser(name string) (uint32, error)
	ResolveGroup(name string) (uint32, error)
}

// Helper records the privileged and normal identities of the process and
// moves the effective identity between them.
type Helper struct {
	platform Platform
	resolver Resolver
	logger   *slog.Logger

	privileged Identity
	normal     Identity

	// transitioned is set by the first Drop or Raise.
	transitioned bool
}

// Option configures a Helper.
type Option func(*Helper)

// WithPlatform sets the platform. The default is SystemPlatform().
func WithPlatform(p Platform) Option {
	return func(h *Helper) { h.platform = p }
}

// WithResolver sets the name resolver used by Initialize.
func WithResolver(r Resolver) Option {
	return func(h *Helper) { h.resolver = r }
}

// WithLogger sets the logger for transition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(h *Helper) { h.logger = l }
}

// New captures the current effective identity as both the privileged and
// the normal identity.
func New(opts ...Option) *Helper {
	h := &Helper{}
	for _, opt := range opts {
		opt(h)
	}
	if h.platform == nil {
		h.platform = SystemPlatform()
	}
	if h.logger == nil {
		h.logger = logging.Default()
	}
	if h.resolver == nil {
		h.resolver = passwd.NewResolver(passwd.WithLogger(h.logger))
	}

	h.privileged = h.Effective()
	h.normal = h.privileged
	return h
}

// Supported reports whether the platform can drop and raise privileges.
func (h *Helper) Supported() bool {
	return h.platform.Supported()
}

// Privileged returns the identity captured when the Helper was created.
func (h *Helper) Privileged() Identity {
	return h.privileged
}

// Normal returns the identity Drop switches to.
func (h *Helper) Normal() Identity {
	return h.normal
}

// Effective returns the current effective identity of the process.
func (h *Helper) Effective() Identity {
	//nolint:gosec // G115 - effective ids are 32-bit on every supported platform.
	return Identity{UID: uint32(h.platform.Geteuid()), GID: uint32(h.platform.Getegid())}
}

// Mode reports which recorded identity is in effect.
func (h *Helper) Mode() Mode {
	switch h.Effective() {
	case h.privileged:
		return ModePrivileged
	case h.normal:
		return ModeDropped
	default:
		return ModeUnknown
	}
}

// Initialize sets the normal identity from a user and a group name. An
// empty name keeps the corresponding privileged id.
//
// The group is resolved and stored before the user is resolved, so a failed
// user lookup returns an error with the new group id already recorded.
// Initialize must run before the first Drop or Raise; afterwards it fails
// with an invalid state error.
func (h *Helper) Initialize(userName, groupName string) error {
	if !h.platform.Supported() {
		if userName != "" || groupName != "" {
			return errPlatformUnsupported("initialize")
		}
		return nil
	}
	if h.transitioned {
		return perrors.New(perrors.ErrInvalidState, "initialize", perrors.ErrAlreadyTransitioned.Detail)
	}

	h.logger.Debug("initializing", "user", userName, "group", groupName)

	if groupName != "" {
		gid, err := h.resolver.ResolveGroup(groupName)
		if err != nil {
			return err
		}
		h.normal.GID = gid
	}

	if userName != "" {
		uid, err := h.resolver.ResolveUser(userName)
		if err != nil {
			return err
		}
		h.normal.UID = uid
	}

	return nil
}

// Drop switches the effective identity to the normal identity, setting the
// group before the user. It does nothing if the normal identity is already
// in effect.
//
// If seteuid fails after setegid succeeded, the process is left with the
// normal gid and the previous uid.
func (h *Helper) Drop() error {
	if !h.platform.Supported() {
		h.logger.Warn("dropping privileges is not supported on this platform")
		return nil
	}
	h.transitioned = true

	if h.Effective() == h.normal {
		return nil
	}

	logger := logging.WithOperation(h.logger, "drop")

	logger.Debug("dropping to effective gid", "gid", h.normal.GID)
	if err := h.platform.Setegid(int(h.normal.GID)); err != nil {
		return perrors.WrapStep(err, "drop", "setegid", int(h.normal.GID))
	}

	logger.Debug("dropping to effective uid", "uid", h.normal.UID)
	if err := h.platform.Seteuid(int(h.normal.UID)); err != nil {
		return perrors.WrapStep(err, "drop", "seteuid", int(h.normal.UID))
	}

	eff := h.Effective()
	logging.WithIdentity(logger, eff.UID, eff.GID).Info("dropped privileges")
	return nil
}

// Raise switches the effective identity back to the privileged identity,
// setting the user before the group. It does nothing if the privileged
// identity is already in effect.
//
// If setegid fails after seteuid succeeded, the process is left with the
// privileged uid and the normal gid.
func (h *Helper) Raise() error {
	if !h.platform.Supported() {
		h.logger.Warn("elevating privileges is not supported on this platform")
		return nil
	}
	h.transitioned = true

	if h.Effective() == h.privileged {
		return nil
	}

	logger := logging.WithOperation(h.logger, "raise")

	logger.Debug("elevating to effective uid", "uid", h.privileged.UID)
	if err := h.platform.Seteuid(int(h.privileged.UID)); err != nil {
		return perrors.WrapStep(err, "raise", "seteuid", int(h.privileged.UID))
	}

	logger.Debug("elevating to effective gid", "gid", h.privileged.GID)
	if err := h.platform.Setegid(int(h.privileged.GID)); err != nil {
		return perrors.WrapStep(err, "raise", "setegid", int(h.privileged.GID))
	}

	eff := h.Effective()
	logging.WithIdentity(logger, eff.UID, eff.GID).Info("elevated privileges")
	return nil
}

// RunElevated raises privileges, runs fn and drops privileges again, also
// when fn fails. Errors from fn and from Drop are joined.
func (h *Helper) RunElevated(fn func() error) error {
	if err := h.Raise(); err != nil {
		return err
	}
	fnErr := fn()
	return errors.Join(fnErr, h.Drop())
}

func errPlatformUnsupported(op string) error {
	return perrors.New(perrors.ErrUnsupportedPlatform, op, perrors.ErrPlatformUnsupported.Detail)
}
