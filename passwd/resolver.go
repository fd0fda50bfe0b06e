// Package passwd resolves user and group names to numeric ids.
//
// Lookups follow the getpwnam_r(3) contract: the caller supplies a buffer for
// the entry's string data and retries with a larger one when the backend
// reports that the buffer was too small. The buffer starts at the size the
// system recommends, doubles on every retry, and never grows past a hard cap.
package passwd

import (
	"errors"
	"log/slog"

	perrors "privhelper-go/errors"
	"privhelper-go/logging"
)

const (
	// FallbackBufferSize is used when the backend has no recommended size.
	FallbackBufferSize = 1024
	// MaxBufferSize is the largest buffer a lookup may use.
	MaxBufferSize = 16384
)

var (
	// ErrRange is returned by a Backend when the buffer is too small for the entry.
	ErrRange = errors.New("lookup buffer too small")
	// ErrNotFound is returned by a Backend when the name has no entry.
	ErrNotFound = errors.New("no such entry")
)

// Backend performs a single name lookup using a buffer of bufSize bytes.
type Backend interface {
	LookupUser(name string, bufSize int) (uint32, error)
	LookupGroup(name string, bufSize int) (uint32, error)
	// UserBufferSize returns the recommended passwd buffer size, or -1.
	UserBufferSize() int
	// GroupBufferSize returns the recommended group buffer size, or -1.
	GroupBufferSize() int
	Name() string
}

// BackendByName returns the backend selected by a configuration value:
// "auto" (or empty) for DefaultBackend, "files" for files.
func BackendByName(name string, files *Files) (Backend, error) {
	switch name {
	case "", "auto":
		return DefaultBackend(), nil
	case "files":
		if files == nil {
			files = NewFiles()
		}
		return files, nil
	default:
		return nil, perrors.WrapWithDetail(perrors.ErrInvalidLookup, perrors.ErrInvalidConfig, "select lookup backend", "unknown backend "+name)
	}
}

// Resolver maps user and group names to numeric ids.
type Resolver struct {
	backend Backend
	maxSize int
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBackend sets the lookup backend. The default is DefaultBackend().
func WithBackend(b Backend) Option {
	return func(r *Resolver) { r.backend = b }
}

// WithMaxBufferSize overrides MaxBufferSize. Values <= 0 are ignored.
func WithMaxBufferSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{maxSize: MaxBufferSize}
	for _, opt := range opts {
		opt(r)
	}
	if r.backend == nil {
		r.backend = DefaultBackend()
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r
}

// Backend returns the lookup backend in use.
func (r *Resolver) Backend() Backend {
	return r.backend
}

// ResolveUser returns the uid for userName.
func (r *Resolver) ResolveUser(userName string) (uint32, error) {
	return r.resolve("resolve user", "user", userName, r.backend.UserBufferSize(), r.backend.LookupUser)
}

// ResolveGroup returns the gid for groupName.
func (r *Resolver) ResolveGroup(groupName string) (uint32, error) {
	return r.resolve("resolve group", "group", groupName, r.backend.GroupBufferSize(), r.backend.LookupGroup)
}

func (r *Resolver) resolve(op, kind, name string, size int, lookup func(string, int) (uint32, error)) (uint32, error) {
	if name == "" {
		return 0, notFound(op, name)
	}
	if size <= 0 {
		size = FallbackBufferSize
	}

	logger := logging.WithName(r.logger, kind, name)
	for {
		logger.Debug("looking up name", "backend", r.backend.Name(), "buffer_size", size)

		id, err := lookup(name, size)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, ErrNotFound) {
			return 0, notFound(op, name)
		}
		if !errors.Is(err, ErrRange) {
			return 0, perrors.WrapName(err, perrors.ErrLookup, op, name)
		}
		if size*2 > r.maxSize {
			return 0, &perrors.PrivilegeError{
				Op:     op,
				Name:   name,
				Kind:   perrors.ErrBufferAllocation,
				Detail: "cannot allocate large enough buffer for struct " + structName(kind),
				Err:    err,
			}
		}
		size *= 2
	}
}

func notFound(op, name string) error {
	err := perrors.WrapName(ErrNotFound, perrors.ErrNameNotFound.Kind, op, name)
	err.Detail = perrors.ErrNameNotFound.Detail
	return err
}

func structName(kind string) string {
	if kind == "user" {
		return "passwd"
	}
	return "group"
}
