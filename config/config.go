// Package config loads the privhelper configuration file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	perrors "privhelper-go/errors"
	"privhelper-go/passwd"
)

// DefaultPath is where the configuration file is looked for.
const DefaultPath = "/etc/privhelper/config.yaml"

// Config is the on-disk configuration.
type Config struct {
	// User is the name of the normal user. Empty keeps the privileged uid.
	User string `yaml:"user"`
	// Group is the name of the normal group. Empty keeps the privileged gid.
	Group string `yaml:"group"`

	// Lookup selects the name service backend: "auto" or "files".
	Lookup        string `yaml:"lookup"`
	Files         Files  `yaml:"files"`
	MaxBufferSize int    `yaml:"max_buffer_size"`

	Log Log `yaml:"log"`

	// Listen holds addresses bound while privileged, e.g. "tcp://:70".
	Listen  []string `yaml:"listen"`
	PIDFile string   `yaml:"pidfile"`
}

// Files locates the passwd and group databases for the files backend.
type Files struct {
	Passwd string `yaml:"passwd"`
	Group  string `yaml:"group"`
}

// Log configures diagnostics output.
type Log struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	AddSource bool   `yaml:"add_source"`
}

// Listener is a parsed listen address.
type Listener struct {
	Network string
	Address string
}

func (l Listener) String() string {
	return l.Network + "://" + l.Address
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Lookup:        "auto",
		Files:         Files{Passwd: passwd.DefaultPasswdPath, Group: passwd.DefaultGroupPath},
		MaxBufferSize: passwd.MaxBufferSize,
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Load reads and validates the configuration at path. Unset fields keep
// their Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perrors.WrapWithDetail(err, perrors.ErrInvalidConfig, "load config", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.ErrInvalidConfig, "read config")
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, perrors.Wrap(err, perrors.ErrInvalidConfig, "parse config")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Lookup {
	case "", "auto", "files":
	default:
		return perrors.WrapWithDetail(perrors.ErrInvalidLookup, perrors.ErrInvalidConfig, "validate config", fmt.Sprintf("lookup %q", c.Lookup))
	}
	if c.MaxBufferSize < 0 {
		return perrors.New(perrors.ErrInvalidConfig, "validate config", "max_buffer_size must not be negative")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return perrors.New(perrors.ErrInvalidConfig, "validate config", fmt.Sprintf("log format %q", c.Log.Format))
	}
	if _, err := c.Listeners(); err != nil {
		return err
	}
	return nil
}

// Listeners parses the Listen addresses. An address without a scheme is TCP.
func (c *Config) Listeners() ([]Listener, error) {
	out := make([]Listener, 0, len(c.Listen))
	for _, raw := range c.Listen {
		l, err := ParseListener(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ParseListener parses "network://address".
func ParseListener(raw string) (Listener, error) {
	network, address, ok := strings.Cut(raw, "://")
	if !ok {
		network, address = "tcp", raw
	}

	switch network {
	case "tcp", "tcp4", "tcp6", "udp", "udp4", "udp6":
		if _, _, err := net.SplitHostPort(address); err != nil {
			return Listener{}, perrors.WrapWithDetail(err, perrors.ErrInvalidConfig, "parse listen address", raw)
		}
	case "unix":
		if address == "" {
			return Listener{}, perrors.WrapWithDetail(perrors.ErrInvalidListenAddress, perrors.ErrInvalidConfig, "parse listen address", raw)
		}
	default:
		return Listener{}, perrors.WrapWithDetail(perrors.ErrInvalidListenAddress, perrors.ErrInvalidConfig, "parse listen address", raw)
	}
	return Listener{Network: network, Address: address}, nil
}

// Resolver builds the name resolver described by the configuration.
func (c *Config) Resolver(opts ...passwd.Option) (*passwd.Resolver, error) {
	backend, err := passwd.BackendByName(c.Lookup, &passwd.Files{PasswdPath: c.Files.Passwd, GroupPath: c.Files.Group})
	if err != nil {
		return nil, err
	}
	opts = append([]passwd.Option{passwd.WithBackend(backend), passwd.WithMaxBufferSize(c.MaxBufferSize)}, opts...)
	return passwd.NewResolver(opts...), nil
}
