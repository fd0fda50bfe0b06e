// Package cmd implements the CLI commands for privhelper.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"privhelper-go/config"
	"privhelper-go/logging"
	"privhelper-go/passwd"
	"privhelper-go/privilege"
)

// Version information set at build time
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// Global flags
var (
	globalConfig    string
	globalLog       string
	globalLogFormat string
	globalDebug     bool
	globalUser      string
	globalGroup     string
)

var (
	// cfg is the loaded configuration with flag overrides applied.
	cfg = config.Default()
	// closeLog releases the log file opened by setupLogging.
	closeLog = func() error { return nil }
)

// rootCmd is the base command for privhelper.
var rootCmd = &cobra.Command{
	Use:   "privhelper",
	Short: "Drop and raise effective process privileges",
	Long: `privhelper manages the privileged identity a process starts with and the
normal identity it drops to, re-elevating only around privileged operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		if err := setupLogging(); err != nil {
			return err
		}
		logging.Debug("configuration loaded", "user", cfg.User, "group", cfg.Group, "lookup", cfg.Lookup)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalConfig, "config", "c", "", "configuration file (default: "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&globalUser, "user", "u", "", "user to drop privileges to")
	rootCmd.PersistentFlags().StringVarP(&globalGroup, "group", "g", "", "group to drop privileges to")
}

func loadConfig(cmd *cobra.Command) error {
	path := globalConfig
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}

	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("user") {
		cfg.User = globalUser
	}
	if flags.Changed("group") {
		cfg.Group = globalGroup
	}
	if flags.Changed("log") {
		cfg.Log.File = globalLog
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = globalLogFormat
	}
	if globalDebug {
		cfg.Log.Level = "debug"
		cfg.Log.AddSource = true
	}
	return cfg.Validate()
}

func setupLogging() error {
	out, closeFn, err := logging.OpenOutput(cfg.Log.File)
	if err != nil {
		return err
	}
	closeLog = closeFn

	logging.SetDefault(logging.NewLogger(logging.Config{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Output:    out,
		AddSource: cfg.Log.AddSource,
	}))
	return nil
}

// newHelper captures the current identity and sets the normal identity from
// the configured user and group.
func newHelper(logger *slog.Logger) (*privilege.Helper, error) {
	resolver, err := cfg.Resolver(passwd.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	h := privilege.New(privilege.WithResolver(resolver), privilege.WithLogger(logger))
	if err := h.Initialize(cfg.User, cfg.Group); err != nil {
		return nil, err
	}
	return h, nil
}
