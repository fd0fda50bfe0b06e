package cmd

import (
	"github.com/spf13/cobra"

	"privhelper-go/config"
	"privhelper-go/logging"
	"privhelper-go/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bind listeners as the privileged identity and serve as the normal one",
	Long: `Bind every listen address while privileged, write the pidfile, drop to the
normal identity and answer each connection with the effective identity until
SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveListen  []string
	servePIDFile string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringArrayVarP(&serveListen, "listen", "l", nil, "listen address, e.g. tcp://:70 (repeatable)")
	serveCmd.Flags().StringVar(&servePIDFile, "pidfile", "", "write the process id to this file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.WithOperation(logging.Default(), "serve")
	ctx := logging.ContextWithLogger(GetContext(), logger)

	if cmd.Flags().Changed("listen") {
		cfg.Listen = serveListen
	}
	if cmd.Flags().Changed("pidfile") {
		cfg.PIDFile = servePIDFile
	}
	listeners, err := cfg.Listeners()
	if err != nil {
		return err
	}
	if len(listeners) == 0 {
		listeners = []config.Listener{{Network: "tcp", Address: ":70"}}
		logging.Warn("no listen address configured", "default", listeners[0].String())
	}

	h, err := newHelper(logger)
	if err != nil {
		return err
	}

	srv := server.New(h, listeners, cfg.PIDFile, logger)
	if err := srv.Bind(); err != nil {
		return err
	}
	logger.Info("serving", "identity", h.Effective().String(), "mode", h.Mode().String())

	if err := srv.Serve(ctx); err != nil {
		return err
	}
	logging.Info("stopped serving")
	return nil
}
