package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"privhelper-go/logging"
	"privhelper-go/passwd"
)

var resolveCmd = &cobra.Command{
	Use:       "resolve <user|group> <name>",
	Short:     "Resolve a user or group name to its numeric id",
	Long:      `Look a name up with the configured backend, growing the lookup buffer as needed.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(2), validKind),
	ValidArgs: []string{"user", "group"},
	RunE:      runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func validKind(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "user", "group":
		return nil
	}
	return fmt.Errorf("first argument must be \"user\" or \"group\", got %q", args[0])
}

func runResolve(cmd *cobra.Command, args []string) error {
	kind, name := args[0], args[1]

	r, err := cfg.Resolver(passwd.WithLogger(logging.Default()))
	if err != nil {
		return err
	}

	var id uint32
	if kind == "user" {
		id, err = r.ResolveUser(name)
	} else {
		id, err = r.ResolveGroup(name)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
