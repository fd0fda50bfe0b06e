package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information for privhelper.`,
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "privhelper version %s\n", Version)
	fmt.Fprintf(out, "go: %s\n", runtime.Version())
	if BuildTime != "unknown" {
		fmt.Fprintf(out, "build: %s\n", BuildTime)
	}
}
