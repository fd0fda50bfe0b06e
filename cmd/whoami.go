package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"privhelper-go/logging"
	"privhelper-go/privilege"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the privileged, normal and effective identities",
	Long: `Initialize the normal identity from --user/--group (or the configuration
file) and print it next to the privileged and effective identities.

With --drop, privileges are dropped before printing.`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

var (
	whoamiFormat string
	whoamiDrop   bool
)

func init() {
	rootCmd.AddCommand(whoamiCmd)

	whoamiCmd.Flags().StringVarP(&whoamiFormat, "format", "f", "auto", "output format (auto, table, json)")
	whoamiCmd.Flags().BoolVar(&whoamiDrop, "drop", false, "drop privileges before printing")
}

// identityReport is the whoami output.
type identityReport struct {
	Supported  bool               `json:"supported"`
	Mode       string             `json:"mode"`
	Privileged privilege.Identity `json:"privileged"`
	Normal     privilege.Identity `json:"normal"`
	Effective  privilege.Identity `json:"effective"`
}

func runWhoami(cmd *cobra.Command, args []string) error {
	logger := logging.WithOperation(logging.Default(), "whoami")

	h, err := newHelper(logger)
	if err != nil {
		return err
	}
	if whoamiDrop {
		if err := h.Drop(); err != nil {
			return err
		}
	}

	report := identityReport{
		Supported:  h.Supported(),
		Mode:       h.Mode().String(),
		Privileged: h.Privileged(),
		Normal:     h.Normal(),
		Effective:  h.Effective(),
	}

	out := cmd.OutOrStdout()
	switch whoamiFormat {
	case "json":
		return outputJSON(out, report)
	case "table":
		return outputTable(out, report)
	case "auto":
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return outputTable(out, report)
		}
		return outputJSON(out, report)
	default:
		return fmt.Errorf("unknown format %q", whoamiFormat)
	}
}

func outputTable(out io.Writer, r identityReport) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tUID\tGID")
	fmt.Fprintf(w, "privileged\t%d\t%d\n", r.Privileged.UID, r.Privileged.GID)
	fmt.Fprintf(w, "normal\t%d\t%d\n", r.Normal.UID, r.Normal.GID)
	fmt.Fprintf(w, "effective\t%d\t%d\n", r.Effective.UID, r.Effective.GID)
	fmt.Fprintf(w, "\nmode: %s\tsupported: %t\n", r.Mode, r.Supported)
	return w.Flush()
}

func outputJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
