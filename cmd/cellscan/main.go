// Command cellscan scans Go source trees for cell declarations and reports
// cells whose StaticDeps have drifted from the reads visible in their
// compute callbacks.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/celldag/celldag-go/inspect"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var driftOnly bool

	cmd := &cobra.Command{
		Use:   "cellscan [dir]",
		Short: "Report cell declarations and their static dependency drift",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			cells, err := inspect.ScanDir(root)
			if err != nil {
				return err
			}

			drifted := 0
			for _, cell := range cells {
				missing, stale := cell.Drift()
				if driftOnly && len(missing) == 0 && len(stale) == 0 {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", cell.Name, cell.File)
				fmt.Fprintf(cmd.OutOrStdout(), "  declared: %s\n", joinOrDash(cell.Declared))
				fmt.Fprintf(cmd.OutOrStdout(), "  observed: %s\n", joinOrDash(cell.Observed))
				if len(missing) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  missing from StaticDeps: %s\n", strings.Join(missing, ", "))
					drifted++
				}
				if len(stale) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  declared but never read: %s\n", strings.Join(stale, ", "))
					drifted++
				}
			}

			if drifted > 0 {
				return fmt.Errorf("%d cell(s) with static dependency drift", drifted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&driftOnly, "drift-only", false, "only print cells whose declarations drifted")
	return cmd
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
