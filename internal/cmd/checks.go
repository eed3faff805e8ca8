package cmd

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the diagnostic checks available on this platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := catalog.New()
		list := cat.List()
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checks on %s:\n", runtime.GOOS)
		for _, c := range list {
			note := ""
			if c.UsesTarget {
				note = " (uses --target)"
			}
			fmt.Fprintf(out, "  %-16s %s%s\n", c.ID, c.Title, note)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checksCmd)
}
