package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "netcheck %s\n", versionInfo.Version)
		fmt.Fprintf(out, "  commit:     %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "  build date: %s\n", versionInfo.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
