package main

import (
	"github.com/spf13/cobra"
)

// cartridgeutil is a thin, read-only inspection tool over an existing
// container: info, ls, cat, stat. It never creates or mutates a
// container; that surface belongs to the cartridge package as a
// library, not to a command-line tool, matching the teacher's own
// separation of cmd/vorteil (operator-facing) from its pkg/ libraries,
// narrowed here to inspection-only per this module's scope.
var rootCmd = &cobra.Command{
	Use:   "cartridgeutil",
	Short: "Inspect cartridge containers",
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(statCmd)
}
