package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/zeecm/parking/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("parkingctl version: %s\n", version.Version)
		fmt.Printf("  git commit: %s\n", version.Commit)
		fmt.Printf("  build date: %s\n", version.Date)
		fmt.Printf("  go version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
