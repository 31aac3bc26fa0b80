package main

import (
	"github.com/spf13/cobra"

	"github.com/zeecm/parking/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "parkingctl",
	Short: "Operator CLI for the carpark availability service",
	Long: `parkingctl talks to a running parkingd instance and to the upstream
data services directly: trigger a refresh, convert between SVY21 and
WGS84 coordinates, or fetch a URA daily token.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}
