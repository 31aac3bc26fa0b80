// Command parkingctl is the operator CLI for the parking service:
// trigger refreshes on a running daemon, convert coordinates, and
// obtain URA API tokens.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
