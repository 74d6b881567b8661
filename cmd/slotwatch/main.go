// Package main is the entry point for the slotwatch CLI.
//
// Usage:
//
//	slotwatch serve [-c .env]     # Start polling and serve health/metrics
//	slotwatch validate [-c .env]  # Check configuration and list sources
//	slotwatch version             # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "slotwatch",
	Short: "Watch appointment booking pages and push alerts when slots appear",
	Long: `slotwatch polls a fixed set of appointment sources one at a time and
sends a push notification when bookable slots appear or disappear.

Configuration is read from the environment, optionally seeded from an
env file passed with -c. URLS is the only required setting.

Example:
  URLS=https://001-iz.impfterminservice.de/impftermine/service?plz=10115 \
  PUSHOVER_TOKEN=... PUSHOVER_USER=... slotwatch serve`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "slotwatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringP("config", "c", "", "optional env file with configuration")
}
