package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Export community resident data to JSON or CSV files",
	Long: `exporter reads a resident's records (profile, project membership, guest
passes, gate passes, orders, bookings) from the configured document store
and writes them as JSON or CSV files.

The store is selected with STORE_BACKEND (firestore, mongo, memory) and the
matching FIREBASE_*, MONGODB_* or STORE_SEED_FILE variables. A .env file in
the working directory is loaded if present.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")
}
