// Package main provides the entry point for the ApplyPilot HTTP API server
// and one-shot fill CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "applypilot",
	Short: "ApplyPilot form autofill engine",
	Long:  "ApplyPilot discovers application form fields in a headless browser, plans safe fill actions from a candidate profile, executes them, and confirms submission via REST API or one-shot CLI.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
