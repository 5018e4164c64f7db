package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/config"
	"github.com/jonathan/applypilot/internal/server"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for application sessions: start, analyze, autofill, confirm.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and APPLYPILOT_PORT)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Defaults()
	if serveConfigPath != "" {
		loaded, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded.MergeWithDefaults(cfg)
	}
	cfg.ApplyEnv()
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (config 'database_url' or DATABASE_URL environment variable)")
	}

	srv, err := server.New(server.Config{
		Port:            cfg.Port,
		DatabaseURL:     cfg.DatabaseURL,
		APIKey:          cfg.APIKey,
		Headless:        cfg.Headless,
		NavigateTimeout: time.Duration(cfg.NavigateTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
