// Package main is the entry point for the skyvision CLI.
//
//	@title			SkyVision API
//	@version		1.0
//	@description	Visual similarity search over the world's airports and airlines
//	@host			localhost:8714
//	@BasePath		/api/v1
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyvisionhq/skyvision/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skyvision",
		Short: "SkyVision aviation similarity search server",
		Long:  `SkyVision indexes the world's airports and airlines with CLIP embeddings and serves text, image, and hybrid similarity search over them.`,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(seedCmd())
	cmd.AddCommand(stdioCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
