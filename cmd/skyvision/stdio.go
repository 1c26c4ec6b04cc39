package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/internal/log"
	"github.com/skyvisionhq/skyvision/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants search the airport and airline catalog directly.
Configuration is loaded from environment variables and .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Log to stderr; stdout carries the MCP protocol. The default is swapped
	// too so nothing falling back to slog.Default writes to stdout.
	slogger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	slog.SetDefault(slogger)

	slogger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	opts, err := clientOptions(cfg)
	if err != nil {
		return err
	}
	opts = append(opts,
		skyvision.WithDataDir(cfg.DataDir()),
		skyvision.WithLogger(slogger),
	)

	client, err := skyvision.New(opts...)
	if err != nil {
		return fmt.Errorf("create skyvision client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close skyvision client", slog.Any("error", err))
		}
	}()

	if !client.Search.Available() {
		return fmt.Errorf("search service not available: configure database and embedding provider")
	}

	mcpServer := mcp.NewServer(client.Search, client.Catalog, version, slogger)
	return mcpServer.ServeStdio()
}
