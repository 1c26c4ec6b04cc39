package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/infrastructure/api"
	apimiddleware "github.com/skyvisionhq/skyvision/infrastructure/api/middleware"
	"github.com/skyvisionhq/skyvision/internal/config"
	"github.com/skyvisionhq/skyvision/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 127.0.0.1)
  PORT                         Server port to listen on (default: 8714)
  DATA_DIR                     Data directory (default: .skyvision)
  MEDIA_DIR                    Localized image cache (default: {data_dir}/media)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/skyvision.db)
  DATABASE_HOST                Database host, assembled into a mariadb:// URL
  DATABASE_PORT                Database port (default: 3306)
  DATABASE_USER                Database user
  DATABASE_PASSWORD            Database password
  DATABASE_NAME                Database name (default: skyvision)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  CORS_ALLOW_ORIGINS           Comma-separated allowed origins (default: *)
  HTTP_CACHE_DIR               Cache embedding responses on disk (dev only)

  EMBEDDING_*                  Embedding service configuration
    PROVIDER                   Provider: clip, openai, local (default: clip)
    BASE_URL                   Base URL (e.g., http://localhost:5000)
    MODEL                      Model identifier (default: clip-ViT-B-32)
    API_KEY                    API key (openai provider)
    DIM                        Embedding dimension (default: 512)
    BATCH_SIZE                 Inputs per embedding request (default: 32)
    TIMEOUT                    Request timeout in seconds (default: 60)
    MAX_RETRIES                Retry attempts (default: 5)
    INITIAL_DELAY              Initial retry delay in seconds (default: 2)
    BACKOFF_FACTOR             Retry backoff multiplier (default: 2)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8714)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags win over env vars and .env values.
	cfg = applyServeOverrides(cfg, host, port)

	addr := cfg.Addr()

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := cfg.EnsureMediaDir(); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}

	// Configure installs the logger as the process default.
	slogger := log.Configure(cfg)

	opts, err := clientOptions(cfg)
	if err != nil {
		return err
	}
	opts = append(opts,
		skyvision.WithDataDir(cfg.DataDir()),
		skyvision.WithMediaDir(cfg.MediaDir()),
		skyvision.WithLogger(slogger),
	)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting skyvision", attrs...)

	client, err := skyvision.New(opts...)
	if err != nil {
		return fmt.Errorf("create skyvision client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close skyvision client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, cfg.CORSOrigins())
	router := apiServer.Router()

	// Middleware must be registered before routes are mounted.
	router.Use(apimiddleware.Logging(slogger))
	router.Use(apimiddleware.CorrelationID)
	apiServer.MountRoutes()

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"skyvision","version":"%s","docs":"/docs"}`, version)
	})

	docsRouter := apiServer.DocsRouter("/docs/openapi.json")
	router.Mount("/docs", docsRouter.Routes())

	server := api.NewServer(addr, slogger)
	server.Router().Mount("/", router)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slogger.Info("shutting down server")
		// In-flight requests get a drain window before the listener dies.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	slogger.Info("starting server", slog.String("addr", addr))
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
