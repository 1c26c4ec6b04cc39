package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/infrastructure/provider"
	"github.com/skyvisionhq/skyvision/internal/config"
)

// clientOptions returns the skyvision.Option slice derived from the shared
// parts of AppConfig: database storage and the embedding provider. Callers
// append entrypoint-specific options (logger, media settings, etc.) before
// passing the full slice to skyvision.New.
func clientOptions(cfg config.AppConfig) ([]skyvision.Option, error) {
	var opts []skyvision.Option

	opts = append(opts, storageOptions(cfg)...)

	embOpts, err := embeddingOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding config: %w", err)
	}
	opts = append(opts, embOpts...)

	return opts, nil
}

// storageOptions returns the skyvision.Option for the configured database
// backend. MariaDB and PostgreSQL URLs pass through verbatim; anything else
// falls back to a SQLite file under the data directory.
func storageOptions(cfg config.AppConfig) []skyvision.Option {
	dbURL := cfg.DBURL()

	if dbURL != "" && !isSQLite(dbURL) {
		return []skyvision.Option{skyvision.WithDatabaseURL(dbURL)}
	}

	dbPath := cfg.DataDir() + "/skyvision.db"
	if dbURL != "" && isSQLite(dbURL) {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:///")
		if dbPath == dbURL {
			dbPath = strings.TrimPrefix(dbURL, "sqlite:")
		}
	}

	return []skyvision.Option{skyvision.WithSQLite(dbPath)}
}

// embeddingOptions returns the skyvision.Option for the configured embedding
// provider. A clip provider without a base URL and the local provider both
// return no option, which makes skyvision.New fall back to the on-disk ONNX
// model under {data_dir}/models.
func embeddingOptions(cfg config.AppConfig) ([]skyvision.Option, error) {
	endpoint := cfg.EmbeddingEndpoint()

	switch endpoint.Provider() {
	case config.ProviderCLIP:
		if endpoint.BaseURL() == "" {
			return nil, nil
		}
		clipCfg := provider.ClipConfig{
			BaseURL:       endpoint.BaseURL(),
			Model:         endpoint.Model(),
			Dimension:     endpoint.Dim(),
			Timeout:       endpoint.Timeout(),
			MaxRetries:    endpoint.MaxRetries(),
			InitialDelay:  endpoint.InitialDelay(),
			BackoffFactor: endpoint.BackoffFactor(),
		}
		if client := cachingHTTPClient(cfg); client != nil {
			clipCfg.HTTPClient = client
		}
		return []skyvision.Option{skyvision.WithCLIPConfig(clipCfg)}, nil

	case config.ProviderOpenAI:
		if endpoint.APIKey() == "" {
			return nil, fmt.Errorf("EMBEDDING_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
		openaiCfg := provider.OpenAIConfig{
			APIKey:         endpoint.APIKey(),
			BaseURL:        endpoint.BaseURL(),
			EmbeddingModel: endpoint.Model(),
			Dimension:      endpoint.Dim(),
			Timeout:        endpoint.Timeout(),
			MaxRetries:     endpoint.MaxRetries(),
			InitialDelay:   endpoint.InitialDelay(),
			BackoffFactor:  endpoint.BackoffFactor(),
		}
		if client := cachingHTTPClient(cfg); client != nil {
			openaiCfg.HTTPClient = client
		}
		return []skyvision.Option{skyvision.WithOpenAIConfig(openaiCfg)}, nil

	case config.ProviderLocal:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want clip, openai, or local)", endpoint.Provider())
	}
}

// cachingHTTPClient returns an http.Client that caches embedding responses
// on disk, or nil when HTTP_CACHE_DIR is not set.
func cachingHTTPClient(cfg config.AppConfig) *http.Client {
	cacheDir := cfg.HTTPCacheDir()
	if cacheDir == "" {
		return nil
	}
	return &http.Client{
		Timeout:   cfg.EmbeddingEndpoint().Timeout(),
		Transport: provider.NewCachingTransport(cacheDir, nil),
	}
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
