// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., EMBEDDING_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 127.0.0.1)
	Host string `envconfig:"HOST" default:"127.0.0.1"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8714)
	Port int `envconfig:"PORT" default:"8714"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: .skyvision
	DataDir string `envconfig:"DATA_DIR"`

	// MediaDir is the localized image cache directory.
	// Env: MEDIA_DIR
	// Default: {data_dir}/media
	MediaDir string `envconfig:"MEDIA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Takes precedence over the discrete DATABASE_* variables.
	DBURL string `envconfig:"DB_URL"`

	// Database holds discrete connection parameters, assembled into a
	// mariadb:// URL when DB_URL is not set.
	Database DatabaseEnv `envconfig:"DATABASE"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// CORSAllowOrigins is a comma-separated list of allowed CORS origins.
	// Env: CORS_ALLOW_ORIGINS (default: *)
	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	// HTTPCacheDir enables on-disk caching of embedding provider responses
	// when set. Intended for development and tests.
	// Env: HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`

	// Embedding configures the embedding service endpoint.
	Embedding EndpointEnv `envconfig:"EMBEDDING"`
}

// DatabaseEnv holds discrete database connection parameters.
type DatabaseEnv struct {
	// Host is the database server host.
	// Env: DATABASE_HOST
	Host string `envconfig:"HOST"`

	// Port is the database server port.
	// Env: DATABASE_PORT (default: 3306)
	Port int `envconfig:"PORT" default:"3306"`

	// User is the database user.
	// Env: DATABASE_USER
	User string `envconfig:"USER"`

	// Password is the database password.
	// Env: DATABASE_PASSWORD
	Password string `envconfig:"PASSWORD"`

	// Name is the database name.
	// Env: DATABASE_NAME (default: skyvision)
	Name string `envconfig:"NAME" default:"skyvision"`
}

// EndpointEnv holds environment configuration for the embedding endpoint.
type EndpointEnv struct {
	// Provider selects the embedding provider (clip, openai, or local).
	// Env: EMBEDDING_PROVIDER (default: clip)
	Provider string `envconfig:"PROVIDER" default:"clip"`

	// BaseURL is the base URL for the endpoint.
	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: EMBEDDING_MODEL (default: clip-ViT-B-32)
	Model string `envconfig:"MODEL" default:"clip-ViT-B-32"`

	// APIKey is the API key for authentication.
	// Env: EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Dim is the expected embedding dimension.
	// Env: EMBEDDING_DIM (default: 512)
	Dim int `envconfig:"DIM" default:"512"`

	// BatchSize is the number of inputs embedded per request.
	// Env: EMBEDDING_BATCH_SIZE (default: 32)
	BatchSize int `envconfig:"BATCH_SIZE" default:"32"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: EMBEDDING_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: EMBEDDING_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: EMBEDDING_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "SKYVISION" would require SKYVISION_DB_URL instead
// of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.MediaDir != "" {
		cfg = applyOption(cfg, WithMediaDir(e.MediaDir))
	}
	if dbURL := e.databaseURL(); dbURL != "" {
		cfg = applyOption(cfg, WithDBURL(dbURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.CORSAllowOrigins != "" {
		cfg = applyOption(cfg, WithCORSOrigins(splitCommaList(e.CORSAllowOrigins)))
	}
	if e.HTTPCacheDir != "" {
		cfg = applyOption(cfg, WithHTTPCacheDir(e.HTTPCacheDir))
	}
	cfg = applyOption(cfg, WithEmbeddingEndpoint(e.Embedding.ToEndpoint()))

	return cfg
}

// databaseURL returns DB_URL when set, otherwise assembles a mariadb URL
// from the discrete DATABASE_* parameters. Empty when neither is configured.
func (e EnvConfig) databaseURL() string {
	if e.DBURL != "" {
		return e.DBURL
	}
	if e.Database.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "mariadb",
		Host:   fmt.Sprintf("%s:%d", e.Database.Host, e.Database.Port),
		Path:   "/" + e.Database.Name,
	}
	if e.Database.User != "" {
		if e.Database.Password != "" {
			u.User = url.UserPassword(e.Database.User, e.Database.Password)
		} else {
			u.User = url.User(e.Database.User)
		}
	}
	return u.String()
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	ep := NewEndpoint().
		WithProvider(parseProviderKind(e.Provider)).
		WithModel(e.Model).
		WithDim(e.Dim).
		WithBatchSize(e.BatchSize).
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))).
		WithMaxRetries(e.MaxRetries)

	if e.BaseURL != "" {
		ep = ep.WithBaseURL(e.BaseURL)
	}
	if e.APIKey != "" {
		ep = ep.WithAPIKey(e.APIKey)
	}
	ep = ep.WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second)))
	ep = ep.WithBackoffFactor(e.BackoffFactor)
	return ep
}

// parseProviderKind parses a provider kind string.
func parseProviderKind(s string) ProviderKind {
	switch strings.ToLower(s) {
	case string(ProviderOpenAI):
		return ProviderOpenAI
	case string(ProviderLocal):
		return ProviderLocal
	default:
		return ProviderCLIP
	}
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// splitCommaList splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
