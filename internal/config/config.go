// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "127.0.0.1"
	DefaultPort                  = 8714
	DefaultLogLevel              = "INFO"
	DefaultEmbeddingModel        = "clip-ViT-B-32"
	DefaultEmbeddingDim          = 512
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEmbeddingBatchSize    = 32
	DefaultMediaSubdir           = "media"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// ProviderKind selects the embedding provider implementation.
type ProviderKind string

// ProviderKind values.
const (
	ProviderCLIP   ProviderKind = "clip"
	ProviderOpenAI ProviderKind = "openai"
	ProviderLocal  ProviderKind = "local"
)

// Endpoint configures the embedding service endpoint.
type Endpoint struct {
	provider      ProviderKind
	baseURL       string
	model         string
	apiKey        string
	dim           int
	batchSize     int
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		provider:      ProviderCLIP,
		model:         DefaultEmbeddingModel,
		dim:           DefaultEmbeddingDim,
		batchSize:     DefaultEmbeddingBatchSize,
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
	}
}

// Provider returns the provider kind.
func (e Endpoint) Provider() ProviderKind { return e.provider }

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the embedding model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key for the endpoint.
func (e Endpoint) APIKey() string { return e.apiKey }

// Dim returns the expected embedding dimension.
func (e Endpoint) Dim() int { return e.dim }

// BatchSize returns how many inputs are embedded per request.
func (e Endpoint) BatchSize() int { return e.batchSize }

// Timeout returns the per-request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// WithProvider returns a new Endpoint with the specified provider kind.
func (e Endpoint) WithProvider(p ProviderKind) Endpoint {
	e.provider = p
	return e
}

// WithBaseURL returns a new Endpoint with the specified base URL.
func (e Endpoint) WithBaseURL(u string) Endpoint {
	e.baseURL = u
	return e
}

// WithModel returns a new Endpoint with the specified model.
func (e Endpoint) WithModel(model string) Endpoint {
	e.model = model
	return e
}

// WithAPIKey returns a new Endpoint with the specified API key.
func (e Endpoint) WithAPIKey(key string) Endpoint {
	e.apiKey = key
	return e
}

// WithDim returns a new Endpoint with the specified dimension.
func (e Endpoint) WithDim(dim int) Endpoint {
	if dim > 0 {
		e.dim = dim
	}
	return e
}

// WithBatchSize returns a new Endpoint with the specified batch size.
func (e Endpoint) WithBatchSize(n int) Endpoint {
	if n > 0 {
		e.batchSize = n
	}
	return e
}

// WithTimeout returns a new Endpoint with the specified timeout.
func (e Endpoint) WithTimeout(d time.Duration) Endpoint {
	e.timeout = d
	return e
}

// WithMaxRetries returns a new Endpoint with the specified retry count.
func (e Endpoint) WithMaxRetries(n int) Endpoint {
	e.maxRetries = n
	return e
}

// WithInitialDelay returns a new Endpoint with the specified initial retry delay.
func (e Endpoint) WithInitialDelay(d time.Duration) Endpoint {
	if d > 0 {
		e.initialDelay = d
	}
	return e
}

// WithBackoffFactor returns a new Endpoint with the specified backoff multiplier.
func (e Endpoint) WithBackoffFactor(f float64) Endpoint {
	if f > 0 {
		e.backoffFactor = f
	}
	return e
}

// AppConfig is the immutable application configuration.
// Construct with NewAppConfig and functional options, or from the
// environment via LoadConfig.
type AppConfig struct {
	dbURL        string
	dataDir      string
	mediaDir     string
	host         string
	port         int
	corsOrigins  []string
	logLevel     string
	logFormat    LogFormat
	httpCacheDir string
	embedding    Endpoint
}

// AppConfigOption configures an AppConfig during construction.
type AppConfigOption func(*AppConfig)

// NewAppConfig creates an AppConfig with defaults, then applies options.
func NewAppConfig(options ...AppConfigOption) AppConfig {
	cfg := AppConfig{
		dataDir:     DefaultDataDir(),
		host:        DefaultHost,
		port:        DefaultPort,
		corsOrigins: []string{"*"},
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		embedding:   NewEndpoint(),
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.mediaDir == "" {
		cfg.mediaDir = filepath.Join(cfg.dataDir, DefaultMediaSubdir)
	}
	return cfg
}

// WithDBURL sets the database URL.
func WithDBURL(u string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = u }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.dataDir = dir }
}

// WithMediaDir sets the media cache directory.
func WithMediaDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.mediaDir = dir }
}

// WithHost sets the API listen host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the API listen port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		cp := make([]string, len(origins))
		copy(cp, origins)
		c.corsOrigins = cp
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithEmbeddingEndpoint sets the embedding endpoint configuration.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithHTTPCacheDir enables on-disk caching of embedding provider responses.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// Apply returns a copy of the config with the given options applied.
// CLI flags override environment-derived values through this.
func (c AppConfig) Apply(options ...AppConfigOption) AppConfig {
	for _, opt := range options {
		opt(&c)
	}
	if c.mediaDir == "" {
		c.mediaDir = filepath.Join(c.dataDir, DefaultMediaSubdir)
	}
	return c
}

// DBURL returns the database URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// MediaDir returns the media cache directory.
func (c AppConfig) MediaDir() string { return c.mediaDir }

// Host returns the API listen host.
func (c AppConfig) Host() string { return c.host }

// Port returns the API listen port.
func (c AppConfig) Port() int { return c.port }

// Addr returns the host:port listen address.
func (c AppConfig) Addr() string { return fmt.Sprintf("%s:%d", c.host, c.port) }

// CORSOrigins returns the allowed CORS origins.
func (c AppConfig) CORSOrigins() []string {
	cp := make([]string, len(c.corsOrigins))
	copy(cp, c.corsOrigins)
	return cp
}

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// EmbeddingEndpoint returns the embedding endpoint configuration.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embedding }

// HTTPCacheDir returns the embedding response cache directory, empty when
// caching is disabled.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// EnsureDataDir creates the data directory if it does not exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// EnsureMediaDir creates the media cache directory if it does not exist.
func (c AppConfig) EnsureMediaDir() error {
	return os.MkdirAll(c.mediaDir, 0o755)
}

// LogAttrs returns the configuration as slog attributes with credentials
// masked, suitable for startup logging.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("db_url", maskDBURL(c.dbURL)),
		slog.String("data_dir", c.dataDir),
		slog.String("media_dir", c.mediaDir),
		slog.String("addr", c.Addr()),
		slog.String("cors_origins", strings.Join(c.corsOrigins, ",")),
		slog.String("embedding_provider", string(c.embedding.provider)),
		slog.String("embedding_model", c.embedding.model),
		slog.Int("embedding_dim", c.embedding.dim),
		slog.String("log_level", c.logLevel),
		slog.String("log_format", string(c.logFormat)),
	}
}

// maskDBURL replaces the password in a database URL with asterisks.
func maskDBURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "(unparseable)"
	}
	if parsed.User != nil {
		if _, has := parsed.User.Password(); has {
			parsed.User = url.UserPassword(parsed.User.Username(), "****")
		}
	}
	return parsed.String()
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	return ".skyvision"
}

// DefaultLogger returns a logger suitable before configuration is loaded.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir resolves and creates the data directory.
// An empty dir selects the default.
func PrepareDataDir(dir string) (string, error) {
	if dir == "" {
		dir = DefaultDataDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return dir, nil
}

// PrepareMediaDir resolves and creates the media cache directory.
// An empty dir selects {dataDir}/media.
func PrepareMediaDir(dir, dataDir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(dataDir, DefaultMediaSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media directory %s: %w", dir, err)
	}
	return dir, nil
}
