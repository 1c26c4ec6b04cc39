package skyvision

import (
	"io"
	"log/slog"

	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/infrastructure/provider"
	"github.com/skyvisionhq/skyvision/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL          string
	dataDir        string
	mediaDir       string
	modelDir       string
	embedder       search.Embedder
	logger         *slog.Logger
	overwriteMedia bool
	errorLimit     int
	closers        []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir: config.DefaultDataDir(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database. Vectors are stored as JSON
// and ranked in process; intended for development and tests.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite:///" + path
	}
}

// WithMariaDB configures MariaDB as the database. Requires MariaDB 11.7+
// for native VECTOR columns.
func WithMariaDB(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithPostgres configures PostgreSQL with the pgvector extension as the
// database.
func WithPostgres(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithDatabaseURL configures the database from a connection URL. Supported
// schemes are mariadb://, mysql://, postgresql:// and sqlite:///.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithCLIP sets a CLIP inference server as the embedding provider. CLIP
// embeds texts and images into one vector space, which image and hybrid
// search require.
func WithCLIP(baseURL string) Option {
	return func(c *clientConfig) {
		c.embedder = provider.NewClipProvider(baseURL)
	}
}

// WithCLIPConfig sets a CLIP provider with custom configuration.
func WithCLIPConfig(cfg provider.ClipConfig) Option {
	return func(c *clientConfig) {
		c.embedder = provider.NewClipProviderFromConfig(cfg)
	}
}

// WithOpenAIEmbedding sets OpenAI as the embedding provider. OpenAI models
// are text-only: entities embed from their prompts and image search is
// unavailable.
func WithOpenAIEmbedding(apiKey string) Option {
	return func(c *clientConfig) {
		c.embedder = provider.NewOpenAIProvider(apiKey)
	}
}

// WithOpenAIConfig sets OpenAI with custom configuration.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		c.embedder = provider.NewOpenAIProviderFromConfig(cfg)
	}
}

// WithEmbeddingProvider sets a custom embedding provider.
func WithEmbeddingProvider(e search.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithModelDir sets the directory searched for local ONNX model files when
// no embedding provider is configured. Defaults to {dataDir}/models.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) {
		c.modelDir = dir
	}
}

// WithDataDir sets the data directory for the media cache and local models.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithMediaDir sets the localized image cache directory.
// If not specified, defaults to {dataDir}/media.
func WithMediaDir(dir string) Option {
	return func(c *clientConfig) {
		c.mediaDir = dir
	}
}

// WithMediaOverwrite forces seed runs to re-download images that are
// already cached.
func WithMediaOverwrite() Option {
	return func(c *clientConfig) {
		c.overwriteMedia = true
	}
}

// WithIngestErrorLimit sets how many malformed source rows a seed run may
// skip before aborting. Defaults to 0: the first bad row aborts.
func WithIngestErrorLimit(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.errorLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}
