package search

// BatchProgress is called after each batch completes during entity
// embedding. completed is the running total of entities processed so far;
// total is the overall number of entities to embed.
type BatchProgress func(completed, total int)

// BatchError is called when a batch fails during entity embedding.
// batchStart and batchEnd are the entity offsets of the failed batch;
// err is the upstream error (e.g. HTTP 429, timeout, auth failure).
type BatchError func(batchStart, batchEnd int, err error)

// EmbedOption configures the behaviour of an embedding run.
type EmbedOption func(*EmbedConfig)

// EmbedConfig holds the resolved configuration for an embedding run.
type EmbedConfig struct {
	progress   BatchProgress
	batchError BatchError
	preferText bool
}

// NewEmbedConfig applies all options and returns the resolved config.
func NewEmbedConfig(opts ...EmbedOption) EmbedConfig {
	var cfg EmbedConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Progress returns the progress callback, or nil if none was set.
func (c EmbedConfig) Progress() BatchProgress { return c.progress }

// BatchError returns the batch error callback, or nil if none was set.
func (c EmbedConfig) BatchError() BatchError { return c.batchError }

// PreferText reports whether text prompts are used even when a localized
// image exists.
func (c EmbedConfig) PreferText() bool { return c.preferText }

// WithProgress registers a callback that is invoked after each batch of
// embeddings is generated.
func WithProgress(fn BatchProgress) EmbedOption {
	return func(c *EmbedConfig) { c.progress = fn }
}

// WithBatchError registers a callback that is invoked when an individual
// batch fails during embedding. This allows callers to log each upstream
// error (HTTP status, timeout, etc.) as it occurs.
func WithBatchError(fn BatchError) EmbedOption {
	return func(c *EmbedConfig) { c.batchError = fn }
}

// WithPreferText forces text prompts for all entities, skipping image
// embedding even when a localized image exists.
func WithPreferText() EmbedOption {
	return func(c *EmbedConfig) { c.preferText = true }
}
