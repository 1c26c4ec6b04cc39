package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/skyvisionhq/skyvision/domain/search"
)

const hugotBatchMax = 10

// ortSingleton holds the process-wide ONNX Runtime session and pipeline.
// ORT only allows one active session per process, so all LocalProvider
// instances must share it. The mutex serializes both initialization and
// inference (ORT is not thread-safe).
var ortSingleton struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
}

// LocalProvider embeds texts with a local ONNX feature-extraction model via
// hugot. It is text-only: there is no local image tower, so image-preferred
// seeding and image queries need the CLIP provider.
//
// The model can come from two sources (checked in order):
//  1. Model files on disk — a subdirectory of cacheDir containing tokenizer.json.
//  2. Statically embedded in the binary (build tag embed_model), extracted to
//     cacheDir on first use.
//
// All instances share a single ONNX Runtime session because ORT only supports
// one active session per process.
type LocalProvider struct {
	cacheDir  string
	modelID   string
	dimension int
}

// LocalOption is a functional option for LocalProvider.
type LocalOption func(*LocalProvider)

// WithLocalModelID sets the identifier reported for the local model.
func WithLocalModelID(id string) LocalOption {
	return func(p *LocalProvider) { p.modelID = id }
}

// WithLocalDimension sets the embedding dimension the on-disk model
// produces.
func WithLocalDimension(dim int) LocalOption {
	return func(p *LocalProvider) { p.dimension = dim }
}

// NewLocalProvider creates a LocalProvider that looks for model files in
// cacheDir. If no model exists on disk and the embed_model build tag was
// used, the embedded model is extracted to cacheDir automatically.
func NewLocalProvider(cacheDir string, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		cacheDir:  cacheDir,
		modelID:   "local-onnx",
		dimension: 512,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available reports whether a usable model exists — either compiled into
// the binary (embed_model build tag) or present on disk in cacheDir.
func (p *LocalProvider) Available() bool {
	if modelBundled {
		return true
	}
	_, err := p.diskModelPath()
	return err == nil
}

// Dimension returns the configured embedding dimension.
func (p *LocalProvider) Dimension() int { return p.dimension }

// ModelID returns the local model identifier.
func (p *LocalProvider) ModelID() string { return p.modelID }

// SupportsImages returns false; the local pipeline has no image tower.
func (p *LocalProvider) SupportsImages() bool { return false }

func (p *LocalProvider) initialize() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	modelPath, err := p.resolveModelPath()
	if err != nil {
		_ = session.Destroy()
		return err
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "builtin-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortSingleton.session = session
	ortSingleton.pipeline = pipeline
	ortSingleton.ready = true
	return nil
}

// resolveModelPath returns the path to a usable model directory.
// It first checks for model files already on disk in cacheDir, then
// falls back to extracting the statically embedded model (if compiled in).
func (p *LocalProvider) resolveModelPath() (string, error) {
	// Prefer model files already present on disk.
	if diskPath, err := p.diskModelPath(); err == nil {
		return diskPath, nil
	}

	if !modelBundled {
		return "", fmt.Errorf("no model found in %s and no embedded model compiled in (build with -tags embed_model)", p.cacheDir)
	}

	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	return extractEmbeddedModel(bundledModelFS, p.cacheDir)
}

// diskModelPath looks for a model subdirectory containing tokenizer.json
// inside cacheDir. Returns the path if found, or an error if no valid
// model directory exists on disk.
func (p *LocalProvider) diskModelPath() (string, error) {
	entries, err := os.ReadDir(p.cacheDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", p.cacheDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(p.cacheDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json found in %s", p.cacheDir)
}

// extractEmbeddedModel writes the statically embedded model files to targetDir
// and returns the path to the model subdirectory.
func extractEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var modelSubdir string
	for _, entry := range entries {
		if entry.IsDir() {
			modelSubdir = entry.Name()
			break
		}
	}
	if modelSubdir == "" {
		return "", fmt.Errorf("no model directory found in embedded models")
	}

	modelPath := filepath.Join(targetDir, modelSubdir)

	// Skip extraction if already present
	if _, statErr := os.Stat(filepath.Join(modelPath, "tokenizer.json")); statErr == nil {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(modelsFS, modelSubdir)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return modelPath, nil
}

// EmbedTexts generates embeddings for the given texts with the local model.
// Inputs are chunked to the ORT pipeline's batch capacity internally.
func (p *LocalProvider) EmbedTexts(ctx context.Context, texts []string) ([]search.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.initialize(); err != nil {
		return nil, fmt.Errorf("initialize hugot: %w", err)
	}

	vectors := make([]search.Vector, 0, len(texts))
	for start := 0; start < len(texts); start += hugotBatchMax {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+hugotBatchMax, len(texts))
		batch, err := p.runBatch(texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (p *LocalProvider) runBatch(texts []string) ([]search.Vector, error) {
	// Hold the singleton mutex for inference — ORT is not thread-safe.
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	result, err := ortSingleton.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}

	vectors := make([]search.Vector, len(result.Embeddings))
	for i, vec32 := range result.Embeddings {
		floats := make([]float64, len(vec32))
		for j, v := range vec32 {
			floats[j] = float64(v)
		}
		vectors[i] = search.NewVector(floats)
	}
	return vectors, nil
}

// EmbedImages is unsupported on the local provider.
func (p *LocalProvider) EmbedImages(ctx context.Context, images [][]byte) ([]search.Vector, error) {
	return nil, search.ErrImagesUnsupported
}

// Close is a no-op. The ONNX Runtime session is process-global and shared
// across all LocalProvider instances; it is cleaned up when the process exits.
func (p *LocalProvider) Close() error {
	return nil
}

var _ search.Embedder = (*LocalProvider)(nil)
