// Package media downloads referenced images into a local cache directory.
// File names are deterministic per source URL, so re-running a seed against
// unchanged inputs downloads nothing.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/pipeline"
)

// PublicPrefix is the URL path the API serves the media directory under.
const PublicPrefix = "/media/"

const (
	defaultRequestTimeout = 60 * time.Second
	defaultMaxRetries     = 3
	defaultInitialDelay   = 1 * time.Second
	defaultBackoffFactor  = 2.0
	defaultWorkers        = 4

	// Anything larger than this is not a catalog thumbnail.
	maxDownloadBytes = 32 << 20
)

// Browser-like headers; several image hosts reject default Go client UAs,
// and Wikimedia requires a Referer.
const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	acceptHeader = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	wikiReferer  = "https://commons.wikimedia.org/"
)

// errNotImage marks a payload that is neither declared nor sniffable as an
// image. It is permanent: retrying the same URL returns the same page.
var errNotImage = errors.New("payload is not an image")

// allowedExts is the extension precedence order used when probing the cache
// for a file whose extension could not be derived from the URL.
var allowedExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

var mimeExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Localizer downloads image references into a media directory.
type Localizer struct {
	client        *http.Client
	dir           string
	overwrite     bool
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	workers       int
	logger        *slog.Logger
}

// Option configures a Localizer.
type Option func(*Localizer)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Localizer) { l.client = client }
}

// WithOverwrite forces re-downloading images that are already cached.
func WithOverwrite(overwrite bool) Option {
	return func(l *Localizer) { l.overwrite = overwrite }
}

// WithMaxRetries sets the maximum retry count per download.
func WithMaxRetries(n int) Option {
	return func(l *Localizer) { l.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) Option {
	return func(l *Localizer) { l.initialDelay = d }
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) Option {
	return func(l *Localizer) { l.backoffFactor = f }
}

// WithWorkers sets the number of concurrent downloads.
func WithWorkers(n int) Option {
	return func(l *Localizer) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Localizer) { l.logger = logger }
}

// NewLocalizer creates a Localizer writing into dir.
func NewLocalizer(dir string, opts ...Option) *Localizer {
	l := &Localizer{
		client:        &http.Client{Timeout: defaultRequestTimeout},
		dir:           dir,
		maxRetries:    defaultMaxRetries,
		initialDelay:  defaultInitialDelay,
		backoffFactor: defaultBackoffFactor,
		workers:       defaultWorkers,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Dir returns the media directory.
func (l *Localizer) Dir() string { return l.dir }

// ErrNotLocalized marks a URL outside the public media path; only localized
// references can be opened from the cache.
var ErrNotLocalized = errors.New("url is not a localized media path")

// Open reads a localized image back from the cache. The URL must be a public
// media path produced by Localize, e.g. "/media/airport_1_8c736529.jpg".
func (l *Localizer) Open(rawURL string) ([]byte, error) {
	name, ok := strings.CutPrefix(rawURL, PublicPrefix)
	if !ok {
		return nil, fmt.Errorf("open %q: %w", rawURL, ErrNotLocalized)
	}
	// Localize never emits nested names; reject anything that escapes dir.
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("open %q: %w", rawURL, ErrNotLocalized)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", rawURL, err)
	}
	return data, nil
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeKept
	outcomeSkipped
	outcomeFailed
)

// Localize downloads every reference into the media directory and returns
// the references with localized URLs rewritten to the public media path.
// Failed rows keep their original URL and are reported; they never abort
// the run. The returned error covers setup problems and cancellation only.
func (l *Localizer) Localize(ctx context.Context, refs []catalog.ImageRef) ([]catalog.ImageRef, pipeline.LocalizeReport, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, pipeline.LocalizeReport{}, fmt.Errorf("create media dir: %w", err)
	}

	l.logger.InfoContext(ctx, "localizing images",
		slog.Int("refs", len(refs)),
		slog.String("dir", l.dir),
	)

	out := make([]catalog.ImageRef, len(refs))
	outcomes := make([]outcome, len(refs))

	var mu sync.Mutex
	var rowErrs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, ref := range refs {
		g.Go(func() error {
			localized, oc, err := l.localizeOne(gctx, ref)
			out[i] = localized
			outcomes[i] = oc
			if err != nil {
				mu.Lock()
				rowErrs = append(rowErrs, pipeline.NewEntityError(ref.Kind(), ref.EntityID(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pipeline.LocalizeReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, pipeline.LocalizeReport{}, err
	}

	var downloaded, kept, skipped, failed int
	for _, oc := range outcomes {
		switch oc {
		case outcomeDownloaded:
			downloaded++
		case outcomeKept:
			kept++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
	}

	report := pipeline.NewLocalizeReport(downloaded, kept, skipped, failed, rowErrs)
	l.logger.InfoContext(ctx, "localized images", slog.String("report", report.String()))
	return out, report, nil
}

// localizeOne resolves a single reference. The returned ref carries the
// public media URL on success and the original URL otherwise.
func (l *Localizer) localizeOne(ctx context.Context, ref catalog.ImageRef) (catalog.ImageRef, outcome, error) {
	rawURL := strings.TrimSpace(ref.URL())
	if rawURL == "" {
		return ref, outcomeSkipped, nil
	}
	if strings.HasPrefix(rawURL, PublicPrefix) {
		return ref, outcomeKept, nil
	}

	base := cacheBase(ref.Kind(), ref.EntityID(), rawURL)
	if !l.overwrite {
		if name, ok := l.cached(base, extFromURL(rawURL)); ok {
			l.logger.DebugContext(ctx, "image already cached", slog.String("file", name))
			return ref.WithURL(PublicPrefix + name), outcomeKept, nil
		}
	}

	data, contentType, err := l.download(ctx, rawURL)
	if err != nil {
		l.logger.WarnContext(ctx, "image download failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return ref, outcomeFailed, err
	}

	name := base + decideExt(rawURL, contentType, data)
	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0o644); err != nil {
		return ref, outcomeFailed, fmt.Errorf("write image: %w", err)
	}

	l.logger.DebugContext(ctx, "image downloaded",
		slog.String("url", rawURL),
		slog.String("file", name),
	)
	return ref.WithURL(PublicPrefix + name), outcomeDownloaded, nil
}

// cached reports whether a cache file for base already exists. With an
// unknown extension every allowed one is probed.
func (l *Localizer) cached(base, urlExt string) (string, bool) {
	exts := allowedExts
	if urlExt != "" {
		exts = []string{urlExt}
	}
	for _, ext := range exts {
		name := base + ext
		if _, err := os.Stat(filepath.Join(l.dir, name)); err == nil {
			return name, true
		}
	}
	return "", false
}

// download fetches the URL with retries and multiplicative backoff. Network
// errors, 429 and 5xx responses retry; other statuses and non-image
// payloads fail immediately.
func (l *Localizer) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	delay := l.initialDelay
	var lastErr error

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		data, contentType, err := l.fetch(ctx, rawURL)
		if err == nil {
			return data, contentType, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, "", err
		}

		if attempt < l.maxRetries {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * l.backoffFactor)
			}
		}
	}

	return nil, "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (l *Localizer) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(u.Hostname(), "wikimedia.org") {
		req.Header.Set("Referer", wikiReferer)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &statusError{status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxDownloadBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isImage(contentType, data) {
		return nil, "", fmt.Errorf("%w: content-type %q", errNotImage, contentType)
	}
	return data, contentType, nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	if errors.Is(err, errNotImage) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Remaining errors are transport-level and worth another attempt.
	return true
}

// cacheBase builds the deterministic file name stem for a source URL.
func cacheBase(kind catalog.Kind, id int64, rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return fmt.Sprintf("%s_%d_%s", kind.Singular(), id, hex.EncodeToString(sum[:])[:8])
}

// decideExt picks the file extension: URL path first, then the declared
// content type, then the payload's magic bytes, defaulting to .jpg.
func decideExt(rawURL, contentType string, data []byte) string {
	if ext := extFromURL(rawURL); ext != "" {
		return ext
	}
	if ext := mimeExts[cleanMime(contentType)]; ext != "" {
		return ext
	}
	if ext := sniffExt(data); ext != "" {
		return ext
	}
	return ".jpg"
}

func extFromURL(rawURL string) string {
	trimmed, _, _ := strings.Cut(rawURL, "?")
	ext := strings.ToLower(path.Ext(trimmed))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return ext
		}
	}
	return ""
}

func cleanMime(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

func isImage(contentType string, data []byte) bool {
	if _, ok := mimeExts[cleanMime(contentType)]; ok {
		return true
	}
	return sniffExt(data) != ""
}

func sniffExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		return ".jpg"
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return ".png"
	case bytes.HasPrefix(data, []byte("RIFF")):
		return ".webp"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ".gif"
	default:
		return ""
	}
}
