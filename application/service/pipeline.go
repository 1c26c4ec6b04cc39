package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/pipeline"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/log"
)

const (
	// defaultBatchSize is the number of prompts or images per embedding
	// request when the caller does not set one.
	defaultBatchSize = 16

	// embedWorkers bounds concurrent embedding requests. CLIP inference
	// servers queue internally; more in-flight batches only adds timeouts.
	embedWorkers = 4
)

// Ingestor parses source files into catalog entities and image references.
// *openflights.Parser satisfies it.
type Ingestor interface {
	ParseAirportsFile(path string) ([]catalog.Airport, []error, error)
	ParseAirlinesFile(path string) ([]catalog.Airline, []error, error)
	ParseImageRefsFile(path string) ([]catalog.ImageRef, []error, error)
}

// MediaLocalizer downloads image references into the media cache and reads
// localized files back. *media.Localizer satisfies it.
type MediaLocalizer interface {
	Localize(ctx context.Context, refs []catalog.ImageRef) ([]catalog.ImageRef, pipeline.LocalizeReport, error)
	Open(url string) ([]byte, error)
}

// SeedParams configures a seed run. Empty paths skip the matching input
// file; an empty Stages slice runs every stage.
type SeedParams struct {
	AirportsPath string
	AirlinesPath string
	ImagesPath   string

	// Stages restricts the run. Ingest always runs, it feeds every later
	// stage; load without embed upserts catalog rows and leaves stored
	// embeddings untouched.
	Stages []pipeline.Stage

	// PreferImage embeds airport photos instead of text prompts when a
	// localized image exists. Airlines always prefer their logo.
	PreferImage bool

	// SkipImages skips image localization and forces text prompts for
	// every entity.
	SkipImages bool

	// BatchSize is the number of prompts or images per embedding request.
	BatchSize int
}

// Pipeline runs the seed pipeline: ingest, localize, embed, load. Stage
// outputs feed the next stage in memory; nothing is written to the database
// before the load stage.
type Pipeline struct {
	ingestor  Ingestor
	localizer MediaLocalizer
	embedder  search.Embedder
	catalog   catalog.Store
	vectors   search.VectorStore
	writer    search.EmbeddingWriter
	closed    *atomic.Bool
	logger    *slog.Logger
}

// NewPipeline creates a new Pipeline service.
func NewPipeline(
	ingestor Ingestor,
	localizer MediaLocalizer,
	embedder search.Embedder,
	catalogStore catalog.Store,
	vectors search.VectorStore,
	writer search.EmbeddingWriter,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ingestor:  ingestor,
		localizer: localizer,
		embedder:  embedder,
		catalog:   catalogStore,
		vectors:   vectors,
		writer:    writer,
		closed:    closed,
		logger:    logger,
	}
}

// seedData is the in-memory handoff between seed stages.
type seedData struct {
	airports []catalog.Airport
	airlines []catalog.Airline
	refs     []catalog.ImageRef

	// filled by the embed stage; entities whose embedding failed entirely
	// move to the plain slices and are loaded without a vector
	embAirports   []catalog.Airport
	airportVecs   []search.Vector
	plainAirports []catalog.Airport
	embAirlines   []catalog.Airline
	airlineVecs   []search.Vector
	plainAirlines []catalog.Airline
	embedded      bool
}

// Seed runs the requested stages in order and returns the per-run report.
func (s *Pipeline) Seed(ctx context.Context, params *SeedParams) (pipeline.Run, error) {
	if s.closed != nil && s.closed.Load() {
		return pipeline.Run{}, ErrClientClosed
	}
	if params == nil {
		params = &SeedParams{}
	}

	run := pipeline.NewRun(uuid.NewString(), time.Now())

	// The run ID travels both ways: the local logger carries it on the
	// stage summaries below, and the context carries it into the stages so
	// their own records correlate with the run.
	ctx = log.WithRunID(ctx, run.ID())
	logger := s.logger.With("run_id", run.ID())
	logger.Info("seed run started",
		"airports", params.AirportsPath,
		"airlines", params.AirlinesPath,
		"images", params.ImagesPath,
	)

	data, ingestReport, err := s.ingest(params)
	if err != nil {
		return pipeline.Run{}, err
	}
	run = run.WithIngest(ingestReport)
	logger.Info("ingest finished", "report", ingestReport.String())

	if stageEnabled(params.Stages, pipeline.StageLocalize) && !params.SkipImages && len(data.refs) > 0 {
		refs, locReport, err := s.localizer.Localize(ctx, data.refs)
		if err != nil {
			return pipeline.Run{}, fmt.Errorf("localize images: %w", err)
		}
		data.refs = refs
		run = run.WithLocalize(locReport)
		logger.Info("localize finished", "report", locReport.String())
	}

	applyRefs(data)

	if stageEnabled(params.Stages, pipeline.StageEmbed) {
		embedReport, err := s.embed(ctx, data, params)
		if err != nil {
			return pipeline.Run{}, err
		}
		run = run.WithEmbed(embedReport)
		logger.Info("embed finished", "report", embedReport.String())
	}

	if stageEnabled(params.Stages, pipeline.StageLoad) {
		loadReport, err := s.load(ctx, data)
		if err != nil {
			return pipeline.Run{}, err
		}
		run = run.WithLoad(loadReport)
		logger.Info("load finished", "report", loadReport.String())
	}

	run = run.Finish(time.Now())
	logger.Info("seed run finished", "duration", run.Duration().String())
	return run, nil
}

// stageEnabled reports whether a stage is part of the run. An empty stage
// list enables everything.
func stageEnabled(stages []pipeline.Stage, stage pipeline.Stage) bool {
	return len(stages) == 0 || slices.Contains(stages, stage)
}

// ingest parses whichever source files the params name. Row errors are
// collected per file; only unreadable files abort the run.
func (s *Pipeline) ingest(params *SeedParams) (*seedData, pipeline.IngestReport, error) {
	data := &seedData{}
	var rowErrs []error

	if params.AirportsPath != "" {
		airports, errs, err := s.ingestor.ParseAirportsFile(params.AirportsPath)
		if err != nil {
			return nil, pipeline.IngestReport{}, fmt.Errorf("ingest airports: %w", err)
		}
		data.airports = airports
		rowErrs = append(rowErrs, errs...)
	}
	if params.AirlinesPath != "" {
		airlines, errs, err := s.ingestor.ParseAirlinesFile(params.AirlinesPath)
		if err != nil {
			return nil, pipeline.IngestReport{}, fmt.Errorf("ingest airlines: %w", err)
		}
		data.airlines = airlines
		rowErrs = append(rowErrs, errs...)
	}
	if params.ImagesPath != "" {
		refs, errs, err := s.ingestor.ParseImageRefsFile(params.ImagesPath)
		if err != nil {
			return nil, pipeline.IngestReport{}, fmt.Errorf("ingest image refs: %w", err)
		}
		data.refs = refs
		rowErrs = append(rowErrs, errs...)
	}

	report := pipeline.NewIngestReport(len(data.airports), len(data.airlines), len(data.refs), len(rowErrs), rowErrs)
	return data, report, nil
}

// applyRefs merges image references into their entities. The reference URL
// and annotations override whatever the source rows carried; the first
// reference per entity wins.
func applyRefs(data *seedData) {
	if len(data.refs) == 0 {
		return
	}

	airportRefs := make(map[int64]catalog.ImageRef)
	airlineRefs := make(map[int64]catalog.ImageRef)
	for _, ref := range data.refs {
		m := airportRefs
		if ref.Kind() == catalog.KindAirline {
			m = airlineRefs
		}
		if _, ok := m[ref.EntityID()]; !ok {
			m[ref.EntityID()] = ref
		}
	}

	for i, a := range data.airports {
		if ref, ok := airportRefs[a.ID()]; ok {
			data.airports[i] = a.WithImageURL(ref.URL()).WithMetadata(ref.Metadata())
		}
	}
	for i, a := range data.airlines {
		if ref, ok := airlineRefs[a.ID()]; ok {
			data.airlines[i] = a.WithLogoURL(ref.URL()).WithMetadata(ref.Metadata())
		}
	}
}

// embed turns entities into vectors: image-first for airlines and, with
// PreferImage, for airports; text prompts otherwise and as fallback when an
// image cannot be read or embedded.
func (s *Pipeline) embed(ctx context.Context, data *seedData, params *SeedParams) (pipeline.EmbedReport, error) {
	dim, err := s.probeModel(ctx)
	if err != nil {
		return pipeline.EmbedReport{}, err
	}
	if err := s.vectors.EnsureSchema(ctx, dim); err != nil {
		return pipeline.EmbedReport{}, fmt.Errorf("ensure schema: %w", err)
	}

	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	budget := search.DefaultTokenBudget().WithMaxBatchSize(batchSize)

	var opts []search.EmbedOption
	opts = append(opts,
		search.WithProgress(func(completed, total int) {
			s.logger.DebugContext(ctx, "embedding progress", "completed", completed, "total", total)
		}),
		search.WithBatchError(func(start, end int, err error) {
			s.logger.WarnContext(ctx, "embedding batch failed", "start", start, "end", end, "error", err)
		}),
	)
	if params.SkipImages {
		opts = append(opts, search.WithPreferText())
	}
	cfg := search.NewEmbedConfig(opts...)

	fromImages := s.localizer != nil && s.embedder.SupportsImages() && !cfg.PreferText()

	apVecs, apOK, apTally, err := s.embedKind(ctx, catalog.KindAirport,
		airportItems(data.airports), fromImages && params.PreferImage, batchSize, budget, cfg)
	if err != nil {
		return pipeline.EmbedReport{}, err
	}
	alVecs, alOK, alTally, err := s.embedKind(ctx, catalog.KindAirline,
		airlineItems(data.airlines), fromImages, batchSize, budget, cfg)
	if err != nil {
		return pipeline.EmbedReport{}, err
	}

	data.embAirports, data.airportVecs, data.plainAirports = split(data.airports, apVecs, apOK)
	data.embAirlines, data.airlineVecs, data.plainAirlines = split(data.airlines, alVecs, alOK)
	data.embedded = true

	tally := apTally.merge(alTally)
	return pipeline.NewEmbedReport(tally.fromImage, tally.fromText, tally.failed, tally.errs), nil
}

// probeModel embeds one short text to verify the model is reachable and
// produces vectors of the configured dimension.
func (s *Pipeline) probeModel(ctx context.Context) (int, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, fmt.Errorf("probe embedding model: %w", errors.Join(search.ErrModelUnavailable, err))
	}
	if len(vecs) != 1 {
		return 0, fmt.Errorf("probe embedding model: got %d vectors for one input: %w",
			len(vecs), search.ErrModelUnavailable)
	}

	dim := s.embedder.Dimension()
	if got := vecs[0].Dim(); got != dim {
		return 0, fmt.Errorf("%w: model %s produced %d dimensions, configured %d",
			search.ErrDimensionMismatch, s.embedder.ModelID(), got, dim)
	}
	return dim, nil
}

// load upserts entities into the catalog, pairing each embedded entity with
// its vector. Entities whose embedding failed, and every entity on runs that
// skipped the embed stage, are upserted without touching stored embeddings.
func (s *Pipeline) load(ctx context.Context, data *seedData) (pipeline.LoadReport, error) {
	if err := s.vectors.EnsureSchema(ctx, s.embedder.Dimension()); err != nil {
		return pipeline.LoadReport{}, fmt.Errorf("ensure schema: %w", err)
	}

	if !data.embedded {
		apReport, err := s.catalog.SaveAirports(ctx, data.airports)
		if err != nil {
			return pipeline.LoadReport{}, fmt.Errorf("load airports: %w", err)
		}
		alReport, err := s.catalog.SaveAirlines(ctx, data.airlines)
		if err != nil {
			return pipeline.LoadReport{}, fmt.Errorf("load airlines: %w", err)
		}
		return pipeline.NewLoadReport(apReport, alReport), nil
	}

	apReport, err := s.writer.SaveEmbeddedAirports(ctx, data.embAirports, data.airportVecs)
	if err != nil {
		return pipeline.LoadReport{}, fmt.Errorf("load airports: %w", err)
	}
	if len(data.plainAirports) > 0 {
		r, err := s.catalog.SaveAirports(ctx, data.plainAirports)
		if err != nil {
			return pipeline.LoadReport{}, fmt.Errorf("load airports: %w", err)
		}
		apReport = apReport.Merge(r)
	}

	alReport, err := s.writer.SaveEmbeddedAirlines(ctx, data.embAirlines, data.airlineVecs)
	if err != nil {
		return pipeline.LoadReport{}, fmt.Errorf("load airlines: %w", err)
	}
	if len(data.plainAirlines) > 0 {
		r, err := s.catalog.SaveAirlines(ctx, data.plainAirlines)
		if err != nil {
			return pipeline.LoadReport{}, fmt.Errorf("load airlines: %w", err)
		}
		alReport = alReport.Merge(r)
	}

	return pipeline.NewLoadReport(apReport, alReport), nil
}

// embedItem pairs an entity with its prompt and image location.
type embedItem struct {
	id     int64
	prompt string
	url    string
}

func airportItems(airports []catalog.Airport) []embedItem {
	items := make([]embedItem, len(airports))
	for i, a := range airports {
		items[i] = embedItem{id: a.ID(), prompt: a.Prompt(), url: a.ImageURL()}
	}
	return items
}

func airlineItems(airlines []catalog.Airline) []embedItem {
	items := make([]embedItem, len(airlines))
	for i, a := range airlines {
		items[i] = embedItem{id: a.ID(), prompt: a.Prompt(), url: a.LogoURL()}
	}
	return items
}

// embedTally counts embedding outcomes for one run.
type embedTally struct {
	fromImage int
	fromText  int
	failed    int
	errs      []error
}

func (t embedTally) merge(other embedTally) embedTally {
	errs := make([]error, 0, len(t.errs)+len(other.errs))
	errs = append(errs, t.errs...)
	errs = append(errs, other.errs...)
	return embedTally{
		fromImage: t.fromImage + other.fromImage,
		fromText:  t.fromText + other.fromText,
		failed:    t.failed + other.failed,
		errs:      errs,
	}
}

// embedKind embeds one entity kind. The returned slices are aligned with
// items; ok marks entries that produced a vector. Batch failures never abort
// the stage, only context cancellation does.
func (s *Pipeline) embedKind(
	ctx context.Context,
	kind catalog.Kind,
	items []embedItem,
	preferImage bool,
	batchSize int,
	budget search.TokenBudget,
	cfg search.EmbedConfig,
) ([]search.Vector, []bool, embedTally, error) {
	vectors := make([]search.Vector, len(items))
	got := make([]bool, len(items))
	var tally embedTally
	if len(items) == 0 {
		return vectors, got, tally, nil
	}

	if preferImage {
		if err := s.embedImages(ctx, kind, items, batchSize, cfg, vectors, got, &tally); err != nil {
			return nil, nil, tally, err
		}
	}
	if err := s.embedTexts(ctx, kind, items, budget, cfg, vectors, got, &tally); err != nil {
		return nil, nil, tally, err
	}
	return vectors, got, tally, nil
}

// embedImages embeds localized images for every item that has one. Items
// whose image cannot be read or embedded are left for the text pass.
func (s *Pipeline) embedImages(
	ctx context.Context,
	kind catalog.Kind,
	items []embedItem,
	batchSize int,
	cfg search.EmbedConfig,
	vectors []search.Vector,
	got []bool,
	tally *embedTally,
) error {
	type candidate struct {
		pos  int
		data []byte
	}
	var candidates []candidate
	for i, item := range items {
		if item.url == "" {
			continue
		}
		data, err := s.localizer.Open(item.url)
		if err != nil {
			// Remote URLs and missing cache files fall back to the
			// text prompt.
			s.logger.DebugContext(ctx, "image unavailable for embedding",
				"kind", string(kind), "id", item.id, "error", err)
			continue
		}
		candidates = append(candidates, candidate{pos: i, data: data})
	}
	if len(candidates) == 0 {
		return nil
	}

	var mu sync.Mutex
	completed := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		batch := candidates[start:end]
		g.Go(func() error {
			images := make([][]byte, len(batch))
			for j, c := range batch {
				images[j] = c.data
			}
			vecs, err := s.embedder.EmbedImages(gctx, images)
			if err == nil && len(vecs) != len(batch) {
				err = fmt.Errorf("count mismatch: got %d, expected %d", len(vecs), len(batch))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if cb := cfg.BatchError(); cb != nil {
					cb(start, end, err)
				}
				return nil
			}
			for j, c := range batch {
				vectors[c.pos] = vecs[j].Normalize()
				got[c.pos] = true
			}
			tally.fromImage += len(batch)
			completed += len(batch)
			if cb := cfg.Progress(); cb != nil {
				cb(completed, len(candidates))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// embedTexts embeds the text prompt of every item without a vector yet.
// A failed batch marks all of its entities failed.
func (s *Pipeline) embedTexts(
	ctx context.Context,
	kind catalog.Kind,
	items []embedItem,
	budget search.TokenBudget,
	cfg search.EmbedConfig,
	vectors []search.Vector,
	got []bool,
	tally *embedTally,
) error {
	var pending []int
	prompts := make([]search.Prompt, 0, len(items))
	for i, item := range items {
		if got[i] {
			continue
		}
		pending = append(pending, i)
		prompts = append(prompts, search.NewPrompt(item.id, item.prompt))
	}
	if len(prompts) == 0 {
		return nil
	}

	batches := budget.Batches(prompts)
	starts := make([]int, len(batches))
	offset := 0
	for i, batch := range batches {
		starts[i] = offset
		offset += len(batch)
	}

	var mu sync.Mutex
	completed := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for bi, batch := range batches {
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, p := range batch {
				texts[j] = budget.Truncate(p.Text())
			}
			vecs, err := s.embedder.EmbedTexts(gctx, texts)
			if err == nil && len(vecs) != len(batch) {
				err = fmt.Errorf("count mismatch: got %d, expected %d", len(vecs), len(batch))
			}
			start := starts[bi]
			end := start + len(batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if cb := cfg.BatchError(); cb != nil {
					cb(start, end, err)
				}
				for j := range batch {
					pos := pending[start+j]
					tally.failed++
					tally.errs = append(tally.errs, pipeline.NewEntityError(kind, items[pos].id, err))
				}
				return nil
			}
			for j := range batch {
				pos := pending[start+j]
				vectors[pos] = vecs[j].Normalize()
				got[pos] = true
			}
			tally.fromText += len(batch)
			completed += len(batch)
			if cb := cfg.Progress(); cb != nil {
				cb(completed, len(prompts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// split partitions entities by embedding outcome, keeping embedded entities
// aligned with their vectors.
func split[T any](entities []T, vectors []search.Vector, got []bool) (embedded []T, vecs []search.Vector, rest []T) {
	for i := range entities {
		if got[i] {
			embedded = append(embedded, entities[i])
			vecs = append(vecs, vectors[i])
		} else {
			rest = append(rest, entities[i])
		}
	}
	return embedded, vecs, rest
}
