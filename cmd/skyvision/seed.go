package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/application/service"
	"github.com/skyvisionhq/skyvision/domain/pipeline"
	"github.com/skyvisionhq/skyvision/internal/log"
)

// seedFlags holds the seed command's flag values. Fields mirror
// service.Manifest so a manifest file and command line flags merge into one
// parameter set.
type seedFlags struct {
	envFile  string
	manifest string

	airports    string
	airlines    string
	images      string
	mediaDir    string
	stages      string
	overwrite   bool
	preferImage bool
	skipImages  bool
	batchSize   int
	errorLimit  int
}

func seedCmd() *cobra.Command {
	var f seedFlags

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ingest OpenFlights data and build the search index",
		Long: `Ingest OpenFlights CSV data, localize entity images, embed the catalog,
and load everything into the database.

The pipeline runs in four stages: ingest, localize, embed, load. Use --stages
or a stage subcommand to run a subset; ingest always runs since it feeds
every later stage.

Inputs can come from command line flags or from a YAML manifest (--manifest).
Flags set explicitly on the command line override the manifest.`,
		Example: `  # Full seed from local CSV files
  skyvision seed --airports airports.dat --airlines airlines.dat --images images.csv

  # Reseed catalog rows only, leaving stored vectors untouched
  skyvision seed --airports airports.dat --stages ingest,load

  # Drive everything from a manifest
  skyvision seed --manifest dataset.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, f, "")
		},
	}

	seedCmdFlags(cmd, &f)

	// One subcommand per stage for debugging a single step.
	for _, stage := range pipeline.AllStages() {
		cmd.AddCommand(seedStageCmd(stage))
	}

	return cmd
}

// seedCmdFlags registers the shared seed flags on cmd.
func seedCmdFlags(cmd *cobra.Command, f *seedFlags) {
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "Path to a YAML seed manifest")
	cmd.Flags().StringVar(&f.airports, "airports", "", "Path to the OpenFlights airports CSV")
	cmd.Flags().StringVar(&f.airlines, "airlines", "", "Path to the OpenFlights airlines CSV")
	cmd.Flags().StringVar(&f.images, "images", "", "Path to the entity image CSV")
	cmd.Flags().StringVar(&f.mediaDir, "media-dir", "", "Directory for localized images (default: {data_dir}/media)")
	cmd.Flags().StringVar(&f.stages, "stages", "", "Comma-separated stages to run (default: all)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Re-download images that are already localized")
	cmd.Flags().BoolVar(&f.preferImage, "prefer-image", false, "Embed airport photos instead of text prompts when available")
	cmd.Flags().BoolVar(&f.skipImages, "skip-images", false, "Skip image localization and embed text prompts only")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Inputs per embedding request (default: EMBEDDING_BATCH_SIZE)")
	cmd.Flags().IntVar(&f.errorLimit, "error-limit", 0, "Abort ingest after this many malformed rows (default: unlimited)")
}

// seedStageCmd returns a subcommand that runs a single pipeline stage.
// Ingest still runs first for later stages since it feeds them.
func seedStageCmd(stage pipeline.Stage) *cobra.Command {
	var f seedFlags

	cmd := &cobra.Command{
		Use:   stage.Short(),
		Short: fmt.Sprintf("Run only the %s stage", stage.Short()),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, f, stage.Short())
		},
	}

	seedCmdFlags(cmd, &f)
	return cmd
}

func runSeed(cmd *cobra.Command, f seedFlags, onlyStage string) error {
	cfg, err := loadConfig(f.envFile)
	if err != nil {
		return err
	}

	m, err := resolveManifest(cmd, f)
	if err != nil {
		return err
	}
	if onlyStage != "" {
		m.Stages = []string{onlyStage}
	}

	params, err := m.SeedParams()
	if err != nil {
		return err
	}
	if params.BatchSize == 0 {
		params.BatchSize = cfg.EmbeddingEndpoint().BatchSize()
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	slogger := log.NewLogger(cfg)

	opts, err := clientOptions(cfg)
	if err != nil {
		return err
	}

	mediaDir := m.MediaDir
	if mediaDir == "" {
		mediaDir = cfg.MediaDir()
	}
	opts = append(opts,
		skyvision.WithDataDir(cfg.DataDir()),
		skyvision.WithMediaDir(mediaDir),
		skyvision.WithLogger(slogger),
	)
	if m.Overwrite {
		opts = append(opts, skyvision.WithMediaOverwrite())
	}
	if m.ErrorLimit > 0 {
		opts = append(opts, skyvision.WithIngestErrorLimit(m.ErrorLimit))
	}

	client, err := skyvision.New(opts...)
	if err != nil {
		return fmt.Errorf("create skyvision client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close skyvision client", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := client.Pipeline.Seed(ctx, params)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	printRun(run)
	return nil
}

// resolveManifest merges the manifest file (if any) with flags set explicitly
// on the command line. Flags win over manifest fields.
func resolveManifest(cmd *cobra.Command, f seedFlags) (service.Manifest, error) {
	var m service.Manifest

	if f.manifest != "" {
		loaded, err := service.LoadManifest(f.manifest)
		if err != nil {
			return service.Manifest{}, err
		}
		m = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("airports") {
		m.Airports = f.airports
	}
	if flags.Changed("airlines") {
		m.Airlines = f.airlines
	}
	if flags.Changed("images") {
		m.Images = f.images
	}
	if flags.Changed("media-dir") {
		m.MediaDir = f.mediaDir
	}
	if flags.Changed("stages") {
		m.Stages = strings.Split(f.stages, ",")
	}
	if flags.Changed("overwrite") {
		m.Overwrite = f.overwrite
	}
	if flags.Changed("prefer-image") {
		m.PreferImage = f.preferImage
	}
	if flags.Changed("skip-images") {
		m.SkipImages = f.skipImages
	}
	if flags.Changed("batch-size") {
		m.BatchSize = f.batchSize
	}
	if flags.Changed("error-limit") {
		m.ErrorLimit = f.errorLimit
	}

	if err := m.Validate(); err != nil {
		return service.Manifest{}, err
	}
	return m, nil
}

// printRun writes a per-stage summary of the finished run to stdout.
func printRun(run pipeline.Run) {
	fmt.Printf("Seed run %s finished in %s\n", run.ID(), run.Duration().Round(time.Millisecond))
	if r := run.Ingest(); r != nil {
		fmt.Printf("  ingest:   %s\n", r)
	}
	if r := run.Localize(); r != nil {
		fmt.Printf("  localize: %s\n", r)
	}
	if r := run.Embed(); r != nil {
		fmt.Printf("  embed:    %s\n", r)
	}
	if r := run.Load(); r != nil {
		fmt.Printf("  load:     %s\n", r)
	}
}
