package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/api"
	"github.com/JakeFAU/standards-sync/internal/chunker"
	"github.com/JakeFAU/standards-sync/internal/clock/system"
	"github.com/JakeFAU/standards-sync/internal/config"
	"github.com/JakeFAU/standards-sync/internal/corpus"
	"github.com/JakeFAU/standards-sync/internal/fetch"
	"github.com/JakeFAU/standards-sync/internal/hash/sha256"
	"github.com/JakeFAU/standards-sync/internal/id/uuid"
	"github.com/JakeFAU/standards-sync/internal/index/jsonl"
	"github.com/JakeFAU/standards-sync/internal/index/postgres"
	"github.com/JakeFAU/standards-sync/internal/links"
	"github.com/JakeFAU/standards-sync/internal/logging"
	"github.com/JakeFAU/standards-sync/internal/manifest"
	"github.com/JakeFAU/standards-sync/internal/metrics"
	"github.com/JakeFAU/standards-sync/internal/pdf"
)

// newSyncCmd creates and configures the 'sync' subcommand. It performs one
// incremental pass over the listing page: per-item failures are reported in
// the summary, never as a process failure, so a single broken link cannot
// abort an otherwise-successful sync.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one incremental corpus synchronization pass",
		Long: `Fetches the listing page, decides per document whether it changed
(ETag / Last-Modified / Content-Length, double-checked by sha256),
downloads and re-indexes only what is genuinely new, and commits the
manifest. Exit status is 0 on completion regardless of per-item failures.`,
		RunE: runSyncCommand,
	}

	cmd.Flags().String("url", "", "listing page URL (default from config)")
	cmd.Flags().String("outdir", "", "local download directory (default from config)")
	cmd.Flags().String("manifest", "", "manifest file path (default from config)")
	cmd.Flags().Bool("force", false, "ignore cached headers, always re-verify by hash")
	cmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address during the run")

	return cmd
}

func runSyncCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSyncConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := pdf.CheckAvailable(); err != nil {
		return fmt.Errorf("%w\n%s", err, pdf.InstallInstructions())
	}

	metrics.Init()

	ctx := cmd.Context()

	indexer, closeIndexer, err := buildIndexer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndexer()

	if cfg.Metrics.Addr != "" {
		server := api.New(cfg.Metrics.Addr, logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics listener shutdown failed", zap.Error(err))
			}
		}()
	}

	engine := buildEngine(cfg, indexer, logger)

	summary, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}

	logger.Info("run summary",
		zap.String("run_id", summary.RunID),
		zap.Int("listed", summary.Listed),
		zap.Int("added", summary.Counters.Added),
		zap.Int("updated", summary.Counters.Updated),
		zap.Int("skipped", summary.Counters.Skipped),
		zap.Int("failed", summary.Counters.Failed),
	)
	return nil
}

func loadSyncConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Source.URL, _ = flags.GetString("url")
	}
	if flags.Changed("outdir") {
		cfg.Sync.OutDir, _ = flags.GetString("outdir")
	}
	if flags.Changed("manifest") {
		cfg.Sync.ManifestPath, _ = flags.GetString("manifest")
	}
	if flags.Changed("force") {
		cfg.Sync.Force, _ = flags.GetBool("force")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func buildIndexer(ctx context.Context, cfg config.Config, logger *zap.Logger) (corpus.Indexer, func(), error) {
	switch cfg.Index.Provider {
	case "jsonl":
		store, err := jsonl.New(cfg.Index.JSONL.Dir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init jsonl gateway: %w", err)
		}
		return store, func() {}, nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:   cfg.Index.Postgres.DSN,
			Table: cfg.Index.Postgres.Table,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres gateway: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index provider: %s", cfg.Index.Provider)
	}
}

func buildIngestor(cfg config.Config, indexer corpus.Indexer, logger *zap.Logger) *corpus.Ingestor {
	return corpus.NewIngestor(
		pdf.New(),
		chunker.New(chunker.Config{ChunkSize: cfg.Chunk.Size, Overlap: cfg.Chunk.Overlap}),
		indexer,
		uuid.New(),
		logger,
	)
}

func buildEngine(cfg config.Config, indexer corpus.Indexer, logger *zap.Logger) *corpus.Engine {
	client := fetch.New(fetch.Config{
		UserAgent:       cfg.Source.UserAgent,
		MetadataTimeout: cfg.HTTP.MetadataTimeout,
		DownloadTimeout: cfg.HTTP.DownloadTimeout,
		MaxAttempts:     cfg.HTTP.MaxAttempts,
		BackoffBase:     cfg.HTTP.BackoffBase,
		BackoffScale:    cfg.HTTP.BackoffScale,
	}, logger)

	return corpus.NewEngine(
		corpus.Config{
			SourceURL:   cfg.Source.URL,
			OutDir:      cfg.Sync.OutDir,
			Force:       cfg.Sync.Force,
			Concurrency: cfg.Sync.Concurrency,
		},
		links.New(links.Config{UserAgent: cfg.Source.UserAgent, Timeout: cfg.HTTP.MetadataTimeout}, logger),
		client,
		client,
		sha256.New(),
		buildIngestor(cfg, indexer, logger),
		manifest.NewStore(cfg.Sync.ManifestPath, logger),
		system.New(),
		uuid.New(),
		logger,
	)
}
