package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/manifest"
	"github.com/JakeFAU/standards-sync/internal/metrics"
)

// Config holds the settings for a sync run.
type Config struct {
	SourceURL   string
	OutDir      string
	Force       bool
	Concurrency int
}

// Engine drives the listed documents through change detection, download,
// hash verification, chunking, and indexing, then commits the manifest.
// Items are processed by a bounded worker pool; a per-item failure never
// aborts the run, it is counted and the loop moves on.
type Engine struct {
	cfg      Config
	lister   Lister
	meta     MetadataClient
	down     Downloader
	hasher   Hasher
	ingestor *Ingestor
	store    ManifestStore
	clock    Clock
	ids      IDGenerator
	logger   *zap.Logger

	// mu serializes writes to the shared in-memory manifest.
	mu sync.Mutex
}

// NewEngine constructs an Engine.
func NewEngine(
	cfg Config,
	lister Lister,
	meta MetadataClient,
	down Downloader,
	hasher Hasher,
	ingestor *Ingestor,
	store ManifestStore,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		lister:   lister,
		meta:     meta,
		down:     down,
		hasher:   hasher,
		ingestor: ingestor,
		store:    store,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Run executes one sync pass and returns its summary. The only fatal errors
// are bootstrap conditions detected before any item is processed (output
// directory, listing fetch) and the final manifest persist; everything else
// is folded into the counters. Re-running is always safe.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	start := e.clock.Now()

	runID, err := e.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	log := e.logger.With(zap.String("run_id", runID))

	if err := os.MkdirAll(e.cfg.OutDir, 0o750); err != nil {
		return Summary{}, fmt.Errorf("create output dir %s: %w", e.cfg.OutDir, err)
	}

	man := e.store.Load(e.cfg.SourceURL)

	items, err := e.lister.List(ctx, e.cfg.SourceURL)
	if err != nil {
		metrics.ObserveRun("error", e.clock.Now().Sub(start))
		return Summary{RunID: runID}, fmt.Errorf("list source %s: %w", e.cfg.SourceURL, err)
	}
	log.Info("listing parsed", zap.Int("documents", len(items)))

	outcomes := make([]Outcome, len(items))
	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item SourceItem) {
			defer wg.Done()
			defer func() { <-sem }()
			metrics.ItemStarted()
			defer metrics.ItemFinished()
			outcomes[i] = e.processItem(ctx, &man, item, log)
		}(i, item)
	}
	wg.Wait()

	var counters Counters
	for _, o := range outcomes {
		counters.Record(o)
		metrics.ObserveItem(o.String())
	}

	summary := Summary{RunID: runID, Listed: len(items), Counters: counters}

	// One persist after all workers join; the store replaces the file
	// atomically so an interrupted run never leaves a torn manifest.
	if err := e.store.Save(man, e.clock.Now()); err != nil {
		metrics.ObserveRun("error", e.clock.Now().Sub(start))
		return summary, fmt.Errorf("persist manifest: %w", err)
	}

	metrics.ObserveRun("ok", e.clock.Now().Sub(start))
	log.Info("sync complete",
		zap.Int("listed", summary.Listed),
		zap.Int("added", counters.Added),
		zap.Int("updated", counters.Updated),
		zap.Int("skipped", counters.Skipped),
		zap.Int("failed", counters.Failed),
	)
	return summary, nil
}

// processItem walks one document through the item state machine and
// returns its terminal outcome. The manifest record is written only after
// verify, chunk, and index all succeed, so a future run retries anything
// that failed midway.
func (e *Engine) processItem(ctx context.Context, man *manifest.Manifest, item SourceItem, log *zap.Logger) Outcome {
	log = log.With(zap.String("url", item.URL))

	meta, metaErr := e.meta.Head(ctx, item.URL)
	if metaErr != nil {
		// A failed probe is not a failed item: on any doubt, fetch.
		log.Warn("metadata request failed, fetching anyway", zap.Error(metaErr))
	}

	e.mu.Lock()
	old, exists := man.Items[item.URL]
	e.mu.Unlock()

	filename := BuildLocalName(item.URL, item.AnchorText)
	localPath := filepath.Join(e.cfg.OutDir, filename)

	needs := metaErr != nil || DecideChange(old, exists, meta, e.cfg.Force)
	if !needs {
		if _, err := os.Stat(localPath); err == nil {
			log.Debug("unchanged by headers", zap.String("file", filename))
			return OutcomeSkipped
		}
		// Manifested but missing on disk: headers alone cannot restore it.
		log.Info("local file missing, re-fetching", zap.String("file", filename))
	}

	if _, err := e.down.Download(ctx, item.URL, localPath); err != nil {
		log.Error("download failed", zap.Error(err))
		return OutcomeFailed
	}

	sum, err := e.hasher.HashFile(localPath)
	if err != nil {
		log.Error("fingerprint failed", zap.String("file", filename), zap.Error(err))
		return OutcomeFailed
	}

	record := manifest.Record{
		Filename:      filename,
		ETag:          meta.ETag,
		LastModified:  meta.LastModified,
		ContentLength: meta.ContentLength,
		SHA256:        sum,
		UpdatedAt:     manifest.FormatTime(e.clock.Now()),
	}

	if exists && !e.cfg.Force && sum == old.SHA256 {
		// Metadata drift over identical bytes: refresh the headers so the
		// next cheap comparison holds, but skip re-embedding. If the probe
		// itself failed we have no new headers; keep the known-good ones
		// rather than zeroing them and forcing a fetch next run.
		if metaErr != nil {
			record.ETag = old.ETag
			record.LastModified = old.LastModified
			record.ContentLength = old.ContentLength
		}
		e.writeRecord(man, item.URL, record)
		log.Info("unchanged by sha256, headers refreshed", zap.String("file", filename))
		return OutcomeSkipped
	}

	if _, err := e.ingestor.IngestFile(ctx, localPath); err != nil {
		log.Error("ingest failed", zap.String("file", filename), zap.Error(err))
		return OutcomeFailed
	}

	e.writeRecord(man, item.URL, record)
	if exists {
		return OutcomeUpdated
	}
	return OutcomeAdded
}

func (e *Engine) writeRecord(man *manifest.Manifest, url string, record manifest.Record) {
	e.mu.Lock()
	man.Items[url] = record
	e.mu.Unlock()
}
