package corpus

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/metrics"
)

// Ingestor turns one local PDF into chunks and pushes them to the indexing
// gateway. It is shared by the sync engine and the standalone ingest command.
type Ingestor struct {
	extractor Extractor
	chunker   Chunker
	indexer   Indexer
	ids       IDGenerator
	logger    *zap.Logger
}

// NewIngestor constructs an Ingestor.
func NewIngestor(
	extractor Extractor,
	chunker Chunker,
	indexer Indexer,
	ids IDGenerator,
	logger *zap.Logger,
) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		indexer:   indexer,
		ids:       ids,
		logger:    logger,
	}
}

// IngestFile extracts, chunks, and indexes a single PDF. It returns the
// number of chunks pushed; zero chunks is not an error, just an empty
// contribution.
func (g *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	filename := filepath.Base(path)

	pages, err := g.extractor.ExtractPages(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("extract pages from %s: %w", filename, err)
	}

	source := "file://" + path
	if abs, err := filepath.Abs(path); err == nil {
		source = "file://" + abs
	}

	chunks := g.chunker.Chunk(pages, filename, source)
	if len(chunks) == 0 {
		g.logger.Warn("no text extracted", zap.String("file", filename))
		return 0, nil
	}

	for i := range chunks {
		id, err := g.ids.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate chunk id: %w", err)
		}
		chunks[i].ID = id
	}

	if err := g.indexer.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("index chunks from %s: %w", filename, err)
	}
	metrics.AddChunks(len(chunks))
	g.logger.Info("chunks indexed", zap.String("file", filename), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}
