// Package jsonl implements the indexing gateway as JSON Lines files on the
// local filesystem, one file per source document. It stands in for a real
// embedding backend during development and doubles as a debugging artifact.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/corpus"
)

// Store writes chunk batches to <dir>/<document>.chunks.jsonl.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a store rooted at dir.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("chunk directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create chunk dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Add writes one document's chunks, replacing any previous file for the
// same document so stale chunks never linger after a re-ingest. The write
// is temp-then-rename, mirroring the manifest store.
func (s *Store) Add(ctx context.Context, chunks []corpus.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}

	target := s.targetPath(chunks[0].Metadata.Filename)
	tmp, err := os.CreateTemp(s.dir, ".chunks-*.jsonl")
	if err != nil {
		return fmt.Errorf("create chunk temp file: %w", err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	for _, chunk := range chunks {
		if err := enc.Encode(chunk); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("encode chunk %s: %w", chunk.ID, err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close chunk temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace chunk file %s: %w", target, err)
	}

	s.logger.Debug("chunk file written", zap.String("path", target), zap.Int("chunks", len(chunks)))
	return nil
}

func (s *Store) targetPath(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = "document"
	}
	return filepath.Join(s.dir, base+".chunks.jsonl")
}
