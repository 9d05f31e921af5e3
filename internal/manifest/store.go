package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Store persists the manifest as a single JSON file.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store rooted at path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the manifest from disk. A missing or unparsable file degrades
// to an empty skeleton so the next run re-syncs everything instead of
// failing; corruption is logged, never fatal.
func (s *Store) Load(sourceURL string) Manifest {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("manifest unreadable, starting fresh", zap.String("path", s.path), zap.Error(err))
		}
		return New(sourceURL)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("manifest corrupt, starting fresh", zap.String("path", s.path), zap.Error(err))
		return New(sourceURL)
	}
	if m.Items == nil {
		m.Items = make(map[string]Record)
	}
	if sourceURL != "" {
		m.SourceURL = sourceURL
	}
	return m
}

// Save writes the manifest, stamping CheckedAt with the given time. The
// write goes to a temp file in the same directory and is renamed into
// place so a concurrent reader never observes a torn file.
func (s *Store) Save(m Manifest, checkedAt time.Time) error {
	m.CheckedAt = FormatTime(checkedAt)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create manifest dir %s: %w", dir, err)
	}

	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close manifest temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace manifest %s: %w", s.path, err)
	}
	return nil
}
