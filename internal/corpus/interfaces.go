package corpus

import (
	"context"
	"time"

	"github.com/JakeFAU/standards-sync/internal/manifest"
)

// Lister yields the candidate documents found on the listing page,
// de-duplicated by URL preserving first-appearance order.
type Lister interface {
	List(ctx context.Context, pageURL string) ([]SourceItem, error)
}

// MetadataClient retrieves change-detection headers for a document URL.
// Absent headers come back as zero values; an error means the request
// itself failed, which callers must treat differently.
type MetadataClient interface {
	Head(ctx context.Context, url string) (HeadMeta, error)
}

// Downloader streams a document to a destination path and reports the
// number of bytes written.
type Downloader interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

// Hasher computes the content fingerprint of a file on disk.
type Hasher interface {
	HashFile(path string) (string, error)
}

// Extractor produces per-page text from a PDF file. A page whose
// extraction fails yields empty text rather than an error.
type Extractor interface {
	ExtractPages(ctx context.Context, path string) ([]PageText, error)
}

// Chunker converts per-page text into overlapping, page-range-tagged chunks.
type Chunker interface {
	Chunk(pages []PageText, filename, source string) []Chunk
}

// Indexer accepts chunks for embedding and storage. Chunks within one file
// are pushed together in ascending page order.
type Indexer interface {
	Add(ctx context.Context, chunks []Chunk) error
}

// ManifestStore loads and persists the sync manifest.
type ManifestStore interface {
	Load(sourceURL string) manifest.Manifest
	Save(m manifest.Manifest, checkedAt time.Time) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run and chunk identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
