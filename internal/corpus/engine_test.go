package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/manifest"
)

// --- test doubles -----------------------------------------------------------

type fakeLister struct {
	items []SourceItem
	err   error
}

func (f *fakeLister) List(_ context.Context, _ string) ([]SourceItem, error) {
	return f.items, f.err
}

type fakeMeta struct {
	metas map[string]HeadMeta
	errs  map[string]error
}

func (f *fakeMeta) Head(_ context.Context, url string) (HeadMeta, error) {
	if err := f.errs[url]; err != nil {
		return HeadMeta{}, err
	}
	return f.metas[url], nil
}

type fakeDownloader struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	calls    []string
}

func (f *fakeDownloader) Download(_ context.Context, url, dest string) (int64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if err := f.errs[url]; err != nil {
		return 0, err
	}
	payload := f.payloads[url]
	if payload == nil {
		payload = []byte("pdf bytes for " + url)
	}
	if err := os.WriteFile(dest, payload, 0o600); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

type fakeHasher struct {
	sums map[string]string
	err  error
}

func (f *fakeHasher) HashFile(path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if sum, ok := f.sums[filepath.Base(path)]; ok {
		return sum, nil
	}
	return "sum-" + filepath.Base(path), nil
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractPages(_ context.Context, _ string) ([]PageText, error) {
	return []PageText{{Page: 0, Text: "some extracted text"}}, nil
}

type fakeChunker struct{}

func (fakeChunker) Chunk(pages []PageText, filename, source string) []Chunk {
	chunks := make([]Chunk, 0, len(pages))
	for _, p := range pages {
		chunks = append(chunks, Chunk{
			StartPage: p.Page,
			EndPage:   p.Page,
			Text:      p.Text,
			Metadata:  ChunkMetadata{Filename: filename, Source: source},
		})
	}
	return chunks
}

type fakeIndexer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeIndexer) Add(_ context.Context, _ []Chunk) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

type fakeStore struct {
	loaded    manifest.Manifest
	saved     *manifest.Manifest
	saveErr   error
	saveCalls int
}

func (f *fakeStore) Load(sourceURL string) manifest.Manifest {
	if f.loaded.Items == nil {
		f.loaded = manifest.New(sourceURL)
	}
	return f.loaded
}

func (f *fakeStore) Save(m manifest.Manifest, _ time.Time) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &m
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%04d", s.n), nil
}

// --- harness ----------------------------------------------------------------

type engineFixture struct {
	engine  *Engine
	lister  *fakeLister
	meta    *fakeMeta
	down    *fakeDownloader
	hasher  *fakeHasher
	indexer *fakeIndexer
	store   *fakeStore
	outDir  string
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		lister:  &fakeLister{},
		meta:    &fakeMeta{metas: map[string]HeadMeta{}, errs: map[string]error{}},
		down:    &fakeDownloader{payloads: map[string][]byte{}, errs: map[string]error{}},
		hasher:  &fakeHasher{sums: map[string]string{}},
		indexer: &fakeIndexer{},
		store:   &fakeStore{},
		outDir:  t.TempDir(),
	}

	ids := &seqIDs{}
	ingestor := NewIngestor(fakeExtractor{}, fakeChunker{}, fx.indexer, ids, zap.NewNop())
	fx.engine = NewEngine(
		Config{SourceURL: "https://example.org/standards", OutDir: fx.outDir, Concurrency: 1},
		fx.lister, fx.meta, fx.down, fx.hasher, ingestor, fx.store,
		fixedClock{t: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)},
		ids, zap.NewNop(),
	)
	return fx
}

// --- tests ------------------------------------------------------------------

func TestRunAddsNewDocument(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "Recognised standard 22"}}
	fx.meta.metas[url] = HeadMeta{ETag: "v1", ContentLength: 10}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Added)
	assert.Equal(t, 1, summary.Counters.Total())
	assert.Equal(t, 1, fx.indexer.calls)

	require.NotNil(t, fx.store.saved, "manifest was not persisted")
	rec, ok := fx.store.saved.Items[url]
	require.True(t, ok, "no manifest record for %s", url)
	assert.Equal(t, "v1", rec.ETag)
	assert.Equal(t, "rs22.pdf", rec.Filename)
}

func TestRunSkipsUnchangedDocument(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	fx.meta.metas[url] = HeadMeta{ETag: "v1", ContentLength: 10}
	fx.store.loaded = manifest.Manifest{
		SourceURL: "https://example.org/standards",
		Items: map[string]manifest.Record{
			url: {Filename: "rs22.pdf", ETag: "v1", ContentLength: 10, SHA256: "deadbeef"},
		},
	}
	require.NoError(t, os.WriteFile(filepath.Join(fx.outDir, "rs22.pdf"), []byte("cached"), 0o600))

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Skipped)
	assert.Equal(t, 1, summary.Counters.Total())
	assert.Empty(t, fx.down.calls, "expected no downloads")
	assert.Zero(t, fx.indexer.calls, "expected no indexing")
}

func TestRunHeaderDriftOverIdenticalBytes(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	// ETag changed, bytes did not.
	fx.meta.metas[url] = HeadMeta{ETag: "v2", ContentLength: 10}
	fx.hasher.sums["rs22.pdf"] = "samesum"
	fx.store.loaded = manifest.Manifest{
		SourceURL: "https://example.org/standards",
		Items: map[string]manifest.Record{
			url: {Filename: "rs22.pdf", ETag: "v1", ContentLength: 10, SHA256: "samesum"},
		},
	}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Skipped)
	assert.Equal(t, 1, summary.Counters.Total())
	assert.Len(t, fx.down.calls, 1, "expected exactly one download")
	assert.Zero(t, fx.indexer.calls, "identical bytes must not be re-indexed")
	assert.Equal(t, "v2", fx.store.saved.Items[url].ETag, "headers were not refreshed")
}

func TestRunProbeFailureKeepsKnownHeaders(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	// The probe fails outright, the re-download hashes identical.
	fx.meta.errs[url] = errors.New("HEAD refused")
	fx.hasher.sums["rs22.pdf"] = "samesum"
	fx.store.loaded = manifest.Manifest{
		SourceURL: "https://example.org/standards",
		Items: map[string]manifest.Record{
			url: {
				Filename:      "rs22.pdf",
				ETag:          "v1",
				LastModified:  "Mon, 02 Jan 2006 15:04:05 GMT",
				ContentLength: 10,
				SHA256:        "samesum",
				UpdatedAt:     "2026-08-01 09:00:00",
			},
		},
	}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Skipped)
	assert.Len(t, fx.down.calls, 1)

	// A failed probe carries no headers; zeroing the stored ones would
	// guarantee a wasted re-download on the next run.
	rec := fx.store.saved.Items[url]
	assert.Equal(t, "v1", rec.ETag)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", rec.LastModified)
	assert.Equal(t, int64(10), rec.ContentLength)
	assert.Equal(t, "2026-08-24 10:00:00", rec.UpdatedAt)
}

func TestRunUpdatesChangedDocument(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	fx.meta.metas[url] = HeadMeta{ETag: "v2", ContentLength: 12}
	fx.hasher.sums["rs22.pdf"] = "newsum"
	fx.store.loaded = manifest.Manifest{
		SourceURL: "https://example.org/standards",
		Items: map[string]manifest.Record{
			url: {Filename: "rs22.pdf", ETag: "v1", ContentLength: 10, SHA256: "oldsum"},
		},
	}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Updated)
	assert.Equal(t, 1, summary.Counters.Total())
	assert.Equal(t, 1, fx.indexer.calls)

	rec := fx.store.saved.Items[url]
	assert.Equal(t, "newsum", rec.SHA256)
	assert.Equal(t, "v2", rec.ETag)
}

func TestRunRefetchesWhenLocalFileMissing(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	// Headers match the record, but the file is gone from disk.
	fx.meta.metas[url] = HeadMeta{ETag: "v1", ContentLength: 10}
	fx.hasher.sums["rs22.pdf"] = "deadbeef"
	fx.store.loaded = manifest.Manifest{
		SourceURL: "https://example.org/standards",
		Items: map[string]manifest.Record{
			url: {Filename: "rs22.pdf", ETag: "v1", ContentLength: 10, SHA256: "deadbeef"},
		},
	}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, fx.down.calls, 1, "expected a re-download")
	// Bytes are unchanged, so the item still counts as skipped.
	assert.Equal(t, 1, summary.Counters.Skipped)
	assert.Equal(t, 1, summary.Counters.Total())
}

func TestRunMetadataFailureFetchesAnyway(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	fx.meta.errs[url] = errors.New("HEAD refused")
	fx.hasher.sums["rs22.pdf"] = "newsum"

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, fx.down.calls, 1, "expected a fetch despite the failed probe")
	assert.Equal(t, 1, summary.Counters.Added)
}

func TestRunCountsFailuresWithoutAborting(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	good := "https://example.org/docs/rs22.pdf"
	bad := "https://example.org/docs/rs09.pdf"
	fx.lister.items = []SourceItem{
		{URL: good, AnchorText: "rs22"},
		{URL: bad, AnchorText: "rs09"},
	}
	fx.meta.metas[good] = HeadMeta{ETag: "v1"}
	fx.meta.metas[bad] = HeadMeta{ETag: "v1"}
	fx.down.errs[bad] = errors.New("HTTP 502")

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Added)
	assert.Equal(t, 1, summary.Counters.Failed)
	assert.Equal(t, summary.Listed, summary.Counters.Total(), "counters must sum to listed items")
	assert.NotContains(t, fx.store.saved.Items, bad, "failed item must not gain a manifest record")
	assert.Equal(t, 1, fx.store.saveCalls, "manifest persisted once")
}

func TestRunIndexFailureLeavesRecordUntouched(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	url := "https://example.org/docs/rs22.pdf"
	fx.lister.items = []SourceItem{{URL: url, AnchorText: "rs22"}}
	fx.meta.metas[url] = HeadMeta{ETag: "v2"}
	fx.hasher.sums["rs22.pdf"] = "newsum"
	fx.indexer.err = errors.New("gateway down")
	oldRecord := manifest.Record{Filename: "rs22.pdf", ETag: "v1", SHA256: "oldsum"}
	fx.store.loaded = manifest.Manifest{
		SourceURL: "https://example.org/standards",
		Items:     map[string]manifest.Record{url: oldRecord},
	}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counters.Failed)
	// The stale record survives so the next run retries the document.
	assert.Equal(t, oldRecord, fx.store.saved.Items[url])
}

func TestRunListingFailureIsFatal(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	fx.lister.err = errors.New("listing unreachable")

	_, err := fx.engine.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, fx.store.saveCalls, "manifest must not be saved after a failed listing")
}

func TestRunConcurrentCountersConserve(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t)
	fx.engine.cfg.Concurrency = 4
	for i := 0; i < 20; i++ {
		url := fmt.Sprintf("https://example.org/docs/doc%02d.pdf", i)
		fx.lister.items = append(fx.lister.items, SourceItem{URL: url})
		fx.meta.metas[url] = HeadMeta{ETag: "v1"}
		if i%5 == 0 {
			fx.down.errs[url] = errors.New("HTTP 502")
		}
	}

	summary, err := fx.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 20, summary.Listed)
	assert.Equal(t, 20, summary.Counters.Total())
	assert.Equal(t, 4, summary.Counters.Failed)
	assert.Len(t, fx.store.saved.Items, 16)
}
