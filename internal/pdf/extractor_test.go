package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out  []byte
	err  error
	name string
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.name = name
	s.args = args
	return s.out, s.err
}

func TestExtractPagesSplitsOnFormFeed(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{out: []byte("page one\fpage two\fpage three\f")}
	e := NewWithRunner(runner)

	pages, err := e.ExtractPages(context.Background(), "/data/pdfs/rs22.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for i, want := range []string{"page one", "page two", "page three"} {
		assert.Equal(t, i, pages[i].Page)
		assert.Equal(t, want, pages[i].Text)
	}

	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "/data/pdfs/rs22.pdf", "-"}, runner.args)
}

func TestExtractPagesKeepsInteriorEmptyPages(t *testing.T) {
	t.Parallel()

	// Page two failed to extract; its slot must survive so page indexes
	// downstream still line up with the document.
	runner := &stubRunner{out: []byte("page one\f\fpage three\f")}
	e := NewWithRunner(runner)

	pages, err := e.ExtractPages(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Empty(t, pages[1].Text, "interior empty page was dropped")
	assert.Equal(t, 2, pages[2].Page)
	assert.Equal(t, "page three", pages[2].Text)
}

func TestExtractPagesToolFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{err: errors.New("exit status 1")}
	e := NewWithRunner(runner)

	_, err := e.ExtractPages(context.Background(), "broken.pdf")
	require.Error(t, err)
}

func TestExtractPagesEmptyOutput(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{out: []byte("")}
	e := NewWithRunner(runner)

	pages, err := e.ExtractPages(context.Background(), "empty.pdf")
	require.NoError(t, err)
	assert.Empty(t, pages)
}
