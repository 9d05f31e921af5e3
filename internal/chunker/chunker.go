// Package chunker converts extracted per-page text into overlapping,
// page-range-tagged chunks sized for embedding.
package chunker

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/standards-sync/internal/corpus"
)

// Defaults tuned for mixed prose; simple character counts, no tokenizer.
const (
	DefaultChunkSize = 1500
	DefaultOverlap   = 150
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLineRuns   = regexp.MustCompile(`\n(?:[ \t]*\n)+`)
	paragraphSplit  = regexp.MustCompile(`\n{2,}`)
)

// Config controls chunk sizing.
type Config struct {
	ChunkSize int
	Overlap   int
}

// Chunker implements corpus.Chunker.
type Chunker struct {
	cfg Config
}

// New builds a Chunker; non-positive values fall back to the defaults.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = DefaultOverlap
	}
	return &Chunker{cfg: cfg}
}

// NormalizeText strips control characters and redundant whitespace: NULs
// become spaces, horizontal runs collapse to one space, CRLF becomes LF,
// and runs of blank lines collapse to exactly one blank line.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankLineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Paragraphs splits each page's normalized text on blank-line boundaries.
// Empty paragraphs are dropped; each paragraph starts and ends on its
// source page.
func (c *Chunker) Paragraphs(pages []corpus.PageText) []corpus.Paragraph {
	var paras []corpus.Paragraph
	for _, page := range pages {
		text := NormalizeText(page.Text)
		if text == "" {
			continue
		}
		for _, part := range paragraphSplit.Split(text, -1) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			paras = append(paras, corpus.Paragraph{
				StartPage: page.Page,
				EndPage:   page.Page,
				Text:      part,
			})
		}
	}
	return paras
}

// Merge accumulates paragraphs into chunks close to ChunkSize, carrying the
// last Overlap characters of a closed chunk into the next one so meaning
// survives the boundary. A single paragraph longer than ChunkSize is
// emitted whole as its own chunk, never split or truncated.
func (c *Chunker) Merge(paras []corpus.Paragraph) []corpus.Paragraph {
	var (
		chunks []corpus.Paragraph
		buf    corpus.Paragraph
		seeded bool
	)

	for _, p := range paras {
		if !seeded {
			buf = p
			seeded = true
			continue
		}

		if len(buf.Text)+1+len(p.Text) > c.cfg.ChunkSize {
			closed := buf
			closed.Text = strings.TrimSpace(closed.Text)
			chunks = append(chunks, closed)

			if c.cfg.Overlap > 0 && len(closed.Text) > c.cfg.Overlap {
				carry := closed.Text[len(closed.Text)-c.cfg.Overlap:]
				buf = corpus.Paragraph{
					StartPage: min(closed.EndPage, p.StartPage),
					EndPage:   max(closed.EndPage, p.EndPage),
					Text:      carry + "\n" + p.Text,
				}
			} else {
				buf = p
			}
			continue
		}

		buf.Text += "\n" + p.Text
		buf.EndPage = max(buf.EndPage, p.EndPage)
	}

	if seeded && strings.TrimSpace(buf.Text) != "" {
		buf.Text = strings.TrimSpace(buf.Text)
		chunks = append(chunks, buf)
	}
	return chunks
}

// Chunk converts one document's pages into indexed chunks. The RS number is
// derived once from the filename and shared across all its chunks.
func (c *Chunker) Chunk(pages []corpus.PageText, filename, source string) []corpus.Chunk {
	rs := corpus.DetectRSNumber(filename)
	merged := c.Merge(c.Paragraphs(pages))

	chunks := make([]corpus.Chunk, 0, len(merged))
	for _, m := range merged {
		chunks = append(chunks, corpus.Chunk{
			StartPage: m.StartPage,
			EndPage:   m.EndPage,
			Text:      m.Text,
			Metadata: corpus.ChunkMetadata{
				Filename:  filename,
				Source:    source,
				PageRange: corpus.FormatPageRange(m.StartPage, m.EndPage),
				RSNumber:  rs,
			},
		})
	}
	return chunks
}
