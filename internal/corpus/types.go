// Package corpus defines the core types and interfaces of the incremental
// PDF synchronization pipeline: change detection, fetching, chunking, and
// the sync engine that drives them.
package corpus

import "fmt"

// SourceItem is a candidate document discovered on the listing page.
// It is ephemeral, produced fresh on every run.
type SourceItem struct {
	URL        string
	AnchorText string
}

// HeadMeta carries the cheap change-detection headers of a remote document.
// Absent headers are zero values, never errors.
type HeadMeta struct {
	ETag          string
	LastModified  string
	ContentLength int64
}

// PageText is the extracted text of a single PDF page. Page is 0-based.
// A page whose extraction failed carries empty text.
type PageText struct {
	Page int
	Text string
}

// Paragraph is a blank-line-delimited unit of normalized page text.
// StartPage == EndPage at creation; merging may widen the range.
type Paragraph struct {
	StartPage int
	EndPage   int
	Text      string
}

// ChunkMetadata travels with every chunk into the indexing gateway.
type ChunkMetadata struct {
	Filename  string `json:"filename"`
	Source    string `json:"source"`
	PageRange string `json:"page_range"`
	RSNumber  string `json:"rs_number"`
}

// Chunk is the unit handed to the indexing gateway: a bounded span of
// normalized text tagged with the page range it was drawn from.
type Chunk struct {
	ID        string        `json:"id"`
	StartPage int           `json:"start_page"`
	EndPage   int           `json:"end_page"`
	Text      string        `json:"text"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// FormatPageRange renders a 0-based page span as the 1-based display string
// used in citations: "p.X" for a single page, "p.X-Y" otherwise.
func FormatPageRange(startPage, endPage int) string {
	if startPage == endPage {
		return fmt.Sprintf("p.%d", startPage+1)
	}
	return fmt.Sprintf("p.%d-%d", startPage+1, endPage+1)
}

// Outcome classifies the terminal state of one listed item.
type Outcome int

// Outcome values reported in the run summary.
const (
	OutcomeAdded Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
)

// String returns the summary label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Counters aggregates per-item outcomes. The four fields always sum to the
// number of listed items.
type Counters struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Record folds a single outcome into the counters.
func (c *Counters) Record(o Outcome) {
	switch o {
	case OutcomeAdded:
		c.Added++
	case OutcomeUpdated:
		c.Updated++
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeFailed:
		c.Failed++
	}
}

// Total returns the number of outcomes folded in.
func (c Counters) Total() int {
	return c.Added + c.Updated + c.Skipped + c.Failed
}

// Summary is the observable result of a sync run.
type Summary struct {
	RunID    string   `json:"run_id"`
	Listed   int      `json:"listed"`
	Counters Counters `json:"counters"`
}
