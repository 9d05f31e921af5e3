// Package manifest defines the persisted record of the last synchronized
// state of every source document, plus the file store that loads and saves
// it atomically.
package manifest

import "time"

// TimeLayout is the timestamp format used in the manifest file. The file is
// meant to be human-diffable, so it stays plain rather than RFC3339.
const TimeLayout = "2006-01-02 15:04:05"

// Record is the last known synchronized state of one source URL. Its SHA256
// always reflects the bytes of the file last stored under Filename.
type Record struct {
	Filename      string `json:"filename"`
	ETag          string `json:"etag"`
	LastModified  string `json:"last_modified"`
	ContentLength int64  `json:"content_length"`
	SHA256        string `json:"sha256"`
	UpdatedAt     string `json:"updated_at"`
}

// Manifest is the whole persisted sync state: one record per document URL.
// Records for URLs that vanish from the listing are retained as an audit
// trail, never pruned.
type Manifest struct {
	SourceURL string            `json:"source_url"`
	CheckedAt string            `json:"checked_at"`
	Items     map[string]Record `json:"items"`
}

// New returns an empty manifest skeleton for the given listing URL.
func New(sourceURL string) Manifest {
	return Manifest{
		SourceURL: sourceURL,
		Items:     make(map[string]Record),
	}
}

// FormatTime renders a timestamp in the manifest's wire format.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
