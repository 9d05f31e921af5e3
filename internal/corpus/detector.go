package corpus

import "github.com/JakeFAU/standards-sync/internal/manifest"

// DecideChange reports whether a document needs fetching, judged from cheap
// header metadata against the last synchronized record. First match wins:
//
//  1. force, or no prior record: fetch.
//  2. ETag present and differs: fetch.
//  3. Last-Modified present and differs: fetch.
//  4. Content-Length present and differs: fetch.
//  5. Otherwise: skip.
//
// A server that omits all three headers degrades to always-fetch, which is
// safe, only wasteful. The hash double-check after download catches the
// false positives this cheap test lets through.
func DecideChange(old manifest.Record, exists bool, meta HeadMeta, force bool) bool {
	if force || !exists {
		return true
	}
	if meta.ETag != "" && meta.ETag != old.ETag {
		return true
	}
	if meta.LastModified != "" && meta.LastModified != old.LastModified {
		return true
	}
	if meta.ContentLength != 0 && meta.ContentLength != old.ContentLength {
		return true
	}
	return false
}
