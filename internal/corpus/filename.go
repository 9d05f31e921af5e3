package corpus

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	rsNumberPattern = regexp.MustCompile(`(?i)rs\s*0?(\d+)`)
	dangerousChars  = regexp.MustCompile(`[\\/:*?"<>|]+`)
	underscoreRuns  = regexp.MustCompile(`_+`)
)

// DetectRSNumber extracts a regulatory-document identifier ("RS<digits>")
// from a filename or link label. A single leading zero is dropped so
// "RS 09" and "rs9" both normalize to "RS9". Returns "" when absent.
func DetectRSNumber(s string) string {
	m := rsNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return "RS" + m[1]
}

// SanitizeFilename makes a link-derived name safe for the local filesystem:
// spaces become underscores, path and shell metacharacters become dashes,
// and underscore runs collapse.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = dangerousChars.ReplaceAllString(name, "-")
	return underscoreRuns.ReplaceAllString(name, "_")
}

// GuessFilenameFromURL derives a local file name from the URL path,
// guaranteeing a .pdf suffix.
func GuessFilenameFromURL(raw string) string {
	base := ""
	if u, err := url.Parse(raw); err == nil {
		base = path.Base(u.Path)
		if base == "." || base == "/" {
			base = ""
		}
	}
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		return base
	}
	if base == "" {
		base = "download"
	}
	return SanitizeFilename(base) + ".pdf"
}

// BuildLocalName produces the final local file name for a document: the
// URL-derived name, prefixed with the RS number from the link text (or the
// name itself) unless the name already starts with it.
func BuildLocalName(rawURL, anchorText string) string {
	base := GuessFilenameFromURL(rawURL)
	rs := DetectRSNumber(anchorText)
	if rs == "" {
		rs = DetectRSNumber(base)
	}
	if rs != "" && !strings.HasPrefix(strings.ToLower(base), strings.ToLower(rs)) {
		base = rs + "_" + base
	}
	return SanitizeFilename(base)
}
