// Package pdf extracts per-page text from PDF files by shelling out to
// pdftotext (poppler). The tool writes pages separated by form feeds, which
// maps directly onto the pipeline's page-indexed text model.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/standards-sync/internal/corpus"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command and returns its stdout.
// It exists so tests can stub out the pdftotext invocation.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor implements corpus.Extractor using pdftotext.
type Extractor struct {
	runner CommandRunner
}

// New returns an Extractor backed by the real pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner returns an Extractor with an injected command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions tells the operator how to get pdftotext.
func InstallInstructions() string {
	return "pdftotext is required for PDF extraction.\n" +
		"  macOS:  brew install poppler\n" +
		"  Debian: apt install poppler-utils"
}

// ExtractPages runs pdftotext over the file and returns one PageText per
// page, in order. Pages the tool could not extract come back as empty text;
// only a failure of the tool itself is an error.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]corpus.PageText, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", filepath.Base(path), err)
	}

	// pdftotext terminates every page with a form feed, so a well-formed
	// document yields a trailing empty element; drop that one but keep
	// interior empty pages so page indexes stay aligned.
	raw := strings.Split(string(out), "\f")
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}

	pages := make([]corpus.PageText, len(raw))
	for i, text := range raw {
		pages[i] = corpus.PageText{Page: i, Text: text}
	}
	return pages, nil
}
