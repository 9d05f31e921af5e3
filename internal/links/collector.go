// Package links discovers PDF documents on the corpus listing page.
package links

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/corpus"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Collector implements corpus.Lister using the Colly collector. Only
// anchors on the listing page itself are considered; there is no recursive
// crawl.
type Collector struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Collector.
func New(cfg Config, logger *zap.Logger) *Collector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{cfg: cfg, logger: logger}
}

// List fetches pageURL and returns every PDF link on it as a SourceItem,
// de-duplicated by absolute URL preserving first-appearance order.
func (c *Collector) List(ctx context.Context, pageURL string) ([]corpus.SourceItem, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.cfg.UserAgent))
	}
	collector := colly.NewCollector(opts...)
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		items    []corpus.SourceItem
		seen     = make(map[string]struct{})
		fetchErr error
	)

	// The collector is synchronous, so the callbacks never race.
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if !strings.Contains(strings.ToLower(href), ".pdf") {
			return
		}
		abs := e.Request.AbsoluteURL(href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		items = append(items, corpus.SourceItem{
			URL:        abs,
			AnchorText: strings.TrimSpace(e.Text),
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch listing %s: %w", pageURL, err)
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit listing %s: %w", pageURL, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	c.logger.Debug("listing scanned", zap.String("url", pageURL), zap.Int("pdf_links", len(items)))
	return items, nil
}
