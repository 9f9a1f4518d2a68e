package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmylchreest/doccrawl/internal/extractor"
	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/internal/logger"
	"github.com/jmylchreest/doccrawl/internal/markup"
	"github.com/jmylchreest/doccrawl/internal/sink"
)

// State is a crawl engine transition reported to progress callbacks.
type State string

const (
	StateLoading State = "loading"
	StateWritten State = "written"
	StateSkipped State = "skipped"
	StateFailed  State = "failed"
)

// Progress is emitted on every state transition of interest.
type Progress struct {
	URL   string
	State State
	// Chunk is set for StateWritten.
	Chunk sink.Chunk
	// Err is set for StateFailed.
	Err error
}

// Stats summarizes a crawl.
type Stats struct {
	Pages   int   // pages written to the sink
	Skipped int   // URLs dropped by the visited check
	Failed  int   // pages that failed to load
	Bytes   int64 // record bytes appended to the sink
}

// Writer persists rendered pages. *sink.ChunkedSink implements it.
type Writer interface {
	Append(pageURL, rendered string) (sink.Chunk, error)
}

// Config holds crawler configuration.
type Config struct {
	// BaseURL resolves relative seeds and next links.
	BaseURL string

	// StripQuery drops the query string during normalization.
	StripQuery bool

	// Delay is the pacing wait between consecutive pages of a chain.
	Delay time.Duration

	// SameHostOnly ends a chain when its next link leaves the base host.
	SameHostOnly bool
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		StripQuery: true,
		Delay:      2 * time.Second,
	}
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithProgress registers a callback for per-page progress events.
func WithProgress(fn func(Progress)) Option {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// WithVisited shares a visited set between crawlers.
func WithVisited(v *VisitedSet) Option {
	return func(c *Crawler) {
		if v != nil {
			c.visited = v
		}
	}
}

// Crawler follows pagination chains one page at a time.
type Crawler struct {
	loader    loader.Loader
	extractor extractor.Extractor
	writer    Writer
	config    Config
	base      *url.URL
	visited   *VisitedSet
	progress  func(Progress)
}

// New creates a Crawler. An empty BaseURL means seeds must be absolute.
func New(l loader.Loader, ext extractor.Extractor, w Writer, cfg Config, opts ...Option) (*Crawler, error) {
	c := &Crawler{
		loader:    l,
		extractor: ext,
		writer:    w,
		config:    cfg,
		visited:   NewVisitedSet(),
	}

	if cfg.BaseURL != "" {
		canonical, err := Normalize(nil, cfg.BaseURL, false)
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
		c.base, _ = url.Parse(canonical)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Visited returns the crawler's visited set.
func (c *Crawler) Visited() *VisitedSet {
	return c.visited
}

// Crawl walks the chain starting at each seed in turn. Seeds share the
// visited set, so a seed reached by an earlier chain is skipped.
//
// Navigation failures end the affected chain and are only counted. Invalid
// URLs, extraction failures, sink failures and cancellation stop the crawl
// and are returned together with the stats gathered so far.
func (c *Crawler) Crawl(ctx context.Context, seeds ...string) (Stats, error) {
	var stats Stats

	logger.Debug("crawler starting",
		"seeds", len(seeds),
		"base_url", c.config.BaseURL,
		"strip_query", c.config.StripQuery,
		"delay", c.config.Delay,
		"extractor", c.extractor.Name(),
		"loader", c.loader.Type())

	for i, seed := range seeds {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return stats, err
			}
		}
		logger.Info("seed", "url", seed)
		if err := c.chain(ctx, seed, &stats); err != nil {
			return stats, err
		}
	}

	logger.Debug("crawler finished",
		"pages", stats.Pages,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"bytes", stats.Bytes)

	return stats, nil
}

// chain runs one pagination chain as a loop rather than recursion.
func (c *Crawler) chain(ctx context.Context, raw string, stats *Stats) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageURL, err := Normalize(c.base, raw, c.config.StripQuery)
		if err != nil {
			return err
		}

		if c.visited.Contains(pageURL) {
			logger.Debug("crawler skipping visited URL", "url", pageURL)
			stats.Skipped++
			c.emit(Progress{URL: pageURL, State: StateSkipped})
			return nil
		}
		c.visited.Add(pageURL)

		next, err := c.visit(ctx, pageURL, stats)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}

		if c.config.SameHostOnly && c.base != nil {
			if abs, err := Normalize(c.base, next, false); err == nil && !IsSameDomain(c.base.String(), abs) {
				logger.Warn("next link leaves base host, stopping chain", "url", pageURL, "next", abs)
				return nil
			}
		}

		if err := c.pause(ctx); err != nil {
			return err
		}
		raw = next
	}
}

// visit loads, extracts, renders and writes one page. It returns the raw next
// URL, or "" when the chain ends here.
func (c *Crawler) visit(ctx context.Context, pageURL string, stats *Stats) (string, error) {
	logger.Info("crawling", "url", pageURL)
	c.emit(Progress{URL: pageURL, State: StateLoading})

	fetchStart := time.Now()
	page, err := c.loader.Open(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		navErr := &NavigationError{URL: pageURL, Err: err}
		logger.Warn("navigation failed", "url", pageURL, "error", err)
		stats.Failed++
		c.emit(Progress{URL: pageURL, State: StateFailed, Err: navErr})
		return "", nil
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("crawler page close failed", "url", pageURL, "error", err)
		}
	}()
	fetchDuration := time.Since(fetchStart)

	// A redirect lands on a different canonical URL; remember it too.
	if final, err := Normalize(c.base, page.URL(), c.config.StripQuery); err == nil && final != pageURL {
		logger.Debug("crawler followed redirect", "from", pageURL, "to", final)
		c.visited.Add(final)
	}

	result, err := c.extractor.Extract(ctx, page)
	if err != nil {
		return "", &ExtractionError{URL: pageURL, Extractor: c.extractor.Name(), Err: err}
	}

	rendered := markup.RenderPage(result.Blocks)

	chunk, err := c.writer.Append(pageURL, rendered)
	if err != nil {
		return "", &SinkWriteError{URL: pageURL, Err: err}
	}

	stats.Pages++
	stats.Bytes += int64(len(sink.FormatRecord(pageURL, rendered)))
	c.emit(Progress{URL: pageURL, State: StateWritten, Chunk: chunk})

	logger.Debug("crawler page written",
		"url", pageURL,
		"blocks", len(result.Blocks),
		"chunk", chunk.Index,
		"fetch", fetchDuration.Round(time.Millisecond),
		"next", result.NextURL)

	return result.NextURL, nil
}

// pause blocks for the pacing delay or until ctx is done.
func (c *Crawler) pause(ctx context.Context) error {
	if c.config.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.config.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Crawler) emit(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}
