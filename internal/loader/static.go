package loader

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/doccrawl/internal/logger"
)

// StaticLoader fetches raw HTML with Colly. It does not run JavaScript.
type StaticLoader struct {
	config Config
}

// NewStatic creates a static loader.
func NewStatic(cfg Config) *StaticLoader {
	return &StaticLoader{config: cfg.withDefaults()}
}

// Open fetches url and returns its HTML as a Page.
func (l *StaticLoader) Open(ctx context.Context, targetURL string) (Page, error) {
	logger.Debug("static open", "url", targetURL)

	c := colly.NewCollector(
		colly.UserAgent(l.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(l.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range l.config.Headers {
			r.Headers.Set(k, v)
		}
	})

	page := &staticPage{url: targetURL}
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		page.html = string(r.Body)
		page.url = r.Request.URL.String()
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= http.StatusBadRequest {
			fetchErr = fmt.Errorf("%w: %d", ErrHTTPStatus, r.StatusCode)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	logger.Debug("static open complete", "url", page.url, "html_size", len(page.html))
	return page, nil
}

// Close releases resources.
func (l *StaticLoader) Close() error {
	return nil
}

// Type returns the loader type.
func (l *StaticLoader) Type() string {
	return string(ModeStatic)
}

type staticPage struct {
	url  string
	html string
}

func (p *staticPage) URL() string  { return p.url }
func (p *staticPage) HTML() string { return p.html }

func (p *staticPage) Evaluate(context.Context, string, any) error {
	return ErrEvaluateUnsupported
}

func (p *staticPage) Close() error { return nil }
