package loader

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/doccrawl/internal/logger"
)

// AutoLoader fetches statically and falls back to a browser when the page
// looks client-rendered. The browser is only started on first fallback.
type AutoLoader struct {
	config     Config
	static     *StaticLoader
	newDynamic func(Config) (Loader, error)
	dynamic    Loader
}

// NewAuto creates an auto-detecting loader.
func NewAuto(cfg Config) *AutoLoader {
	cfg = cfg.withDefaults()
	return &AutoLoader{
		config: cfg,
		static: NewStatic(cfg),
		newDynamic: func(c Config) (Loader, error) {
			return NewDynamic(c)
		},
	}
}

// Open tries a static fetch first. HTTP status errors are returned as is;
// other failures and client-rendered pages are retried in the browser.
func (l *AutoLoader) Open(ctx context.Context, targetURL string) (Page, error) {
	page, err := l.static.Open(ctx, targetURL)
	switch {
	case errors.Is(err, ErrHTTPStatus):
		return nil, err
	case err != nil:
		logger.Debug("auto static open failed, using browser", "url", targetURL, "error", err)
	case NeedsJavaScript(page.HTML()):
		logger.Debug("auto page needs javascript, using browser", "url", targetURL)
		_ = page.Close()
	default:
		return page, nil
	}

	if l.dynamic == nil {
		d, err := l.newDynamic(l.config)
		if err != nil {
			return nil, err
		}
		l.dynamic = d
	}
	return l.dynamic.Open(ctx, targetURL)
}

// Close releases the browser if one was started.
func (l *AutoLoader) Close() error {
	if l.dynamic != nil {
		return l.dynamic.Close()
	}
	return nil
}

// Type returns the loader type.
func (l *AutoLoader) Type() string {
	return string(ModeAuto)
}

var mountPoints = []string{"#root", "#app", "#__next", "#__nuxt", "app-root"}

var jsNotices = []string{"enable javascript", "javascript required", "requires javascript", "please wait", "loading"}

// NeedsJavaScript reports whether raw HTML looks like an unrendered
// single-page app shell.
func NeedsJavaScript(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	for _, sel := range mountPoints {
		if m := doc.Find(sel).First(); m.Length() > 0 && m.Children().Length() == 0 && strings.TrimSpace(m.Text()) == "" {
			return true
		}
	}
	if doc.Find("[ng-app], [v-cloak]").Length() > 0 {
		return true
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.ToLower(strings.TrimSpace(body.Text()))
	if len(text) < 100 {
		for _, notice := range jsNotices {
			if strings.Contains(text, notice) {
				return true
			}
		}
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	return strings.Contains(noscript, "javascript") &&
		(strings.Contains(noscript, "enable") || strings.Contains(noscript, "required"))
}
