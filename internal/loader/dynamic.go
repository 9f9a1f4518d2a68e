package loader

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/doccrawl/internal/logger"
)

// Common Chrome/Chromium binary names across different systems
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/snap/bin/chromium",
}

// FindChromePath returns the first Chrome/Chromium binary found, or "".
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	return ""
}

// DynamicLoader renders pages in headless Chrome through chromedp.
// Every Open gets its own browser context, torn down by Page.Close.
type DynamicLoader struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamic creates a dynamic loader backed by a browser allocator.
func NewDynamic(cfg Config) (*DynamicLoader, error) {
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if chromePath := FindChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	} else {
		logger.Warn("no Chrome binary found - dynamic loading may not work")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic loader created", "user_agent", cfg.UserAgent, "timeout", cfg.Timeout)

	return &DynamicLoader{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Open navigates a fresh browser context to url and waits for it to render.
func (l *DynamicLoader) Open(ctx context.Context, targetURL string) (Page, error) {
	logger.Debug("dynamic open", "url", targetURL)

	browserCtx, cancelBrowser := chromedp.NewContext(l.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, l.config.Timeout)

	// Tie the page lifetime to the caller's context as well.
	stop := context.AfterFunc(ctx, cancelTimeout)

	page := &dynamicPage{
		ctx: timeoutCtx,
		cancel: func() {
			stop()
			cancelTimeout()
			cancelBrowser()
		},
	}

	if len(l.config.Headers) > 0 {
		headers := make(network.Headers, len(l.config.Headers))
		for k, v := range l.config.Headers {
			headers[k] = v
		}
		if err := chromedp.Run(timeoutCtx, network.Enable(), network.SetExtraHTTPHeaders(headers)); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to set headers: %w", err)
		}
	}

	resp, err := chromedp.RunResponse(timeoutCtx, chromedp.Navigate(targetURL))
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if resp != nil && resp.Status >= 400 {
		page.Close()
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.Status)
	}

	waitSelector := l.config.WaitSelector
	if waitSelector == "" {
		waitSelector = "body"
	}
	actions := []chromedp.Action{chromedp.WaitVisible(waitSelector)}
	if l.config.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(l.config.WaitDuration))
	}
	actions = append(actions,
		chromedp.Location(&page.url),
		chromedp.OuterHTML("html", &page.html),
	)

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		page.Close()
		return nil, fmt.Errorf("page did not render: %w", err)
	}

	logger.Debug("dynamic open complete", "url", page.url, "html_size", len(page.html))
	return page, nil
}

// Close releases browser resources.
func (l *DynamicLoader) Close() error {
	if l.cancelCtx != nil {
		l.cancelCtx()
	}
	return nil
}

// Type returns the loader type.
func (l *DynamicLoader) Type() string {
	return string(ModeDynamic)
}

type dynamicPage struct {
	ctx    context.Context
	cancel func()
	once   sync.Once

	url  string
	html string
}

func (p *dynamicPage) URL() string  { return p.url }
func (p *dynamicPage) HTML() string { return p.html }

// Evaluate runs expression in the page's browser context.
func (p *dynamicPage) Evaluate(ctx context.Context, expression string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.ctx, chromedp.Evaluate(expression, res))
}

func (p *dynamicPage) Close() error {
	p.once.Do(p.cancel)
	return nil
}
