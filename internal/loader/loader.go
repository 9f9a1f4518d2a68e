// Package loader opens documentation pages for extraction.
//
// A Loader navigates to a URL and hands back a Page: a handle that stays open
// until Close so the extractor can read the DOM or evaluate scripts in it.
// Exactly one Page is open per visit and the caller must always close it.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/doccrawl/internal/version"
)

// Mode selects the page loading strategy.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
	ModeAuto    Mode = "auto"
)

var (
	// ErrHTTPStatus is returned when the server answers with a 4xx/5xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrEvaluateUnsupported is returned by pages that cannot run scripts.
	ErrEvaluateUnsupported = errors.New("script evaluation requires the dynamic loader")
)

// Page is a loaded document.
type Page interface {
	// URL is the final address after redirects.
	URL() string

	// HTML is the serialized document captured once navigation completed.
	HTML() string

	// Evaluate runs a JavaScript expression in the page and decodes its result into res.
	Evaluate(ctx context.Context, expression string, res any) error

	// Close releases the page resources. It is safe to call more than once.
	Close() error
}

// Loader opens pages.
type Loader interface {
	// Open navigates to url. On error no Page resources remain held.
	Open(ctx context.Context, url string) (Page, error)

	// Close releases shared resources such as the browser allocator.
	Close() error

	// Type returns the loader mode name.
	Type() string
}

// Config holds common loader configuration.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	WaitSelector string        // CSS selector to wait for (dynamic only)
	WaitDuration time.Duration // Additional settle time after load (dynamic only)
	Headers      map[string]string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: version.UserAgent(),
		Timeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// New creates a loader for the given mode.
func New(mode Mode, cfg Config) (Loader, error) {
	switch mode {
	case ModeStatic:
		return NewStatic(cfg), nil
	case ModeDynamic, "":
		return NewDynamic(cfg)
	case ModeAuto:
		return NewAuto(cfg), nil
	default:
		return nil, fmt.Errorf("unknown loader mode: %s", mode)
	}
}
