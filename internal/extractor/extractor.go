// Package extractor turns a loaded documentation page into content blocks and
// the address of the next page in its pagination chain.
//
// Extractors are configured per site; the crawl engine only sees the
// Extractor interface.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/pkg/content"
)

// Strategy names an extractor implementation.
type Strategy string

const (
	StrategySelector Strategy = "selector"
	StrategyScript   Strategy = "script"
)

// ErrNonConformant marks a next-page affordance that does not yield a navigable URL.
var ErrNonConformant = errors.New("next-page affordance is not a navigable URL")

// ErrScopeNotFound is returned when the configured content root is absent from the page.
var ErrScopeNotFound = errors.New("content scope not found")

// Extractor extracts structured content from a loaded page.
type Extractor interface {
	// Extract returns the page's blocks in document order. A page without a
	// next-page affordance yields an empty NextURL, not an error.
	Extract(ctx context.Context, page loader.Page) (content.PageResult, error)

	// Name identifies the extractor in logs.
	Name() string
}

// Config describes how content is located on a site's pages.
type Config struct {
	Strategy Strategy `mapstructure:"strategy" yaml:"strategy,omitempty" validate:"omitempty,oneof=selector script"`

	// Scope is the root element searched for content.
	Scope string `mapstructure:"scope" yaml:"scope,omitempty"`

	// Content matches every element that becomes a block, in document order.
	Content string `mapstructure:"content" yaml:"content,omitempty"`

	// Code identifies which matched elements are code containers.
	Code string `mapstructure:"code" yaml:"code,omitempty"`

	// CodeLines optionally selects per-line elements inside a code container.
	CodeLines string `mapstructure:"code_lines" yaml:"code_lines,omitempty"`

	// Language is a fixed fence language for every code block.
	Language string `mapstructure:"language" yaml:"language,omitempty"`

	// LanguageClassPrefix derives the language from a class like "language-ts".
	LanguageClassPrefix string `mapstructure:"language_class_prefix" yaml:"language_class_prefix,omitempty"`

	// Next is the CSS selector of the next-page anchor.
	Next string `mapstructure:"next" yaml:"next,omitempty"`

	// NextAttr is the attribute holding the next-page address.
	NextAttr string `mapstructure:"next_attr" yaml:"next_attr,omitempty"`

	// Script overrides the generated in-page script (script strategy only).
	Script string `mapstructure:"script" yaml:"script,omitempty"`
}

// DefaultConfig returns selectors that work for plain semantic HTML.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategySelector,
		Scope:               "body",
		Content:             "h1, h2, h3, h4, h5, h6, p, pre",
		Code:                "pre",
		LanguageClassPrefix: "language-",
		NextAttr:            "href",
	}
}

// WithDefaults fills empty fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}
	if c.Scope == "" {
		c.Scope = def.Scope
	}
	if c.Content == "" {
		c.Content = def.Content
	}
	if c.Code == "" {
		c.Code = def.Code
	}
	if c.LanguageClassPrefix == "" && c.Language == "" {
		c.LanguageClassPrefix = def.LanguageClassPrefix
	}
	if c.NextAttr == "" {
		c.NextAttr = def.NextAttr
	}
	return c
}

// New builds the extractor described by cfg.
func New(cfg Config) (Extractor, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Strategy {
	case StrategySelector:
		return NewSelector(cfg), nil
	case StrategyScript:
		return NewScript(cfg), nil
	default:
		return nil, fmt.Errorf("unknown extractor strategy: %s", cfg.Strategy)
	}
}

// resolveNext turns the raw next-page attribute into an absolute URL.
func resolveNext(pageURL, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return "", fmt.Errorf("%w: got %q", ErrNonConformant, raw)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNonConformant, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}
