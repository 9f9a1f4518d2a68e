package extractor

import (
	"context"
	"fmt"

	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/internal/logger"
	"github.com/jmylchreest/doccrawl/pkg/content"
)

// scriptResult is the object an extraction script must return.
type scriptResult struct {
	ScopeMissing bool            `json:"scopeMissing"`
	Blocks       []content.Block `json:"blocks"`
	NextFound    bool            `json:"nextFound"`
	Next         string          `json:"next"`
}

// ScriptExtractor evaluates JavaScript in the live page. It needs a loader
// whose pages support Evaluate.
type ScriptExtractor struct {
	config Config
	script string
}

// NewScript creates a script extractor. Without an explicit script one is
// generated from the selector configuration.
func NewScript(cfg Config) *ScriptExtractor {
	cfg = cfg.WithDefaults()
	script := cfg.Script
	if script == "" {
		script = buildScript(cfg)
	}
	return &ScriptExtractor{config: cfg, script: script}
}

// Name returns the extractor name.
func (e *ScriptExtractor) Name() string {
	return string(StrategyScript)
}

// Script returns the expression evaluated in each page.
func (e *ScriptExtractor) Script() string {
	return e.script
}

// Extract runs the script and validates what it returns.
func (e *ScriptExtractor) Extract(ctx context.Context, page loader.Page) (content.PageResult, error) {
	result := content.PageResult{URL: page.URL()}

	var out scriptResult
	if err := page.Evaluate(ctx, e.script, &out); err != nil {
		return result, fmt.Errorf("script evaluation failed: %w", err)
	}
	if out.ScopeMissing {
		return result, fmt.Errorf("%w: %q", ErrScopeNotFound, e.config.Scope)
	}

	for i, b := range out.Blocks {
		if err := b.Validate(); err != nil {
			return result, fmt.Errorf("block %d: %w", i, err)
		}
	}
	result.Blocks = out.Blocks

	if out.NextFound {
		next, err := resolveNext(page.URL(), out.Next)
		if err != nil {
			return result, fmt.Errorf("script next link: %w", err)
		}
		result.NextURL = next
	}

	logger.Debug("script extraction complete",
		"url", result.URL,
		"blocks", len(result.Blocks),
		"next", result.NextURL)

	return result, nil
}

// buildScript renders the in-page equivalent of SelectorExtractor.
func buildScript(cfg Config) string {
	return fmt.Sprintf(`
(() => {
	const scope = document.querySelector(%q);
	if (!scope) {
		return { scopeMissing: true, blocks: [], nextFound: false, next: "" };
	}
	const codeSel = %q;
	const linesSel = %q;
	const fixedLang = %q;
	const prefix = %q;

	const languageOf = (el) => {
		if (fixedLang || !prefix) {
			return fixedLang;
		}
		for (const node of [el, ...el.querySelectorAll("[class]")]) {
			const cls = Array.from(node.classList).find((c) => c.startsWith(prefix) && c.length > prefix.length);
			if (cls) {
				return cls.slice(prefix.length);
			}
		}
		return "";
	};

	const blocks = [];
	for (const el of scope.querySelectorAll(%q)) {
		if (el.parentElement && el.parentElement.closest(codeSel)) {
			continue;
		}
		if (el.matches(codeSel)) {
			const lines = linesSel ? Array.from(el.querySelectorAll(linesSel)).map((l) => l.textContent) : [];
			const text = lines.length > 0 ? lines.join("\n") : el.textContent;
			blocks.push({ kind: "code", language: languageOf(el), text: text });
		} else if (/^H[1-6]$/.test(el.tagName)) {
			blocks.push({ kind: "heading", level: parseInt(el.tagName.substring(1), 10), text: el.textContent });
		} else {
			blocks.push({ kind: "paragraph", text: el.textContent });
		}
	}

	const nextSel = %q;
	const nextEl = nextSel ? document.querySelector(nextSel) : null;
	return {
		scopeMissing: false,
		blocks: blocks,
		nextFound: nextEl !== null,
		next: nextEl ? (nextEl.getAttribute(%q) || "") : "",
	};
})()`,
		cfg.Scope, cfg.Code, cfg.CodeLines, cfg.Language, cfg.LanguageClassPrefix,
		cfg.Content, cfg.Next, cfg.NextAttr)
}
