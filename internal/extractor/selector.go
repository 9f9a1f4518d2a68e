package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/internal/logger"
	"github.com/jmylchreest/doccrawl/pkg/content"
)

// SelectorExtractor walks the page HTML with CSS selectors.
type SelectorExtractor struct {
	config Config
}

// NewSelector creates a selector-driven extractor.
func NewSelector(cfg Config) *SelectorExtractor {
	return &SelectorExtractor{config: cfg.WithDefaults()}
}

// Name returns the extractor name.
func (e *SelectorExtractor) Name() string {
	return string(StrategySelector)
}

// Extract parses the page HTML and maps matched elements to blocks.
func (e *SelectorExtractor) Extract(ctx context.Context, page loader.Page) (content.PageResult, error) {
	result := content.PageResult{URL: page.URL()}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML()))
	if err != nil {
		return result, fmt.Errorf("failed to parse HTML: %w", err)
	}

	scope := doc.Find(e.config.Scope).First()
	if scope.Length() == 0 {
		return result, fmt.Errorf("%w: %q", ErrScopeNotFound, e.config.Scope)
	}

	scope.Find(e.config.Content).Each(func(_ int, s *goquery.Selection) {
		// Elements inside a code container belong to that container.
		if s.ParentsFiltered(e.config.Code).Length() > 0 {
			return
		}
		result.Blocks = append(result.Blocks, e.block(s))
	})

	if e.config.Next != "" {
		if next := doc.Find(e.config.Next).First(); next.Length() > 0 {
			href, exists := next.Attr(e.config.NextAttr)
			if !exists {
				return result, fmt.Errorf("next selector %q: %w: element has no %s attribute",
					e.config.Next, ErrNonConformant, e.config.NextAttr)
			}
			result.NextURL, err = resolveNext(page.URL(), href)
			if err != nil {
				return result, fmt.Errorf("next selector %q: %w", e.config.Next, err)
			}
		}
	}

	logger.Debug("selector extraction complete",
		"url", result.URL,
		"blocks", len(result.Blocks),
		"next", result.NextURL)

	return result, nil
}

func (e *SelectorExtractor) block(s *goquery.Selection) content.Block {
	if s.Is(e.config.Code) {
		return content.Code(e.language(s), e.codeText(s))
	}

	name := goquery.NodeName(s)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return content.Heading(int(name[1]-'0'), s.Text())
	}

	return content.Paragraph(s.Text())
}

func (e *SelectorExtractor) codeText(s *goquery.Selection) string {
	if e.config.CodeLines != "" {
		lines := s.Find(e.config.CodeLines)
		if lines.Length() > 0 {
			return strings.Join(lines.Map(func(_ int, l *goquery.Selection) string {
				return l.Text()
			}), "\n")
		}
	}
	return s.Text()
}

// language returns the fixed language or the first class carrying the prefix
// on the container or any of its descendants.
func (e *SelectorExtractor) language(s *goquery.Selection) string {
	if e.config.Language != "" {
		return e.config.Language
	}
	prefix := e.config.LanguageClassPrefix
	if prefix == "" {
		return ""
	}

	var lang string
	s.AddSelection(s.Find("[class]")).EachWithBreak(func(_ int, n *goquery.Selection) bool {
		class, _ := n.Attr("class")
		for _, c := range strings.Fields(class) {
			if strings.HasPrefix(c, prefix) && len(c) > len(prefix) {
				lang = strings.TrimPrefix(c, prefix)
				return false
			}
		}
		return true
	})
	return lang
}
