// Package markup converts extracted content blocks into Markdown text.
package markup

import (
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/jmylchreest/doccrawl/pkg/content"
)

// Block separator used when rendering a whole page.
const separator = "\n\n"

// Render converts a single block into its Markdown fragment.
// Unknown kinds render as an empty string.
func Render(b content.Block) string {
	md := markdown.NewMarkdown(io.Discard)

	switch b.Kind {
	case content.KindHeading:
		text := strings.TrimSpace(b.Text)
		if text == "" {
			return ""
		}
		heading(md, b.Level, text)
	case content.KindCode:
		if strings.TrimSpace(b.Text) == "" {
			return ""
		}
		// Code is kept verbatim; only a single trailing newline is dropped so the
		// closing fence sits on its own line.
		md.CodeBlocks(markdown.SyntaxHighlight(strings.TrimSpace(b.Language)), strings.TrimSuffix(b.Text, "\n"))
	case content.KindParagraph:
		text := strings.TrimSpace(b.Text)
		if text == "" {
			return ""
		}
		md.PlainText(text)
	default:
		return ""
	}

	return md.String()
}

// RenderPage renders blocks in order and joins them with a blank line.
// Blocks that render to nothing are dropped.
func RenderPage(blocks []content.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := Render(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, separator)
}

// heading writes a heading at the given depth, clamped to 1..6.
func heading(md *markdown.Markdown, level int, text string) {
	switch clampLevel(level) {
	case 1:
		md.H1(text)
	case 2:
		md.H2(text)
	case 3:
		md.H3(text)
	case 4:
		md.H4(text)
	case 5:
		md.H5(text)
	default:
		md.H6(text)
	}
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}
