// Package content defines the structured page content produced by extractors
// and consumed by the markup renderer.
package content

import "fmt"

// Kind identifies the variant of a Block.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindCode      Kind = "code"
)

// Block is one semantic unit of extracted page content.
// Level is only meaningful for headings, Language only for code blocks.
type Block struct {
	Kind     Kind   `json:"kind" yaml:"kind"`
	Level    int    `json:"level,omitempty" yaml:"level,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Text     string `json:"text" yaml:"text"`
}

// Heading returns a heading block. Level is clamped when rendered, not here.
func Heading(level int, text string) Block {
	return Block{Kind: KindHeading, Level: level, Text: text}
}

// Paragraph returns a plain text block.
func Paragraph(text string) Block {
	return Block{Kind: KindParagraph, Text: text}
}

// Code returns a fenced code block with the given language tag.
func Code(language, text string) Block {
	return Block{Kind: KindCode, Language: language, Text: text}
}

// Validate reports whether the block is a known variant.
func (b Block) Validate() error {
	switch b.Kind {
	case KindHeading, KindParagraph, KindCode:
		return nil
	default:
		return fmt.Errorf("unknown block kind %q", b.Kind)
	}
}

// PageResult is what an extractor returns for one loaded page.
type PageResult struct {
	URL    string
	Blocks []Block
	// NextURL is empty when the page has no next-page affordance.
	NextURL string
}

// HasNext reports whether the page points at a following page.
func (r PageResult) HasNext() bool {
	return r.NextURL != ""
}
