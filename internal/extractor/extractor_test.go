package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/pkg/content"
)

// fakePage serves fixed HTML and decodes a canned JSON payload on Evaluate.
type fakePage struct {
	url      string
	html     string
	evalJSON string
	evalErr  error
	scripts  []string
}

func (p *fakePage) URL() string  { return p.url }
func (p *fakePage) HTML() string { return p.html }
func (p *fakePage) Close() error { return nil }

func (p *fakePage) Evaluate(_ context.Context, expression string, res any) error {
	p.scripts = append(p.scripts, expression)
	if p.evalErr != nil {
		return p.evalErr
	}
	return json.Unmarshal([]byte(p.evalJSON), res)
}

var _ loader.Page = (*fakePage)(nil)

const docusaurusPage = `<html><body>
<nav><p>Navigation text</p></nav>
<article>
  <h1>Getting Started</h1>
  <p>  Install the CLI.  </p>
  <div class="codeBlockContainer_oyYg">
    <pre class="prism-code language-bash"><code><span class="token-line">npm install convex</span><span class="token-line">npx convex dev</span></code></pre>
  </div>
  <h3>Next steps</h3>
  <p>Read the guide.</p>
</article>
<nav class="pagination-nav">
  <a class="pagination-nav__link pagination-nav__link--next" href="../tutorial?ref=nav#top">Tutorial</a>
</nav>
</body></html>`

func TestSelectorExtractor_Docusaurus(t *testing.T) {
	e := NewSelector(Config{
		Scope:     "article",
		Content:   "h1, h2, h3, h4, h5, h6, p, .codeBlockContainer_oyYg",
		Code:      ".codeBlockContainer_oyYg",
		CodeLines: ".token-line",
		Next:      "a.pagination-nav__link--next",
	})

	page := &fakePage{url: "https://docs.example.com/docs/intro/", html: docusaurusPage}
	got, err := e.Extract(context.Background(), page)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := content.PageResult{
		URL: "https://docs.example.com/docs/intro/",
		Blocks: []content.Block{
			content.Heading(1, "Getting Started"),
			content.Paragraph("  Install the CLI.  "),
			content.Code("bash", "npm install convex\nnpx convex dev"),
			content.Heading(3, "Next steps"),
			content.Paragraph("Read the guide."),
		},
		NextURL: "https://docs.example.com/docs/tutorial?ref=nav#top",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectorExtractor_Defaults(t *testing.T) {
	html := `<html><body>
<h2>API</h2>
<p>Call it.</p>
<pre><code class="language-go">x := 1
y := 2
</code></pre>
</body></html>`

	e := NewSelector(Config{})
	got, err := e.Extract(context.Background(), &fakePage{url: "https://example.com/api", html: html})
	if err != nil {
		t.Fatal(err)
	}

	want := []content.Block{
		content.Heading(2, "API"),
		content.Paragraph("Call it."),
		content.Code("go", "x := 1\ny := 2\n"),
	}
	if diff := cmp.Diff(want, got.Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	if got.HasNext() {
		t.Errorf("expected no next link, got %q", got.NextURL)
	}
}

func TestSelectorExtractor_FixedLanguage(t *testing.T) {
	e := NewSelector(Config{Language: "typescript"})
	got, err := e.Extract(context.Background(), &fakePage{
		url:  "https://example.com/",
		html: `<body><pre class="language-js">let a</pre></body>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].Language != "typescript" {
		t.Errorf("expected fixed language, got %+v", got.Blocks)
	}
}

func TestSelectorExtractor_NoNextIsTerminal(t *testing.T) {
	e := NewSelector(Config{Next: "a.next"})
	got, err := e.Extract(context.Background(), &fakePage{
		url:  "https://example.com/last",
		html: `<body><p>End.</p></body>`,
	})
	if err != nil {
		t.Fatalf("missing next link must not be an error: %v", err)
	}
	if got.NextURL != "" {
		t.Errorf("expected empty NextURL, got %q", got.NextURL)
	}
}

func TestSelectorExtractor_NonConformantNext(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "button without href", html: `<body><a role="link" class="next">Theme Colors</a></body>`},
		{name: "empty href", html: `<body><a class="next" href="  ">Next</a></body>`},
		{name: "fragment only", html: `<body><a class="next" href="#section">Next</a></body>`},
		{name: "javascript href", html: `<body><a class="next" href="javascript:void(0)">Next</a></body>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSelector(Config{Next: ".next"})
			_, err := e.Extract(context.Background(), &fakePage{url: "https://example.com/a", html: tt.html})
			if !errors.Is(err, ErrNonConformant) {
				t.Errorf("expected ErrNonConformant, got %v", err)
			}
		})
	}
}

func TestSelectorExtractor_ScopeMissing(t *testing.T) {
	e := NewSelector(Config{Scope: "main.docs"})
	_, err := e.Extract(context.Background(), &fakePage{url: "https://example.com", html: `<body><p>x</p></body>`})
	if !errors.Is(err, ErrScopeNotFound) {
		t.Errorf("expected ErrScopeNotFound, got %v", err)
	}
}

func TestSelectorExtractor_CustomNextAttr(t *testing.T) {
	e := NewSelector(Config{Next: "button.next", NextAttr: "data-href"})
	got, err := e.Extract(context.Background(), &fakePage{
		url:  "https://example.com/docs/a",
		html: `<body><button class="next" data-href="/docs/b">B</button></body>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.NextURL != "https://example.com/docs/b" {
		t.Errorf("NextURL = %q", got.NextURL)
	}
}

func TestScriptExtractor_DecodesResult(t *testing.T) {
	page := &fakePage{
		url: "https://sdk.example.com/docs/a",
		evalJSON: `{
			"scopeMissing": false,
			"blocks": [
				{"kind": "heading", "level": 2, "text": "Streams"},
				{"kind": "code", "language": "ts", "text": "const s = stream();\nawait s;"},
				{"kind": "paragraph", "text": "Done."}
			],
			"nextFound": true,
			"next": "/docs/b"
		}`,
	}

	e := NewScript(Config{Next: "a.next"})
	got, err := e.Extract(context.Background(), page)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := content.PageResult{
		URL: "https://sdk.example.com/docs/a",
		Blocks: []content.Block{
			content.Heading(2, "Streams"),
			content.Code("ts", "const s = stream();\nawait s;"),
			content.Paragraph("Done."),
		},
		NextURL: "https://sdk.example.com/docs/b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
	if len(page.scripts) != 1 || page.scripts[0] != e.Script() {
		t.Error("expected the generated script to be evaluated once")
	}
}

func TestScriptExtractor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		page    *fakePage
		wantErr error
	}{
		{
			name:    "evaluate unsupported",
			page:    &fakePage{url: "https://x.dev/", evalErr: loader.ErrEvaluateUnsupported},
			wantErr: loader.ErrEvaluateUnsupported,
		},
		{
			name:    "scope missing",
			page:    &fakePage{url: "https://x.dev/", evalJSON: `{"scopeMissing": true}`},
			wantErr: ErrScopeNotFound,
		},
		{
			name:    "label instead of link",
			page:    &fakePage{url: "https://x.dev/", evalJSON: `{"blocks": [], "nextFound": true, "next": ""}`},
			wantErr: ErrNonConformant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScript(Config{}).Extract(context.Background(), tt.page)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScriptExtractor_RejectsUnknownKind(t *testing.T) {
	page := &fakePage{url: "https://x.dev/", evalJSON: `{"blocks": [{"kind": "table", "text": "x"}]}`}
	if _, err := NewScript(Config{}).Extract(context.Background(), page); err == nil {
		t.Error("expected error for unknown block kind")
	}
}

func TestScriptExtractor_GeneratedScriptUsesSelectors(t *testing.T) {
	e := NewScript(Config{
		Scope:     "main",
		Content:   "h1, p, .code",
		Code:      ".code",
		CodeLines: ".line",
		Next:      `a[rel="next"]`,
	})

	script := e.Script()
	for _, want := range []string{`"main"`, `"h1, p, .code"`, `".code"`, `".line"`, `"a[rel=\"next\"]"`, `"href"`} {
		if !strings.Contains(script, want) {
			t.Errorf("generated script missing %s", want)
		}
	}
}

func TestScriptExtractor_CustomScript(t *testing.T) {
	e := NewScript(Config{Script: "(() => ({blocks: []}))()"})
	if e.Script() != "(() => ({blocks: []}))()" {
		t.Errorf("custom script not used: %q", e.Script())
	}
}

func TestNew_Strategies(t *testing.T) {
	sel, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Name() != "selector" {
		t.Errorf("expected selector by default, got %s", sel.Name())
	}

	scr, err := New(Config{Strategy: StrategyScript})
	if err != nil {
		t.Fatal(err)
	}
	if scr.Name() != "script" {
		t.Errorf("expected script, got %s", scr.Name())
	}

	if _, err := New(Config{Strategy: "llm"}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestResolveNext(t *testing.T) {
	tests := []struct {
		page, raw, want string
	}{
		{"https://a.dev/docs/x/", "../y", "https://a.dev/docs/y"},
		{"https://a.dev/docs/x", "/z", "https://a.dev/z"},
		{"https://a.dev/docs/x", "https://b.dev/q?p=2", "https://b.dev/q?p=2"},
		{"https://a.dev/docs/x", " page-2 ", "https://a.dev/docs/page-2"},
	}

	for _, tt := range tests {
		got, err := resolveNext(tt.page, tt.raw)
		if err != nil {
			t.Errorf("resolveNext(%q, %q) error = %v", tt.page, tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveNext(%q, %q) = %q, want %q", tt.page, tt.raw, got, tt.want)
		}
	}
}
