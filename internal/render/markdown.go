package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/mermaid"
	"go.abhg.dev/goldmark/wikilink"

	terrors "git.home.luguber.info/inful/trellis/internal/errors"
	"git.home.luguber.info/inful/trellis/internal/page"
)

// MarkdownRenderer converts page content to HTML. Raw HTML passes through
// unchanged so pre-rendered callout blocks and hand-written embeds survive.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			emoji.Emoji,
			&mermaid.Extender{},
			&wikilink.Extender{Resolver: slugResolver{}},
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &MarkdownRenderer{md: md}
}

func (*MarkdownRenderer) Name() string { return "markdown" }

func (r *MarkdownRenderer) Transform(p *page.Page) error {
	src := rewriteCallouts(p.Content, r.fragment)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return terrors.Wrap(err, terrors.CategoryInternal, terrors.SeverityError, "converting markdown").
			WithContext("slug", p.Slug)
	}
	p.HTML = buf.String()
	return nil
}

// fragment renders callout titles and bodies with the same pipeline as the
// main document, minus any error surface: a fragment that fails renders empty.
func (r *MarkdownRenderer) fragment(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// slugResolver turns [[wikilinks]] into absolute site paths.
type slugResolver struct{}

func (slugResolver) ResolveWikilink(n *wikilink.Node) ([]byte, error) {
	target := make([]byte, 0, len(n.Target)+1)
	target = append(target, '/')
	target = append(target, n.Target...)
	return target, nil
}
