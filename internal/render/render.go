// Package render implements the ordered transformer chain that turns a raw
// markdown Page into rendered HTML, plus the metadata filters gating it.
package render

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/trellis/internal/page"
)

// ErrFiltered signals that a page was excluded by a filter. It is a distinct
// non-error condition: batch operations skip it, single renders surface it as
// "not available".
var ErrFiltered = errors.New("page filtered out")

// Transformer is one pipeline stage. It takes ownership of the page for the
// duration of the call and mutates it in place.
type Transformer interface {
	Name() string
	Transform(p *page.Page) error
}

// Filter decides whether a page proceeds past the frontmatter stage. Filters
// only see structured metadata, so they run strictly after stage one.
type Filter interface {
	Name() string
	Include(p *page.Page) bool
}

// Chain is the fixed-order stage sequence. Order is a hard invariant:
// frontmatter must run first (filters depend on it), markdown before
// encryption (encryption operates on rendered HTML).
type Chain struct {
	stages  []Transformer
	filters []Filter
}

// NewChain builds the standard pipeline: FrontMatter, MarkdownRenderer,
// EncryptContent. The cipher cache may be shared across chains.
func NewChain(ciphers *CipherCache, filters ...Filter) *Chain {
	return &Chain{
		stages: []Transformer{
			FrontMatter{},
			NewMarkdownRenderer(),
			NewEncryptContent(ciphers),
		},
		filters: filters,
	}
}

// Run applies every stage in order. Filters are evaluated once frontmatter is
// available; an excluded page aborts the chain with ErrFiltered before any
// rendering work happens.
func (c *Chain) Run(p *page.Page) error {
	for i, stage := range c.stages {
		if err := stage.Transform(p); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		if i == 0 {
			for _, f := range c.filters {
				if !f.Include(p) {
					return fmt.Errorf("filter %s: %w", f.Name(), ErrFiltered)
				}
			}
		}
	}
	return nil
}
