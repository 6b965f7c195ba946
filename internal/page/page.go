// Package page defines the record types that flow through the render pipeline.
package page

import (
	"path/filepath"
	"strings"
	"time"
)

// Metadata is the structured subset of a page's frontmatter.
//
// All fields are optional; zero values mean "not set". Password is consumed by
// the encryption stage and must be empty by the time a page leaves the
// pipeline.
type Metadata struct {
	Title       string     `yaml:"title,omitempty" json:"title,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Created     *time.Time `yaml:"created,omitempty" json:"created,omitempty"`
	Updated     *time.Time `yaml:"updated,omitempty" json:"updated,omitempty"`
	Tags        []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	WordCount   int        `yaml:"word_count,omitempty" json:"wordCount,omitempty"`
	Encrypted   bool       `yaml:"encrypted,omitempty" json:"encrypted,omitempty"`
	Draft       bool       `yaml:"draft,omitempty" json:"draft,omitempty"`
	Publish     bool       `yaml:"publish,omitempty" json:"publish,omitempty"`
	Password    string     `yaml:"-" json:"-"`
}

// Page is the mutable value a single render invocation owns. It is created
// once per request and never shared across concurrent renders.
type Page struct {
	Slug       string
	SourcePath string

	// Content is the Markdown body. The frontmatter stage strips the YAML
	// block from it; later stages only read it.
	Content string

	// HTML is empty until the Markdown stage runs.
	HTML string

	// Frontmatter holds the raw parsed YAML mapping, including keys the
	// structured Metadata does not model.
	Frontmatter map[string]any

	Meta Metadata
}

// New creates a Page for the given slug backed by the given source file.
func New(slug, sourcePath, content string) *Page {
	return &Page{
		Slug:        slug,
		SourcePath:  sourcePath,
		Content:     content,
		Frontmatter: map[string]any{},
	}
}

// placeholderHTML is served when a page produced no rendered output.
const placeholderHTML = "<p>No content</p>"

// RenderedPage is the finished output record handed to the web layer.
// It is built once at the end of a render and discarded after serialization.
type RenderedPage struct {
	Slug        string         `json:"slug"`
	HTML        string         `json:"html"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Meta        Metadata       `json:"meta"`

	// Cached reports whether HTML was reused from the disk cache.
	Cached bool `json:"cached"`

	// Fingerprint is a stable digest of the source document, usable as an
	// HTTP ETag.
	Fingerprint string `json:"-"`
}

// Rendered finalizes a transformed Page into a RenderedPage.
// HTML is guaranteed non-empty.
func Rendered(p *Page) *RenderedPage {
	html := p.HTML
	if html == "" {
		html = placeholderHTML
	}
	return &RenderedPage{
		Slug:        p.Slug,
		HTML:        html,
		Frontmatter: p.Frontmatter,
		Meta:        p.Meta,
	}
}

// SlugFromPath derives the URL slug for a content file relative to the
// content root: path separators normalized to '/', extension stripped.
// Paths outside the root map to "index".
func SlugFromPath(path, contentRoot string) string {
	rel, err := filepath.Rel(contentRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "index"
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	slug := filepath.ToSlash(rel)
	if slug == "" || slug == "." {
		return "index"
	}
	return slug
}
