package render

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	terrors "git.home.luguber.info/inful/trellis/internal/errors"
	"git.home.luguber.info/inful/trellis/internal/page"
)

const frontmatterDelimiter = "---"

// FrontMatter extracts the leading YAML block from the page content and
// populates both the raw Frontmatter map and the typed Metadata fields.
// A page without a frontmatter block passes through untouched.
type FrontMatter struct{}

func (FrontMatter) Name() string { return "frontmatter" }

func (FrontMatter) Transform(p *page.Page) error {
	block, body, found, err := splitFrontmatter(p.Content)
	if err != nil {
		return terrors.Wrap(err, terrors.CategoryParse, terrors.SeverityError, "extracting frontmatter")
	}
	if !found {
		return nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		return terrors.Wrap(err, terrors.CategoryParse, terrors.SeverityError, "parsing frontmatter YAML").
			WithContext("slug", p.Slug)
	}

	p.Frontmatter = fields
	p.Content = body
	populateMetadata(&p.Meta, fields)
	return nil
}

// splitFrontmatter separates the YAML block from the body. The block must
// start on the very first line; an opening delimiter without a closing one is
// malformed input, not an empty block.
func splitFrontmatter(content string) (block, body string, found bool, err error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != frontmatterDelimiter {
		return "", content, false, nil
	}

	// The closing fence tolerates surrounding whitespace; the opening one
	// must sit flush on the first line.
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true, nil
		}
	}
	return "", "", false, terrors.New(terrors.CategoryParse, terrors.SeverityError, "frontmatter block is never closed")
}

func populateMetadata(meta *page.Metadata, fields map[string]any) {
	if v, ok := asString(fields["title"]); ok {
		meta.Title = v
	}
	if v, ok := asString(fields["description"]); ok {
		meta.Description = v
	}
	if v, ok := asTime(fields["created"]); ok {
		meta.Created = &v
	}
	if v, ok := asTime(fields["updated"]); ok {
		meta.Updated = &v
	}
	if v, ok := asStringList(fields["tags"]); ok {
		meta.Tags = v
	}
	if v, ok := asBool(fields["draft"]); ok {
		meta.Draft = v
	}
	if v, ok := asBool(fields["publish"]); ok {
		meta.Publish = v
	}
	if v, ok := asBool(fields["encrypted"]); ok {
		meta.Encrypted = v
	}
	if v, ok := asString(fields["password"]); ok {
		meta.Password = v
	}
	if v, ok := asInt(fields["word_count"]); ok {
		meta.WordCount = v
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asTime accepts both yaml.v3 native timestamps and RFC 3339 / date strings.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func asStringList(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// DraftFilter excludes every page marked draft: true.
type DraftFilter struct{}

func (DraftFilter) Name() string { return "draft" }

func (DraftFilter) Include(p *page.Page) bool {
	return !p.Meta.Draft
}
