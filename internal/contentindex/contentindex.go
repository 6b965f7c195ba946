// Package contentindex generates the static/content-index.json artifact
// consumed by the client-side explorer and graph scripts.
package contentindex

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/trellis/internal/cache"
	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/logfields"
	"git.home.luguber.info/inful/trellis/internal/page"
	"git.home.luguber.info/inful/trellis/internal/render"
)

// Entry is one page's index record.
type Entry struct {
	Slug     string   `json:"slug"`
	FilePath string   `json:"filePath"`
	Title    string   `json:"title,omitempty"`
	Links    []string `json:"links,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Generator walks the content tree and writes the index under the cache
// root's static directory.
type Generator struct {
	contentRoot string
	cacheRoot   string
	patterns    []string
	titler      cases.Caser
	logger      *slog.Logger
}

func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	tag, err := language.Parse(cfg.Site.Locale)
	if err != nil {
		tag = language.English
	}
	return &Generator{
		contentRoot: cfg.Paths.ContentRoot,
		cacheRoot:   cfg.Paths.CacheRoot,
		patterns:    cfg.Site.IgnorePatterns,
		titler:      cases.Title(tag),
		logger:      logger,
	}
}

// Generate builds and writes content-index.json, returning the entry count.
// Pages whose frontmatter fails to parse are skipped with a warning; one bad
// note must not block the whole index.
func (g *Generator) Generate() (int, error) {
	entries := map[string]Entry{}

	err := filepath.WalkDir(g.contentRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if g.isIgnored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") || g.isIgnored(path) {
			return nil
		}

		entry, buildErr := g.buildEntry(path)
		if buildErr != nil {
			g.logger.Warn("skipping page in content index", logfields.Path(path), logfields.Error(buildErr))
			return nil
		}
		entries[entry.Slug] = entry
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking content root: %w", err)
	}

	staticDir := filepath.Join(g.cacheRoot, "static")
	if err := os.MkdirAll(staticDir, 0o750); err != nil {
		return 0, fmt.Errorf("creating static dir: %w", err)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("encoding content index: %w", err)
	}
	indexPath := filepath.Join(staticDir, "content-index.json")
	if err := os.WriteFile(indexPath, data, 0o640); err != nil {
		return 0, fmt.Errorf("writing content index: %w", err)
	}

	g.logger.Debug("content index written", logfields.Path(indexPath), slog.Int("entries", len(entries)))
	return len(entries), nil
}

func (g *Generator) buildEntry(path string) (Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}

	slug := page.SlugFromPath(path, g.contentRoot)
	rel, relErr := filepath.Rel(g.contentRoot, path)
	if relErr != nil {
		rel = path
	}

	p := page.New(slug, path, string(content))
	if err := (render.FrontMatter{}).Transform(p); err != nil {
		return Entry{}, err
	}

	title := p.Meta.Title
	if title == "" {
		// Fall back to the last slug segment, dashes spaced and title-cased.
		segment := slug
		if i := strings.LastIndex(slug, "/"); i >= 0 {
			segment = slug[i+1:]
		}
		title = g.titler.String(strings.ReplaceAll(segment, "-", " "))
	}

	links := extractMarkdownLinks(p.Content)
	links = append(links, g.cachedHTMLLinks(slug)...)
	links = dedupeSorted(links)

	return Entry{
		Slug:     slug,
		FilePath: filepath.ToSlash(rel),
		Title:    title,
		Links:    links,
		Tags:     p.Meta.Tags,
	}, nil
}

// cachedHTMLLinks parses the page's cached artifact (when present) and
// collects internal anchors, catching links introduced by raw HTML embeds
// that the markdown scan cannot see.
func (g *Generator) cachedHTMLLinks(slug string) []string {
	f, err := os.Open(cache.PathForSlug(g.cacheRoot, slug))
	if err != nil {
		return nil
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := attr.Val
				if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") ||
					strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
					continue
				}
				links = append(links, cleanLinkTarget(href))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]|#]+)`)
	mdLinkRe   = regexp.MustCompile(`\[[^\]]*\]\(([^)]+)\)`)
)

func extractMarkdownLinks(content string) []string {
	var links []string
	for _, m := range wikilinkRe.FindAllStringSubmatch(content, -1) {
		links = append(links, cleanLinkTarget(m[1]))
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(content, -1) {
		target := m[1]
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			continue
		}
		links = append(links, cleanLinkTarget(target))
	}
	return links
}

func cleanLinkTarget(raw string) string {
	target, _, _ := strings.Cut(raw, "#")
	target = strings.Trim(strings.TrimSpace(target), ".")
	target = strings.Trim(target, "/")
	target = strings.TrimSuffix(target, ".md")
	target = strings.TrimSuffix(target, ".html")
	target = strings.TrimSuffix(target, "/index")
	if target == "" {
		return "."
	}
	return target
}

func dedupeSorted(links []string) []string {
	if len(links) == 0 {
		return nil
	}
	sort.Strings(links)
	out := links[:1]
	for _, link := range links[1:] {
		if link != out[len(out)-1] {
			out = append(out, link)
		}
	}
	return out
}

func (g *Generator) isIgnored(path string) bool {
	rel, err := filepath.Rel(g.contentRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range g.patterns {
			if segment == pattern {
				return true
			}
		}
	}
	return false
}
