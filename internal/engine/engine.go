// Package engine orchestrates page rendering: slug resolution, ignore rules,
// cache freshness, the transformer chain, and cache persistence.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/trellis/internal/cache"
	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/logfields"
	"git.home.luguber.info/inful/trellis/internal/metrics"
	"git.home.luguber.info/inful/trellis/internal/page"
	"git.home.luguber.info/inful/trellis/internal/render"
)

// Engine renders pages on demand, reusing cached HTML when nothing the page
// depends on has changed since the cache file was written.
type Engine struct {
	cfg      *config.Config
	chain    *render.Chain
	logger   *slog.Logger
	recorder metrics.Recorder

	contentRoot string
	cacheRoot   string
	deps        []cache.Token
}

// New builds an Engine with the standard pipeline and dependency set. The
// cache root is created eagerly so the first render cannot race directory
// creation.
func New(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	cacheRoot := cfg.Paths.CacheRoot
	if err := cache.EnsureRoot(cacheRoot); err != nil {
		return nil, fmt.Errorf("ensure cache root: %w", err)
	}

	theme := cfg.Theme
	return &Engine{
		cfg:         cfg,
		chain:       render.NewChain(render.NewCipherCache(), render.DraftFilter{}),
		logger:      logger,
		recorder:    recorder,
		contentRoot: cfg.Paths.ContentRoot,
		cacheRoot:   cacheRoot,
		deps: []cache.Token{
			cache.DirToken("styles", cfg.Paths.StylesDir, "css"),
			cache.BinaryToken(),
			cache.FileToken("config", cfg.Path()),
			cache.HashToken("theme", cacheRoot, theme.Hash),
		},
	}, nil
}

// ContentRoot returns the configured content tree root.
func (e *Engine) ContentRoot() string { return e.contentRoot }

// CacheRoot returns the configured build output root.
func (e *Engine) CacheRoot() string { return e.cacheRoot }

// PageExists reports whether a source markdown file backs the slug. Cached
// HTML without a source counts as missing.
func (e *Engine) PageExists(slug string) bool {
	if e.isIgnoredSlug(slug) {
		return false
	}
	_, err := os.Stat(e.sourcePathFor(slug))
	return err == nil
}

// RenderPage resolves, renders, and caches a single page.
//
// The transformer chain always runs, even on a cache hit: metadata filters
// and frontmatter must reflect the current source. Only the HTML body is
// substituted from cache. Cache write failures degrade to uncached serving
// rather than failing the request.
func (e *Engine) RenderPage(slug string) (*page.RenderedPage, error) {
	start := time.Now()

	rendered, usedCache, err := e.renderPage(slug)
	e.recorder.ObserveRenderDuration(time.Since(start))

	switch {
	case errors.Is(err, ErrNotFound):
		e.recorder.IncRenderOutcome(metrics.OutcomeNotFound)
	case errors.Is(err, ErrFiltered):
		e.recorder.IncRenderOutcome(metrics.OutcomeFiltered)
	case err != nil:
		e.recorder.IncRenderOutcome(metrics.OutcomeError)
	case usedCache:
		e.recorder.IncRenderOutcome(metrics.OutcomeCached)
	default:
		e.recorder.IncRenderOutcome(metrics.OutcomeFresh)
	}
	return rendered, err
}

func (e *Engine) renderPage(slug string) (*page.RenderedPage, bool, error) {
	if e.isIgnoredSlug(slug) {
		return nil, false, fmt.Errorf("slug %s is ignored by configuration: %w", slug, ErrNotFound)
	}

	sourcePath := e.sourcePathFor(slug)
	cachePath := cache.PathForSlug(e.cacheRoot, slug)

	depTimes, depErrs := cache.ResolveAll(e.deps)
	for _, depErr := range depErrs {
		e.logger.Warn("resolving cache dependency", logfields.Error(depErr))
	}

	useCache, err := cache.Fresh(sourcePath, cachePath, depTimes)
	if err != nil {
		e.logger.Warn("checking cache freshness", logfields.Slug(slug), logfields.Error(err))
		useCache = false
	}

	p, err := e.loadPage(slug, sourcePath)
	if err != nil {
		return nil, false, err
	}

	// Frontmatter and filters always run against the current source; a cache
	// hit only replaces the HTML body below.
	if err := e.chain.Run(p); err != nil {
		if errors.Is(err, ErrFiltered) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("rendering %s: %w", slug, err)
	}

	if useCache {
		cached, readErr := os.ReadFile(cachePath)
		if readErr != nil {
			e.logger.Warn("reading cached page, re-rendering",
				logfields.Slug(slug), logfields.Error(readErr))
			useCache = false
		} else {
			p.HTML = string(cached)
		}
	}

	rendered := page.Rendered(p)
	rendered.Cached = useCache
	rendered.Fingerprint = mdfp.CalculateFingerprintFromParts("", rendered.HTML)

	if !useCache {
		if writeErr := cache.Write(cachePath, rendered.HTML); writeErr != nil {
			e.recorder.IncCacheWriteFailure()
			e.logger.Error("persisting rendered page",
				logfields.Slug(slug), logfields.Path(cachePath), logfields.Error(writeErr))
		}
	}

	return rendered, useCache, nil
}

func (e *Engine) loadPage(slug, sourcePath string) (*page.Page, error) {
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("missing markdown for slug %s: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("reading markdown at %s: %w", sourcePath, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, fmt.Errorf("empty markdown for slug %s: %w", slug, ErrNotFound)
	}
	return page.New(slug, sourcePath, string(content)), nil
}

// PrebuildAll renders every markdown file under the content root into the
// cache, skipping ignored directories and filtered pages. It returns the
// slugs that were rendered.
func (e *Engine) PrebuildAll() ([]string, error) {
	var slugs []string
	err := filepath.WalkDir(e.contentRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if e.isIgnoredPath(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" || e.isIgnoredPath(path) {
			return nil
		}

		slug := page.SlugFromPath(path, e.contentRoot)
		if _, renderErr := e.RenderPage(slug); renderErr != nil {
			// Only the filtered signal is benign; everything else,
			// NotFound from an unreadable or empty source included,
			// fails the whole sweep.
			if errors.Is(renderErr, ErrFiltered) {
				e.logger.Debug("skipping filtered page during prebuild",
					logfields.Slug(slug), logfields.Error(renderErr))
				return nil
			}
			return renderErr
		}
		slugs = append(slugs, slug)
		return nil
	})
	if err != nil {
		return slugs, fmt.Errorf("prebuild: %w", err)
	}
	return slugs, nil
}

// CachedSlugs lists every slug with a rendered artifact in the cache root.
func (e *Engine) CachedSlugs() ([]string, error) {
	var slugs []string
	err := filepath.WalkDir(e.cacheRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".html" {
			return nil
		}
		rel, relErr := filepath.Rel(e.cacheRoot, path)
		if relErr != nil {
			return nil
		}
		slug := filepath.ToSlash(strings.TrimSuffix(rel, ".html"))
		if slug == "" {
			slug = "index"
		}
		slugs = append(slugs, slug)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing cached slugs: %w", err)
	}
	return slugs, nil
}

func (e *Engine) sourcePathFor(slug string) string {
	path := filepath.Join(e.contentRoot, filepath.FromSlash(slug))
	if filepath.Ext(path) == "" {
		path += ".md"
	}
	return path
}

func (e *Engine) isIgnoredSlug(slug string) bool {
	return e.isIgnoredPath(e.sourcePathFor(slug))
}

// isIgnoredPath matches whole path segments under the content root against
// the configured ignore patterns.
func (e *Engine) isIgnoredPath(path string) bool {
	rel, err := filepath.Rel(e.contentRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range e.cfg.Site.IgnorePatterns {
			if segment == pattern {
				return true
			}
		}
	}
	return false
}
