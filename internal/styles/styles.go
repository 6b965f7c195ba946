// Package styles serves the site stylesheet: the theme's CSS custom
// properties followed by every stylesheet under the styles directory,
// memoized against the newest source mtime.
package styles

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/trellis/internal/cache"
	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/logfields"
	"git.home.luguber.info/inful/trellis/internal/metrics"
)

// Cache assembles and memoizes the combined stylesheet. The theme variables
// block is always regenerated from the live theme config; only the on-disk
// stylesheet concatenation is cached. Replacement is monotonic so a rebuild
// against older sources never overwrites a newer one.
type Cache struct {
	stylesDir string
	theme     func() config.ThemeConfig
	logger    *slog.Logger
	recorder  metrics.Recorder

	mu    sync.RWMutex
	css   string
	mtime time.Time
}

func NewCache(stylesDir string, theme func() config.ThemeConfig, logger *slog.Logger, recorder metrics.Recorder) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Cache{stylesDir: stylesDir, theme: theme, logger: logger, recorder: recorder}
}

// CSS returns the full stylesheet: theme variables first, then every .css
// file under the styles directory in path order.
func (c *Cache) CSS() string {
	return c.theme().CSSVariables() + "\n" + c.sheets()
}

func (c *Cache) sheets() string {
	newest := cache.NewestMtimeWithExt(c.stylesDir, "css")

	c.mu.RLock()
	if !c.mtime.Before(newest) {
		css := c.css
		c.mu.RUnlock()
		return css
	}
	c.mu.RUnlock()

	return c.rebuild(newest)
}

// rebuild concatenates the stylesheets and installs the result keyed by the
// mtime the caller observed before reading sources. A stale rebuild losing
// the race to one against newer sources leaves the newer entry in place.
func (c *Cache) rebuild(newest time.Time) string {
	built := c.concatenate()
	c.recorder.IncStylesRebuild()

	c.mu.Lock()
	if !newest.Before(c.mtime) {
		c.css = built
		c.mtime = newest
	}
	css := c.css
	c.mu.Unlock()
	return css
}

func (c *Cache) concatenate() string {
	var paths []string
	err := filepath.WalkDir(c.stylesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".css") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		c.logger.Warn("walking styles directory", logfields.Path(c.stylesDir), logfields.Error(err))
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			c.logger.Warn("reading stylesheet", logfields.Path(path), logfields.Error(readErr))
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}
