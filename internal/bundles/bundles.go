// Package bundles assembles the inline client scripts (explorer, encrypted
// note decryptor, mermaid bootstrap, ...) and memoizes them against the
// newest script mtime so unchanged assets are never re-read per request.
package bundles

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/trellis/internal/cache"
	"git.home.luguber.info/inful/trellis/internal/logfields"
	"git.home.luguber.info/inful/trellis/internal/metrics"
)

// Kind names one inline script bundle. The entry file on disk is
// "<kind>.inline.js" under the scripts directory.
type Kind string

const (
	KindExplorer        Kind = "explorer"
	KindOverlayExplorer Kind = "overlay-explorer"
	KindEncryptedNote   Kind = "encrypted-note"
	KindMermaid         Kind = "mermaid"
	KindCallouts        Kind = "callouts"
	KindGraph           Kind = "graph"
)

// AllKinds is the fixed bundle set, in emission order.
var AllKinds = []Kind{
	KindExplorer, KindOverlayExplorer, KindEncryptedNote,
	KindMermaid, KindCallouts, KindGraph,
}

// Cache holds assembled bundles keyed by the newest mtime across the script
// and util directories. Replacement is monotonic: a rebuild only lands if its
// observed mtime is at least as new as the stored one, so a concurrent
// rebuild against newer sources is never clobbered by a stale one.
type Cache struct {
	scriptsDir string
	utilDir    string
	logger     *slog.Logger
	recorder   metrics.Recorder

	mu      sync.RWMutex
	bundles map[Kind]string
	mtime   time.Time
}

// NewCache builds a bundle cache over the given asset directories.
func NewCache(scriptsDir, utilDir string, logger *slog.Logger, recorder metrics.Recorder) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Cache{
		scriptsDir: scriptsDir,
		utilDir:    utilDir,
		logger:     logger,
		recorder:   recorder,
		bundles:    map[Kind]string{},
	}
}

// Scripts returns the requested bundles, rebuilding everything when any
// script source is newer than the cached assembly. Bundles whose entry file
// is missing are simply absent from the result.
func (c *Cache) Scripts(needs ...Kind) map[Kind]string {
	newest := c.newestSourceMtime()

	c.mu.RLock()
	if !c.mtime.Before(newest) {
		out := c.pick(needs)
		c.mu.RUnlock()
		return out
	}
	c.mu.RUnlock()

	return c.rebuild(newest, needs)
}

// rebuild assembles every bundle and installs the result keyed by the mtime
// the caller observed before reading sources. The install is skipped when a
// racing rebuild against newer sources already landed, so a slow stale
// rebuild never rolls the cache back.
func (c *Cache) rebuild(newest time.Time, needs []Kind) map[Kind]string {
	built := map[Kind]string{}
	for _, kind := range AllKinds {
		code, err := c.assemble(kind)
		if err != nil {
			if !os.IsNotExist(err) {
				c.logger.Warn("assembling script bundle",
					slog.String("bundle", string(kind)), logfields.Error(err))
			}
			continue
		}
		built[kind] = code
		c.recorder.IncBundleRebuild(string(kind))
	}

	c.mu.Lock()
	if !newest.Before(c.mtime) {
		c.bundles = built
		c.mtime = newest
	}
	out := c.pick(needs)
	c.mu.Unlock()
	return out
}

// Get returns one bundle, or "" when its entry is missing.
func (c *Cache) Get(kind Kind) string {
	return c.Scripts(kind)[kind]
}

// pick copies the requested subset out of the cached map. Callers must hold
// at least a read lock.
func (c *Cache) pick(needs []Kind) map[Kind]string {
	out := make(map[Kind]string, len(needs))
	for _, kind := range needs {
		if code, ok := c.bundles[kind]; ok {
			out[kind] = code
		}
	}
	return out
}

// assemble concatenates the shared util scripts (sorted for stable output)
// with the bundle's entry file. Import and export statements are dropped:
// the assembly runs as one classic inline script.
func (c *Cache) assemble(kind Kind) (string, error) {
	entry := filepath.Join(c.scriptsDir, string(kind)+".inline.js")
	entryCode, err := os.ReadFile(entry)
	if err != nil {
		return "", err
	}

	var parts []string
	utils, _ := os.ReadDir(c.utilDir)
	names := make([]string, 0, len(utils))
	for _, d := range utils {
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".js") {
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		code, readErr := os.ReadFile(filepath.Join(c.utilDir, name))
		if readErr != nil {
			return "", fmt.Errorf("reading util script %s: %w", name, readErr)
		}
		parts = append(parts, stripModuleSyntax(string(code)))
	}
	parts = append(parts, stripModuleSyntax(string(entryCode)))

	return strings.Join(parts, "\n"), nil
}

// newestSourceMtime covers both directories; a bundle depends on every util
// file regardless of which it references.
func (c *Cache) newestSourceMtime() time.Time {
	newest := cache.NewestMtimeWithExt(c.scriptsDir, "js")
	if util := cache.NewestMtimeWithExt(c.utilDir, "js"); util.After(newest) {
		newest = util
	}
	return newest
}

// stripModuleSyntax removes import lines and export keywords so module
// sources concatenate into a single classic script.
func stripModuleSyntax(code string) string {
	lines := strings.Split(code, "\n")
	out := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "import{") {
			continue
		}
		line = strings.Replace(line, "export default ", "", 1)
		line = strings.Replace(line, "export ", "", 1)
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
