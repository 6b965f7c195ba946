package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/trellis/internal/config"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ContentRoot = filepath.Join(root, "content")
	cfg.Paths.CacheRoot = filepath.Join(root, "build")
	cfg.Paths.StylesDir = filepath.Join(root, "styles")
	require.NoError(t, os.MkdirAll(cfg.Paths.ContentRoot, 0o750))

	eng, err := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})), nil)
	require.NoError(t, err)
	return eng, cfg.Paths.ContentRoot
}

func writePage(t *testing.T, contentRoot, rel, content string) string {
	t.Helper()
	path := filepath.Join(contentRoot, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	// Backdate so a cache file written "now" is never older than its source.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, past, past))
	return path
}

func TestRenderPage_FreshThenCached(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	writePage(t, contentRoot, "posts/hello.md", "---\ntitle: Hello\n---\n# Hello\n\nSee [[posts/other]].")

	first, err := eng.RenderPage("posts/hello")
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, "Hello", first.Meta.Title)
	require.Contains(t, first.HTML, `href="/posts/other"`)
	require.NotEmpty(t, first.Fingerprint)
	require.FileExists(t, filepath.Join(eng.CacheRoot(), "posts", "hello.html"))

	second, err := eng.RenderPage("posts/hello")
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.HTML, second.HTML)
	require.Equal(t, first.Fingerprint, second.Fingerprint)
	// Metadata still comes from the live source on cache hits.
	require.Equal(t, "Hello", second.Meta.Title)
}

func TestRenderPage_SourceTouchInvalidates(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	path := writePage(t, contentRoot, "note.md", "# One")

	first, err := eng.RenderPage("note")
	require.NoError(t, err)
	require.False(t, first.Cached)

	require.NoError(t, os.WriteFile(path, []byte("# Two"), 0o640))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	second, err := eng.RenderPage("note")
	require.NoError(t, err)
	require.False(t, second.Cached)
	require.Contains(t, second.HTML, "Two")
}

func TestRenderPage_MissingAndEmpty_NotFound(t *testing.T) {
	eng, contentRoot := newTestEngine(t)

	_, err := eng.RenderPage("nope")
	require.ErrorIs(t, err, ErrNotFound)

	writePage(t, contentRoot, "blank.md", "   \n\t\n")
	_, err = eng.RenderPage("blank")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRenderPage_IgnoredSlug_NotFound(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	writePage(t, contentRoot, "private/secret.md", "# Secret")

	// A stale cache artifact must not resurrect an ignored slug.
	stale := filepath.Join(eng.CacheRoot(), "private", "secret.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("<p>leak</p>"), 0o640))

	_, err := eng.RenderPage("private/secret")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, eng.PageExists("private/secret"))
}

func TestRenderPage_Draft_Filtered(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	writePage(t, contentRoot, "wip.md", "---\ndraft: true\n---\n# WIP")

	_, err := eng.RenderPage("wip")
	require.ErrorIs(t, err, ErrFiltered)
}

func TestPageExists(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	writePage(t, contentRoot, "here.md", "# Here")

	require.True(t, eng.PageExists("here"))
	require.False(t, eng.PageExists("gone"))
}

func TestPrebuildAll_SkipsDraftsAndIgnored(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	writePage(t, contentRoot, "a.md", "# A")
	writePage(t, contentRoot, "nested/b.md", "# B")
	writePage(t, contentRoot, "draft.md", "---\ndraft: true\n---\n# D")
	writePage(t, contentRoot, "private/c.md", "# C")
	writePage(t, contentRoot, "notes.txt", "not markdown")

	slugs, err := eng.PrebuildAll()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "nested/b"}, slugs)

	cached, err := eng.CachedSlugs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "nested/b"}, cached)
}

func TestPrebuildAll_EmptySourceFailsBatch(t *testing.T) {
	eng, contentRoot := newTestEngine(t)
	writePage(t, contentRoot, "ok.md", "# OK")
	writePage(t, contentRoot, "empty.md", "   \n\t\n")

	// Only filtered pages are skipped; an empty source fails the sweep.
	_, err := eng.PrebuildAll()
	require.ErrorIs(t, err, ErrNotFound)
}
