package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFileAt(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o640))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestPathForSlug_MirrorsSlugDirectories(t *testing.T) {
	root := filepath.Join("/", "tmp", "build")

	require.Equal(t, filepath.Join(root, "posts", "hello.html"), PathForSlug(root, "posts/hello"))
	require.Equal(t, filepath.Join(root, "index.html"), PathForSlug(root, "index"))
	require.Equal(t, filepath.Join(root, "a", "b", "c.html"), PathForSlug(root, "a/b/c"))
}

func TestFresh_BoundaryConditions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.md")
	cached := filepath.Join(dir, "cached.html")

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFileAt(t, src, base)

	// Cache mtime equal to source mtime is fresh.
	writeFileAt(t, cached, base)
	fresh, err := Fresh(src, cached, nil)
	require.NoError(t, err)
	require.True(t, fresh)

	// Cache one second older than source is stale.
	writeFileAt(t, cached, base.Add(-time.Second))
	fresh, err = Fresh(src, cached, nil)
	require.NoError(t, err)
	require.False(t, fresh)

	// Fresh against the source but older than a dependency is stale.
	writeFileAt(t, cached, base)
	fresh, err = Fresh(src, cached, []time.Time{base.Add(time.Second)})
	require.NoError(t, err)
	require.False(t, fresh)

	// Equal to the newest dependency is fresh.
	fresh, err = Fresh(src, cached, []time.Time{base, base.Add(-time.Minute)})
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestFresh_MissingFiles_NotFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.md")
	cached := filepath.Join(dir, "cached.html")

	fresh, err := Fresh(src, cached, nil)
	require.NoError(t, err)
	require.False(t, fresh)

	writeFileAt(t, src, time.Now())
	fresh, err = Fresh(src, cached, nil)
	require.NoError(t, err)
	require.False(t, fresh)
}

func TestUpdateHashMarker_RewritesOnlyOnChange(t *testing.T) {
	root := t.TempDir()

	first, err := UpdateHashMarker(root, "theme", "aaaa")
	require.NoError(t, err)

	// Backdate the marker; an unchanged hash must not rewrite it.
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	marker := filepath.Join(root, ".theme_hash")
	require.NoError(t, os.Chtimes(marker, past, past))

	same, err := UpdateHashMarker(root, "theme", "aaaa")
	require.NoError(t, err)
	require.True(t, same.Equal(past), "unchanged hash rewrote the marker")

	// A changed hash refreshes the marker mtime.
	changed, err := UpdateHashMarker(root, "theme", "bbbb")
	require.NoError(t, err)
	require.True(t, changed.After(past))
	_ = first
}

func TestNewestMtimeWithExt_PicksNewestMatching(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	newer := time.Now().Add(-time.Hour).Truncate(time.Second)

	writeFileAt(t, filepath.Join(dir, "a.css"), old)
	writeFileAt(t, filepath.Join(dir, "nested", "b.css"), newer)
	// Non-matching extension must be ignored even when newest.
	writeFileAt(t, filepath.Join(dir, "c.txt"), time.Now())

	got := NewestMtimeWithExt(dir, "css")
	require.True(t, got.Equal(newer))
}

func TestNewestMtimeWithExt_MissingDir_ZeroTime(t *testing.T) {
	require.True(t, NewestMtimeWithExt(filepath.Join(t.TempDir(), "nope"), "css").IsZero())
}

func TestTokens_ResolveUniformly(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	at := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFileAt(t, cfgPath, at)

	ts, err := FileToken("config", cfgPath).Resolve()
	require.NoError(t, err)
	require.True(t, ts.Equal(at))

	// Absent file resolves to zero, never invalidating.
	ts, err = FileToken("config", filepath.Join(dir, "missing")).Resolve()
	require.NoError(t, err)
	require.True(t, ts.IsZero())

	hashTok := HashToken("theme", dir, func() string { return "abc" })
	ts, err = hashTok.Resolve()
	require.NoError(t, err)
	require.False(t, ts.IsZero())

	times, errs := ResolveAll([]Token{FileToken("config", cfgPath), hashTok, BinaryToken()})
	require.Empty(t, errs)
	require.Len(t, times, 3)
}
