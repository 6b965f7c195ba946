package bundles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, string, string) {
	t.Helper()
	root := t.TempDir()
	scripts := filepath.Join(root, "scripts")
	util := filepath.Join(root, "util")
	require.NoError(t, os.MkdirAll(scripts, 0o750))
	require.NoError(t, os.MkdirAll(util, 0o750))
	return NewCache(scripts, util, nil, nil), scripts, util
}

func writeScript(t *testing.T, path, code string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(code), 0o640))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestScripts_AssemblesUtilThenEntry(t *testing.T) {
	c, scripts, util := newTestCache(t)
	past := time.Now().Add(-time.Hour)
	writeScript(t, filepath.Join(util, "b.js"), "function later() {}", past)
	writeScript(t, filepath.Join(util, "a.js"), "function first() {}", past)
	writeScript(t, filepath.Join(scripts, "explorer.inline.js"), "first(); later();", past)

	got := c.Scripts(KindExplorer)
	require.Contains(t, got, KindExplorer)
	code := got[KindExplorer]
	// Util files concatenate in name order, entry comes last.
	require.Less(t, strings.Index(code, "first"), strings.Index(code, "later"))
	require.Less(t, strings.Index(code, "function later"), strings.Index(code, "first(); later();"))
}

func TestScripts_MissingEntryOmitted(t *testing.T) {
	c, scripts, _ := newTestCache(t)
	writeScript(t, filepath.Join(scripts, "mermaid.inline.js"), "mermaid.run();", time.Now().Add(-time.Hour))

	got := c.Scripts(KindMermaid, KindGraph)
	require.Contains(t, got, KindMermaid)
	require.NotContains(t, got, KindGraph)
}

func TestScripts_StripsModuleSyntax(t *testing.T) {
	c, scripts, util := newTestCache(t)
	past := time.Now().Add(-time.Hour)
	writeScript(t, filepath.Join(util, "dom.js"), "import { x } from '/js/util/x';\nexport function q(sel) {}", past)
	writeScript(t, filepath.Join(scripts, "callouts.inline.js"), "q('.callout');", past)

	code := c.Get(KindCallouts)
	require.NotContains(t, code, "import ")
	require.NotContains(t, code, "export ")
	require.Contains(t, code, "function q(sel)")
}

func TestScripts_CachesUntilSourceChanges(t *testing.T) {
	c, scripts, _ := newTestCache(t)
	entry := filepath.Join(scripts, "graph.inline.js")
	past := time.Now().Add(-time.Hour)
	writeScript(t, entry, "v1();", past)

	require.Contains(t, c.Get(KindGraph), "v1")

	// Rewriting with the same mtime must serve the cached assembly.
	require.NoError(t, os.WriteFile(entry, []byte("v2();"), 0o640))
	require.NoError(t, os.Chtimes(entry, past, past))
	require.Contains(t, c.Get(KindGraph), "v1")

	// A newer mtime triggers the rebuild.
	now := time.Now()
	require.NoError(t, os.Chtimes(entry, now, now))
	require.Contains(t, c.Get(KindGraph), "v2")
}

func TestScripts_StaleRebuildDoesNotRegress(t *testing.T) {
	c, scripts, _ := newTestCache(t)
	entry := filepath.Join(scripts, "graph.inline.js")
	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-time.Hour)

	writeScript(t, entry, "v2();", newer)
	require.Contains(t, c.Get(KindGraph), "v2")

	// A rebuild that observed the sources at an older mtime and finishes
	// after the newer one must not roll the cache back.
	writeScript(t, entry, "v1();", older)
	got := c.rebuild(older, []Kind{KindGraph})
	require.Contains(t, got[KindGraph], "v2")
	require.Contains(t, c.Get(KindGraph), "v2")

	// Equal mtime may land: replacement is >= on the freshness key.
	writeScript(t, entry, "v3();", newer)
	got = c.rebuild(newer, []Kind{KindGraph})
	require.Contains(t, got[KindGraph], "v3")
}
