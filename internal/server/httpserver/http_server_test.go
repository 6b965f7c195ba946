package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/engine"
	"git.home.luguber.info/inful/trellis/internal/eventstore"
	"git.home.luguber.info/inful/trellis/internal/styles"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Site.PageTitleSuffix = " | Garden"
	cfg.Paths.ContentRoot = filepath.Join(root, "content")
	cfg.Paths.CacheRoot = filepath.Join(root, "build")
	cfg.Paths.StylesDir = filepath.Join(root, "styles")
	require.NoError(t, os.MkdirAll(cfg.Paths.ContentRoot, 0o750))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	eng, err := engine.New(cfg, logger, nil)
	require.NoError(t, err)

	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	theme := cfg.Theme
	srv := New(cfg, eng, Options{
		Styles: styles.NewCache(cfg.Paths.StylesDir, func() config.ThemeConfig { return theme }, logger, nil),
		Store:  store,
		Logger: logger,
	})
	return srv, cfg
}

func writePage(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	path := filepath.Join(cfg.Paths.ContentRoot, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
}

func get(t *testing.T, srv *Server, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandlePage_RendersWithLayout(t *testing.T) {
	srv, cfg := newTestServer(t)
	writePage(t, cfg, "posts/hello.md", "---\ntitle: Hello\n---\n# Hello")

	rec := get(t, srv, "/posts/hello", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<title>Hello | Garden</title>")
	require.Contains(t, rec.Body.String(), "<h1")
	require.NotEmpty(t, rec.Header().Get("ETag"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHandlePage_RootServesIndex(t *testing.T) {
	srv, cfg := newTestServer(t)
	writePage(t, cfg, "index.md", "# Home")

	rec := get(t, srv, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Home")
}

func TestHandlePage_MissingAndDraftAre404(t *testing.T) {
	srv, cfg := newTestServer(t)
	writePage(t, cfg, "wip.md", "---\ndraft: true\n---\n# WIP")

	require.Equal(t, http.StatusNotFound, get(t, srv, "/nope", nil).Code)
	require.Equal(t, http.StatusNotFound, get(t, srv, "/wip", nil).Code)
}

func TestHandlePage_MalformedFrontmatterIs422(t *testing.T) {
	srv, cfg := newTestServer(t)
	writePage(t, cfg, "broken.md", "---\ntitle: never closed")

	rec := get(t, srv, "/broken", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "parse", body["category"])
}

func TestHandlePage_ETagRoundTrip(t *testing.T) {
	srv, cfg := newTestServer(t)
	writePage(t, cfg, "note.md", "# Note")

	first := get(t, srv, "/note", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := get(t, srv, "/note", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, second.Code)
	require.Empty(t, second.Body.String())
}

func TestHandleStyles(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/styles.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	require.Contains(t, rec.Body.String(), ":root")
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestHandleRecentRenders(t *testing.T) {
	srv, cfg := newTestServer(t)
	writePage(t, cfg, "tracked.md", "# Tracked")

	require.Equal(t, http.StatusOK, get(t, srv, "/tracked", nil).Code)

	rec := get(t, srv, "/admin/renders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []eventstore.RenderEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.NotEmpty(t, events)
	require.Equal(t, "tracked", events[0].Slug)
}

func TestStaticServesContentIndex(t *testing.T) {
	srv, cfg := newTestServer(t)
	staticDir := filepath.Join(cfg.Paths.CacheRoot, "static")
	require.NoError(t, os.MkdirAll(staticDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "content-index.json"), []byte(`{}`), 0o640))

	rec := get(t, srv, "/static/content-index.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "{}", rec.Body.String())
}
