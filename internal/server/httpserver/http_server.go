// Package httpserver serves rendered pages, assets, and the admin surface.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/trellis/internal/bundles"
	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/engine"
	terrors "git.home.luguber.info/inful/trellis/internal/errors"
	"git.home.luguber.info/inful/trellis/internal/events"
	"git.home.luguber.info/inful/trellis/internal/eventstore"
	"git.home.luguber.info/inful/trellis/internal/logfields"
	"git.home.luguber.info/inful/trellis/internal/metrics"
	"git.home.luguber.info/inful/trellis/internal/page"
	"git.home.luguber.info/inful/trellis/internal/server/middleware"
)

// Server wires the engine and asset caches behind an HTTP listener.
type Server struct {
	cfg       *config.Config
	engine    *engine.Engine
	styles    StyleSource
	bundles   *bundles.Cache
	store     eventstore.Store
	publisher events.Publisher
	registry  *prometheus.Registry
	logger    *slog.Logger
	adapter   *terrors.HTTPErrorAdapter

	httpServer *http.Server
}

// StyleSource supplies the combined stylesheet.
type StyleSource interface {
	CSS() string
}

// Options carries the optional collaborators; nil fields get no-op defaults.
type Options struct {
	Styles    StyleSource
	Bundles   *bundles.Cache
	Store     eventstore.Store
	Publisher events.Publisher
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

func New(cfg *config.Config, eng *engine.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	s := &Server{
		cfg:       cfg,
		engine:    eng,
		styles:    opts.Styles,
		bundles:   opts.Bundles,
		store:     opts.Store,
		publisher: publisher,
		registry:  opts.Registry,
		logger:    logger,
		adapter:   terrors.NewHTTPErrorAdapter(logger),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return s
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /styles.css", s.handleStyles)
	mux.Handle("GET /static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(filepath.Join(s.engine.CacheRoot(), "static")))))
	mux.HandleFunc("GET /admin/renders", s.handleRecentRenders)
	if s.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.registry))
	}
	mux.HandleFunc("GET /", s.handlePage)

	return middleware.Chain(s.logger, s.adapter)(mux)
}

// Start runs the listener until the context is cancelled, then drains.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if s.styles == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(s.styles.CSS()))
}

func (s *Server) handleRecentRenders(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	recent, err := s.store.Recent(r.Context(), 50)
	if err != nil {
		s.adapter.WriteErrorResponse(w,
			terrors.Wrap(err, terrors.CategoryInternal, terrors.SeverityError, "loading render history"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recent)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(r.URL.Path, "/")
	if slug == "" {
		slug = "index"
	}

	start := time.Now()
	rendered, err := s.engine.RenderPage(slug)
	if err != nil {
		// Filtered pages are indistinguishable from missing ones to clients.
		if errors.Is(err, engine.ErrNotFound) || errors.Is(err, engine.ErrFiltered) {
			s.adapter.WriteErrorResponse(w,
				terrors.New(terrors.CategoryContent, terrors.SeverityWarning, "page not found").
					WithContext("slug", slug))
			return
		}
		if terrors.IsCategory(err, terrors.CategoryParse) {
			s.adapter.WriteErrorResponse(w, err)
			return
		}
		s.logger.Error("rendering page", logfields.Slug(slug), logfields.Error(err))
		s.adapter.WriteErrorResponse(w,
			terrors.Wrap(err, terrors.CategoryInternal, terrors.SeverityError, "rendering page"))
		return
	}

	s.recordRender(r.Context(), rendered, time.Since(start))

	etag := `"` + rendered.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderLayout(w, rendered); err != nil {
		s.logger.Error("writing page response", logfields.Slug(slug), logfields.Error(err))
	}
}

// recordRender persists and publishes the render, best effort on both legs.
func (s *Server) recordRender(ctx context.Context, rendered *page.RenderedPage, elapsed time.Duration) {
	outcome := "fresh"
	if rendered.Cached {
		outcome = "cached"
	}

	if s.store != nil {
		if err := s.store.Append(ctx, eventstore.RenderEvent{
			Slug:     rendered.Slug,
			Outcome:  outcome,
			Cached:   rendered.Cached,
			Duration: elapsed,
		}); err != nil {
			s.logger.Warn("recording render event", logfields.Slug(rendered.Slug), logfields.Error(err))
		}
	}

	if err := s.publisher.PublishPageRendered(ctx, events.PageRendered{
		Slug:        rendered.Slug,
		Cached:      rendered.Cached,
		Fingerprint: rendered.Fingerprint,
		DurationMS:  elapsed.Milliseconds(),
	}); err != nil {
		s.logger.Warn("publishing render event", logfields.Slug(rendered.Slug), logfields.Error(err))
	}
}
