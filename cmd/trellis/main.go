package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/trellis/internal/bundles"
	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/contentindex"
	"git.home.luguber.info/inful/trellis/internal/daemon"
	"git.home.luguber.info/inful/trellis/internal/engine"
	"git.home.luguber.info/inful/trellis/internal/events"
	"git.home.luguber.info/inful/trellis/internal/eventstore"
	"git.home.luguber.info/inful/trellis/internal/gitsync"
	"git.home.luguber.info/inful/trellis/internal/logfields"
	"git.home.luguber.info/inful/trellis/internal/metrics"
	"git.home.luguber.info/inful/trellis/internal/server/httpserver"
	"git.home.luguber.info/inful/trellis/internal/styles"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct {
		Addr string `short:"a" help:"Listen address (overrides config)"`
	} `cmd:"" help:"Serve the content tree over HTTP with live rebuilds"`

	Build struct{} `cmd:"" help:"Pre-render every page into the cache and exit"`

	Index struct{} `cmd:"" help:"Regenerate content-index.json and exit"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`
}

func main() {
	// Local .env is optional; missing files are fine.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	var err error
	switch ctx.Command() {
	case "serve":
		err = runServe(logger)
	case "build":
		err = runBuild(logger)
	case "index":
		err = runIndex(logger)
	case "init":
		err = runInit(logger)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		logger.Error("command failed", logfields.Error(err))
		os.Exit(1)
	}
}

func runServe(logger *slog.Logger) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Serve.Addr != "" {
		cfg.Server.Addr = CLI.Serve.Addr
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	eng, err := engine.New(cfg, logger, recorder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer := gitsync.New(cfg.GitSync, cfg.Paths.ContentRoot, logger)
	if syncer.Enabled() {
		if err := syncer.Sync(ctx); err != nil {
			logger.Warn("content sync failed, serving local tree", logfields.Error(err))
		}
	}

	store, err := eventstore.NewSQLiteStore(filepath.Join(eng.CacheRoot(), "render-events.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		natsPub, pubErr := events.NewNATSPublisher(cfg.Events, logger)
		if pubErr != nil {
			logger.Warn("event publishing disabled", logfields.Error(pubErr))
		} else {
			publisher = natsPub
			defer natsPub.Close()
		}
	}

	theme := cfg.Theme
	styleCache := styles.NewCache(cfg.Paths.StylesDir,
		func() config.ThemeConfig { return theme }, logger, recorder)
	bundleCache := bundles.NewCache(cfg.Paths.ScriptsDir,
		filepath.Join(cfg.Paths.ScriptsDir, "util"), logger, recorder)

	indexer := contentindex.NewGenerator(cfg, logger)

	prebuild := func() error {
		if syncErr := syncer.Sync(ctx); syncErr != nil {
			logger.Warn("content sync failed", logfields.Error(syncErr))
		}
		slugs, buildErr := eng.PrebuildAll()
		if buildErr != nil {
			return buildErr
		}
		if _, idxErr := indexer.Generate(); idxErr != nil {
			logger.Warn("content index generation failed", logfields.Error(idxErr))
		}
		logger.Info("prebuild complete", slog.Int("pages", len(slugs)))
		return nil
	}

	if err := prebuild(); err != nil {
		logger.Warn("initial prebuild failed, serving on demand", logfields.Error(err))
	}

	if cfg.Daemon.Watch {
		watcher, watchErr := daemon.NewContentWatcher(cfg.Paths.ContentRoot, cfg.WatchDebounce(),
			func() {
				if buildErr := prebuild(); buildErr != nil {
					logger.Error("rebuild after content change failed", logfields.Error(buildErr))
				}
			}, logger)
		if watchErr != nil {
			logger.Warn("content watching disabled", logfields.Error(watchErr))
		} else {
			if startErr := watcher.Start(ctx); startErr != nil {
				logger.Warn("content watching disabled", logfields.Error(startErr))
			} else {
				defer watcher.Stop()
			}
		}
	}

	if interval := cfg.PrebuildInterval(); interval > 0 {
		scheduler, schedErr := daemon.NewScheduler(logger)
		if schedErr != nil {
			return schedErr
		}
		if err := scheduler.SchedulePrebuild(interval, prebuild); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { _ = scheduler.Stop() }()
	}

	srv := httpserver.New(cfg, eng, httpserver.Options{
		Styles:    styleCache,
		Bundles:   bundleCache,
		Store:     store,
		Publisher: publisher,
		Registry:  registry,
		Logger:    logger,
	})
	return srv.Start(ctx)
}

func runBuild(logger *slog.Logger) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg, logger, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	slugs, err := eng.PrebuildAll()
	if err != nil {
		return err
	}
	if _, err := contentindex.NewGenerator(cfg, logger).Generate(); err != nil {
		return err
	}
	logger.Info("build complete", slog.Int("pages", len(slugs)))
	return nil
}

func runIndex(logger *slog.Logger) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	count, err := contentindex.NewGenerator(cfg, logger).Generate()
	if err != nil {
		return err
	}
	logger.Info("content index written", slog.Int("entries", count))
	return nil
}

const starterConfig = `site:
  page_title: Trellis
  tagline: a personal knowledge garden
  locale: en-US
  ignore_patterns: [private, templates, .obsidian]

paths:
  content_root: content
  cache_root: build
  styles_dir: assets/styles
  scripts_dir: assets/scripts

server:
  addr: ":8080"

daemon:
  watch: true
  prebuild_interval_minutes: 30
`

func runInit(logger *slog.Logger) error {
	if _, err := os.Stat(CLI.Config); err == nil && !CLI.Init.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", CLI.Config)
	}
	if err := os.WriteFile(CLI.Config, []byte(starterConfig), 0o640); err != nil {
		return fmt.Errorf("write starter config: %w", err)
	}
	logger.Info("configuration written", logfields.Path(CLI.Config))
	return nil
}
