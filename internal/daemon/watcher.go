// Package daemon runs the serve-mode background machinery: the content
// watcher and the periodic prebuild scheduler.
package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/trellis/internal/logfields"
)

// ContentWatcher monitors the content tree and invokes onChange after a
// debounce window, coalescing editor save bursts into one rebuild.
type ContentWatcher struct {
	contentRoot string
	onChange    func()
	debounce    time.Duration
	logger      *slog.Logger

	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	stopChan   chan struct{}
	changeChan chan struct{}
}

func NewContentWatcher(contentRoot string, debounce time.Duration, onChange func(), logger *slog.Logger) (*ContentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(contentRoot)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve content root: %w", err)
	}

	return &ContentWatcher{
		contentRoot: abs,
		onChange:    onChange,
		debounce:    debounce,
		logger:      logger,
		watcher:     watcher,
		stopChan:    make(chan struct{}),
		changeChan:  make(chan struct{}, 1),
	}, nil
}

// Start registers every directory under the content root and begins watching.
// New subdirectories are added as their create events arrive.
func (w *ContentWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := filepath.WalkDir(w.contentRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch content tree: %w", err)
	}

	w.logger.Info("content watcher started", logfields.Path(w.contentRoot))

	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop shuts the watcher down.
func (w *ContentWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	close(w.stopChan)
	return w.watcher.Close()
}

func (w *ContentWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// Best effort: a created directory needs its own watch.
				_ = w.watcher.Add(event.Name)
			}
			if w.relevant(event) {
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("content watcher error", logfields.Error(err))
		}
	}
}

// relevant filters out noise: only markdown writes, creates, removes, and
// renames matter to the page cache.
func (w *ContentWatcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".md" || ext == ""
}

func (w *ContentWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.onChange)
		}
	}
}

func (w *ContentWatcher) trigger() {
	select {
	case w.changeChan <- struct{}{}:
	default:
	}
}
