// Package watcher provides file watching with debouncing using fsnotify.
// manifest.go re-resolves a session's permissions whenever its manifest
// changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/permissions"
)

// DefaultDebounce collapses editor save bursts into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Event is delivered after every (re)load of the watched manifest.
type Event struct {
	Path         string
	Manifest     *manifest.Manifest // normalized; nil when Err is set
	Warnings     []string
	Capabilities *permissions.CapabilitySet
	Err          error
	At           time.Time
}

// Handler receives reload events on the watcher goroutine.
type Handler func(Event)

// ManifestWatcher watches one manifest file.
type ManifestWatcher struct {
	path        string
	debounce    time.Duration
	handler     Handler
	logger      *slog.Logger
	resolveOpts permissions.Options
	policy      permissions.FallbackPolicy

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastMode catalog.Mode
	running  bool
}

// ManifestWatcherOption configures a ManifestWatcher.
type ManifestWatcherOption func(*ManifestWatcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) ManifestWatcherOption {
	return func(w *ManifestWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithHandler sets the reload callback.
func WithHandler(h Handler) ManifestWatcherOption {
	return func(w *ManifestWatcher) {
		w.handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManifestWatcherOption {
	return func(w *ManifestWatcher) {
		w.logger = l
	}
}

// WithResolveOptions sets the options passed to permissions.Resolve.
func WithResolveOptions(opts permissions.Options) ManifestWatcherOption {
	return func(w *ManifestWatcher) {
		w.resolveOpts = opts
	}
}

// WithFallbackPolicy sets the policy used when the manifest becomes
// unreadable.
func WithFallbackPolicy(p permissions.FallbackPolicy) ManifestWatcherOption {
	return func(w *ManifestWatcher) {
		w.policy = p
	}
}

// NewManifestWatcher creates a watcher for the manifest at path.
func NewManifestWatcher(path string, opts ...ManifestWatcherOption) *ManifestWatcher {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	w := &ManifestWatcher{
		path:     abs,
		debounce: DefaultDebounce,
		policy:   permissions.PolicySafeDegraded,
		lastMode: catalog.ModeWorker,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *ManifestWatcher) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

// Path returns the absolute path being watched.
func (w *ManifestWatcher) Path() string {
	return w.path
}

// Start loads the manifest once, emits the result, and begins watching.
// The manifest's directory is watched rather than the file so that
// editors which save by rename keep being followed.
func (w *ManifestWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true

	w.reload()

	w.wg.Add(1)
	go w.run(ctx, fsw)
	w.log().Debug("watching manifest", "path", w.path, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *ManifestWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, fsw := w.cancel, w.fsw
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	if err := fsw.Close(); err != nil {
		w.log().Warn("closing manifest watcher", "error", err)
	}
}

func (w *ManifestWatcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log().Debug("manifest event", "op", event.Op.String(), "path", event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log().Warn("manifest watcher error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *ManifestWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// reload loads, normalizes and resolves the manifest, publishes the
// resulting CapabilitySet as current, and calls the handler.
func (w *ManifestWatcher) reload() {
	ev := Event{Path: w.path, At: time.Now()}

	m, err := manifest.Load(w.path)
	if err != nil {
		ev.Err = err
		ev.Capabilities = permissions.ResolveManifestFailure(w.lastMode, w.policy)
		w.log().Warn("manifest reload failed", "path", w.path, "error", err)
	} else {
		res := manifest.Normalize(m)
		ev.Manifest = res.Manifest
		ev.Warnings = res.Warnings
		opts := w.resolveOpts
		opts.IsMasterSession = opts.IsMasterSession || res.Manifest.IsMaster
		ev.Capabilities = permissions.Resolve(res.Manifest, opts)
		w.lastMode = res.Manifest.Mode
	}

	permissions.SetCurrent(ev.Capabilities)
	w.log().Info("manifest reloaded",
		"path", w.path,
		"mode", ev.Capabilities.Mode,
		"resolution", ev.Capabilities.Resolution,
		"commands", len(ev.Capabilities.AllowedCommands),
	)
	if w.handler != nil {
		w.handler(ev)
	}
}
