package watcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/permissions"
)

const waitTimeout = 5 * time.Second

func writeManifest(t *testing.T, path, mode string) {
	t.Helper()
	data := `{"manifestVersion":"1.0","mode":"` + mode + `","tasks":[{"id":"t1","title":"x"}],"session":{}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for reload event")
		return Event{}
	}
}

func startWatcher(t *testing.T, path string) (*ManifestWatcher, <-chan Event) {
	t.Helper()
	events := make(chan Event, 16)
	w := NewManifestWatcher(path,
		WithDebounce(20*time.Millisecond),
		WithHandler(func(ev Event) { events <- ev }),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		w.Stop()
		permissions.ClearCurrent()
	})
	return w, events
}

func TestManifestWatcher_InitialLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	writeManifest(t, path, "execute")

	_, events := startWatcher(t, path)

	ev := next(t, events)
	if ev.Err != nil {
		t.Fatalf("initial event error = %v", ev.Err)
	}
	if ev.Manifest.Mode != catalog.ModeWorker || len(ev.Warnings) == 0 {
		t.Errorf("initial event = mode %s warnings %v, want normalized worker with warnings", ev.Manifest.Mode, ev.Warnings)
	}
	if ev.Capabilities.Resolution != permissions.ResolutionManifest {
		t.Errorf("Resolution = %s, want manifest", ev.Capabilities.Resolution)
	}

	writeManifest(t, path, "coordinator")
	ev = next(t, events)
	if ev.Err != nil || ev.Capabilities.Mode != catalog.ModeCoordinator {
		t.Fatalf("reload event = %+v, want coordinator", ev)
	}
	if !ev.Capabilities.Flag(permissions.FlagCanSpawnSessions) {
		t.Error("coordinator reload should grant spawn")
	}
	if cur, ok := permissions.Current(); !ok || cur != ev.Capabilities {
		t.Error("reload should publish the new set as current")
	}
}

func TestManifestWatcher_UnreadableFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	writeManifest(t, path, "coordinator")

	_, events := startWatcher(t, path)
	next(t, events)

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	ev := next(t, events)
	if !errors.Is(ev.Err, manifest.ErrManifestUnreadable) {
		t.Fatalf("Err = %v, want ErrManifestUnreadable", ev.Err)
	}
	if ev.Capabilities.Resolution != permissions.ResolutionFallback {
		t.Errorf("Resolution = %s, want fallback", ev.Capabilities.Resolution)
	}
	if ev.Capabilities.Mode != catalog.ModeCoordinator {
		t.Errorf("fallback Mode = %s, want last known coordinator", ev.Capabilities.Mode)
	}
	if ev.Capabilities.Allows("task:create") {
		t.Error("safe-degraded fallback must not allow mutations")
	}
}

func TestManifestWatcher_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	writeManifest(t, path, "worker")

	_, events := startWatcher(t, path)
	next(t, events)

	const writes = 6
	for i := 0; i < writes-1; i++ {
		writeManifest(t, path, "worker")
	}
	writeManifest(t, path, "coordinator")

	reloads := 0
	for {
		ev := next(t, events)
		reloads++
		if ev.Capabilities.Mode == catalog.ModeCoordinator {
			break
		}
	}
	if reloads >= writes {
		t.Errorf("reloads = %d for %d writes, want bursts collapsed", reloads, writes)
	}
}

func TestManifestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeManifest(t, path, "worker")

	_, events := startWatcher(t, path)
	next(t, events)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected reload for unrelated file: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestManifestWatcher_StopAndContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	writeManifest(t, path, "worker")

	ctx, cancel := context.WithCancel(context.Background())
	w := NewManifestWatcher(path, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(permissions.ClearCurrent)
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start() error = %v, want nil", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Stop() did not return after cancellation")
	}
}

func TestNewManifestWatcher_Defaults(t *testing.T) {
	w := NewManifestWatcher("rel/manifest.json", WithDebounce(0))
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want default", w.debounce)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("Path() = %q, want absolute", w.Path())
	}
	if w.policy != permissions.PolicySafeDegraded {
		t.Errorf("policy = %q, want safe-degraded", w.policy)
	}
}

func TestManifestWatcher_ManifestIsMasterGrantsMasterCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	data := `{"manifestVersion":"1.0","mode":"worker","isMaster":true,"tasks":[{"id":"t1","title":"x"}],"session":{}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, events := startWatcher(t, path)

	ev := next(t, events)
	if ev.Err != nil {
		t.Fatalf("initial event error = %v", ev.Err)
	}
	if !ev.Capabilities.Flag(permissions.FlagCanUseMasterCommands) {
		t.Error("isMaster manifest should enable master commands")
	}
	for _, id := range catalog.MasterIDs() {
		if !ev.Capabilities.Allows(id) {
			t.Errorf("Allows(%q) = false, want true for a master manifest", id)
		}
	}

	writeManifest(t, path, "worker")
	ev = next(t, events)
	if ev.Err != nil {
		t.Fatalf("reload event error = %v", ev.Err)
	}
	if ev.Capabilities.Flag(permissions.FlagCanUseMasterCommands) {
		t.Error("clearing isMaster should drop master commands")
	}
}
