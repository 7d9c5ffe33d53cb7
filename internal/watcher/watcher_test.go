package watcher_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/services"
	"github.com/GhostFramer/GhostFrame/internal/watcher"
)

type fakeRegistry struct {
	mu    sync.Mutex
	apps  []models.TrackedApp
	count int
}

func (f *fakeRegistry) List() ([]models.TrackedApp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TrackedApp, len(f.apps))
	copy(out, f.apps)
	return out, nil
}

func (f *fakeRegistry) Reconcile() {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
}

func (f *fakeRegistry) setApps(apps ...models.TrackedApp) {
	f.mu.Lock()
	f.apps = apps
	f.mu.Unlock()
}

func (f *fakeRegistry) reconciles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func writeEntry(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func startWatcher(t *testing.T, reg *fakeRegistry, events *services.EventsService, cfg *config.WatcherConfig) *watcher.Watcher {
	t.Helper()
	w := watcher.New(reg, events, cfg)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_ReconcilesAfterEntryEdit(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.js")
	writeEntry(t, entry, "original\n")

	reg := &fakeRegistry{}
	reg.setApps(models.TrackedApp{ID: "a", EntryScript: entry})

	startWatcher(t, reg, services.NewEventsService(), &config.WatcherConfig{
		Debounce:          "50ms",
		ReconcileInterval: "0",
	})

	writeEntry(t, entry, "edited\n")
	waitFor(t, 2*time.Second, func() bool { return reg.reconciles() >= 1 })
}

func TestWatcher_IgnoresUnrelatedNeighbors(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.js")
	writeEntry(t, entry, "original\n")

	reg := &fakeRegistry{}
	reg.setApps(models.TrackedApp{ID: "a", EntryScript: entry})

	startWatcher(t, reg, services.NewEventsService(), &config.WatcherConfig{
		Debounce:          "50ms",
		ReconcileInterval: "0",
	})

	writeEntry(t, filepath.Join(dir, "renderer.js"), "noise\n")
	time.Sleep(200 * time.Millisecond)

	if got := reg.reconciles(); got != 0 {
		t.Errorf("expected no reconcile for unrelated files, got %d", got)
	}
}

func TestWatcher_CollapsesEditBursts(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.js")
	writeEntry(t, entry, "original\n")

	reg := &fakeRegistry{}
	reg.setApps(models.TrackedApp{ID: "a", EntryScript: entry})

	startWatcher(t, reg, services.NewEventsService(), &config.WatcherConfig{
		Debounce:          "100ms",
		ReconcileInterval: "0",
	})

	for i := 0; i < 5; i++ {
		writeEntry(t, entry, "edit\n")
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool { return reg.reconciles() >= 1 })
	time.Sleep(300 * time.Millisecond)

	if got := reg.reconciles(); got != 1 {
		t.Errorf("expected the burst to collapse into one reconcile, got %d", got)
	}
}

func TestWatcher_PeriodicSweep(t *testing.T) {
	reg := &fakeRegistry{}

	startWatcher(t, reg, services.NewEventsService(), &config.WatcherConfig{
		Debounce:          "50ms",
		ReconcileInterval: "50ms",
	})

	// No filesystem activity at all; the sweep alone must keep checking.
	waitFor(t, 2*time.Second, func() bool { return reg.reconciles() >= 2 })
}

func TestWatcher_RefreshesWatchListFromEvents(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.js")
	writeEntry(t, entry, "original\n")

	reg := &fakeRegistry{}
	events := services.NewEventsService()

	startWatcher(t, reg, events, &config.WatcherConfig{
		Debounce:          "50ms",
		ReconcileInterval: "0",
	})

	// Tracked after the watcher started; the event stream must bring the
	// new entry under watch.
	reg.setApps(models.TrackedApp{ID: "a", EntryScript: entry})
	events.Publish(models.Event{Type: models.EventAppAdded, AppID: "a"})
	time.Sleep(100 * time.Millisecond)

	writeEntry(t, entry, "edited\n")
	waitFor(t, 2*time.Second, func() bool { return reg.reconciles() >= 1 })
}

func TestWatcher_RemovedAppStopsTriggering(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.js")
	writeEntry(t, entry, "original\n")

	reg := &fakeRegistry{}
	events := services.NewEventsService()
	reg.setApps(models.TrackedApp{ID: "a", EntryScript: entry})

	startWatcher(t, reg, events, &config.WatcherConfig{
		Debounce:          "50ms",
		ReconcileInterval: "0",
	})

	reg.setApps()
	events.Publish(models.Event{Type: models.EventAppRemoved, AppID: "a"})
	time.Sleep(100 * time.Millisecond)

	writeEntry(t, entry, "edited\n")
	time.Sleep(200 * time.Millisecond)

	if got := reg.reconciles(); got != 0 {
		t.Errorf("expected no reconcile after removal, got %d", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	reg := &fakeRegistry{}
	w := watcher.New(reg, services.NewEventsService(), &config.WatcherConfig{
		Debounce:          "50ms",
		ReconcileInterval: "0",
	})
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	w.Stop()
	w.Stop()
}
