// Package watcher keeps tracked entry scripts under observation so external
// edits show up as drift without waiting for the next user action. It pairs
// filesystem notifications with a periodic sweep: notifications catch edits
// promptly, the sweep catches anything notifications miss.
package watcher

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/services"
)

// registry is the slice of the registry the watcher drives.
type registry interface {
	List() ([]models.TrackedApp, error)
	Reconcile()
}

// Watcher observes the directories holding tracked entry scripts and runs a
// registry reconcile after changes settle. Watching the directory rather
// than the file keeps the watch alive across atomic replace-by-rename, which
// is exactly how both our own patches and most editors write.
type Watcher struct {
	registry registry
	events   *services.EventsService
	debounce time.Duration
	interval time.Duration

	fs        *fsnotify.Watcher
	appEvents chan models.Event
	entries   map[string]bool
	dirs      map[string]bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a watcher over the registry. Call Start to begin observing.
func New(reg registry, events *services.EventsService, cfg *config.WatcherConfig) *Watcher {
	return &Watcher{
		registry: reg,
		events:   events,
		debounce: cfg.GetDebounce(),
		interval: cfg.GetReconcileInterval(),
		entries:  make(map[string]bool),
		dirs:     make(map[string]bool),
		stopCh:   make(chan struct{}),
	}
}

// Start begins watching. The initial watch list is synced before Start
// returns; later registry changes refresh it via the event stream.
func (w *Watcher) Start() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fs = fs

	if err := w.sync(); err != nil {
		fs.Close()
		return err
	}
	w.appEvents = w.events.Subscribe()

	w.wg.Add(1)
	go w.run()

	log.Printf("[Watcher] started (debounce %v, sweep %v)", w.debounce, w.interval)
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.fs != nil {
			w.fs.Close()
		}
		w.wg.Wait()
		if w.appEvents != nil {
			w.events.Unsubscribe(w.appEvents)
		}
		log.Printf("[Watcher] stopped")
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var sweep <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	var settled <-chan time.Time
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				// Editors fire bursts; restart the window on each hit
				// and reconcile once after it closes.
				settled = time.After(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[Watcher] %v", err)

		case <-settled:
			settled = nil
			w.registry.Reconcile()

		case <-sweep:
			w.registry.Reconcile()

		case ev, ok := <-w.appEvents:
			if !ok {
				return
			}
			switch ev.Type {
			case models.EventAppAdded, models.EventAppUpdated, models.EventAppRemoved:
				if err := w.sync(); err != nil {
					log.Printf("[Watcher] failed to refresh watch list: %v", err)
				}
			}
		}
	}
}

// relevant reports whether a filesystem event touches a tracked entry
// script. Directory watches see every neighbor, so unrelated churn in
// Resources/app is filtered here.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	return w.entries[event.Name]
}

// sync rebuilds the watch list from the current tracked set.
func (w *Watcher) sync() error {
	apps, err := w.registry.List()
	if err != nil {
		return err
	}

	entries := make(map[string]bool, len(apps))
	dirs := make(map[string]bool, len(apps))
	for _, app := range apps {
		entries[app.EntryScript] = true
		dirs[filepath.Dir(app.EntryScript)] = true
	}

	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			log.Printf("[Watcher] failed to watch %s: %v", dir, err)
			continue
		}
	}
	for dir := range w.dirs {
		if !dirs[dir] {
			if err := w.fs.Remove(dir); err != nil {
				log.Printf("[Watcher] failed to unwatch %s: %v", dir, err)
			}
		}
	}

	w.entries = entries
	w.dirs = dirs
	return nil
}
