// Package daemon assembles and runs the engine behind the control API:
// configuration, database, registry services, drift watcher and the HTTP
// server. Both the standalone daemon binary and the CLI's foreground mode
// run through it.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/database"
	"github.com/GhostFramer/GhostFrame/internal/locator"
	"github.com/GhostFramer/GhostFrame/internal/patch"
	"github.com/GhostFramer/GhostFrame/internal/router"
	"github.com/GhostFramer/GhostFrame/internal/services"
	"github.com/GhostFramer/GhostFrame/internal/snippet"
	"github.com/GhostFramer/GhostFrame/internal/watcher"
)

// Daemon owns every long-lived component of a running instance.
type Daemon struct {
	cfg      *config.Config
	db       *database.DB
	registry *services.RegistryService
	watcher  *watcher.Watcher
	server   *http.Server
	listener net.Listener
	token    string
}

// New wires the engine from cfg. Nothing is listening until Start. When
// the config does not pin an auth token, one is loaded or generated at
// the conventional token file location.
func New(cfg *config.Config) (*Daemon, error) {
	token := cfg.Server.AuthToken
	if token == "" {
		var err error
		token, err = LoadOrCreateToken(config.TokenPath())
		if err != nil {
			return nil, fmt.Errorf("provision API token: %w", err)
		}
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	events := services.NewEventsService()
	audit := services.NewAuditService(db)
	procs := services.NewProcessService(&cfg.Process)
	generator := snippet.NewGenerator(snippet.Options{
		DisguiseName:         cfg.Snippet.DisguiseName,
		DockReassertInterval: cfg.Snippet.GetDockReassertInterval(),
		DockReassertAttempts: cfg.Snippet.DockReassertAttempts,
	})
	store := patch.NewStore(snippet.StartMarker, snippet.EndMarker)
	apps := locator.New(cfg.Scan.Roots)
	registry := services.NewRegistryService(db, store, generator, apps, procs, events, audit)

	d := &Daemon{
		cfg:      cfg,
		db:       db,
		registry: registry,
		token:    token,
	}

	if cfg.Watcher.IsEnabled() {
		d.watcher = watcher.New(registry, events, &cfg.Watcher)
	}

	d.server = &http.Server{
		Handler:           router.New(token, registry, events, audit),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return d, nil
}

// Start binds the control API and brings up the watcher. It returns once
// the daemon is serving; bind failures such as a port already in use
// surface here.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf("%s:%d", d.cfg.Server.Host, d.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	d.listener = ln

	// Disk may have drifted while the daemon was down.
	d.registry.Reconcile()

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			ln.Close()
			return fmt.Errorf("start watcher: %w", err)
		}
	}

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Daemon] serve: %v", err)
		}
	}()

	log.Printf("[Daemon] listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address. Before Start it reflects the config;
// after Start it is the listener's actual address, which matters when the
// configured port is 0.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return fmt.Sprintf("%s:%d", d.cfg.Server.Host, d.cfg.Server.Port)
	}
	return d.listener.Addr().String()
}

// Token returns the API token this instance authenticates with.
func (d *Daemon) Token() string {
	return d.token
}

// Shutdown stops the daemon in dependency order: drain the HTTP server,
// stop the watcher, cancel pending restarts, close the database.
func (d *Daemon) Shutdown(ctx context.Context) error {
	if err := d.server.Shutdown(ctx); err != nil {
		log.Printf("[Daemon] http shutdown: %v", err)
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.registry.Shutdown()

	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
