package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GhostFramer/GhostFrame/internal/database"
	"github.com/GhostFramer/GhostFrame/internal/locator"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/patch"
)

// Registry errors surfaced to the API layer.
var (
	ErrAppNotFound    = errors.New("application not found")
	ErrAppExists      = errors.New("application already tracked")
	ErrAppBusy        = errors.New("another operation is in progress for this application")
	ErrInvalidFeature = errors.New("unknown feature flag")
)

// patchStore is the slice of the patch engine the registry drives.
type patchStore interface {
	Apply(entryPath, snippet string) error
	Remove(entryPath string) error
	IsPatched(entryPath string) (bool, error)
	Verify(entryPath, snippet string) (bool, error)
	Restore(entryPath string) error
}

// snippetGenerator derives the injected block from a flag set.
type snippetGenerator interface {
	Generate(flags models.FeatureFlags) string
}

// appLocator resolves bundles on disk.
type appLocator interface {
	Discover(tracked map[string]bool) ([]locator.Candidate, error)
	Inspect(bundlePath string) (*locator.Candidate, error)
}

// processController restarts and inspects target processes.
type processController interface {
	Restart(ctx context.Context, app *models.TrackedApp) error
	RunningState(app *models.TrackedApp) (*RunningState, error)
}

// RegistryService owns all mutable tracked-application state. Every
// mutation is serialized per application: a second operation on the same
// record while one is running is rejected with ErrAppBusy, while operations
// on different records proceed independently. It is the only writer of the
// tracked_apps table.
type RegistryService struct {
	db       *database.DB
	patches  patchStore
	snippets snippetGenerator
	apps     appLocator
	procs    processController
	events   *EventsService
	audit    *AuditService

	inFlight map[string]bool
	restarts map[string]context.CancelFunc
	mu       sync.Mutex
}

// NewRegistryService creates the registry over its collaborators.
func NewRegistryService(
	db *database.DB,
	patches patchStore,
	snippets snippetGenerator,
	apps appLocator,
	procs processController,
	events *EventsService,
	audit *AuditService,
) *RegistryService {
	return &RegistryService{
		db:       db,
		patches:  patches,
		snippets: snippets,
		apps:     apps,
		procs:    procs,
		events:   events,
		audit:    audit,
		inFlight: make(map[string]bool),
		restarts: make(map[string]context.CancelFunc),
	}
}

// RemoveResult reports the outcome of untracking an application. RestoreErr
// is non-nil when the pre-removal unpatch failed; the record is removed
// regardless, and the caller decides how to surface the failure.
type RemoveResult struct {
	App        *models.TrackedApp
	RestoreErr error
}

// ImportResult summarizes a backup import.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

const appColumns = `id, name, bundle_id, path, entry_script, protected,
	invisibility, dock_hidden, disguised, state, needs_repair, last_error,
	created_at, updated_at`

// List returns all tracked applications ordered by name. Records that fail
// to decode are skipped with a logged warning; one corrupt row never takes
// down the load path.
func (s *RegistryService) List() ([]models.TrackedApp, error) {
	rows, err := s.db.Query(`SELECT ` + appColumns + ` FROM tracked_apps ORDER BY name, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]models.TrackedApp, 0)
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			log.Printf("[Registry] skipping unreadable record: %v", err)
			continue
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// Get returns one tracked application by ID.
func (s *RegistryService) Get(id string) (*models.TrackedApp, error) {
	row := s.db.QueryRow(`SELECT `+appColumns+` FROM tracked_apps WHERE id = ?`, id)
	app, err := scanApp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Discover lists installed, eligible applications not yet tracked.
func (s *RegistryService) Discover() ([]locator.Candidate, error) {
	apps, err := s.List()
	if err != nil {
		return nil, err
	}
	tracked := make(map[string]bool, len(apps))
	for _, app := range apps {
		tracked[app.Path] = true
	}
	return s.apps.Discover(tracked)
}

// Add starts tracking the bundle at path. The new record is unprotected
// with default feature flags; nothing touches the target's files until
// protection is enabled.
func (s *RegistryService) Add(path string) (*models.TrackedApp, error) {
	candidate, err := s.apps.Inspect(path)
	if err != nil {
		return nil, err
	}
	return s.track(candidate, models.DefaultFeatures(), AuditActionTrack)
}

// Remove untracks an application. A protected (or patched-in-error)
// application gets one restore attempt first, but the record is deleted
// regardless of that attempt's outcome: the failure is reported in the
// result, never silently dropped, and never blocks the removal.
func (s *RegistryService) Remove(id string) (*RemoveResult, error) {
	if err := s.acquire(id); err != nil {
		return nil, err
	}
	defer s.release(id)

	// A pending relaunch must not resurrect the app mid-removal.
	s.cancelRestart(id)

	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	var restoreErr error
	needsRestore := app.Protected
	if !needsRestore && app.State == models.StateError {
		patched, err := s.patches.IsPatched(app.EntryScript)
		needsRestore = err == nil && patched
	}
	if needsRestore {
		if restoreErr = s.patches.Remove(app.EntryScript); restoreErr != nil {
			log.Printf("[Registry] failed to unpatch %s during removal: %v", app.Name, restoreErr)
		}
	}

	if _, err := s.db.Exec("DELETE FROM tracked_apps WHERE id = ?", id); err != nil {
		return nil, err
	}

	s.audit.LogResult(app.ID, app.Name, AuditActionUntrack, restoreErr, map[string]interface{}{
		"path": app.Path,
	})
	s.events.Publish(models.Event{Type: models.EventAppRemoved, AppID: app.ID})
	return &RemoveResult{App: app, RestoreErr: restoreErr}, nil
}

// SetProtection toggles the master flag, the single source of truth for
// whether a patch is on disk. Enabling applies a freshly generated snippet;
// disabling restores the original. Both are idempotent, so repeating the
// current value simply converges disk with the recorded flags.
func (s *RegistryService) SetProtection(id string, enabled bool) (*models.TrackedApp, error) {
	if err := s.acquire(id); err != nil {
		return nil, err
	}
	defer s.release(id)

	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if enabled {
		return s.protect(app)
	}
	return s.unprotect(app)
}

func (s *RegistryService) protect(app *models.TrackedApp) (*models.TrackedApp, error) {
	snippet := s.snippets.Generate(app.Features)
	if err := s.patches.Apply(app.EntryScript, snippet); err != nil {
		// Master stays off: a failed enable must not record protection that
		// never reached disk.
		s.markError(app, err)
		s.audit.LogResult(app.ID, app.Name, AuditActionProtect, err, nil)
		return nil, err
	}

	app.Protected = true
	app.State = models.StateProtected
	app.NeedsRepair = false
	app.LastError = ""
	if err := s.persist(app); err != nil {
		return nil, err
	}
	s.audit.LogResult(app.ID, app.Name, AuditActionProtect, nil, nil)
	s.events.Publish(models.Event{Type: models.EventAppUpdated, App: app, AppID: app.ID})
	return app, nil
}

func (s *RegistryService) unprotect(app *models.TrackedApp) (*models.TrackedApp, error) {
	if err := s.patches.Remove(app.EntryScript); err != nil {
		s.markError(app, err)
		s.audit.LogResult(app.ID, app.Name, AuditActionUnprotect, err, nil)
		return nil, err
	}

	app.Protected = false
	app.State = models.StateUnprotected
	app.NeedsRepair = false
	app.LastError = ""
	if err := s.persist(app); err != nil {
		return nil, err
	}
	s.audit.LogResult(app.ID, app.Name, AuditActionUnprotect, nil, nil)
	s.events.Publish(models.Event{Type: models.EventAppUpdated, App: app, AppID: app.ID})
	return app, nil
}

// SetFeature sets one feature flag. While the application is healthy and
// protected the patch is re-derived and re-applied in place (one block,
// replaced); otherwise the flag records intent for the next enable. A failed
// re-apply rolls the flag back so persisted flags never claim an effect that
// did not reach disk.
func (s *RegistryService) SetFeature(id, feature string, enabled bool) (*models.TrackedApp, error) {
	if !models.ValidFeature(feature) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFeature, feature)
	}
	if err := s.acquire(id); err != nil {
		return nil, err
	}
	defer s.release(id)

	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	previous := app.Features
	app.Features.Set(feature, enabled)

	if app.Protected && app.State == models.StateProtected {
		snippet := s.snippets.Generate(app.Features)
		if err := s.patches.Apply(app.EntryScript, snippet); err != nil {
			app.Features = previous
			s.markError(app, err)
			s.audit.LogResult(app.ID, app.Name, AuditActionFeature, err, map[string]interface{}{
				"feature": feature,
			})
			return nil, err
		}
	}

	if err := s.persist(app); err != nil {
		return nil, err
	}
	s.audit.LogResult(app.ID, app.Name, AuditActionFeature, nil, map[string]interface{}{
		"feature": feature,
		"enabled": enabled,
	})
	s.events.Publish(models.Event{Type: models.EventAppUpdated, App: app, AppID: app.ID})
	return app, nil
}

// Repair force-restores the entry script from its backup and resets the
// record to a safe default: unprotected, default flags, no error. It is the
// designated path out of the error state and always re-derives from the
// backup, never from in-memory flags.
func (s *RegistryService) Repair(id string) (*models.TrackedApp, error) {
	if err := s.acquire(id); err != nil {
		return nil, err
	}
	defer s.release(id)

	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if err := s.patches.Restore(app.EntryScript); err != nil {
		app.NeedsRepair = true
		s.markError(app, err)
		s.audit.LogResult(app.ID, app.Name, AuditActionRepair, err, nil)
		return nil, err
	}

	app.Protected = false
	app.Features = models.DefaultFeatures()
	app.State = models.StateUnprotected
	app.NeedsRepair = false
	app.LastError = ""
	if err := s.persist(app); err != nil {
		return nil, err
	}
	s.audit.LogResult(app.ID, app.Name, AuditActionRepair, nil, nil)
	s.events.Publish(models.Event{Type: models.EventAppUpdated, App: app, AppID: app.ID})
	return app, nil
}

// Restart relaunches the application's process in the background and
// returns immediately; completion is reported on the event stream. A second
// restart while one is pending is rejected.
func (s *RegistryService) Restart(id string) (*models.TrackedApp, error) {
	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, pending := s.restarts[id]; pending {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: restart pending", ErrAppBusy)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.restarts[id] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.restarts, id)
			s.mu.Unlock()
		}()

		err := s.procs.Restart(ctx, app)
		if errors.Is(err, context.Canceled) {
			log.Printf("[Registry] restart of %s cancelled", app.Name)
			return
		}
		s.audit.LogResult(app.ID, app.Name, AuditActionRestart, err, nil)

		message := "restart complete"
		if err != nil {
			message = "restart failed: " + err.Error()
		}
		s.events.Publish(models.Event{Type: models.EventRestart, AppID: app.ID, Message: message})
	}()

	return app, nil
}

// RunningState returns a fresh process snapshot for the application.
func (s *RegistryService) RunningState(id string) (*RunningState, error) {
	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.procs.RunningState(app)
}

// Reconcile compares every tracked record against the entry script on disk
// and flags drift: a protected application must begin with exactly the
// snippet its flags generate, and an unprotected one must carry no marker
// at all. Records busy with a live operation are skipped; the operation
// leaves them consistent itself.
func (s *RegistryService) Reconcile() {
	apps, err := s.List()
	if err != nil {
		log.Printf("[Registry] reconcile skipped: %v", err)
		return
	}
	for i := range apps {
		s.reconcileApp(apps[i].ID)
	}
}

func (s *RegistryService) reconcileApp(id string) {
	if err := s.acquire(id); err != nil {
		return
	}
	defer s.release(id)

	app, err := s.Get(id)
	if err != nil {
		return
	}

	var drift string
	if app.Protected {
		ok, err := s.patches.Verify(app.EntryScript, s.snippets.Generate(app.Features))
		switch {
		case err != nil:
			drift = "entry script unreadable: " + err.Error()
		case !ok:
			drift = "patch block missing or stale"
		}
	} else {
		// An unreadable entry script on an unprotected app is not drift;
		// it only matters once protection is requested.
		if patched, err := s.patches.IsPatched(app.EntryScript); err == nil && patched {
			drift = "unexpected patch block present"
		}
	}

	if drift == "" {
		return
	}
	if app.State == models.StateError && app.LastError == drift {
		return
	}

	app.State = models.StateError
	app.NeedsRepair = true
	app.LastError = drift
	if err := s.persist(app); err != nil {
		log.Printf("[Registry] failed to persist drift for %s: %v", app.Name, err)
		return
	}
	log.Printf("[Registry] drift detected for %s: %s", app.Name, drift)
	s.audit.Log(AuditLog{
		AppID:   app.ID,
		AppName: app.Name,
		Action:  AuditActionDrift,
		Outcome: AuditOutcomeFailure,
		Details: map[string]interface{}{"cause": drift},
	})
	s.events.Publish(models.Event{Type: models.EventDrift, App: app, AppID: app.ID, Message: drift})
}

// Export produces a portable snapshot of the tracked list: paths and flags
// only, never patch state.
func (s *RegistryService) Export() (*models.ExportData, error) {
	apps, err := s.List()
	if err != nil {
		return nil, err
	}

	exports := make([]models.AppExport, 0, len(apps))
	for _, app := range apps {
		exports = append(exports, models.AppExport{
			Name:     app.Name,
			BundleID: app.BundleID,
			Path:     app.Path,
			Features: app.Features,
		})
	}
	return &models.ExportData{
		Version:    models.ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Apps:       exports,
	}, nil
}

// Import adds the applications from an export. Every entry is re-resolved
// against the local disk and arrives unprotected; entries that are already
// tracked, missing, or no longer eligible are skipped with a logged warning.
func (s *RegistryService) Import(data *models.ExportData) (*ImportResult, error) {
	if data.Version != models.ExportVersion {
		return nil, fmt.Errorf("unsupported export version %q", data.Version)
	}

	result := &ImportResult{}
	for _, entry := range data.Apps {
		candidate, err := s.apps.Inspect(entry.Path)
		if err != nil {
			log.Printf("[Registry] import skipped %s: %v", entry.Path, err)
			result.Skipped++
			continue
		}
		if _, err := s.track(candidate, entry.Features, AuditActionImport); err != nil {
			log.Printf("[Registry] import skipped %s: %v", entry.Path, err)
			result.Skipped++
			continue
		}
		result.Added++
	}
	return result, nil
}

// Shutdown cancels every pending restart.
func (s *RegistryService) Shutdown() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.restarts))
	for id, cancel := range s.restarts {
		cancels = append(cancels, cancel)
		delete(s.restarts, id)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (s *RegistryService) track(candidate *locator.Candidate, features models.FeatureFlags, action string) (*models.TrackedApp, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tracked_apps WHERE path = ?", candidate.Path).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAppExists, candidate.Path)
	}

	now := time.Now().UTC()
	app := &models.TrackedApp{
		CreatedAt:   now,
		UpdatedAt:   now,
		ID:          uuid.New().String(),
		Name:        candidate.Name,
		BundleID:    candidate.BundleID,
		Path:        candidate.Path,
		EntryScript: candidate.EntryScript,
		State:       models.StateUnprotected,
		Features:    features,
	}

	_, err := s.db.Exec(`
		INSERT INTO tracked_apps (id, name, bundle_id, path, entry_script,
			protected, invisibility, dock_hidden, disguised,
			state, needs_repair, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, app.ID, app.Name, app.BundleID, app.Path, app.EntryScript,
		app.Protected, app.Features.Invisibility, app.Features.DockHidden, app.Features.Disguised,
		string(app.State), app.NeedsRepair, app.LastError, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to track %s: %w", candidate.Path, err)
	}

	s.audit.LogResult(app.ID, app.Name, action, nil, map[string]interface{}{"path": app.Path})
	s.events.Publish(models.Event{Type: models.EventAppAdded, App: app, AppID: app.ID})
	return app, nil
}

// markError records a failed transition. Repair is flagged only for
// failures that may have left disk and recorded flags disagreeing; a denied
// writability pre-check changed nothing, so it is recoverable by a plain
// retry after the permission grant.
func (s *RegistryService) markError(app *models.TrackedApp, cause error) {
	app.State = models.StateError
	app.LastError = cause.Error()
	if !errors.Is(cause, patch.ErrPermissionDenied) {
		app.NeedsRepair = true
	}
	if err := s.persist(app); err != nil {
		log.Printf("[Registry] failed to persist error state for %s: %v", app.Name, err)
	}
	s.events.Publish(models.Event{Type: models.EventAppUpdated, App: app, AppID: app.ID})
}

func (s *RegistryService) persist(app *models.TrackedApp) error {
	app.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE tracked_apps
		SET name = ?, bundle_id = ?, entry_script = ?, protected = ?,
			invisibility = ?, dock_hidden = ?, disguised = ?,
			state = ?, needs_repair = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, app.Name, app.BundleID, app.EntryScript, app.Protected,
		app.Features.Invisibility, app.Features.DockHidden, app.Features.Disguised,
		string(app.State), app.NeedsRepair, app.LastError, app.UpdatedAt, app.ID)
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", app.Name, err)
	}
	return nil
}

func (s *RegistryService) acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return ErrAppBusy
	}
	s.inFlight[id] = true
	return nil
}

func (s *RegistryService) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *RegistryService) cancelRestart(id string) {
	s.mu.Lock()
	cancel := s.restarts[id]
	delete(s.restarts, id)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApp(row rowScanner) (*models.TrackedApp, error) {
	var app models.TrackedApp
	var state string
	err := row.Scan(&app.ID, &app.Name, &app.BundleID, &app.Path, &app.EntryScript,
		&app.Protected, &app.Features.Invisibility, &app.Features.DockHidden, &app.Features.Disguised,
		&state, &app.NeedsRepair, &app.LastError, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}

	switch models.AppState(state) {
	case models.StateUnprotected, models.StateProtected, models.StateError:
		app.State = models.AppState(state)
	default:
		return nil, fmt.Errorf("record %s has unknown state %q", app.ID, state)
	}
	return &app, nil
}
