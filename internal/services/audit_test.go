package services_test

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GhostFramer/GhostFrame/internal/database"
	"github.com/GhostFramer/GhostFrame/internal/services"
)

func setupAudit(t *testing.T) (*services.AuditService, *database.DB) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := &database.DB{DB: sqlDB}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return services.NewAuditService(db), db
}

func TestAudit_RecordsAndReadsNewestFirst(t *testing.T) {
	audit, _ := setupAudit(t)

	audit.Log(services.AuditLog{
		AppID:   "app-1",
		AppName: "Foo",
		Action:  services.AuditActionTrack,
		Outcome: services.AuditOutcomeSuccess,
	})
	audit.Log(services.AuditLog{
		AppID:   "app-1",
		AppName: "Foo",
		Action:  services.AuditActionProtect,
		Outcome: services.AuditOutcomeSuccess,
		Details: map[string]interface{}{"invisibility": true},
	})

	logs, err := audit.GetLogs("", 0, 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(logs))
	}

	// Same-second inserts tie on created_at; id breaks the tie.
	if logs[0].Action != services.AuditActionProtect {
		t.Errorf("expected newest entry first, got action %q", logs[0].Action)
	}
	if logs[0].AppID != "app-1" || logs[0].AppName != "Foo" {
		t.Errorf("unexpected app fields: id=%q name=%q", logs[0].AppID, logs[0].AppName)
	}
	if !strings.Contains(logs[0].Details, `"invisibility":true`) {
		t.Errorf("expected details JSON to carry the flag, got %q", logs[0].Details)
	}
	if logs[1].Details != "" {
		t.Errorf("expected empty details for entry without any, got %q", logs[1].Details)
	}
}

func TestAudit_LogResultCapturesError(t *testing.T) {
	audit, _ := setupAudit(t)

	audit.LogResult("app-1", "Foo", services.AuditActionProtect, errors.New("patch failed"), nil)

	logs, err := audit.GetLogs("app-1", 0, 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(logs))
	}
	if logs[0].Outcome != services.AuditOutcomeFailure {
		t.Errorf("expected failure outcome, got %q", logs[0].Outcome)
	}
	if !strings.Contains(logs[0].Details, "patch failed") {
		t.Errorf("expected error in details, got %q", logs[0].Details)
	}
}

func TestAudit_FiltersByApp(t *testing.T) {
	audit, _ := setupAudit(t)

	for _, appID := range []string{"app-1", "app-2", "app-1"} {
		audit.Log(services.AuditLog{
			AppID:   appID,
			Action:  services.AuditActionRestart,
			Outcome: services.AuditOutcomeSuccess,
		})
	}

	logs, err := audit.GetLogs("app-1", 0, 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries for app-1, got %d", len(logs))
	}
	for _, entry := range logs {
		if entry.AppID != "app-1" {
			t.Errorf("filter leaked entry for %q", entry.AppID)
		}
	}
}

func TestAudit_Pagination(t *testing.T) {
	audit, _ := setupAudit(t)

	actions := []string{"a", "b", "c", "d", "e"}
	for _, action := range actions {
		audit.Log(services.AuditLog{Action: action, Outcome: services.AuditOutcomeSuccess})
	}

	page, err := audit.GetLogs("", 2, 2)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	// Newest first: e d | c b | a
	if page[0].Action != "c" || page[1].Action != "b" {
		t.Errorf("expected page [c b], got [%s %s]", page[0].Action, page[1].Action)
	}
}

func TestAudit_LogSwallowsStoreFailure(t *testing.T) {
	audit, db := setupAudit(t)
	db.Close()

	// Must not panic and must not surface the error; auditing never fails
	// the operation it describes.
	audit.Log(services.AuditLog{Action: services.AuditActionTrack, Outcome: services.AuditOutcomeSuccess})
}
