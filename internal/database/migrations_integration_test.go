package database

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// TestMigrationBackwardCompatibility verifies migrations leave existing data
// intact when run against a database created by an earlier build.
func TestMigrationBackwardCompatibility(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Simulate a database that already ran the first batch.
	if err := createMigrationsTable(db); err != nil {
		t.Fatalf("failed to create migrations table: %v", err)
	}
	_, err = db.Exec(migrations[0].sql)
	if err != nil {
		t.Fatalf("failed to create old tracked_apps table: %v", err)
	}
	if err := recordMigration(db, migrations[0].name, 1); err != nil {
		t.Fatalf("failed to record old migration: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO tracked_apps (id, name, path, entry_script, protected, state)
		VALUES ('app-1', 'Old App', '/Applications/Old.app', '/Applications/Old.app/Contents/Resources/app/main.js', 1, 'protected')
	`)
	if err != nil {
		t.Fatalf("failed to insert old app: %v", err)
	}

	// Running the full set must add what is missing and touch nothing else.
	if err := runMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	var name, state string
	err = db.QueryRow(`
		SELECT name, state FROM tracked_apps WHERE id = 'app-1'
	`).Scan(&name, &state)
	if err != nil {
		t.Fatalf("failed to query migrated app: %v", err)
	}
	if name != "Old App" {
		t.Errorf("expected name 'Old App', got %q", name)
	}
	if state != "protected" {
		t.Errorf("expected state 'protected', got %q", state)
	}

	// The audit table from the newer batch must now exist.
	var count int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='audit_logs'
	`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check audit_logs table: %v", err)
	}
	if count != 1 {
		t.Error("expected audit_logs table after migration")
	}

	var batch int
	err = db.QueryRow(`
		SELECT batch FROM migrations WHERE migration = 'create_audit_logs'
	`).Scan(&batch)
	if err != nil {
		t.Fatalf("failed to query audit migration batch: %v", err)
	}
	if batch != 2 {
		t.Errorf("expected audit migration in batch 2, got %d", batch)
	}
}
