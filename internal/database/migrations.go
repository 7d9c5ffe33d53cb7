package database

import (
	"database/sql"
	"fmt"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create_tracked_apps",
		sql: `CREATE TABLE IF NOT EXISTS tracked_apps (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			bundle_id TEXT NOT NULL DEFAULT '',
			path TEXT UNIQUE NOT NULL,
			entry_script TEXT NOT NULL,
			protected BOOLEAN NOT NULL DEFAULT 0,
			invisibility BOOLEAN NOT NULL DEFAULT 1,
			dock_hidden BOOLEAN NOT NULL DEFAULT 0,
			disguised BOOLEAN NOT NULL DEFAULT 0,
			state TEXT NOT NULL DEFAULT 'unprotected',
			needs_repair BOOLEAN NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		name: "create_audit_logs",
		sql: `CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			app_id TEXT,
			app_name TEXT,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		name: "index_audit_logs_created_at",
		sql:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
	},
	{
		name: "index_audit_logs_app_id",
		sql:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_app_id ON audit_logs(app_id)`,
	},
}

func runMigrations(db *sql.DB) error {
	if err := createMigrationsTable(db); err != nil {
		return err
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := hasMigrationRun(db, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if err := recordMigration(db, m.name, batch); err != nil {
			return fmt.Errorf("recording migration %s: %w", m.name, err)
		}
	}

	return nil
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		migration TEXT UNIQUE NOT NULL,
		batch INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func hasMigrationRun(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE migration = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(db *sql.DB, name string, batch int) error {
	_, err := db.Exec("INSERT INTO migrations (migration, batch) VALUES (?, ?)", name, batch)
	return err
}

func nextBatch(db *sql.DB) (int, error) {
	var batch sql.NullInt64
	err := db.QueryRow("SELECT MAX(batch) FROM migrations").Scan(&batch)
	if err != nil {
		return 0, err
	}
	return int(batch.Int64) + 1, nil
}
