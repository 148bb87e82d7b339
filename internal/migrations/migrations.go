package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add status and start_time indices",
		Up: `
			-- Dashboard ordering and the running-test admission check
			CREATE INDEX IF NOT EXISTS idx_test_records_status ON test_records(status);
			CREATE INDEX IF NOT EXISTS idx_test_records_start_time ON test_records(start_time DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_test_records_status;
			DROP INDEX IF EXISTS idx_test_records_start_time;
		`,
	},
	{
		Version: 2,
		Name:    "Make history entries unique per test",
		Up: `
			-- Saving a record re-inserts its history; duplicates are ignored
			CREATE UNIQUE INDEX IF NOT EXISTS idx_history_entries_test_history ON history_entries(test_id, history_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_history_entries_test_history;
		`,
	},
	{
		Version: 3,
		Name:    "Add raw samples table",
		Up: `
			CREATE TABLE IF NOT EXISTS samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				test_id TEXT NOT NULL,
				label TEXT NOT NULL,
				elapsed REAL NOT NULL,
				latency REAL NOT NULL DEFAULT 0,
				connect REAL NOT NULL DEFAULT 0,
				bytes INTEGER NOT NULL DEFAULT 0,
				success INTEGER NOT NULL,
				code TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_samples_test_id ON samples(test_id);
		`,
		Down: `
			DROP TABLE IF EXISTS samples;
		`,
	},
}

// InitSchema creates all tables required across all modules
// This must be called before running migrations to ensure all tables exist
func InitSchema(db *sql.DB) error {
	schema := `
	-- Test definitions with the state of their latest run
	CREATE TABLE IF NOT EXISTS test_records (
		test_id TEXT PRIMARY KEY,
		test_name TEXT NOT NULL,
		test_description TEXT NOT NULL DEFAULT '',
		task_count INTEGER NOT NULL,
		test_scenario TEXT NOT NULL,
		test_type TEXT NOT NULL DEFAULT '',
		file_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'created',
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		complete_tasks INTEGER,
		task_error TEXT,
		error_reason TEXT NOT NULL DEFAULT '',
		results TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Finished runs, append-only
	CREATE TABLE IF NOT EXISTS history_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_id TEXT NOT NULL,
		history_id TEXT NOT NULL,
		end_time TEXT NOT NULL DEFAULT '',
		results TEXT NOT NULL,
		FOREIGN KEY (test_id) REFERENCES test_records(test_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_history_entries_test_id ON history_entries(test_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	// Initialize schema first to ensure all tables exist
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Create migrations tracking table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	// Apply pending migrations
	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		_, err := db.Exec(migration.Up)
		if err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		_, err = db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
