// Package store is the durable state of the station: the transactional
// message queue, per-transaction meter values, charging profiles, the
// authorization cache, device model variables and variable monitors.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database connection and schema lifecycle.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a private in-memory database, used by tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS message_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			unique_id TEXT NOT NULL UNIQUE,
			action TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			lane TEXT NOT NULL,
			enqueue_time TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS transaction_meter_values (
			transaction_id TEXT NOT NULL,
			seq_no INTEGER NOT NULL,
			meter_value_json TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			PRIMARY KEY (transaction_id, seq_no)
		);`,
		`CREATE TABLE IF NOT EXISTS charging_profiles (
			id INTEGER PRIMARY KEY,
			evse_id INTEGER NOT NULL,
			purpose TEXT NOT NULL,
			stack_level INTEGER NOT NULL,
			json_blob TEXT NOT NULL,
			valid_from TEXT,
			valid_to TEXT,
			transaction_id TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_charging_profiles_txn ON charging_profiles(transaction_id);`,
		`CREATE TABLE IF NOT EXISTS auth_cache (
			hashed_id_token TEXT PRIMARY KEY,
			id_token_info_json TEXT NOT NULL,
			last_used_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS device_model_variables (
			component TEXT NOT NULL,
			variable TEXT NOT NULL,
			attribute_kind TEXT NOT NULL,
			value TEXT NOT NULL,
			source TEXT NOT NULL,
			PRIMARY KEY (component, variable, attribute_kind)
		);`,
		`CREATE TABLE IF NOT EXISTS monitors (
			id INTEGER PRIMARY KEY,
			component TEXT NOT NULL,
			variable TEXT NOT NULL,
			kind TEXT NOT NULL,
			value REAL NOT NULL,
			severity INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS local_auth_list (
			hashed_id_token TEXT PRIMARY KEY,
			id_token_info_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS local_auth_list_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
