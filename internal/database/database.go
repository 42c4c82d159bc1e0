package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Repository is the storage used by the daemon
type Repository interface {
	EventRepository() EventRepository
	SnapshotRepository() SnapshotRepository
	Close() error
}

// DB implements the Repository interface using SQLite
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

func optimizeSQLite(db *sql.DB) error {
	// WAL lets the API read while the journal collector writes
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// EventRepository returns the event journal
func (d *DB) EventRepository() EventRepository {
	return NewEventRepository(d.db)
}

// SnapshotRepository returns the state snapshot store
func (d *DB) SnapshotRepository() SnapshotRepository {
	return NewSnapshotRepository(d.db)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			actor TEXT,
			subject TEXT,
			flight_airline TEXT,
			flight_code TEXT,
			flight_timestamp INTEGER,
			indexes TEXT,
			status INTEGER,
			amount TEXT,
			detail TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS state_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			owner TEXT NOT NULL,
			operational INTEGER NOT NULL,
			treasury TEXT NOT NULL,
			taken_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS authorized_callers (
			address TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS airlines (
			address TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			state TEXT NOT NULL,
			funded INTEGER NOT NULL,
			votes TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS flights (
			airline TEXT NOT NULL,
			code TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			status INTEGER NOT NULL,
			registered_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			seq INTEGER NOT NULL,
			PRIMARY KEY (airline, code, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS oracles (
			address TEXT PRIMARY KEY,
			idx0 INTEGER NOT NULL,
			idx1 INTEGER NOT NULL,
			idx2 INTEGER NOT NULL,
			registered_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS policies (
			passenger TEXT NOT NULL,
			airline TEXT NOT NULL,
			code TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			paid TEXT NOT NULL,
			credit TEXT NOT NULL,
			credited INTEGER NOT NULL,
			bought_at TEXT NOT NULL,
			PRIMARY KEY (passenger, airline, code, timestamp)
		)`,
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_flight ON events(flight_airline, flight_code, flight_timestamp)`,
	}

	for _, table := range tables {
		if _, err := d.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
