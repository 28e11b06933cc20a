package db

import (
	"database/sql"
	"fmt"
	"strings"

	"Phonolib/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver
)

// Database wraps the sql handle together with the driver it was opened
// with, so repositories can pick dialect-specific SQL where needed.
type Database struct {
	*sql.DB
	Driver string // "mysql" or "sqlite"
}

// DB is the global database handle, set by Connect.
var DB *Database

// Connect establishes a connection to the configured database.
func Connect(cfg *config.Config) (*Database, error) {
	var (
		handle *sql.DB
		err    error
	)
	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		handle, err = sql.Open("mysql", dsn)
	case "sqlite":
		handle, err = Open(cfg.SQLitePath)
		if err == nil {
			DB = &Database{DB: handle, Driver: "sqlite"}
			return DB, nil
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err = handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	DB = &Database{DB: handle, Driver: cfg.DBDriver}
	return DB, nil
}

// Open opens a standalone sqlite database. The dsn can be a file path or
// a "file:...?mode=memory&cache=shared" DSN for in-memory use.
func Open(dsn string) (*sql.DB, error) {
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite allows a single writer; a pool of one connection
	// also keeps an in-memory database from being sharded per conn.
	handle.SetMaxOpenConns(1)
	if _, err := handle.Exec("PRAGMA foreign_keys = ON"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return handle, nil
}

// Random returns the dialect's random-ordering SQL function.
func (d *Database) Random() string {
	if d.Driver == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// ForUpdate returns the row-locking suffix for check-then-insert reads
// inside a transaction. SQLite has a single writer and rejects the
// clause, so it locks nothing there.
func (d *Database) ForUpdate() string {
	if d.Driver == "mysql" {
		return " FOR UPDATE"
	}
	return ""
}

// Init creates the library schema if it does not exist yet.
func (d *Database) Init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tracks (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			track_type VARCHAR(255) NOT NULL DEFAULT 'track',
			visibility VARCHAR(32) NOT NULL DEFAULT 'private',
			resource TEXT,
			images TEXT,
			meta TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collections (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			collection_type VARCHAR(255) NOT NULL DEFAULT 'collection',
			visibility VARCHAR(32) NOT NULL DEFAULT 'private',
			meta TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS track_track_relationships (
			id CHAR(36) PRIMARY KEY,
			source_id CHAR(36) NOT NULL,
			target_id CHAR(36) NOT NULL,
			relationship_type VARCHAR(255) NOT NULL DEFAULT 'relationship',
			meta TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS track_collection_relationships (
			id CHAR(36) PRIMARY KEY,
			source_id CHAR(36) NOT NULL,
			target_id CHAR(36) NOT NULL,
			relationship_type VARCHAR(255) NOT NULL DEFAULT 'track',
			meta TEXT,
			relationship_position BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collection_collection_relationships (
			id CHAR(36) PRIMARY KEY,
			source_id CHAR(36) NOT NULL,
			target_id CHAR(36) NOT NULL,
			relationship_type VARCHAR(255) NOT NULL DEFAULT 'relationship',
			meta TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS plugin_data (
			id CHAR(36) PRIMARY KEY,
			track_id CHAR(36) NOT NULL,
			user_id CHAR(36) NOT NULL,
			plugin_name VARCHAR(255) NOT NULL,
			plugin_version VARCHAR(64) NOT NULL,
			data_key VARCHAR(255) NOT NULL,
			data_value TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blobs (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			visibility VARCHAR(32) NOT NULL DEFAULT 'private',
			resource TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return d.createIndexes()
}

// createIndexes creates the lookup indexes. MySQL has no IF NOT EXISTS
// for indexes, so duplicate-index errors are tolerated on re-init.
func (d *Database) createIndexes() error {
	indexes := []string{
		`CREATE INDEX idx_tracks_user ON tracks (user_id)`,
		`CREATE INDEX idx_ttr_source ON track_track_relationships (source_id)`,
		`CREATE INDEX idx_ttr_target ON track_track_relationships (target_id)`,
		`CREATE INDEX idx_tcr_source ON track_collection_relationships (source_id)`,
		`CREATE INDEX idx_tcr_target ON track_collection_relationships (target_id)`,
		`CREATE INDEX idx_ccr_source ON collection_collection_relationships (source_id)`,
		`CREATE INDEX idx_ccr_target ON collection_collection_relationships (target_id)`,
		`CREATE INDEX idx_plugin_data_track ON plugin_data (track_id)`,
		`CREATE INDEX idx_plugin_data_fact ON plugin_data (track_id, plugin_name, plugin_version, data_key, user_id)`,
	}
	for _, stmt := range indexes {
		if _, err := d.Exec(stmt); err != nil {
			if isDuplicateIndexErr(err) {
				continue
			}
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func isDuplicateIndexErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "Duplicate key name")
}

// Close closes the global database connection.
func Close() error {
	if DB != nil {
		return DB.DB.Close()
	}
	return nil
}
