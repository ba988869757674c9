// Package sqlite provides SQLite-based persistent storage for pobal.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/algorand/go-deadlock"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/pobal-network/pobal/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB

	mu      deadlock.RWMutex
	blocked map[domain.Principal]bool
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout. Transactions
// begin IMMEDIATE so a unit of work holds the write lock from its first
// read; writers in other processes wait instead of racing.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db, blocked: make(map[domain.Principal]bool)}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS node_info (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Coordinator scalars: owner, era fields, unclaimed, active task
		`CREATE TABLE IF NOT EXISTS coordinator (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Member registry. pos is the selection order; principal is the set view.
		`CREATE TABLE IF NOT EXISTS members (
			pos       INTEGER PRIMARY KEY,
			principal TEXT NOT NULL UNIQUE
		)`,

		// Active task sequence and the task info table
		`CREATE TABLE IF NOT EXISTS tasks (
			pos  INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS task_info (
			name     TEXT PRIMARY KEY,
			complete BOOLEAN NOT NULL DEFAULT 0,
			balance  TEXT NOT NULL DEFAULT '0'
		)`,

		`CREATE TABLE IF NOT EXISTS proofs (
			task TEXT PRIMARY KEY,
			hash TEXT NOT NULL
		)`,

		// Duplicates are legal when there are fewer members than seats.
		`CREATE TABLE IF NOT EXISTS active_participants (
			pos       INTEGER PRIMARY KEY,
			principal TEXT NOT NULL
		)`,

		// Treasury: balances are decimal TEXT because they are uint64.
		`CREATE TABLE IF NOT EXISTS accounts (
			principal TEXT PRIMARY KEY,
			balance   TEXT NOT NULL
		)`,

		// Double-entry journal: every movement writes a DEBIT and a CREDIT row.
		`CREATE TABLE IF NOT EXISTS treasury_ledger (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			type       TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			account    TEXT NOT NULL,
			amount     TEXT NOT NULL,
			memo       TEXT,
			balance    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_treasury_account ON treasury_ledger(account)`,

		`CREATE TABLE IF NOT EXISTS events (
			seq     INTEGER PRIMARY KEY AUTOINCREMENT,
			id      TEXT NOT NULL UNIQUE,
			kind    TEXT NOT NULL,
			block   TEXT NOT NULL,
			caller  TEXT NOT NULL,
			at      INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Node Info ──────────────────────────────────────────────────────────────

// SetNodeInfo stores a key-value pair in node_info.
func (d *DB) SetNodeInfo(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO node_info (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// GetNodeInfo retrieves a value from node_info.
func (d *DB) GetNodeInfo(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM node_info WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func formatBalance(b domain.Balance) string {
	return strconv.FormatUint(uint64(b), 10)
}

func parseBalance(s string) (domain.Balance, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", s, err)
	}
	return domain.Balance(v), nil
}

func formatHeight(h domain.BlockHeight) string {
	return strconv.FormatUint(uint64(h), 10)
}

func parseHeight(s string) (domain.BlockHeight, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block height %q: %w", s, err)
	}
	return domain.BlockHeight(v), nil
}
