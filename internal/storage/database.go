// Package storage provides the backends that hold the encoded state document:
// SQLite, a plain JSON file and memory.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// SnapshotKey is the key the application state is stored under.
const SnapshotKey = "taxtutor-state"

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	key  string
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, key: SnapshotKey}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load returns the stored document, or nil when none has been saved.
func (db *DB) Load(ctx context.Context) ([]byte, error) {
	var doc string
	err := db.conn.QueryRowContext(ctx, `SELECT document FROM snapshots WHERE key = ?`, db.key).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Nothing saved yet
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", db.key, err)
	}
	return []byte(doc), nil
}

// Save upserts the document and bumps its revision.
func (db *DB) Save(ctx context.Context, doc []byte) error {
	return WithTx(ctx, db.conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (key, document, revision, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(key) DO UPDATE SET
				document = excluded.document,
				revision = snapshots.revision + 1,
				updated_at = excluded.updated_at
		`, db.key, string(doc), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", db.key, err)
		}
		return nil
	})
}

// SnapshotInfo describes the stored document without loading it.
type SnapshotInfo struct {
	Key       string
	Revision  int
	Size      int
	UpdatedAt time.Time
}

// Info returns metadata about the stored document, or nil when none exists.
func (db *DB) Info(ctx context.Context) (*SnapshotInfo, error) {
	var info SnapshotInfo
	err := db.conn.QueryRowContext(ctx, `
		SELECT key, revision, length(document), updated_at FROM snapshots WHERE key = ?
	`, db.key).Scan(&info.Key, &info.Revision, &info.Size, &info.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot info %s: %w", db.key, err)
	}
	return &info, nil
}

// Delete removes the stored document.
func (db *DB) Delete(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, db.key); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", db.key, err)
	}
	return nil
}
