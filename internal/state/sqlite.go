package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS policies (
	key         TEXT PRIMARY KEY,
	value       BLOB NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS policy_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id  TEXT NOT NULL,
	key          TEXT NOT NULL,
	op           TEXT NOT NULL,
	value        BLOB,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policy_history_key ON policy_history(key, id);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id       TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	signals_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region snapshot
// Snapshot is one row of policy_history: the value written by a Set, or a
// nil value for a Delete.
type Snapshot struct {
	SnapshotID string
	Key        string
	Op         string // "set" | "delete"
	Value      []byte
	CreatedAt  time.Time
}

// #endregion snapshot

// #region store-struct
// SQLiteRepository persists policy records in SQLite and keeps every write
// in policy_history.
type SQLiteRepository struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewSQLiteRepository opens a SQLite database and runs migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// NewSQLiteRepositoryWithDB wraps an already-open database, creating tables
// if needed. The caller keeps ownership of db.
func NewSQLiteRepositoryWithDB(db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// #endregion close

// #region get
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM policies WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// #endregion get

// #region set
// Set upserts the record and appends a history snapshot atomically.
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO policies (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}

	if err := appendHistory(ctx, tx, key, "set", value, now); err != nil {
		return err
	}
	return tx.Commit()
}

// #endregion set

// #region delete
// Delete removes the record and records the deletion in history.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM policies WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if err := appendHistory(ctx, tx, key, "delete", nil, now); err != nil {
		return err
	}
	return tx.Commit()
}

func appendHistory(ctx context.Context, tx *sql.Tx, key, op string, value []byte, now string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO policy_history (snapshot_id, key, op, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), key, op, value, now,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// #endregion delete

// #region list
// Keys returns stored keys that start with prefix, sorted.
func (r *SQLiteRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM policies ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

// History returns the most recent snapshots for key, newest first.
func (r *SQLiteRepository) History(ctx context.Context, key string, limit int) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT snapshot_id, key, op, value, created_at FROM policy_history
		 WHERE key = ? ORDER BY id DESC LIMIT ?`, key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var createdStr string
		if err := rows.Scan(&s.SnapshotID, &s.Key, &s.Op, &s.Value, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion list
