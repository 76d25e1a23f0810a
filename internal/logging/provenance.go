package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (item_id, trigger_type, signals_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ItemID,
		entry.TriggerType,
		nullIfEmpty(entry.SignalsJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region query-decisions
// QueryDecisions returns the most recent limit rows for an item and trigger
// type in chronological order. An empty trigger matches every type.
func QueryDecisions(db *sql.DB, itemID, trigger string, limit int) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT item_id, trigger_type, signals_json, decision, reason, created_at FROM (
			SELECT id, item_id, trigger_type, signals_json, decision, reason, created_at FROM provenance_log
			WHERE item_id = ? AND (? = '' OR trigger_type = ?)
			ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`,
		itemID, trigger, trigger, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var sigJSON, reason sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ItemID, &e.TriggerType, &sigJSON, &e.Decision, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.SignalsJSON = sigJSON.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provenance: %w", err)
	}
	return out, nil
}

// #endregion query-decisions

// #region sql-sink
// SQLSink records provenance entries into a database that carries the
// provenance_log table.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink wraps db.
func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

// Record writes entry unless ctx is already done.
func (s *SQLSink) Record(ctx context.Context, entry ProvenanceEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return LogDecision(s.db, entry)
}

// #endregion sql-sink

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
