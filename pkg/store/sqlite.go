package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zen-systems/swarmgate/pkg/router"
)

const decisionsSchema = `
CREATE TABLE IF NOT EXISTS routing_decisions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	ts         TEXT NOT NULL,
	module     TEXT NOT NULL,
	variant_id TEXT NOT NULL,
	signals    TEXT NOT NULL,
	weights    TEXT NOT NULL,
	ranking    TEXT NOT NULL,
	reasoning  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routing_decisions_module ON routing_decisions(module);
`

// SQLiteStore persists decisions in a SQLite database so the audit trail
// survives the process.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite-backed decision store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open decision db: %w", err)
	}
	if _, err := db.Exec(decisionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply decision schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append records a decision.
func (s *SQLiteStore) Append(d *Decision) error {
	signals, err := json.Marshal(d.Signals)
	if err != nil {
		return fmt.Errorf("failed to encode signals: %w", err)
	}
	weights, err := json.Marshal(d.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	ranking, err := json.Marshal(d.Ranking)
	if err != nil {
		return fmt.Errorf("failed to encode ranking: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO routing_decisions (id, ts, module, variant_id, signals, weights, ranking, reasoning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp.UTC().Format(time.RFC3339Nano),
		d.Module, d.VariantID, string(signals), string(weights), string(ranking), d.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// List returns decisions in insertion order, optionally filtered by module
// and capped by limit (most recent kept).
func (s *SQLiteStore) List(module string, limit int) ([]*router.Decision, error) {
	query := `SELECT id, ts, module, variant_id, signals, weights, ranking, reasoning
		FROM routing_decisions`
	var args []any
	if module != "" {
		query += ` WHERE module = ?`
		args = append(args, module)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []*router.Decision
	for rows.Next() {
		var d router.Decision
		var ts, signals, weights, ranking string
		if err := rows.Scan(&d.ID, &ts, &d.Module, &d.VariantID, &signals, &weights, &ranking, &d.Reasoning); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if err := json.Unmarshal([]byte(signals), &d.Signals); err != nil {
			return nil, fmt.Errorf("failed to decode signals: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &d.Weights); err != nil {
			return nil, fmt.Errorf("failed to decode weights: %w", err)
		}
		if err := json.Unmarshal([]byte(ranking), &d.Ranking); err != nil {
			return nil, fmt.Errorf("failed to decode ranking: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			d.Timestamp = t
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
