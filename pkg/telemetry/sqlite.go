package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS routing_decisions (
	id TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	message_hash TEXT NOT NULL,
	message_length INTEGER NOT NULL,
	complexity INTEGER NOT NULL,
	category TEXT NOT NULL,
	model TEXT NOT NULL,
	cost REAL NOT NULL,
	success INTEGER NOT NULL,
	retry_count INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	conversation_id TEXT,
	strategy TEXT,
	validation_score INTEGER
);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON routing_decisions(timestamp);
`

// SQLiteStore persists decisions in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and bootstraps) a decision store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open decision store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize decision store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create inserts one decision.
func (s *SQLiteStore) Create(ctx context.Context, d Decision) error {
	var score any
	if d.ValidationScore != nil {
		score = *d.ValidationScore
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routing_decisions
		(id, timestamp, message_hash, message_length, complexity, category, model,
		 cost, success, retry_count, latency_ms, conversation_id, strategy, validation_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp.UnixMilli(), d.MessageHash, d.MessageLength, d.Complexity,
		d.Category, d.Model, d.Cost, boolToInt(d.Success), d.RetryCount,
		d.LatencyMillis, nullable(d.ConversationID), nullable(d.Strategy), score,
	)
	if err != nil {
		return fmt.Errorf("failed to persist decision: %w", err)
	}
	return nil
}

// Recent returns the newest decisions, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, message_hash, message_length, complexity, category, model,
		       cost, success, retry_count, latency_ms, conversation_id, strategy, validation_score
		FROM routing_decisions ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var ts int64
		var success int
		var conversationID, strategy sql.NullString
		var score sql.NullInt64
		if err := rows.Scan(&d.ID, &ts, &d.MessageHash, &d.MessageLength, &d.Complexity,
			&d.Category, &d.Model, &d.Cost, &success, &d.RetryCount, &d.LatencyMillis,
			&conversationID, &strategy, &score); err != nil {
			return nil, err
		}
		d.Timestamp = time.UnixMilli(ts)
		d.Success = success != 0
		d.ConversationID = conversationID.String
		d.Strategy = strategy.String
		if score.Valid {
			v := int(score.Int64)
			d.ValidationScore = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
