// Package sqlite implements the learning store on an embedded SQLite
// database. Interactions and feedback are append-only.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/annapurna-labs/annapurna/internal/domain/learning"
	"github.com/annapurna-labs/annapurna/internal/matcher"
)

const (
	boostPerQuery = 0.05
	boostCap      = 0.5
)

// LearningStore implements learning.Store using SQLite.
type LearningStore struct {
	db *sql.DB
}

// NewLearningStore opens or creates a SQLite database at the given path.
func NewLearningStore(dbPath string) (*LearningStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &LearningStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *LearningStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		query       TEXT NOT NULL,
		matched_ids TEXT,
		response    TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at DESC);

	CREATE TABLE IF NOT EXISTS feedback (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		rating      INTEGER,
		comment     TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordInteraction appends one answered chat request. A missing ID or
// timestamp is filled in.
func (s *LearningStore) RecordInteraction(ctx context.Context, in *learning.Interaction) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	var matchedJSON *string
	if len(in.MatchedIDs) > 0 {
		b, err := json.Marshal(in.MatchedIDs)
		if err != nil {
			return fmt.Errorf("marshal matched ids: %w", err)
		}
		v := string(b)
		matchedJSON = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, session_id, query, matched_ids, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.SessionID, in.Query, matchedJSON, in.Response,
		in.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// RecordFeedback appends one feedback entry. A nil rating is stored as
// NULL so comment-only feedback still lands.
func (s *LearningStore) RecordFeedback(ctx context.Context, fb *learning.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, session_id, rating, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		fb.ID, fb.SessionID, fb.Rating, fb.Comment,
		fb.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// TermBoosts derives per-term score boosts from queries that produced at
// least one knowledge-base match. Each such query adds a small boost to
// every distinct term it contains, capped per term.
func (s *LearningStore) TermBoosts(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query FROM interactions WHERE matched_ids IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	boosts := make(map[string]float64)
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, term := range matcher.Tokenize(query) {
			if seen[term] {
				continue
			}
			seen[term] = true
			if boosts[term] < boostCap {
				boosts[term] += boostPerQuery
			}
		}
	}
	return boosts, rows.Err()
}

// InteractionCount returns the number of logged interactions.
func (s *LearningStore) InteractionCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n)
	return n, err
}

func (s *LearningStore) Close() error {
	return s.db.Close()
}
