// Package learning defines the append-only interaction and feedback log
// entries. Entries are never mutated or deleted by the serving process.
package learning

import "time"

// Interaction records one answered chat request.
type Interaction struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Query      string    `json:"query"`
	MatchedIDs []string  `json:"matched_ids,omitempty"`
	Response   string    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
}

// Feedback records user feedback for a session. Rating is nil when the
// client sent none or an out-of-range value; the comment still counts.
type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
