package service

import (
	"strings"
	"sync"
	"time"

	"github.com/annapurna-labs/annapurna/internal/domain/conversation"
)

const contextReplyLimit = 100

// SessionMemory keeps a bounded per-session history of chat turns. An
// unknown session has no history; nothing here persists across restarts.
type SessionMemory struct {
	mu           sync.Mutex
	sessions     map[string][]conversation.Turn
	maxTurns     int
	contextTurns int
}

// NewSessionMemory creates a memory keeping at most maxTurns per session
// and exposing the last contextTurns of them as prompt context.
func NewSessionMemory(maxTurns, contextTurns int) *SessionMemory {
	if maxTurns <= 0 {
		maxTurns = 5
	}
	if contextTurns <= 0 || contextTurns > maxTurns {
		contextTurns = min(3, maxTurns)
	}
	return &SessionMemory{
		sessions:     make(map[string][]conversation.Turn),
		maxTurns:     maxTurns,
		contextTurns: contextTurns,
	}
}

// Append records one completed turn, evicting the oldest when the
// session is full.
func (m *SessionMemory) Append(sessionID, query, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], conversation.Turn{
		Query:     query,
		Reply:     reply,
		Timestamp: time.Now(),
	})
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	m.sessions[sessionID] = turns
}

// Turns returns a copy of the session's history, oldest first.
func (m *SessionMemory) Turns(sessionID string) []conversation.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.sessions[sessionID]
	out := make([]conversation.Turn, len(turns))
	copy(out, turns)
	return out
}

// PromptContext renders the most recent turns as context lines for the
// LLM prompt. Replies are truncated so old answers cannot dominate the
// context budget.
func (m *SessionMemory) PromptContext(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.sessions[sessionID]
	if len(turns) > m.contextTurns {
		turns = turns[len(turns)-m.contextTurns:]
	}
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	for _, t := range turns {
		b.WriteString("Previous question: ")
		b.WriteString(t.Query)
		b.WriteString("\nPrevious answer: ")
		b.WriteString(truncate(t.Reply, contextReplyLimit))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
