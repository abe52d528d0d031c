// Package conversation defines per-session chat history types.
package conversation

import "time"

// Turn is one (user message, bot reply) exchange within a session.
type Turn struct {
	Query     string    `json:"query"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	Lang      string `json:"lang,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// FeedbackRequest is the request body for POST /api/feedback.
type FeedbackRequest struct {
	SessionID string `json:"sessionId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}
