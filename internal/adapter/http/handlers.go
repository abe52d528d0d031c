package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/annapurna-labs/annapurna/internal/adapter/otel"
	"github.com/annapurna-labs/annapurna/internal/domain"
	"github.com/annapurna-labs/annapurna/internal/domain/conversation"
	"github.com/annapurna-labs/annapurna/internal/domain/food"
	"github.com/annapurna-labs/annapurna/internal/service"
)

// Handlers bundles the chat service behind HTTP endpoints.
type Handlers struct {
	chat    *service.ChatService
	metrics *otel.Metrics
}

// NewHandlers creates the handler set. metrics may be nil.
func NewHandlers(chat *service.ChatService, metrics *otel.Metrics) *Handlers {
	return &Handlers{chat: chat, metrics: metrics}
}

type chatResponse struct {
	Response       string        `json:"response"`
	Sources        []food.Source `json:"sources"`
	ProcessingTime string        `json:"processing_time,omitempty"`
	Cached         bool          `json:"cached,omitempty"`
}

// Chat answers one chat message.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	req, ok := readJSON[conversation.ChatRequest](w, r)
	if !ok {
		return
	}
	if req.Message == "" {
		writeChatError(w, http.StatusBadRequest, "Please enter a message.")
		return
	}

	// The client session ID scopes conversation memory; without one,
	// fall back to the peer address.
	sessionKey := req.SessionID
	if sessionKey == "" {
		sessionKey = clientIP(r)
	}

	ans, err := h.chat.Respond(ctx, req.Message, req.Lang, sessionKey)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		writeChatError(w, http.StatusBadRequest, "Please enter a message.")
		return
	default:
		// Anything past validation degrades to a best-effort reply.
		writeChatError(w, http.StatusOK, "I'm having trouble generating a response. Please try again.")
		return
	}

	if h.metrics != nil {
		h.metrics.ChatsServed.Add(ctx, 1)
		if ans.Cached {
			h.metrics.CacheHits.Add(ctx, 1)
		}
		h.metrics.ChatDuration.Record(ctx, time.Since(start).Seconds())
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       ans.Response,
		Sources:        ans.Sources,
		ProcessingTime: fmt.Sprintf("%.2fs", time.Since(start).Seconds()),
		Cached:         ans.Cached,
	})
}

// Feedback records an explicit user rating for a session.
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[conversation.FeedbackRequest](w, r)
	if !ok {
		return
	}
	if req.SessionID == "" {
		req.SessionID = clientIP(r)
	}

	// Feedback is additive and never rejected on content; persistence
	// failures do not surface either.
	if err := h.chat.RecordFeedback(r.Context(), req.SessionID, req.Rating, req.Comment); err != nil {
		slog.Warn("failed to record feedback", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
