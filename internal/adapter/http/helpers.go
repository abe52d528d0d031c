package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/annapurna-labs/annapurna/internal/domain/food"
)

const bodyLimit = 1 << 20 // 1 MiB

// readJSON decodes a JSON request body with a size limit. On failure it
// writes the chat-shaped error body so clients always find a response
// field.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeChatError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		} else {
			writeChatError(w, http.StatusBadRequest, "Invalid request format. Please send JSON data.")
		}
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeChatError uses the chat response shape so the UI can render the
// message inline.
func writeChatError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, chatResponse{Response: message, Sources: []food.Source{}})
}

// clientIP extracts the peer address host. Proxy headers are not
// trusted here; chi's RealIP middleware rewrites RemoteAddr when the
// deployment fronts the service with a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
