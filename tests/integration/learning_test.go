//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"
)

// Interaction logging is fire-and-forget behind the chat handler, so poll
// the store briefly instead of asserting immediately after the response.
func TestChatPersistsInteraction(t *testing.T) {
	ctx := context.Background()

	before, err := learningStore.InteractionCount(ctx)
	if err != nil {
		t.Fatalf("count interactions: %v", err)
	}

	if resp, _ := postChat(t, map[string]any{
		"message":   "tell me about spinach",
		"sessionId": "it-learning",
	}); resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		after, err := learningStore.InteractionCount(ctx)
		if err != nil {
			t.Fatalf("count interactions: %v", err)
		}
		if after > before {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("interaction was not persisted within 2s")
}
