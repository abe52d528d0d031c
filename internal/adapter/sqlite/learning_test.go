package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/annapurna-labs/annapurna/internal/adapter/sqlite"
	"github.com/annapurna-labs/annapurna/internal/domain/learning"
)

func testStore(t *testing.T) *sqlite.LearningStore {
	t.Helper()
	s, err := sqlite.NewLearningStore(filepath.Join(t.TempDir(), "learning.db"))
	if err != nil {
		t.Fatalf("NewLearningStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordInteraction(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	in := &learning.Interaction{
		SessionID:  "sess-1",
		Query:      "moong dal protein",
		MatchedIDs: []string{"moong-dal"},
		Response:   "Moong dal has about 24g of protein per 100g.",
	}
	if err := s.RecordInteraction(ctx, in); err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}
	if in.ID == "" {
		t.Fatal("expected generated ID")
	}
	if in.CreatedAt.IsZero() {
		t.Fatal("expected generated timestamp")
	}

	n, err := s.InteractionCount(ctx)
	if err != nil {
		t.Fatalf("InteractionCount failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 interaction, got %d", n)
	}
}

func TestRecordFeedback(t *testing.T) {
	s := testStore(t)
	rating := 5

	fb := &learning.Feedback{SessionID: "sess-1", Rating: &rating, Comment: "helpful"}
	if err := s.RecordFeedback(context.Background(), fb); err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}
	if fb.ID == "" {
		t.Fatal("expected generated ID")
	}
}

func TestRecordFeedbackWithoutRating(t *testing.T) {
	s := testStore(t)

	fb := &learning.Feedback{SessionID: "sess-1", Comment: "just a note"}
	if err := s.RecordFeedback(context.Background(), fb); err != nil {
		t.Fatalf("comment-only feedback must persist, got %v", err)
	}
	if fb.ID == "" {
		t.Fatal("expected generated ID")
	}
}

func TestTermBoosts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.RecordInteraction(ctx, &learning.Interaction{
			SessionID:  "sess-1",
			Query:      "moong dal calories",
			MatchedIDs: []string{"moong-dal"},
			Response:   "347 kcal per 100g.",
		})
		if err != nil {
			t.Fatalf("RecordInteraction failed: %v", err)
		}
	}
	// Unmatched queries must not contribute boosts.
	err := s.RecordInteraction(ctx, &learning.Interaction{
		SessionID: "sess-2",
		Query:     "quinoa facts",
		Response:  "I could not find that in my knowledge base.",
	})
	if err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}

	boosts, err := s.TermBoosts(ctx)
	if err != nil {
		t.Fatalf("TermBoosts failed: %v", err)
	}
	if got := boosts["moong"]; got != 0.1 {
		t.Errorf("expected moong boost 0.1 after two matched queries, got %v", got)
	}
	if got := boosts["dal"]; got != 0.1 {
		t.Errorf("expected dal boost 0.1, got %v", got)
	}
	if _, ok := boosts["quinoa"]; ok {
		t.Error("unmatched query must not produce boosts")
	}
}

func TestTermBoostsCap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		err := s.RecordInteraction(ctx, &learning.Interaction{
			SessionID:  "sess-1",
			Query:      "ghee",
			MatchedIDs: []string{"ghee"},
			Response:   "Ghee is warming.",
		})
		if err != nil {
			t.Fatalf("RecordInteraction failed: %v", err)
		}
	}

	boosts, err := s.TermBoosts(ctx)
	if err != nil {
		t.Fatalf("TermBoosts failed: %v", err)
	}
	if got := boosts["ghee"]; got > 0.5+1e-9 {
		t.Errorf("boost must be capped at 0.5, got %v", got)
	}
}
