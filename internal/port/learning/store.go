// Package learning defines the port interface for the append-only
// interaction/feedback store.
package learning

import (
	"context"

	"github.com/annapurna-labs/annapurna/internal/domain/learning"
)

// Store persists interactions and feedback. Implementations are
// append-only: nothing is updated or deleted.
type Store interface {
	RecordInteraction(ctx context.Context, in *learning.Interaction) error
	RecordFeedback(ctx context.Context, fb *learning.Feedback) error

	// TermBoosts returns per-term score boosts derived from logged
	// interactions, used to bias future matching.
	TermBoosts(ctx context.Context) (map[string]float64, error)

	Close() error
}
