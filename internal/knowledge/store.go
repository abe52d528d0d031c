// Package knowledge holds the read-only in-memory food knowledge base.
// The store is loaded once at startup and never mutated afterwards, so
// concurrent readers need no locking.
package knowledge

import (
	"fmt"
	"strings"

	"github.com/annapurna-labs/annapurna/internal/domain/food"
)

// Store is a frozen table of food records, indexed by ID with insertion
// order preserved for stable tie-breaking.
type Store struct {
	records []*food.Record
	byID    map[string]*food.Record
}

// NewStore builds a Store from the given records. Record IDs must be
// unique; a duplicate is a malformed dataset and fails the load.
func NewStore(records []*food.Record) (*Store, error) {
	s := &Store{
		records: records,
		byID:    make(map[string]*food.Record, len(records)),
	}
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record %q: empty id", r.Title)
		}
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate record id %q", r.ID)
		}
		s.byID[r.ID] = r
	}
	return s, nil
}

// Get returns the record with the given ID, or nil when unknown.
func (s *Store) Get(id string) *food.Record {
	return s.byID[id]
}

// All returns the records in insertion order. Callers must not modify
// the returned slice or the records.
func (s *Store) All() []*food.Record {
	return s.records
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Groups buckets records into coarse meal-planning groups by category
// and title keywords, preserving insertion order within each group.
type Groups struct {
	Cereals    []*food.Record
	Pulses     []*food.Record
	Vegetables []*food.Record
	Others     []*food.Record
}

// GroupByKind classifies every record for diet planning.
func (s *Store) GroupByKind() Groups {
	var g Groups
	for _, r := range s.records {
		cat := strings.ToLower(string(r.Category))
		title := strings.ToLower(r.Title)
		switch {
		case strings.Contains(cat, "cereal") || strings.Contains(cat, "grain") ||
			strings.Contains(title, "rice") || strings.Contains(title, "wheat"):
			g.Cereals = append(g.Cereals, r)
		case strings.Contains(cat, "pulse") || strings.Contains(cat, "lentil") ||
			strings.Contains(cat, "legume") || strings.Contains(title, "dal"):
			g.Pulses = append(g.Pulses, r)
		case strings.Contains(cat, "vegetable") || strings.Contains(cat, "veg") ||
			strings.Contains(cat, "green"):
			g.Vegetables = append(g.Vegetables, r)
		default:
			g.Others = append(g.Others, r)
		}
	}
	return g
}
