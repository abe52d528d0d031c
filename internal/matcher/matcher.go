// Package matcher scores and ranks knowledge base records against
// free-text queries. The keyword path is self-contained; an embedding
// backend, when configured, blends in cosine similarity but is never
// required.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/annapurna-labs/annapurna/internal/config"
	"github.com/annapurna-labs/annapurna/internal/domain/food"
	"github.com/annapurna-labs/annapurna/internal/embedding"
	"github.com/annapurna-labs/annapurna/internal/knowledge"
)

// Field weights for exact keyword hits. Title hits count most, category
// medium, content occurrences least. Tunables, not derived constants.
const (
	titleWeight    = 3.0
	categoryWeight = 2.0
	contentWeight  = 0.5
	scoreScale     = 10.0 // raw score divisor before capping at 1.0
)

// tokenRE extracts Latin and Devanagari word runs.
var tokenRE = regexp.MustCompile(`[a-z0-9\x{0900}-\x{097F}]+`)

// Tokenize lowercases text and splits it into matchable terms.
func Tokenize(text string) []string {
	return tokenRE.FindAllString(strings.ToLower(text), -1)
}

// weightedTerm is a query term with its credit multiplier: 1.0 for terms
// the user typed, the synonym discount for expansions.
type weightedTerm struct {
	term   string
	weight float64
}

// Matcher ranks store records for queries.
type Matcher struct {
	store *knowledge.Store
	cfg   config.Matcher

	boostMu sync.RWMutex
	boosts  map[string]float64

	embedder embedding.Embedder
	vecMu    sync.RWMutex
	vectors  map[string]embedding.Vector // record ID -> precomputed embedding
}

// New creates a Matcher over the given store.
func New(store *knowledge.Store, cfg config.Matcher) *Matcher {
	return &Matcher{
		store:  store,
		cfg:    cfg,
		boosts: make(map[string]float64),
	}
}

// SetBoosts replaces the learned per-term boosts applied during scoring.
func (m *Matcher) SetBoosts(boosts map[string]float64) {
	m.boostMu.Lock()
	defer m.boostMu.Unlock()
	m.boosts = boosts
}

// SetEmbedder enables the similarity blend. Call PrecomputeEmbeddings
// afterwards to index the store.
func (m *Matcher) SetEmbedder(e embedding.Embedder) {
	m.embedder = e
}

// PrecomputeEmbeddings embeds every record's searchable text with
// bounded parallelism. Individual failures disable the blend for that
// record only; keyword scoring is unaffected.
func (m *Matcher) PrecomputeEmbeddings(ctx context.Context) error {
	if m.embedder == nil {
		return nil
	}

	vectors := make(map[string]embedding.Vector, m.store.Len())
	var vecMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, rec := range m.store.All() {
		rec := rec
		g.Go(func() error {
			vec, err := m.embedder.Embed(gctx, searchText(rec))
			if err != nil {
				slog.Warn("embedding failed, keyword-only for record", "id", rec.ID, "error", err)
				return nil
			}
			vecMu.Lock()
			vectors[rec.ID] = vec
			vecMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("precompute embeddings: %w", err)
	}

	m.vecMu.Lock()
	m.vectors = vectors
	m.vecMu.Unlock()
	slog.Info("record embeddings ready", "count", len(vectors))
	return nil
}

// Match returns the top-K records ranked by non-increasing score.
// Ties keep store insertion order. An empty result means no local
// knowledge, not an error.
func (m *Matcher) Match(ctx context.Context, query string, topK int) []food.Match {
	terms := m.expand(Tokenize(query))
	if len(terms) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = m.cfg.TopK
	}

	var queryVec embedding.Vector
	if m.embedder != nil {
		if vec, err := m.embedder.Embed(ctx, query); err == nil {
			queryVec = vec
		} else {
			slog.Debug("query embedding failed, keyword-only", "error", err)
		}
	}

	m.boostMu.RLock()
	boosts := m.boosts
	m.boostMu.RUnlock()

	results := make([]food.Match, 0, topK)
	for _, rec := range m.store.All() {
		kw, matched := scoreKeywords(rec, terms, boosts)
		score := kw
		if queryVec != nil {
			if recVec := m.vectorFor(rec.ID); recVec != nil {
				cos := embedding.CosineSimilarity(queryVec, recVec)
				score = kw*m.cfg.KeywordWeight + cos*m.cfg.SemanticWeight
			}
		}
		if score > m.cfg.MinScore {
			results = append(results, food.Match{Record: rec, Score: score, MatchedTerms: matched})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// NarrowToSingle reports whether the query asks about one specific item,
// in which case the caller should keep only the top match: a named
// pulse, or a confident lead with a strong title or nutrient signal.
func NarrowToSingle(query string, matches []food.Match) bool {
	if len(matches) == 0 {
		return false
	}
	tokens := Tokenize(query)
	for _, t := range tokens {
		if _, ok := productTerms[t]; ok {
			return true
		}
	}

	top := matches[0].Score
	second := 0.0
	if len(matches) > 1 {
		second = matches[1].Score
	}
	if top < 0.4 || (len(matches) > 1 && top-second < 0.1) {
		return false
	}

	titleTokens := make(map[string]struct{})
	for _, t := range Tokenize(matches[0].Record.Title) {
		titleTokens[t] = struct{}{}
	}
	for _, t := range tokens {
		if _, ok := titleTokens[t]; ok {
			return true
		}
		if _, ok := signalTerms[t]; ok {
			return true
		}
	}
	return false
}

// expand adds synonym terms at the configured discount, skipping terms
// already present at full weight.
func (m *Matcher) expand(base []string) []weightedTerm {
	seen := make(map[string]struct{}, len(base))
	terms := make([]weightedTerm, 0, len(base))
	for _, t := range base {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, weightedTerm{term: t, weight: 1.0})
	}
	for _, t := range base {
		for _, syn := range synonyms[t] {
			if _, dup := seen[syn]; dup {
				continue
			}
			seen[syn] = struct{}{}
			terms = append(terms, weightedTerm{term: syn, weight: m.cfg.SynonymDiscount})
		}
	}
	return terms
}

// scoreKeywords computes the normalized keyword score for one record and
// the ordered terms that contributed.
func scoreKeywords(rec *food.Record, terms []weightedTerm, boosts map[string]float64) (float64, []string) {
	title := strings.ToLower(rec.Title)
	category := strings.ToLower(string(rec.Category))
	content := strings.ToLower(rec.Content)

	var raw float64
	var matched []string
	for _, wt := range terms {
		var hit float64
		if strings.Contains(title, wt.term) {
			hit += titleWeight
		}
		if strings.Contains(category, wt.term) {
			hit += categoryWeight
		}
		hit += float64(strings.Count(content, wt.term)) * contentWeight
		if hit > 0 {
			raw += hit*wt.weight + boosts[wt.term]
			matched = append(matched, wt.term)
		}
	}

	score := raw / scoreScale
	if score > 1.0 {
		score = 1.0
	}
	return score, matched
}

// searchText is the record text used for embedding.
func searchText(rec *food.Record) string {
	return rec.Title + " " + string(rec.Category) + " " + rec.Content
}

// vectorFor returns the precomputed embedding for a record, or nil.
func (m *Matcher) vectorFor(id string) embedding.Vector {
	m.vecMu.RLock()
	defer m.vecMu.RUnlock()
	return m.vectors[id]
}
