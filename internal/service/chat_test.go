package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annapurna-labs/annapurna/internal/adapter/websearch"
	"github.com/annapurna-labs/annapurna/internal/config"
	"github.com/annapurna-labs/annapurna/internal/domain"
	"github.com/annapurna-labs/annapurna/internal/domain/food"
	"github.com/annapurna-labs/annapurna/internal/domain/learning"
	"github.com/annapurna-labs/annapurna/internal/knowledge"
	"github.com/annapurna-labs/annapurna/internal/matcher"
	"github.com/annapurna-labs/annapurna/internal/memo"
	learningport "github.com/annapurna-labs/annapurna/internal/port/learning"
	"github.com/annapurna-labs/annapurna/internal/resilience"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type mockLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (m *mockLLM) Enabled() bool { return true }

func (m *mockLLM) Generate(context.Context, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reply, m.err
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSearch struct {
	results []websearch.Result
	err     error
	calls   int
}

func (m *mockSearch) Enabled() bool { return true }

func (m *mockSearch) Search(context.Context, string, int) ([]websearch.Result, error) {
	m.calls++
	return m.results, m.err
}

type mockLearning struct {
	mu           sync.Mutex
	interactions []*learning.Interaction
	feedback     []*learning.Feedback
	err          error
}

func (m *mockLearning) RecordInteraction(_ context.Context, in *learning.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.interactions = append(m.interactions, in)
	return nil
}

func (m *mockLearning) RecordFeedback(_ context.Context, fb *learning.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.feedback = append(m.feedback, fb)
	return nil
}

func (m *mockLearning) TermBoosts(context.Context) (map[string]float64, error) {
	return nil, nil
}

func (m *mockLearning) Close() error { return nil }

func (m *mockLearning) interactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.interactions)
}

func f(v float64) *float64 { return &v }

func testKnowledge(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.NewStore([]*food.Record{
		{
			ID:       "moong-dal",
			Title:    "Moong Dal (मूंग दाल)",
			Category: "Pulses",
			Content:  "Light and easy to digest. Good for all doshas.",
			Nutrition: food.Nutrition{
				Calories: f(347.0), Protein: f(24.0), Carbs: f(59.0), Fats: f(1.2),
			},
			Ayurveda: food.Ayurveda{Rasa: "Sweet", Virya: "Cooling", DoshaEffects: "Tridoshic"},
		},
		{
			ID:        "toor-dal",
			Title:     "Toor Dal",
			Category:  "Pulses",
			Content:   "Common base for sambar.",
			Nutrition: food.Nutrition{Calories: f(343.0), Protein: f(22.0)},
		},
		{
			ID:        "basmati-rice",
			Title:     "Basmati Rice",
			Category:  "Cereals",
			Content:   "Aromatic long-grain rice.",
			Nutrition: food.Nutrition{Calories: f(350.0), Carbs: f(78.0)},
		},
		{
			ID:        "spinach",
			Title:     "Spinach (पालक)",
			Category:  "Vegetables",
			Content:   "Leafy green rich in iron.",
			Nutrition: food.Nutrition{Calories: f(23.0)},
		},
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func newTestService(t *testing.T, llm LLMClient, search SearchClient, store *mockLearning) *ChatService {
	t.Helper()
	kb := testKnowledge(t)
	cfg := config.Defaults()
	m := matcher.New(kb, cfg.Matcher)
	sessions := NewSessionMemory(cfg.Memory.MaxTurns, cfg.Memory.ContextTurns)
	var ls learningport.Store
	if store != nil {
		ls = store
	}
	return NewChatService(kb, m, memo.New(newMapCache()), llm, search, ls, sessions, cfg.Matcher, cfg.Cache)
}

func TestRespondFromKnowledgeBase(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	ans, err := svc.Respond(context.Background(), "calories in moong dal", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !strings.Contains(ans.Response, "347") {
		t.Errorf("response must contain the calorie value, got:\n%s", ans.Response)
	}
	found := false
	for _, src := range ans.Sources {
		if strings.Contains(src.Title, "Moong Dal") {
			found = true
			if src.Kind != food.SourceLocal {
				t.Errorf("local source tagged %q", src.Kind)
			}
		}
	}
	if !found {
		t.Errorf("sources must include Moong Dal, got %+v", ans.Sources)
	}
}

func TestRespondEmptyMessage(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.Respond(context.Background(), "   ", "en", "sess-1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRespondLLMFailureFallsBack(t *testing.T) {
	llm := &mockLLM{err: errors.New("upstream timeout")}
	svc := newTestService(t, llm, nil, nil)

	ans, err := svc.Respond(context.Background(), "moong dal nutrition", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond must not fail on LLM error: %v", err)
	}
	if ans.Response == "" {
		t.Fatal("expected non-empty templated fallback")
	}
	if !strings.Contains(ans.Response, "Moong Dal") {
		t.Errorf("fallback must be built from local matches, got:\n%s", ans.Response)
	}
}

func TestRespondCircuitOpenUsesTemplates(t *testing.T) {
	llm := &mockLLM{err: fmt.Errorf("generate: %w", resilience.ErrCircuitOpen)}
	search := &mockSearch{err: fmt.Errorf("search: %w", resilience.ErrCircuitOpen)}
	svc := newTestService(t, llm, search, nil)

	ans, err := svc.Respond(context.Background(), "moong dal nutrition", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond must not fail while circuits are open: %v", err)
	}
	if !strings.Contains(ans.Response, "Moong Dal") {
		t.Errorf("open circuits must still yield a templated local answer, got:\n%s", ans.Response)
	}
	for _, src := range ans.Sources {
		if src.Kind == food.SourceWeb {
			t.Errorf("open search circuit must not produce web sources, got %+v", src)
		}
	}
}

func TestRespondNoMatchFixedMessage(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	ans, err := svc.Respond(context.Background(), "quantum chromodynamics", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if ans.Response != NoInformationMessage("en") {
		t.Errorf("expected the fixed no-information message, got:\n%s", ans.Response)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("expected zero sources, got %d", len(ans.Sources))
	}
}

func TestRespondUsesCache(t *testing.T) {
	llm := &mockLLM{reply: "Moong dal has 347 kcal per 100g."}
	svc := newTestService(t, llm, nil, nil)

	first, err := svc.Respond(context.Background(), "moong dal calories", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if first.Cached {
		t.Fatal("first answer must not be cached")
	}

	second, err := svc.Respond(context.Background(), "moong dal calories", "en", "sess-2")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !second.Cached {
		t.Fatal("second identical query must hit the cache")
	}
	if llm.callCount() != 1 {
		t.Fatalf("cache must prevent a second remote call, got %d calls", llm.callCount())
	}
	if second.Response != first.Response {
		t.Error("cached answer must match the original")
	}
}

func TestRespondLLMAnswerUsed(t *testing.T) {
	llm := &mockLLM{reply: "Moong dal provides 347 kcal and 24g protein per 100g."}
	svc := newTestService(t, llm, nil, nil)

	ans, err := svc.Respond(context.Background(), "tell me about moong dal", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if ans.Response != llm.reply {
		t.Errorf("expected the LLM answer verbatim, got:\n%s", ans.Response)
	}
}

func TestRespondEnrichmentOnMiss(t *testing.T) {
	search := &mockSearch{results: []websearch.Result{
		{Title: "Quinoa overview", Link: "https://example.com/quinoa", Snippet: "A protein-rich seed."},
	}}
	svc := newTestService(t, nil, search, nil)

	ans, err := svc.Respond(context.Background(), "tell me about quinoa", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if search.calls != 1 {
		t.Fatalf("expected one search call, got %d", search.calls)
	}
	if !strings.Contains(ans.Response, "Quinoa overview") {
		t.Errorf("web-only answer must cite web results, got:\n%s", ans.Response)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Kind != food.SourceWeb {
		t.Fatalf("expected one web source, got %+v", ans.Sources)
	}
	if ans.Sources[0].Link == "" {
		t.Error("web source must carry its link")
	}
}

func TestRespondSearchFailureDegrades(t *testing.T) {
	search := &mockSearch{err: errors.New("quota exceeded")}
	svc := newTestService(t, nil, search, nil)

	ans, err := svc.Respond(context.Background(), "tell me about quinoa", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond must not surface search errors: %v", err)
	}
	if ans.Response != NoInformationMessage("en") {
		t.Errorf("expected fixed message after silent search failure, got:\n%s", ans.Response)
	}
}

func TestRespondRecordsInteraction(t *testing.T) {
	store := &mockLearning{}
	svc := newTestService(t, nil, nil, store)

	_, err := svc.Respond(context.Background(), "moong dal", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.interactionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.interactionCount() != 1 {
		t.Fatal("expected one recorded interaction")
	}
	store.mu.Lock()
	in := store.interactions[0]
	store.mu.Unlock()
	if in.Query != "moong dal" {
		t.Errorf("unexpected recorded query %q", in.Query)
	}
	if len(in.MatchedIDs) == 0 || in.MatchedIDs[0] != "moong-dal" {
		t.Errorf("expected matched record IDs, got %v", in.MatchedIDs)
	}
}

func TestRespondLearningFailureSwallowed(t *testing.T) {
	store := &mockLearning{err: errors.New("disk full")}
	svc := newTestService(t, nil, nil, store)

	ans, err := svc.Respond(context.Background(), "moong dal", "en", "sess-1")
	if err != nil {
		t.Fatalf("learning failures must never fail the request: %v", err)
	}
	if ans.Response == "" {
		t.Fatal("expected a response despite learning failure")
	}
}

func TestRespondAppendsSessionTurn(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.Respond(context.Background(), "moong dal", "en", "sess-9")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	turns := svc.sessions.Turns("sess-9")
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Query != "moong dal" {
		t.Errorf("unexpected recorded query %q", turns[0].Query)
	}
}

func TestRespondDietPlan(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	ans, err := svc.Respond(context.Background(), "diet plan 2200 vegetarian", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !strings.Contains(ans.Response, "Diet Plan (~2200 kcal)") {
		t.Errorf("expected a 2200 kcal plan, got:\n%s", ans.Response)
	}
	if !strings.Contains(ans.Response, "Breakfast") || !strings.Contains(ans.Response, "Dinner") {
		t.Errorf("plan must include all meals, got:\n%s", ans.Response)
	}
}

func TestRespondSmalltalk(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	ans, err := svc.Respond(context.Background(), "hello", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !strings.Contains(ans.Response, "nutrition and Ayurveda") {
		t.Errorf("expected greeting reply, got:\n%s", ans.Response)
	}
}

func TestRespondHindi(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	ans, err := svc.Respond(context.Background(), "moong dal", "hi", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !strings.Contains(ans.Response, "पोषण जानकारी") {
		t.Errorf("expected Hindi section labels, got:\n%s", ans.Response)
	}
}

func TestRecordFeedback(t *testing.T) {
	store := &mockLearning{}
	svc := newTestService(t, nil, nil, store)

	if err := svc.RecordFeedback(context.Background(), "sess-1", 4, "useful"); err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}
	if len(store.feedback) != 1 {
		t.Fatalf("expected 1 feedback entry, got %d", len(store.feedback))
	}
	if r := store.feedback[0].Rating; r == nil || *r != 4 {
		t.Errorf("expected in-range rating to persist as 4, got %v", r)
	}

	// Feedback is purely additive: an out-of-range or omitted rating is
	// stored as absent, never rejected.
	if err := svc.RecordFeedback(context.Background(), "sess-1", 9, ""); err != nil {
		t.Fatalf("out-of-range rating must not error, got %v", err)
	}
	if err := svc.RecordFeedback(context.Background(), "sess-1", 0, "just a note"); err != nil {
		t.Fatalf("comment-only feedback must not error, got %v", err)
	}
	if len(store.feedback) != 3 {
		t.Fatalf("expected 3 feedback entries, got %d", len(store.feedback))
	}
	if r := store.feedback[1].Rating; r != nil {
		t.Errorf("expected out-of-range rating stored as nil, got %d", *r)
	}
	last := store.feedback[2]
	if last.Rating != nil || last.Comment != "just a note" {
		t.Errorf("expected comment-only entry with nil rating, got %+v", last)
	}
}

func TestSourcesOrderedByScore(t *testing.T) {
	matches := []food.Match{
		{Record: &food.Record{Title: "Moong Dal"}, Score: 10.2},
		{Record: &food.Record{Title: "Masoor Dal"}, Score: 9.5},
		{Record: &food.Record{Title: "Chana Dal"}, Score: 2.1},
	}
	web := []websearch.Result{
		{Title: "Dal nutrition guide", Link: "https://example.com/dal", Snippet: "overview"},
	}

	sources := buildSources(matches, web)
	if len(sources) != 4 {
		t.Fatalf("expected 4 sources, got %d", len(sources))
	}
	wantOrder := []string{"Moong Dal", "Masoor Dal", "Chana Dal", "Dal nutrition guide"}
	for i, title := range wantOrder {
		if sources[i].Title != title {
			t.Errorf("source %d: expected %q, got %q", i, title, sources[i].Title)
		}
	}
	if sources[0].Similarity != "10.20" {
		t.Errorf("expected formatted similarity 10.20, got %q", sources[0].Similarity)
	}
	if sources[3].Kind != food.SourceWeb || sources[3].Similarity != "" {
		t.Errorf("expected unscored web source last, got %+v", sources[3])
	}
}

func TestSourcesDedupedByTitle(t *testing.T) {
	search := &mockSearch{results: []websearch.Result{
		{Title: "Moong Dal (मूंग दाल)", Link: "https://example.com", Snippet: "dup"},
	}}
	// Force enrichment by using a weakly matching query.
	svc := newTestService(t, nil, search, nil)

	ans, err := svc.Respond(context.Background(), "pale pulse", "en", "sess-1")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	seen := make(map[string]int)
	for _, src := range ans.Sources {
		seen[strings.ToLower(src.Title)]++
	}
	for title, n := range seen {
		if n > 1 {
			t.Errorf("source %q appears %d times", title, n)
		}
	}
}
