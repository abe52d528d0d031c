// Package service implements the chat pipeline: matching, enrichment,
// response assembly, session memory, and plan generation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	otelmetrics "github.com/annapurna-labs/annapurna/internal/adapter/otel"
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

const (
	// Below this top score the assembler considers local knowledge weak
	// and consults web search when it is configured.
	lowConfidence = 0.4

	sourceSnippetLimit = 200
	maxWebResults      = 3
	learnTimeout       = 5 * time.Second
)

// LLMClient generates a free-text answer from a prompt.
type LLMClient interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// SearchClient retrieves supplementary web results.
type SearchClient interface {
	Enabled() bool
	Search(ctx context.Context, query string, max int) ([]websearch.Result, error)
}

// Answer is one assembled chat reply. MatchedIDs carries the local
// record IDs for the learning log.
type Answer struct {
	Response   string        `json:"response"`
	Sources    []food.Source `json:"sources"`
	MatchedIDs []string      `json:"matched_ids,omitempty"`
	Cached     bool          `json:"-"`
}

// ChatService runs the full pipeline for one chat message.
type ChatService struct {
	store    *knowledge.Store
	matcher  *matcher.Matcher
	memo     *memo.Memoizer
	llm      LLMClient
	search   SearchClient
	learning learningport.Store
	sessions *SessionMemory
	metrics  *otelmetrics.Metrics

	topK        int
	responseTTL time.Duration
	searchTTL   time.Duration
}

// NewChatService wires the pipeline. llm, search, and store may be nil;
// the corresponding stage is skipped.
func NewChatService(
	store *knowledge.Store,
	m *matcher.Matcher,
	memoizer *memo.Memoizer,
	llm LLMClient,
	search SearchClient,
	learningStore learningport.Store,
	sessions *SessionMemory,
	matcherCfg config.Matcher,
	cacheCfg config.Cache,
) *ChatService {
	return &ChatService{
		store:       store,
		matcher:     m,
		memo:        memoizer,
		llm:         llm,
		search:      search,
		learning:    learningStore,
		sessions:    sessions,
		topK:        matcherCfg.TopK,
		responseTTL: cacheCfg.ResponseTTL,
		searchTTL:   cacheCfg.SearchTTL,
	}
}

// SetMetrics attaches metric instruments; a nil service-wide default
// means nothing is recorded.
func (s *ChatService) SetMetrics(m *otelmetrics.Metrics) {
	s.metrics = m
}

func (s *ChatService) countUpstreamFailure(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.UpstreamFailures.Add(ctx, 1)
	}
}

func (s *ChatService) countCircuitSkip(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.CircuitSkips.Add(ctx, 1)
	}
}

// Respond answers one chat message. sessionKey scopes conversation
// memory; it is the client-supplied session ID when present, otherwise
// the client address.
func (s *ChatService) Respond(ctx context.Context, message, lang, sessionKey string) (*Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("empty message: %w", domain.ErrValidation)
	}
	lang = normalizeLang(lang)

	ctx, span := otelmetrics.StartChatSpan(ctx, sessionKey)
	defer span.End()

	cacheQuery := lang + "|" + message
	ans, hit, err := memo.GetOrCompute(ctx, s.memo, memo.KindResponse, cacheQuery, s.responseTTL,
		func(ctx context.Context) (Answer, error) {
			return s.assemble(ctx, message, lang, sessionKey)
		})
	if err != nil {
		return nil, err
	}
	ans.Cached = hit

	s.sessions.Append(sessionKey, message, ans.Response)
	s.recordInteraction(sessionKey, message, &ans)

	return &ans, nil
}

// assemble runs match, enrichment, and LLM stages and always produces
// an answer; upstream failures degrade to local content.
func (s *ChatService) assemble(ctx context.Context, message, lang, sessionKey string) (Answer, error) {
	matches := s.cachedMatch(ctx, message)
	if len(matches) > 0 && matcher.NarrowToSingle(message, matches) {
		matches = matches[:1]
	}

	if len(matches) == 0 {
		if IsDietPlanQuery(message) {
			return Answer{Response: DietPlan(message, s.store.GroupByKind(), lang), Sources: []food.Source{}}, nil
		}
		if reply, ok := Smalltalk(message, lang); ok {
			return Answer{Response: reply, Sources: []food.Source{}}, nil
		}
	}

	var webResults []websearch.Result
	if s.needsEnrichment(matches) {
		webResults = s.cachedSearch(ctx, message)
	}

	response := s.generateOrFallback(ctx, message, lang, sessionKey, matches, webResults)

	matchedIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		matchedIDs = append(matchedIDs, m.Record.ID)
	}
	return Answer{
		Response:   response,
		Sources:    buildSources(matches, webResults),
		MatchedIDs: matchedIDs,
	}, nil
}

func (s *ChatService) needsEnrichment(matches []food.Match) bool {
	if s.search == nil || !s.search.Enabled() {
		return false
	}
	return len(matches) == 0 || matches[0].Score < lowConfidence
}

// cachedMatch memoizes matcher results for a short TTL.
func (s *ChatService) cachedMatch(ctx context.Context, query string) []food.Match {
	ctx, span := otelmetrics.StartMatchSpan(ctx, query)
	defer span.End()

	matches, _, err := memo.GetOrCompute(ctx, s.memo, memo.KindMatch, query, s.searchTTL,
		func(ctx context.Context) ([]food.Match, error) {
			return s.matcher.Match(ctx, query, s.topK), nil
		})
	if err != nil {
		slog.Warn("match cache failed, querying directly", "error", err)
		return s.matcher.Match(ctx, query, s.topK)
	}
	return matches
}

// cachedSearch memoizes web search results. Failures degrade to no
// enrichment.
func (s *ChatService) cachedSearch(ctx context.Context, query string) []websearch.Result {
	ctx, span := otelmetrics.StartEnrichSpan(ctx, "web_search")
	defer span.End()

	results, _, err := memo.GetOrCompute(ctx, s.memo, memo.KindSearch, query, s.searchTTL,
		func(ctx context.Context) ([]websearch.Result, error) {
			return s.search.Search(ctx, query, maxWebResults)
		})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Info("web search circuit open, skipping enrichment")
			s.countCircuitSkip(ctx)
			return nil
		}
		slog.Warn("web search failed", "error", err)
		s.countUpstreamFailure(ctx)
		return nil
	}
	return results
}

// generateOrFallback calls the LLM when configured and falls back to a
// templated answer on any upstream failure.
func (s *ChatService) generateOrFallback(ctx context.Context, message, lang, sessionKey string, matches []food.Match, webResults []websearch.Result) string {
	if s.llm != nil && s.llm.Enabled() && (len(matches) > 0 || len(webResults) > 0) {
		ctx, span := otelmetrics.StartEnrichSpan(ctx, "gemini")
		defer span.End()

		prompt := s.buildPrompt(message, lang, sessionKey, matches, webResults)
		reply, err := s.llm.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply
		}
		if errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Info("llm circuit open, answering from templates")
			s.countCircuitSkip(ctx)
		} else {
			slog.Warn("llm call failed, falling back to templated answer", "error", err)
			s.countUpstreamFailure(ctx)
		}
	}

	if len(matches) > 0 {
		return TemplatedAnswer(message, matches, lang)
	}
	if len(webResults) > 0 {
		return webAnswer(message, webResults, lang)
	}
	return NoInformationMessage(lang)
}

// buildPrompt assembles the bounded LLM context: top matches, web
// snippets, and recent session turns.
func (s *ChatService) buildPrompt(message, lang, sessionKey string, matches []food.Match, webResults []websearch.Result) string {
	var b strings.Builder
	b.WriteString("You are a nutrition and Ayurveda assistant. Answer concisely using only the context below.\n")
	if lang == "hi" {
		b.WriteString("Answer in Hindi.\n")
	} else {
		b.WriteString("Answer in English.\n")
	}

	if len(matches) > 0 {
		b.WriteString("\nKnowledge base:\n")
		for _, m := range matches {
			b.WriteString("- ")
			b.WriteString(m.Record.Title)
			b.WriteString(": ")
			b.WriteString(contentSnippet(m.Record.Content))
			b.WriteString("\n")
		}
	}
	if len(webResults) > 0 {
		b.WriteString("\nWeb results:\n")
		for _, r := range webResults {
			b.WriteString("- ")
			b.WriteString(r.Title)
			b.WriteString(": ")
			b.WriteString(r.Snippet)
			b.WriteString("\n")
		}
	}
	if history := s.sessions.PromptContext(sessionKey); history != "" {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(message)
	return b.String()
}

// webAnswer renders web results when the knowledge base had nothing.
func webAnswer(query string, results []websearch.Result, lang string) string {
	L := labelsFor(lang)
	var lines []string
	lines = append(lines, fmt.Sprintf("%s: %s", L.Question, query))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("\n%s (%s)", r.Title, food.SourceWeb))
		if r.Snippet != "" {
			lines = append(lines, r.Snippet)
		}
	}
	return strings.Join(lines, "\n")
}

// buildSources merges local and web citations, deduplicated by title
// and ordered by relevance. Web results carry no similarity and rank
// after any local match.
func buildSources(matches []food.Match, webResults []websearch.Result) []food.Source {
	type scored struct {
		src   food.Source
		score float64
	}

	candidates := make([]scored, 0, len(matches)+len(webResults))
	for _, m := range matches {
		candidates = append(candidates, scored{
			src: food.Source{
				Title:      m.Record.Title,
				Content:    truncate(m.Record.Content, sourceSnippetLimit),
				Kind:       food.SourceLocal,
				Similarity: fmt.Sprintf("%.2f", m.Score),
			},
			score: m.Score,
		})
	}
	for _, r := range webResults {
		candidates = append(candidates, scored{
			src: food.Source{
				Title:   r.Title,
				Content: truncate(r.Snippet, sourceSnippetLimit),
				Kind:    food.SourceWeb,
				Link:    r.Link,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	seen := make(map[string]bool, len(candidates))
	sources := make([]food.Source, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.src.Title))
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, c.src)
	}
	return sources
}

// recordInteraction logs the turn to the learning store without
// blocking or failing the request.
func (s *ChatService) recordInteraction(sessionKey, message string, ans *Answer) {
	if s.learning == nil {
		return
	}

	matchedIDs := ans.MatchedIDs

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), learnTimeout)
		defer cancel()
		err := s.learning.RecordInteraction(ctx, &learning.Interaction{
			SessionID:  sessionKey,
			Query:      message,
			MatchedIDs: matchedIDs,
			Response:   ans.Response,
		})
		if err != nil {
			slog.Warn("failed to record interaction", "error", err)
		}
	}()
}

// RecordFeedback stores user feedback. Feedback is purely additive and
// never rejected on content: a rating outside 1..5 (including the
// zero value for an omitted field) is stored as absent, not an error.
func (s *ChatService) RecordFeedback(ctx context.Context, sessionID string, rating int, comment string) error {
	if s.learning == nil {
		return nil
	}
	var r *int
	if rating >= 1 && rating <= 5 {
		r = &rating
	}
	if err := s.learning.RecordFeedback(ctx, &learning.Feedback{
		SessionID: sessionID,
		Rating:    r,
		Comment:   comment,
	}); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) > 2 {
		lang = lang[:2]
	}
	if lang != "hi" {
		return "en"
	}
	return "hi"
}
