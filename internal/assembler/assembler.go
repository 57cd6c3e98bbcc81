// Package assembler merges knowledge search results, conversation memory,
// and the user profile into one context object for a downstream generation
// step. It performs no generation itself.
package assembler

import (
	"context"
	"crypto/sha256"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kweiss/healthrag/internal/knowledge"
	"github.com/kweiss/healthrag/internal/memory"
	"github.com/kweiss/healthrag/internal/model"
	"github.com/kweiss/healthrag/internal/relevance"
)

const (
	directSearchLimit   = 3
	categorySearchLimit = 2
	maxKnowledgeResults = 5
	sessionContextLimit = 5
	longTermLimit       = 3
	summaryTopics       = 3
)

// Response styles for the generation layer.
const (
	StyleUrgent       = "urgent"
	StyleFriendly     = "friendly"
	StyleDetailed     = "detailed"
	StyleProfessional = "professional"
)

var urgentWords = []string{"emergency", "urgent", "severe"}
var detailWords = []string{"technical", "detailed", "explain"}

// Assembler fans a query out across the knowledge index and memory store.
type Assembler struct {
	index *knowledge.Index
	mem   *memory.Store
	log   *zap.Logger
}

// Params identifies one assembly request.
type Params struct {
	Query     string
	SessionID string
	UserID    string
}

// Summary condenses the retrieved memories.
type Summary struct {
	MainTopics         []model.TopicCount `json:"main_topics,omitempty"`
	AverageSentiment   float64            `json:"average_sentiment"`
	ConversationLength int                `json:"conversation_length"`
}

// Context is the assembled input for the generation layer.
type Context struct {
	Query         string               `json:"query"`
	Knowledge     []model.SearchResult `json:"knowledge,omitempty"`
	Memories      []model.MemoryEntry  `json:"memories,omitempty"`
	Profile       *model.UserProfile   `json:"user_profile,omitempty"`
	Summary       *Summary             `json:"conversation_summary,omitempty"`
	ResponseStyle string               `json:"response_style"`
}

// New returns an Assembler over the given index and memory store.
func New(index *knowledge.Index, mem *memory.Store, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{index: index, mem: mem, log: log}
}

// Build runs the knowledge and memory retrieval passes and merges the
// results. Retrieval failures degrade to fewer results, never an error.
func (a *Assembler) Build(ctx context.Context, p Params) *Context {
	out := &Context{Query: p.Query}

	out.Knowledge = a.retrieveKnowledge(ctx, p.Query)
	out.Memories = a.retrieveMemories(p.Query, p.SessionID, p.UserID)
	if p.UserID != "" {
		out.Profile = a.mem.UserProfile(p.UserID)
	}
	out.Summary = summarize(out.Memories)
	out.ResponseStyle = ResponseStyle(out.Profile, p.Query)

	a.log.Debug("context assembled",
		zap.String("session", p.SessionID),
		zap.Int("knowledge", len(out.Knowledge)),
		zap.Int("memories", len(out.Memories)),
		zap.String("style", out.ResponseStyle))
	return out
}

// retrieveKnowledge runs one direct pass plus a targeted pass for every
// category whose term list matches the query, dedupes by content, and keeps
// the top results.
func (a *Assembler) retrieveKnowledge(ctx context.Context, query string) []model.SearchResult {
	var results []model.SearchResult

	direct, err := a.index.Search(ctx, knowledge.SearchParams{Query: query, Limit: directSearchLimit})
	if err != nil {
		a.log.Warn("direct search failed", zap.Error(err))
	}
	results = append(results, direct...)

	lower := strings.ToLower(query)
	for _, category := range relevance.Categories() {
		if !matchesAny(lower, relevance.CategoryTerms(category)) {
			continue
		}
		targeted, err := a.index.Search(ctx, knowledge.SearchParams{
			Query:    query,
			Limit:    categorySearchLimit,
			Category: category,
		})
		if err != nil {
			a.log.Warn("category search failed", zap.String("category", category), zap.Error(err))
			continue
		}
		results = append(results, targeted...)
	}

	unique := dedupe(results)
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Score > unique[j].Score })
	if len(unique) > maxKnowledgeResults {
		unique = unique[:maxKnowledgeResults]
	}
	return unique
}

func (a *Assembler) retrieveMemories(query, sessionID, userID string) []model.MemoryEntry {
	memories := a.mem.SessionContext(sessionID, sessionContextLimit)
	if userID != "" {
		memories = append(memories, a.mem.RelevantLongTerm(query, userID, longTermLimit)...)
	}
	return memories
}

// ResponseStyle classifies how the generation layer should respond. Urgent
// wording always wins; otherwise the profile's style and optimism steer
// between friendly, detailed, and professional.
func ResponseStyle(profile *model.UserProfile, message string) string {
	lower := strings.ToLower(message)
	if matchesAny(lower, urgentWords) {
		return StyleUrgent
	}
	if profile != nil &&
		(profile.ConversationStyle == "casual" || profile.PersonalityTraits.OptimismLevel == "high") {
		return StyleFriendly
	}
	if matchesAny(lower, detailWords) {
		return StyleDetailed
	}
	return StyleProfessional
}

func summarize(memories []model.MemoryEntry) *Summary {
	if len(memories) == 0 {
		return nil
	}

	topics := map[string]int{}
	sentimentSum := 0
	for _, m := range memories {
		for _, k := range m.Keywords {
			topics[k]++
		}
		switch m.Sentiment {
		case model.SentimentPositive:
			sentimentSum++
		case model.SentimentNegative:
			sentimentSum--
		}
	}

	ranked := make([]model.TopicCount, 0, len(topics))
	for topic, count := range topics {
		ranked = append(ranked, model.TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Topic < ranked[j].Topic
	})
	if len(ranked) > summaryTopics {
		ranked = ranked[:summaryTopics]
	}

	return &Summary{
		MainTopics:         ranked,
		AverageSentiment:   float64(sentimentSum) / float64(len(memories)),
		ConversationLength: len(memories),
	}
}

func dedupe(results []model.SearchResult) []model.SearchResult {
	seen := map[[32]byte]bool{}
	out := results[:0]
	for _, r := range results {
		key := sha256.Sum256([]byte(r.Content))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func matchesAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
