// Package memory tracks per-session conversation memory, long-term promoted
// entries, and user profiles with relevance-based promotion and expiry.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kweiss/healthrag/internal/model"
)

// Defaults for the memory lifecycle configuration.
const (
	DefaultRetentionDays     = 30
	DefaultContextWindow     = 10
	DefaultFlowWindow        = 20
	DefaultLongTermThreshold = 0.7
	DefaultLongTermLimit     = 5

	maxKeywords    = 10
	flowPreviewLen = 50
)

// healthKeywords drive the turn relevance heuristic.
var healthKeywords = map[string]bool{
	"health": true, "medical": true, "doctor": true, "symptom": true,
	"treatment": true, "medicine": true, "pain": true, "fever": true,
	"cough": true, "headache": true,
}

// priorityKeywords force promotion to long-term storage regardless of score.
var priorityKeywords = map[string]bool{
	"emergency": true, "symptom": true, "treatment": true,
	"medication": true, "diagnosis": true,
}

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "happy": true,
	"better": true, "improved": true, "helpful": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "pain": true, "hurt": true,
	"sick": true, "worried": true, "anxious": true, "depressed": true,
}

// memoryStopWords filter keyword extraction. Deliberately smaller than the
// search scorer's stop list: memory keywords feed profile interests, where
// question words still carry signal.
var memoryStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true,
}

// Options configures the memory lifecycle.
type Options struct {
	RetentionDays     int
	ContextWindow     int
	FlowWindow        int
	LongTermThreshold float64
}

// DefaultOptions returns the standard lifecycle configuration.
func DefaultOptions() Options {
	return Options{
		RetentionDays:     DefaultRetentionDays,
		ContextWindow:     DefaultContextWindow,
		FlowWindow:        DefaultFlowWindow,
		LongTermThreshold: DefaultLongTermThreshold,
	}
}

// TurnParams holds one recorded conversation turn.
type TurnParams struct {
	SessionID         string
	UserID            string
	UserMessage       string
	AssistantResponse string
	Context           map[string]string
}

// Stats aggregates memory counts.
type Stats struct {
	SessionMemories  int `json:"session_memories"`
	LongTermMemories int `json:"long_term_memories"`
	TotalMemories    int `json:"total_memories"`
	ActiveSessions   int `json:"active_sessions"`
	UserProfiles     int `json:"user_profiles"`
}

// Store owns session and long-term conversation entries plus user profiles.
// Sessions and flow contexts live in memory only; long-term entries and
// profiles write through to SQLite and survive restarts. AddTurn and
// ClearUserData are writers, the retrieval methods readers.
type Store struct {
	mu      sync.RWMutex
	db      *store
	opts    Options
	log     *zap.Logger
	entropy *rand.Rand

	sessions map[string][]model.MemoryEntry
	flows    map[string]*model.ConversationContext
	longTerm []model.MemoryEntry
	profiles map[string]*model.UserProfile
}

// NewStore opens (or creates) the memory database at dbPath and loads
// persisted long-term entries and profiles.
func NewStore(dbPath string, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	if opts.FlowWindow <= 0 {
		opts.FlowWindow = DefaultFlowWindow
	}
	if opts.LongTermThreshold <= 0 {
		opts.LongTermThreshold = DefaultLongTermThreshold
	}

	db, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	longTerm, profiles, err := db.loadAll(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info("memory store loaded",
		zap.Int("long_term", len(longTerm)),
		zap.Int("profiles", len(profiles)))
	return &Store{
		db:       db,
		opts:     opts,
		log:      log,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: map[string][]model.MemoryEntry{},
		flows:    map[string]*model.ConversationContext{},
		longTerm: longTerm,
		profiles: profiles,
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// AddTurn records one conversation turn: scores it, classifies sentiment,
// extracts keywords, updates the session flow and the user profile, promotes
// a copy to long-term storage when warranted, and sweeps expired entries.
// An empty user id stores the entry as "anonymous" and skips the profile
// update. The returned bool reports whether the turn was promoted.
func (s *Store) AddTurn(ctx context.Context, p TurnParams) (*model.MemoryEntry, bool, error) {
	userID := p.UserID
	if userID == "" {
		userID = "anonymous"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	entry := model.MemoryEntry{
		ID:                ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		SessionID:         p.SessionID,
		UserID:            userID,
		UserMessage:       p.UserMessage,
		AssistantResponse: p.AssistantResponse,
		Timestamp:         now,
		Context:           p.Context,
		MemoryType:        model.MemorySession,
		RelevanceScore:    TurnRelevance(p.UserMessage),
		Keywords:          ExtractKeywords(p.UserMessage),
		Sentiment:         ClassifySentiment(p.UserMessage),
	}

	s.sessions[p.SessionID] = append(s.sessions[p.SessionID], entry)
	s.updateFlow(p.SessionID, entry)
	// Anonymous turns are stored but never aggregate into a profile.
	if p.UserID != "" {
		s.updateProfile(ctx, p.UserID, entry)
	}

	promoted := shouldPromote(entry)
	if promoted {
		s.promote(ctx, entry, now)
	}
	s.sweep(ctx, now)

	s.log.Debug("turn recorded",
		zap.String("session", p.SessionID),
		zap.String("user", userID),
		zap.Float64("relevance", entry.RelevanceScore),
		zap.Bool("promoted", promoted))
	return &entry, promoted, nil
}

// SessionContext returns the session's entries ordered by relevance then
// recency, truncated to limit (default: the context window). Unknown sessions
// yield an empty result.
func (s *Store) SessionContext(sessionID string, limit int) []model.MemoryEntry {
	if limit <= 0 {
		limit = s.opts.ContextWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sessions[sessionID]
	out := make([]model.MemoryEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RelevantLongTerm returns the user's long-term entries ranked against the
// query. Entries belonging to other users are never considered. An entry
// scores 0.6 on the fraction of query keywords it shares (capped at 1) and
// 0.4 on relevance-score proximity; entries below the threshold are dropped.
func (s *Store) RelevantLongTerm(query, userID string, limit int) []model.MemoryEntry {
	if limit <= 0 {
		limit = DefaultLongTermLimit
	}
	queryKeywords := ExtractKeywords(query)
	if len(queryKeywords) == 0 {
		return nil
	}
	querySet := make(map[string]bool, len(queryKeywords))
	for _, k := range queryKeywords {
		querySet[k] = true
	}
	queryRelevance := TurnRelevance(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry model.MemoryEntry
		score float64
	}
	var matches []scored
	for _, e := range s.longTerm {
		if e.UserID != userID {
			continue
		}
		overlap := 0
		for _, k := range e.Keywords {
			if querySet[k] {
				overlap++
			}
		}
		overlapRatio := float64(overlap) / float64(len(querySet))
		if overlapRatio > 1 {
			overlapRatio = 1
		}
		proximity := 1 - abs(queryRelevance-e.RelevanceScore)
		score := 0.6*overlapRatio + 0.4*proximity
		if score >= s.opts.LongTermThreshold {
			matches = append(matches, scored{e, score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.MemoryEntry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}

// UserProfile returns the user's profile with the derived personality,
// style, and top-interest fields computed on read. Unknown users yield nil.
func (s *Store) UserProfile(userID string) *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	p := *stored
	p.HealthInterests = copyCounts(stored.HealthInterests)
	p.SentimentCounts = copyCounts(stored.SentimentCounts)
	p.PersonalityTraits = deriveTraits(stored)
	p.ConversationStyle = deriveStyle(stored.TotalMessages)
	p.TopInterests = topCounts(stored.HealthInterests, 5)
	return &p
}

// FlowContext returns the session's conversation continuity state, or nil
// for unknown sessions.
func (s *Store) FlowContext(sessionID string) *model.ConversationContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[sessionID]
	if !ok {
		return nil
	}
	out := *flow
	out.ConversationFlow = make([]model.FlowEvent, len(flow.ConversationFlow))
	copy(out.ConversationFlow, flow.ConversationFlow)
	return &out
}

// Summary aggregates a session's turns: top recurring topics, average
// sentiment in [-1, 1], and duration from first to last turn.
func (s *Store) Summary(sessionID string) *model.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sessions[sessionID]
	if len(entries) == 0 {
		return nil
	}

	topics := map[string]int{}
	sentimentSum := 0
	for _, e := range entries {
		for _, k := range e.Keywords {
			topics[k]++
		}
		switch e.Sentiment {
		case model.SentimentPositive:
			sentimentSum++
		case model.SentimentNegative:
			sentimentSum--
		}
	}

	summary := &model.ConversationSummary{
		SessionID:        sessionID,
		TotalTurns:       len(entries),
		MainTopics:       topTopics(topics, 5),
		AverageSentiment: float64(sentimentSum) / float64(len(entries)),
		UniqueKeywords:   len(topics),
	}
	if len(entries) >= 2 {
		summary.Duration = entries[len(entries)-1].Timestamp.Sub(entries[0].Timestamp)
	}
	return summary
}

// ClearUserData removes the user's profile, long-term entries, and session
// entries. Other users' data is untouched. Unknown users are a no-op.
func (s *Store) ClearUserData(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)

	kept := s.longTerm[:0]
	for _, e := range s.longTerm {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	s.longTerm = kept

	for sessionID, entries := range s.sessions {
		filtered := entries[:0]
		for _, e := range entries {
			if e.UserID != userID {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(s.sessions, sessionID)
			delete(s.flows, sessionID)
		} else {
			s.sessions[sessionID] = filtered
		}
	}

	if err := s.db.deleteUser(ctx, userID); err != nil {
		s.log.Error("erase user persistence failed", zap.String("user", userID), zap.Error(err))
		return err
	}
	s.log.Info("user data cleared", zap.String("user", userID))
	return nil
}

// Import merges a backup into the store: long-term entries are added unless
// their id is already present, profiles replace any stored profile for the
// same user. Both go through the write-through path so the merge survives
// restarts. Returns how many entries and profiles were taken.
func (s *Store) Import(ctx context.Context, entries []model.MemoryEntry, profiles []model.UserProfile) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.longTerm))
	for _, e := range s.longTerm {
		existing[e.ID] = true
	}

	entriesAdded := 0
	for _, e := range entries {
		if e.ID == "" || existing[e.ID] {
			continue
		}
		e.MemoryType = model.MemoryLongTerm
		if err := s.db.saveLongTerm(ctx, e); err != nil {
			return entriesAdded, 0, fmt.Errorf("import entry %s: %w", e.ID, err)
		}
		s.longTerm = append(s.longTerm, e)
		existing[e.ID] = true
		entriesAdded++
	}

	profilesMerged := 0
	for _, p := range profiles {
		if p.UserID == "" {
			continue
		}
		if p.HealthInterests == nil {
			p.HealthInterests = map[string]int{}
		}
		if p.SentimentCounts == nil {
			p.SentimentCounts = map[string]int{}
		}
		// Derived fields are computed on read, never stored
		p.PersonalityTraits = model.PersonalityTraits{}
		p.ConversationStyle = ""
		p.TopInterests = nil
		if err := s.db.saveProfile(ctx, p); err != nil {
			return entriesAdded, profilesMerged, fmt.Errorf("import profile %s: %w", p.UserID, err)
		}
		stored := p
		s.profiles[p.UserID] = &stored
		profilesMerged++
	}

	s.log.Info("backup imported",
		zap.Int("entries", entriesAdded),
		zap.Int("profiles", profilesMerged))
	return entriesAdded, profilesMerged, nil
}

// LongTermEntries returns a copy of all long-term entries.
func (s *Store) LongTermEntries() []model.MemoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemoryEntry, len(s.longTerm))
	copy(out, s.longTerm)
	return out
}

// Profiles returns a copy of all stored user profiles, without the derived
// fields.
func (s *Store) Profiles() []model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		cp := *p
		cp.HealthInterests = copyCounts(p.HealthInterests)
		cp.SentimentCounts = copyCounts(p.SentimentCounts)
		out = append(out, cp)
	}
	return out
}

// Stats returns memory counts across both tiers.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionTotal := 0
	for _, entries := range s.sessions {
		sessionTotal += len(entries)
	}
	return Stats{
		SessionMemories:  sessionTotal,
		LongTermMemories: len(s.longTerm),
		TotalMemories:    sessionTotal + len(s.longTerm),
		ActiveSessions:   len(s.sessions),
		UserProfiles:     len(s.profiles),
	}
}

// updateFlow appends to the bounded conversation-flow window. Caller holds
// the write lock.
func (s *Store) updateFlow(sessionID string, e model.MemoryEntry) {
	flow, ok := s.flows[sessionID]
	if !ok {
		flow = &model.ConversationContext{}
		s.flows[sessionID] = flow
	}
	if len(e.Keywords) > 0 {
		flow.CurrentTopic = e.Keywords[0]
	}

	preview := e.UserMessage
	if len(preview) > flowPreviewLen {
		preview = preview[:flowPreviewLen] + "..."
	}
	flow.ConversationFlow = append(flow.ConversationFlow, model.FlowEvent{
		Timestamp:   e.Timestamp,
		UserMessage: preview,
		Sentiment:   e.Sentiment,
	})
	if len(flow.ConversationFlow) > s.opts.FlowWindow {
		flow.ConversationFlow = flow.ConversationFlow[len(flow.ConversationFlow)-s.opts.FlowWindow:]
	}
}

// updateProfile applies per-turn counter increments. Caller holds the write
// lock.
func (s *Store) updateProfile(ctx context.Context, userID string, e model.MemoryEntry) {
	p, ok := s.profiles[userID]
	if !ok {
		p = &model.UserProfile{
			UserID:          userID,
			HealthInterests: map[string]int{},
			SentimentCounts: map[string]int{},
			Preferences: model.Preferences{
				ResponseLength: "medium",
				TechnicalLevel: "general",
				EmotionSupport: true,
			},
		}
		s.profiles[userID] = p
	}

	if len(s.sessions[e.SessionID]) == 1 {
		p.TotalConversations++
	}
	p.TotalMessages++
	for _, k := range e.Keywords {
		p.HealthInterests[k]++
	}
	p.SentimentCounts[e.Sentiment]++
	p.LastInteraction = e.Timestamp

	if err := s.db.saveProfile(ctx, *p); err != nil {
		s.log.Error("persist profile failed", zap.String("user", userID), zap.Error(err))
	}
}

// promote copies a session entry into long-term storage. The session copy
// stays behind and remains subject to its own retention. Caller holds the
// write lock.
func (s *Store) promote(ctx context.Context, e model.MemoryEntry, now time.Time) {
	e.MemoryType = model.MemoryLongTerm
	e.PromotedAt = &now
	s.longTerm = append(s.longTerm, e)
	if err := s.db.saveLongTerm(ctx, e); err != nil {
		s.log.Error("persist long-term memory failed", zap.String("entry", e.ID), zap.Error(err))
	}
}

// sweep purges entries past the retention cutoff from both tiers and drops
// sessions left empty. Caller holds the write lock.
func (s *Store) sweep(ctx context.Context, now time.Time) {
	cutoff := now.AddDate(0, 0, -s.opts.RetentionDays)

	for sessionID, entries := range s.sessions {
		kept := entries[:0]
		for _, e := range entries {
			if e.Timestamp.After(cutoff) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.sessions, sessionID)
			delete(s.flows, sessionID)
		} else {
			s.sessions[sessionID] = kept
		}
	}

	expired := false
	kept := s.longTerm[:0]
	for _, e := range s.longTerm {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		} else {
			expired = true
		}
	}
	s.longTerm = kept

	if expired {
		if err := s.db.deleteBefore(ctx, cutoff); err != nil {
			s.log.Error("retention sweep persistence failed", zap.Error(err))
		}
	}
}

func shouldPromote(e model.MemoryEntry) bool {
	if e.RelevanceScore > 0.8 {
		return true
	}
	for _, k := range e.Keywords {
		if priorityKeywords[k] {
			return true
		}
	}
	return false
}

// TurnRelevance scores a message by health-keyword density boosted by
// length, capped at 1.
func TurnRelevance(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if healthKeywords[w] {
			hits++
		}
	}
	score := float64(hits)/float64(len(words))*2 + float64(len(words))/50
	if score > 1 {
		return 1
	}
	return score
}

// ExtractKeywords returns up to ten lower-cased, stop-word-filtered tokens
// of length greater than two, in message order.
func ExtractKeywords(text string) []string {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) <= 2 || memoryStopWords[w] {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// ClassifySentiment counts hits against the positive and negative word
// lists; a tie is neutral.
func ClassifySentiment(text string) string {
	pos, neg := 0, 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
	}
	switch {
	case pos > neg:
		return model.SentimentPositive
	case neg > pos:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func deriveTraits(p *model.UserProfile) model.PersonalityTraits {
	total := 0
	for _, n := range p.SentimentCounts {
		total += n
	}
	if total == 0 {
		return model.PersonalityTraits{}
	}
	posRatio := float64(p.SentimentCounts[model.SentimentPositive]) / float64(total)
	negRatio := float64(p.SentimentCounts[model.SentimentNegative]) / float64(total)

	traits := model.PersonalityTraits{OptimismLevel: "balanced"}
	switch {
	case posRatio > 0.6:
		traits.OptimismLevel = "high"
	case negRatio > 0.6:
		traits.OptimismLevel = "low"
	}
	switch {
	case total > 10:
		traits.EngagementLevel = "high"
	case total > 5:
		traits.EngagementLevel = "medium"
	default:
		traits.EngagementLevel = "low"
	}
	switch {
	case len(p.HealthInterests) > 5:
		traits.HealthConsciousness = "high"
	case len(p.HealthInterests) > 2:
		traits.HealthConsciousness = "medium"
	default:
		traits.HealthConsciousness = "low"
	}
	return traits
}

func deriveStyle(totalMessages int) string {
	switch {
	case totalMessages < 3:
		return "formal"
	case totalMessages > 10:
		return "casual"
	default:
		return "mixed"
	}
}

func topCounts(counts map[string]int, n int) map[string]int {
	ranked := topTopics(counts, n)
	out := make(map[string]int, len(ranked))
	for _, t := range ranked {
		out[t.Topic] = t.Count
	}
	return out
}

func topTopics(counts map[string]int, n int) []model.TopicCount {
	ranked := make([]model.TopicCount, 0, len(counts))
	for topic, count := range counts {
		ranked = append(ranked, model.TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Topic < ranked[j].Topic
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
