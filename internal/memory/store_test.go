package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kweiss/healthrag/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "memory.db"), DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTurnRelevance(t *testing.T) {
	if got := TurnRelevance(""); got != 0 {
		t.Errorf("relevance(empty) = %v, want 0", got)
	}
	// one health keyword in five words: 1/5*2 + 5/50
	if got := TurnRelevance("I have a mild headache"); got != 0.5 {
		t.Errorf("relevance = %v, want 0.5", got)
	}
	if got := TurnRelevance("pain fever cough headache"); got != 1 {
		t.Errorf("relevance should cap at 1, got %v", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("I need information about my diagnosis")
	want := []string{"need", "information", "about", "diagnosis"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	long := "alpha beta gamma delta epsilon zeta theta iota kappa lambda omicron sigma"
	if got := ExtractKeywords(long); len(got) != 10 {
		t.Errorf("expected keyword cap of 10, got %d", len(got))
	}
}

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"feeling great and much better today", model.SentimentPositive},
		{"terrible pain and feeling sick", model.SentimentNegative},
		{"tell me about vitamins", model.SentimentNeutral},
		{"good but terrible", model.SentimentNeutral}, // tie
	}
	for _, tt := range tests {
		if got := ClassifySentiment(tt.text); got != tt.want {
			t.Errorf("sentiment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestAddTurn_PromotionGating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, promoted, err := s.AddTurn(ctx, TurnParams{
		SessionID:   "sess-1",
		UserID:      "alice",
		UserMessage: "I have a mild headache",
	})
	if err != nil {
		t.Fatal(err)
	}
	if promoted {
		t.Error("low-score message without priority keyword should stay session-only")
	}

	_, promoted, err = s.AddTurn(ctx, TurnParams{
		SessionID:   "sess-1",
		UserID:      "alice",
		UserMessage: "I need information about my diagnosis",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !promoted {
		t.Error("priority keyword should force promotion regardless of score")
	}

	st := s.Stats()
	if st.SessionMemories != 2 {
		t.Errorf("session memories = %d, want 2", st.SessionMemories)
	}
	if st.LongTermMemories != 1 {
		t.Errorf("long-term memories = %d, want 1", st.LongTermMemories)
	}
	// Promotion is a copy, not a move
	if lt := s.longTerm[0]; lt.MemoryType != model.MemoryLongTerm || lt.PromotedAt == nil {
		t.Errorf("long-term copy not marked: %+v", lt)
	}
	if sess := s.sessions["sess-1"][1]; sess.MemoryType != model.MemorySession || sess.PromotedAt != nil {
		t.Errorf("session entry mutated by promotion: %+v", sess)
	}
}

func TestSessionContext_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "u", UserMessage: "hello there friend"})
	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "u", UserMessage: "severe pain and fever symptom treatment needed"})
	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "u", UserMessage: "thanks again"})

	got := s.SessionContext("s", 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].RelevanceScore > got[i-1].RelevanceScore {
			t.Errorf("entries not ordered by relevance: %v then %v",
				got[i-1].RelevanceScore, got[i].RelevanceScore)
		}
	}
	if got[0].UserMessage != "severe pain and fever symptom treatment needed" {
		t.Errorf("highest-relevance entry not first: %q", got[0].UserMessage)
	}

	if limited := s.SessionContext("s", 2); len(limited) != 2 {
		t.Errorf("limit not applied: got %d", len(limited))
	}
	if unknown := s.SessionContext("nope", 0); len(unknown) != 0 {
		t.Errorf("unknown session should be empty, got %d", len(unknown))
	}
}

func TestRelevantLongTerm_UserBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AddTurn(ctx, TurnParams{SessionID: "a1", UserID: "alice", UserMessage: "my diagnosis requires treatment and medication"})
	s.AddTurn(ctx, TurnParams{SessionID: "b1", UserID: "bob", UserMessage: "my diagnosis requires treatment and medication"})

	got := s.RelevantLongTerm("diagnosis treatment medication options", "alice", 5)
	if len(got) != 1 {
		t.Fatalf("expected exactly alice's entry, got %d", len(got))
	}
	if got[0].UserID != "alice" {
		t.Errorf("leaked entry for user %q", got[0].UserID)
	}

	if got := s.RelevantLongTerm("completely unrelated gardening question", "alice", 5); len(got) != 0 {
		t.Errorf("below-threshold entries should be dropped, got %d", len(got))
	}
	if got := s.RelevantLongTerm("", "alice", 5); len(got) != 0 {
		t.Errorf("empty query should yield nothing, got %d", len(got))
	}
}

func TestUserProfile_Derivations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if p := s.UserProfile("ghost"); p != nil {
		t.Fatalf("unknown user should yield nil, got %+v", p)
	}

	for i := 0; i < 12; i++ {
		s.AddTurn(ctx, TurnParams{
			SessionID:   "s",
			UserID:      "carol",
			UserMessage: "feeling great and much better after treatment",
		})
	}

	p := s.UserProfile("carol")
	if p == nil {
		t.Fatal("expected profile")
	}
	if p.TotalMessages != 12 {
		t.Errorf("total messages = %d, want 12", p.TotalMessages)
	}
	if p.TotalConversations != 1 {
		t.Errorf("total conversations = %d, want 1", p.TotalConversations)
	}
	if p.PersonalityTraits.OptimismLevel != "high" {
		t.Errorf("optimism = %q, want high", p.PersonalityTraits.OptimismLevel)
	}
	if p.PersonalityTraits.EngagementLevel != "high" {
		t.Errorf("engagement = %q, want high", p.PersonalityTraits.EngagementLevel)
	}
	if p.ConversationStyle != "casual" {
		t.Errorf("style = %q, want casual", p.ConversationStyle)
	}
	if len(p.TopInterests) == 0 || len(p.TopInterests) > 5 {
		t.Errorf("top interests = %v", p.TopInterests)
	}
}

func TestFlowWindowBounded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "u", UserMessage: "routine checkup question"})
	}
	flow := s.FlowContext("s")
	if flow == nil {
		t.Fatal("expected flow context")
	}
	if len(flow.ConversationFlow) != DefaultFlowWindow {
		t.Errorf("flow window = %d, want %d", len(flow.ConversationFlow), DefaultFlowWindow)
	}
	if flow.CurrentTopic != "routine" {
		t.Errorf("current topic = %q, want routine", flow.CurrentTopic)
	}
}

func TestRetentionSweep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AddTurn(ctx, TurnParams{SessionID: "old", UserID: "u", UserMessage: "my old diagnosis"})
	if s.Stats().LongTermMemories != 1 {
		t.Fatal("setup: expected one promoted entry")
	}

	// Age the stored entries past the retention cutoff
	stale := time.Now().UTC().AddDate(0, 0, -(DefaultRetentionDays + 1))
	s.mu.Lock()
	for i := range s.sessions["old"] {
		s.sessions["old"][i].Timestamp = stale
	}
	for i := range s.longTerm {
		s.longTerm[i].Timestamp = stale
	}
	s.mu.Unlock()

	s.AddTurn(ctx, TurnParams{SessionID: "fresh", UserID: "u", UserMessage: "hello"})

	st := s.Stats()
	if st.LongTermMemories != 0 {
		t.Errorf("expired long-term entries survived: %d", st.LongTermMemories)
	}
	if _, ok := s.sessions["old"]; ok {
		t.Error("emptied session should be removed")
	}
	if st.ActiveSessions != 1 {
		t.Errorf("active sessions = %d, want 1", st.ActiveSessions)
	}
}

func TestClearUserData_Isolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AddTurn(ctx, TurnParams{SessionID: "a1", UserID: "alice", UserMessage: "my diagnosis and treatment"})
	s.AddTurn(ctx, TurnParams{SessionID: "b1", UserID: "bob", UserMessage: "my diagnosis and treatment"})

	if err := s.ClearUserData(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	if p := s.UserProfile("alice"); p != nil {
		t.Error("alice profile should be gone")
	}
	if got := s.RelevantLongTerm("diagnosis treatment", "alice", 5); len(got) != 0 {
		t.Errorf("alice long-term entries should be gone, got %d", len(got))
	}
	if got := s.SessionContext("a1", 0); len(got) != 0 {
		t.Errorf("alice session entries should be gone, got %d", len(got))
	}

	if p := s.UserProfile("bob"); p == nil {
		t.Error("bob profile should survive")
	}
	if got := s.RelevantLongTerm("diagnosis treatment", "bob", 5); len(got) != 1 {
		t.Errorf("bob long-term entries should survive, got %d", len(got))
	}

	if err := s.ClearUserData(ctx, "nobody"); err != nil {
		t.Errorf("unknown user should be a no-op, got %v", err)
	}
}

func TestAddTurn_AnonymousSkipsProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, _, err := s.AddTurn(ctx, TurnParams{
		SessionID:   "anon-1",
		UserMessage: "I have a headache and fever",
	})
	if err != nil {
		t.Fatal(err)
	}
	if entry.UserID != "anonymous" {
		t.Errorf("entry user = %q, want anonymous", entry.UserID)
	}
	if got := s.SessionContext("anon-1", 0); len(got) != 1 {
		t.Fatalf("anonymous turn not stored, got %d entries", len(got))
	}
	if p := s.UserProfile("anonymous"); p != nil {
		t.Errorf("anonymous turns must not build a profile, got %+v", p)
	}
	if st := s.Stats(); st.UserProfiles != 0 {
		t.Errorf("profiles = %d, want 0", st.UserProfiles)
	}
}

func TestImport_MergeAndPersist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.db")

	s, err := NewStore(path, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "alice", UserMessage: "emergency help with severe symptom"})
	existing := s.LongTermEntries()
	if len(existing) != 1 {
		t.Fatalf("setup: want 1 long-term entry, got %d", len(existing))
	}

	ts := time.Now().UTC()
	entries := []model.MemoryEntry{
		existing[0], // same id, must be skipped
		{
			ID:             "imported-1",
			SessionID:      "old-session",
			UserID:         "bob",
			UserMessage:    "my diagnosis and treatment plan",
			Timestamp:      ts,
			RelevanceScore: 0.9,
			Keywords:       []string{"diagnosis", "treatment"},
			Sentiment:      model.SentimentNeutral,
			PromotedAt:     &ts,
		},
		{UserID: "bob", UserMessage: "no id, skipped"},
	}
	profiles := []model.UserProfile{
		{
			UserID:          "bob",
			TotalMessages:   4,
			HealthInterests: map[string]int{"diagnosis": 2},
			SentimentCounts: map[string]int{model.SentimentNeutral: 4},
		},
		{TotalMessages: 1}, // empty user id, skipped
	}

	gotEntries, gotProfiles, err := s.Import(ctx, entries, profiles)
	if err != nil {
		t.Fatal(err)
	}
	if gotEntries != 1 || gotProfiles != 1 {
		t.Fatalf("imported (%d, %d), want (1, 1)", gotEntries, gotProfiles)
	}
	if got := s.RelevantLongTerm("diagnosis treatment", "bob", 5); len(got) != 1 {
		t.Errorf("imported entry not retrievable, got %d", len(got))
	}
	s.Close()

	s2, err := NewStore(path, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if st := s2.Stats(); st.LongTermMemories != 2 {
		t.Errorf("reload long-term = %d, want 2", st.LongTermMemories)
	}
	p := s2.UserProfile("bob")
	if p == nil || p.TotalMessages != 4 {
		t.Fatalf("imported profile lost on reload: %+v", p)
	}
}

func TestLongTermPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.db")

	s, err := NewStore(path, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "dana", UserMessage: "emergency help with severe symptom"})
	s.Close()

	s2, err := NewStore(path, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	st := s2.Stats()
	if st.LongTermMemories != 1 {
		t.Fatalf("reload lost long-term entries: %+v", st)
	}
	if st.SessionMemories != 0 {
		t.Errorf("session entries should not persist, got %d", st.SessionMemories)
	}
	if p := s2.UserProfile("dana"); p == nil || p.TotalMessages != 1 {
		t.Errorf("reloaded profile mismatch: %+v", p)
	}
	e := s2.longTerm[0]
	if e.MemoryType != model.MemoryLongTerm || e.PromotedAt == nil || len(e.Keywords) == 0 {
		t.Errorf("reloaded entry lost fields: %+v", e)
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if got := s.Summary("none"); got != nil {
		t.Fatalf("unknown session should yield nil, got %+v", got)
	}

	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "u", UserMessage: "sleep trouble again"})
	s.AddTurn(ctx, TurnParams{SessionID: "s", UserID: "u", UserMessage: "sleep is much better now, great"})

	sum := s.Summary("s")
	if sum == nil {
		t.Fatal("expected summary")
	}
	if sum.TotalTurns != 2 {
		t.Errorf("turns = %d, want 2", sum.TotalTurns)
	}
	if len(sum.MainTopics) == 0 || sum.MainTopics[0].Topic != "sleep" {
		t.Errorf("main topics = %v, want sleep first", sum.MainTopics)
	}
	if sum.AverageSentiment != 0.5 {
		t.Errorf("average sentiment = %v, want 0.5", sum.AverageSentiment)
	}
}
