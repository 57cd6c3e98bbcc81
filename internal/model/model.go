// Package model defines the core data types shared across the engine.
package model

import "time"

// Document is an ingested source text. Immutable after ingest.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	Tags      []string  `json:"tags,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	WordCount int       `json:"word_count"`
	CharCount int       `json:"char_count"`
}

// Chunk is a bounded retrievable fragment of a document.
// Strategy-specific fields are populated depending on ChunkType.
type Chunk struct {
	ID             string `json:"id"`
	DocumentID     string `json:"document_id"`
	Content        string `json:"content"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	ChunkIndex     int    `json:"chunk_index"`
	ChunkType      string `json:"chunk_type"`
	SentenceCount  int    `json:"sentence_count,omitempty"`
	ParagraphIndex int    `json:"paragraph_index,omitempty"`
	StartPos       int    `json:"start_pos,omitempty"`
	EndPos         int    `json:"end_pos,omitempty"`
}

// Chunk type tags emitted by the chunker.
const (
	ChunkMedicalParagraph = "medical_paragraph"
	ChunkMedicalSentence  = "medical_sentence"
	ChunkGeneralParagraph = "general_paragraph"
	ChunkSplitParagraph   = "split_paragraph"
	ChunkLongSentence     = "long_sentence"
	ChunkFixedSize        = "fixed_size"
)

// SearchResult is one ranked chunk with its score breakdown.
type SearchResult struct {
	Content       string  `json:"content"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	ChunkType     string  `json:"chunk_type"`
	DocumentID    string  `json:"document_id"`
	ChunkID       string  `json:"chunk_id"`
	Score         float64 `json:"relevance_score"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	CategoryScore float64 `json:"category_score"`
}

// Sentiment labels for a conversation turn.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Memory types for a MemoryEntry.
const (
	MemorySession  = "session"
	MemoryLongTerm = "long_term"
)

// MemoryEntry is one recorded conversation turn.
type MemoryEntry struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	UserID            string            `json:"user_id"`
	UserMessage       string            `json:"user_message"`
	AssistantResponse string            `json:"assistant_response"`
	Timestamp         time.Time         `json:"timestamp"`
	Context           map[string]string `json:"context,omitempty"`
	MemoryType        string            `json:"memory_type"`
	RelevanceScore    float64           `json:"relevance_score"`
	Keywords          []string          `json:"keywords,omitempty"`
	Sentiment         string            `json:"sentiment"`
	PromotedAt        *time.Time        `json:"promoted_at,omitempty"`
}

// UserProfile accumulates per-user counters across turns. The derived
// fields (PersonalityTraits, ConversationStyle, TopInterests) are computed
// on read and never persisted.
type UserProfile struct {
	UserID             string            `json:"user_id"`
	TotalConversations int               `json:"total_conversations"`
	TotalMessages      int               `json:"total_messages"`
	HealthInterests    map[string]int    `json:"health_interests"`
	SentimentCounts    map[string]int    `json:"sentiment_distribution"`
	LastInteraction    time.Time         `json:"last_interaction"`
	Preferences        Preferences       `json:"preferences"`
	PersonalityTraits  PersonalityTraits `json:"personality_traits"`
	ConversationStyle  string            `json:"conversation_style,omitempty"`
	TopInterests       map[string]int    `json:"top_interests,omitempty"`
}

// Preferences holds response-shaping hints for the generation layer.
type Preferences struct {
	ResponseLength string `json:"response_length"`
	TechnicalLevel string `json:"technical_level"`
	EmotionSupport bool   `json:"emotion_support"`
}

// PersonalityTraits are threshold-rule derivations over profile counters.
type PersonalityTraits struct {
	OptimismLevel       string `json:"optimism_level,omitempty"`
	EngagementLevel     string `json:"engagement_level,omitempty"`
	HealthConsciousness string `json:"health_consciousness,omitempty"`
}

// FlowEvent is one entry in the bounded conversation-flow window.
type FlowEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	UserMessage string    `json:"user_message"`
	Sentiment   string    `json:"sentiment"`
}

// ConversationContext tracks session continuity state.
type ConversationContext struct {
	CurrentTopic     string      `json:"current_topic"`
	ConversationFlow []FlowEvent `json:"conversation_flow"`
	UserPreferences  []string    `json:"user_preferences,omitempty"`
}

// ConversationSummary aggregates a session's turns.
type ConversationSummary struct {
	SessionID        string        `json:"session_id"`
	TotalTurns       int           `json:"total_turns"`
	MainTopics       []TopicCount  `json:"main_topics,omitempty"`
	AverageSentiment float64       `json:"average_sentiment"`
	UniqueKeywords   int           `json:"unique_keywords"`
	Duration         time.Duration `json:"duration"`
}

// TopicCount is a keyword with its occurrence count.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}
