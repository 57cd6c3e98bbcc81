package relevance

import (
	"math"
	"testing"

	"github.com/kweiss/healthrag/internal/embedding"
	"github.com/kweiss/healthrag/internal/model"
)

func TestKeywordSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
	}{
		{"identical", "fever cough", "fever cough", 1.0},
		{"disjoint", "fever cough", "diet exercise", 0.0},
		{"stop words only", "the and of", "fever cough", 0.0},
		{"empty content", "fever", "", 0.0},
	}
	for _, tt := range tests {
		got := KeywordSimilarity(tt.query, tt.content)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}

	// Partial overlap: {fever, cough} vs {fever, rest} -> 1/3
	got := KeywordSimilarity("fever cough", "fever rest")
	if math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("partial overlap: got %v, want 1/3", got)
	}
}

func TestCategorySimilarity(t *testing.T) {
	if got := CategorySimilarity("what are the symptom and disease signs", "medical_condition"); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("got %v, want 0.5", got)
	}
	if got := CategorySimilarity("anything at all", "no_such_category"); got != 0 {
		t.Errorf("unknown category: got %v, want 0", got)
	}
	if got := CategorySimilarity("condition disease illness symptom extra", "medical_condition"); got != 1.0 {
		t.Errorf("all terms matched: got %v, want 1.0", got)
	}
}

func TestScore_Blend(t *testing.T) {
	s := NewScorer(DefaultWeights(), DefaultThreshold)
	vec := embedding.Vector{1, 0, 0}
	chunk := model.Chunk{Content: "fever cough", Category: "other"}

	b := s.Score(vec, vec, "fever cough", chunk, "")
	// semantic 1.0, keyword 1.0, category 0 -> 0.7 + 0.2 = 0.9
	if math.Abs(b.Combined-0.9) > 1e-9 {
		t.Errorf("combined %v, want 0.9", b.Combined)
	}
	if b.Semantic != 1.0 || b.Keyword != 1.0 || b.Category != 0 {
		t.Errorf("unexpected breakdown %+v", b)
	}
}

func TestScore_CategoryMismatchPenalty(t *testing.T) {
	s := NewScorer(DefaultWeights(), DefaultThreshold)
	vec := embedding.Vector{1, 0}
	chunk := model.Chunk{Content: "fever", Category: "treatment"}

	full := s.Score(vec, vec, "fever", chunk, "treatment")
	halved := s.Score(vec, vec, "fever", chunk, "medical_condition")
	if math.Abs(halved.Combined-full.Combined/2) > 1e-9 {
		t.Errorf("penalty: got %v, want %v", halved.Combined, full.Combined/2)
	}
}

func TestScore_ZeroVectors(t *testing.T) {
	s := NewScorer(DefaultWeights(), DefaultThreshold)
	b := s.Score(embedding.Vector{0, 0}, embedding.Vector{1, 1}, "q", model.Chunk{Content: "c"}, "")
	if b.Semantic != 0 {
		t.Errorf("zero-norm semantic should be 0, got %v", b.Semantic)
	}
}

func TestRank(t *testing.T) {
	s := NewScorer(DefaultWeights(), 0.6)
	results := []model.SearchResult{
		{ChunkID: "low", Score: 0.3},
		{ChunkID: "top", Score: 0.95},
		{ChunkID: "mid", Score: 0.7},
		{ChunkID: "edge", Score: 0.6},
	}
	ranked := s.Rank(results, 2)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].ChunkID != "top" || ranked[1].ChunkID != "mid" {
		t.Errorf("wrong order: %s, %s", ranked[0].ChunkID, ranked[1].ChunkID)
	}
}

func TestRank_ThresholdInclusive(t *testing.T) {
	s := NewScorer(DefaultWeights(), 0.6)
	ranked := s.Rank([]model.SearchResult{{ChunkID: "edge", Score: 0.6}}, 10)
	if len(ranked) != 1 {
		t.Errorf("score == threshold should be kept")
	}
}
