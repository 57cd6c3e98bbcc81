// Package relevance blends semantic, keyword, and category similarity into
// a single [0,1] ranking score for knowledge chunks.
package relevance

import (
	"math"
	"sort"
	"strings"

	"github.com/kweiss/healthrag/internal/embedding"
	"github.com/kweiss/healthrag/internal/model"
)

// Weights control the blend of the three similarity components. They are
// not required to sum to 1.
type Weights struct {
	Semantic float64
	Keyword  float64
	Category float64
}

// DefaultWeights returns the standard component blend.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Keyword: 0.2, Category: 0.1}
}

// DefaultThreshold is the minimum combined score kept by Rank.
const DefaultThreshold = 0.6

// categoryMismatchPenalty softens rather than drops chunks outside a
// requested category filter.
const categoryMismatchPenalty = 0.5

// stopWords are excluded from keyword similarity. The list covers articles,
// conjunctions, prepositions, and the interrogative/auxiliary words that
// dominate natural-language queries.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true,
	"what": true, "which": true, "who": true, "how": true, "why": true,
	"when": true, "where": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "do": true, "does": true, "can": true,
	"could": true, "should": true, "would": true, "i": true, "my": true,
	"you": true, "your": true, "it": true, "this": true, "that": true,
}

// categoryTerms map each category to the query terms that signal it.
// Categories without an entry score 0 on the category component.
var categoryTerms = map[string][]string{
	"medical_condition": {"condition", "disease", "illness", "symptom"},
	"treatment":         {"treatment", "therapy", "medication", "cure"},
	"prevention":        {"prevention", "prevent", "avoid", "protection"},
	"wellness":          {"wellness", "health", "fitness", "lifestyle"},
}

// CategoryTerms returns the signal terms for a category (nil if none).
func CategoryTerms(category string) []string {
	return categoryTerms[category]
}

// Categories lists every category with a term list, in a fixed order.
func Categories() []string {
	return []string{"medical_condition", "treatment", "prevention", "wellness"}
}

// Breakdown is a combined score with its components, kept for
// explainability in search results.
type Breakdown struct {
	Semantic float64
	Keyword  float64
	Category float64
	Combined float64
}

// Scorer computes blended relevance scores.
type Scorer struct {
	weights   Weights
	threshold float64
}

// NewScorer builds a scorer; zero weights fall back to the defaults and a
// non-positive threshold to DefaultThreshold.
func NewScorer(w Weights, threshold float64) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{weights: w, threshold: threshold}
}

// Threshold returns the configured minimum combined score.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Score computes the blended relevance of a chunk against a query. If
// targetCategory is non-empty and differs from the chunk's category the
// combined score is halved.
func (s *Scorer) Score(queryVec, chunkVec embedding.Vector, query string, chunk model.Chunk, targetCategory string) Breakdown {
	b := Breakdown{
		Semantic: embedding.CosineSimilarity(queryVec, chunkVec),
		Keyword:  KeywordSimilarity(query, chunk.Content),
		Category: CategorySimilarity(query, chunk.Category),
	}
	b.Combined = b.Semantic*s.weights.Semantic +
		b.Keyword*s.weights.Keyword +
		b.Category*s.weights.Category
	if targetCategory != "" && chunk.Category != targetCategory {
		b.Combined *= categoryMismatchPenalty
	}
	return b
}

// Rank sorts results by combined score descending, drops those below the
// threshold, and truncates to limit.
func (s *Scorer) Rank(results []model.SearchResult, limit int) []model.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	kept := results[:0]
	for _, r := range results {
		if r.Score >= s.threshold {
			kept = append(kept, r)
		}
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// KeywordSimilarity is the Jaccard index of the stop-word-filtered token
// sets of query and content. Either set emptying yields 0.
func KeywordSimilarity(query, content string) float64 {
	qs := tokenSet(query)
	cs := tokenSet(content)
	if len(qs) == 0 || len(cs) == 0 {
		return 0
	}
	intersection := 0
	for w := range qs {
		if cs[w] {
			intersection++
		}
	}
	union := len(qs) + len(cs) - intersection
	return float64(intersection) / float64(union)
}

// CategorySimilarity is the fraction of the category's signal terms found
// in the query, capped at 1.
func CategorySimilarity(query, category string) float64 {
	terms := categoryTerms[strings.ToLower(category)]
	if len(terms) == 0 {
		return 0
	}
	q := strings.ToLower(query)
	matches := 0
	for _, term := range terms {
		if strings.Contains(q, term) {
			matches++
		}
	}
	return math.Min(1.0, float64(matches)/float64(len(terms)))
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:()[]\"'")
		if w == "" || stopWords[w] {
			continue
		}
		set[w] = true
	}
	return set
}
