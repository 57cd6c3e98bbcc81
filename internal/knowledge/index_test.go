package knowledge

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kweiss/healthrag/internal/chunker"
	"github.com/kweiss/healthrag/internal/embedding"
	"github.com/kweiss/healthrag/internal/model"
	"github.com/kweiss/healthrag/internal/relevance"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(
		filepath.Join(t.TempDir(), "knowledge.db"),
		embedding.NewProvider(nil, embedding.DefaultDims, nil),
		relevance.NewScorer(relevance.DefaultWeights(), relevance.DefaultThreshold),
		chunker.DefaultOptions(),
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestDocumentID_Stable(t *testing.T) {
	a := DocumentID("Title", "content goes here")
	b := DocumentID("Title", "content goes here")
	if a != b {
		t.Fatalf("ids differ: %s vs %s", a, b)
	}
	if len(a) != 12 {
		t.Errorf("expected 12-char id, got %d", len(a))
	}
	if DocumentID("Other", "content goes here") == a {
		t.Error("different titles should produce different ids")
	}
}

func TestAddDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc, err := idx.AddDocument(ctx, AddParams{
		Title:    "Sleep Hygiene",
		Content:  "Good sleep matters.\n\nKeep a regular schedule and avoid screens late.",
		Category: "wellness",
		Source:   "manual",
		Tags:     []string{"sleep"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.WordCount == 0 || doc.CharCount == 0 {
		t.Errorf("counts not populated: %+v", doc)
	}

	st := idx.Stats()
	if st.TotalDocuments != 1 {
		t.Fatalf("expected 1 document, got %d", st.TotalDocuments)
	}
	if st.TotalChunks != 2 {
		t.Fatalf("expected 2 chunks, got %d", st.TotalChunks)
	}
	if st.EmbeddingDims != embedding.DefaultDims {
		t.Errorf("dims %d", st.EmbeddingDims)
	}
}

func TestAddDocument_IdempotentOnSameContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	p := AddParams{Title: "Once", Content: "The same content twice.", Category: "general"}

	if _, err := idx.AddDocument(ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.AddDocument(ctx, p); err != nil {
		t.Fatal(err)
	}
	if st := idx.Stats(); st.TotalDocuments != 1 {
		t.Errorf("expected 1 document after re-ingest, got %d", st.TotalDocuments)
	}
}

func TestAddDocument_EmbeddingDimensionInvariant(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	idx.AddDocument(ctx, AddParams{Title: "A", Content: strings.Repeat("Sentence one here. ", 80), Category: "treatment"})
	idx.AddDocument(ctx, AddParams{Title: "B", Content: "Short general text.", Category: "general"})

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for id, vec := range idx.vectors {
		if len(vec) != embedding.DefaultDims {
			t.Errorf("chunk %s: vector length %d, want %d", id, len(vec), embedding.DefaultDims)
		}
	}
}

func TestSearch_EmptyIndexAndEmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, SearchParams{Query: "anything"})
	if err != nil || len(results) != 0 {
		t.Errorf("empty index: got %v, %v", results, err)
	}

	idx.AddDocument(ctx, AddParams{Title: "T", Content: "Some text.", Category: "general"})
	results, err = idx.Search(ctx, SearchParams{Query: "   "})
	if err != nil || len(results) != 0 {
		t.Errorf("empty query: got %v, %v", results, err)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if _, err := idx.Seed(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := idx.Search(ctx, SearchParams{Query: "What are the symptoms of hypertension?", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, _ := idx.Search(ctx, SearchParams{Query: "What are the symptoms of hypertension?", Limit: 5})
		if len(again) != len(first) {
			t.Fatalf("run %d: result count changed %d -> %d", i, len(first), len(again))
		}
		for j := range again {
			if again[j].ChunkID != first[j].ChunkID || again[j].Score != first[j].Score {
				t.Fatalf("run %d: result %d changed", i, j)
			}
		}
	}
}

func TestSearch_HypertensionEndToEnd(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	var hyper SeedDocument
	for _, d := range SeedDocuments() {
		if d.Title == "Hypertension Management" {
			hyper = d
		}
	}
	if len(hyper.Content) <= 2000 {
		t.Fatalf("hypertension document too short: %d chars", len(hyper.Content))
	}

	doc, err := idx.AddDocument(ctx, AddParams{
		Title:    hyper.Title,
		Content:  hyper.Content,
		Category: hyper.Category,
	})
	if err != nil {
		t.Fatal(err)
	}

	medical := 0
	idx.mu.RLock()
	for _, c := range idx.chunks {
		if c.ChunkType == model.ChunkMedicalParagraph || c.ChunkType == model.ChunkMedicalSentence {
			medical++
		}
	}
	idx.mu.RUnlock()
	if medical < 2 {
		t.Fatalf("expected >= 2 medical chunks, got %d", medical)
	}

	results, err := idx.Search(ctx, SearchParams{Query: "What are the symptoms of hypertension?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results above threshold")
	}
	top := results[0]
	if top.DocumentID != doc.ID {
		t.Errorf("top result document %s, want %s", top.DocumentID, doc.ID)
	}
	if top.Score < 0.6 {
		t.Errorf("top combined score %v, want >= 0.6", top.Score)
	}
}

func TestSearch_CategoryPenalty(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	idx.AddDocument(ctx, AddParams{Title: "Flu", Content: "Influenza treatment and rest.", Category: "treatment"})

	direct, _ := idx.Search(ctx, SearchParams{Query: "influenza treatment rest"})
	filtered, _ := idx.Search(ctx, SearchParams{Query: "influenza treatment rest", Category: "wellness"})

	if len(direct) == 0 {
		t.Fatal("expected a direct hit")
	}
	// Penalized score drops below threshold, so the mismatched chunk is gone
	if len(filtered) != 0 {
		t.Errorf("expected penalty to drop result below threshold, got %d results", len(filtered))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge.db")
	provider := embedding.NewProvider(nil, 64, nil)

	idx, err := NewIndex(path, provider, nil, chunker.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	idx.AddDocument(ctx, AddParams{Title: "Persisted", Content: "Persistent content to reload.", Category: "general", Tags: []string{"x"}})
	idx.Close()

	idx2, err := NewIndex(path, provider, nil, chunker.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()

	st := idx2.Stats()
	if st.TotalDocuments != 1 || st.TotalChunks == 0 {
		t.Fatalf("reload lost state: %+v", st)
	}
	docs := idx2.Documents()
	if len(docs) != 1 || docs[0].Title != "Persisted" || len(docs[0].Tags) != 1 {
		t.Errorf("reloaded document mismatch: %+v", docs)
	}
}

func TestLoadAll_CorruptTagsSurfaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge.db")
	provider := embedding.NewProvider(nil, 64, nil)

	idx, err := NewIndex(path, provider, nil, chunker.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	idx.AddDocument(ctx, AddParams{Title: "Tagged", Content: "Content with tags to corrupt.", Category: "general", Tags: []string{"x"}})
	if _, err := idx.db.db.ExecContext(ctx, `UPDATE documents SET tags = 'not-json'`); err != nil {
		t.Fatal(err)
	}
	idx.Close()

	if _, err := NewIndex(path, provider, nil, chunker.DefaultOptions(), nil); err == nil {
		t.Fatal("expected reload to fail on corrupt tags")
	} else if !strings.Contains(err.Error(), "tags") {
		t.Errorf("error should name the tags column, got %v", err)
	}
}

func TestClear(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	idx.Seed(ctx)
	if err := idx.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	st := idx.Stats()
	if st.TotalDocuments != 0 || st.TotalChunks != 0 {
		t.Errorf("clear left state: %+v", st)
	}
}
