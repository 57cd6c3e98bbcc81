// Package knowledge owns documents, chunks, and embeddings, and exposes
// ingest and ranked search over them.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kweiss/healthrag/internal/chunker"
	"github.com/kweiss/healthrag/internal/embedding"
	"github.com/kweiss/healthrag/internal/model"
	"github.com/kweiss/healthrag/internal/relevance"
)

// DefaultSearchLimit bounds search results when the caller passes none.
const DefaultSearchLimit = 5

// Index is the knowledge search index. The in-memory collections are the
// scan path and stay authoritative; SQLite provides durability with
// write-through on ingest. Ingest and Clear are writers, Search and Stats
// readers.
type Index struct {
	mu       sync.RWMutex
	db       *store
	embed    embedding.Embedder
	scorer   *relevance.Scorer
	chunking chunker.Options
	log      *zap.Logger

	documents []model.Document
	chunks    []model.Chunk
	vectors   map[string]embedding.Vector
}

// AddParams holds parameters for ingesting a document.
type AddParams struct {
	Title    string
	Content  string
	Category string
	Source   string
	Tags     []string
}

// SearchParams holds parameters for a ranked search.
type SearchParams struct {
	Query    string
	Limit    int
	Category string // optional soft filter
}

// NewIndex opens (or creates) the index at dbPath and loads persisted state.
func NewIndex(dbPath string, embed embedding.Embedder, scorer *relevance.Scorer, chunking chunker.Options, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if scorer == nil {
		scorer = relevance.NewScorer(relevance.DefaultWeights(), relevance.DefaultThreshold)
	}
	if chunking.ChunkSize == 0 {
		chunking = chunker.DefaultOptions()
	}

	db, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		db:       db,
		embed:    embed,
		scorer:   scorer,
		chunking: chunking,
		log:      log,
		vectors:  map[string]embedding.Vector{},
	}
	if err := idx.load(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("knowledge index loaded",
		zap.Int("documents", len(idx.documents)),
		zap.Int("chunks", len(idx.chunks)))
	return idx, nil
}

// Close releases the underlying database.
func (idx *Index) Close() error { return idx.db.Close() }

// AddDocument chunks, embeds, and stores a document. The document id is a
// stable content hash, so re-ingesting identical content is a no-op
// returning the existing document.
func (idx *Index) AddDocument(ctx context.Context, p AddParams) (*model.Document, error) {
	doc := model.Document{
		ID:        DocumentID(p.Title, p.Content),
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		Source:    p.Source,
		Tags:      p.Tags,
		AddedAt:   time.Now().UTC(),
		WordCount: len(strings.Fields(p.Content)),
		CharCount: len(p.Content),
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range idx.documents {
		if idx.documents[i].ID == doc.ID {
			return &idx.documents[i], nil
		}
	}

	chunks := chunker.Split(p.Content, p.Title, p.Category, idx.chunking)
	vectors := make(map[string]embedding.Vector, len(chunks))
	for i := range chunks {
		chunks[i].ID = doc.ID + "_chunk_" + strconv.Itoa(i)
		chunks[i].DocumentID = doc.ID
		vec, err := idx.embed.Embed(ctx, chunks[i].Content)
		if err != nil {
			// Providers degrade internally; a bare Embedder may not.
			idx.log.Warn("chunk embedding failed", zap.String("chunk", chunks[i].ID), zap.Error(err))
			vec = make(embedding.Vector, idx.embed.Dims())
		}
		vectors[chunks[i].ID] = vec
	}

	if err := idx.db.saveDocument(ctx, doc, chunks, vectors); err != nil {
		// In-memory state stays authoritative; the write is lost on restart.
		idx.log.Error("persist document failed", zap.String("doc", doc.ID), zap.Error(err))
	}

	idx.documents = append(idx.documents, doc)
	idx.chunks = append(idx.chunks, chunks...)
	for id, vec := range vectors {
		idx.vectors[id] = vec
	}

	idx.log.Info("document ingested",
		zap.String("doc", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)))
	return &doc, nil
}

// Search embeds the query once and scores every stored chunk. An empty
// query or empty index yields an empty result, never an error.
func (idx *Index) Search(ctx context.Context, p SearchParams) ([]model.SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	queryVec, err := idx.embed.Embed(ctx, query)
	if err != nil {
		idx.log.Warn("query embedding failed", zap.Error(err))
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]model.SearchResult, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		vec, ok := idx.vectors[c.ID]
		if !ok {
			continue
		}
		b := idx.scorer.Score(queryVec, vec, query, c, p.Category)
		results = append(results, model.SearchResult{
			Content:       c.Content,
			Title:         c.Title,
			Category:      c.Category,
			ChunkType:     c.ChunkType,
			DocumentID:    c.DocumentID,
			ChunkID:       c.ID,
			Score:         b.Combined,
			SemanticScore: b.Semantic,
			KeywordScore:  b.Keyword,
			CategoryScore: b.Category,
		})
	}
	return idx.scorer.Rank(results, limit), nil
}

// Clear drops all documents, chunks, and embeddings.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.documents = nil
	idx.chunks = nil
	idx.vectors = map[string]embedding.Vector{}

	if err := idx.db.clear(ctx); err != nil {
		idx.log.Error("clear persistence failed", zap.Error(err))
		return err
	}
	idx.log.Info("knowledge index cleared")
	return nil
}

// Documents returns a copy of the stored document metadata.
func (idx *Index) Documents() []model.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]model.Document, len(idx.documents))
	copy(out, idx.documents)
	return out
}

// load restores in-memory state from the database.
func (idx *Index) load(ctx context.Context) error {
	docs, chunks, vectors, err := idx.db.loadAll(ctx)
	if err != nil {
		return err
	}
	idx.documents = docs
	idx.chunks = chunks
	idx.vectors = vectors
	return nil
}

// DocumentID derives the stable document id: the first 12 hex chars of the
// SHA-256 of the title joined with the first 100 content characters.
func DocumentID(title, content string) string {
	prefix := content
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	sum := sha256.Sum256([]byte(title + ":" + prefix))
	return hex.EncodeToString(sum[:])[:12]
}
