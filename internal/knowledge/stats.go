package knowledge

import "math"

// Stats aggregates read-only index statistics.
type Stats struct {
	TotalDocuments   int            `json:"total_documents"`
	TotalChunks      int            `json:"total_chunks"`
	Categories       map[string]int `json:"categories"`
	ChunkTypes       map[string]int `json:"chunk_types"`
	AverageChunkSize float64        `json:"average_chunk_size"`
	EmbeddingDims    int            `json:"embedding_dimension"`
	ScoreThreshold   float64        `json:"relevance_threshold"`
}

// Stats returns aggregation by category and chunk type plus the average
// chunk length.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	st := Stats{
		TotalDocuments: len(idx.documents),
		TotalChunks:    len(idx.chunks),
		Categories:     map[string]int{},
		ChunkTypes:     map[string]int{},
		EmbeddingDims:  idx.embed.Dims(),
		ScoreThreshold: idx.scorer.Threshold(),
	}

	total := 0
	for _, c := range idx.chunks {
		st.Categories[c.Category]++
		st.ChunkTypes[c.ChunkType]++
		total += len(c.Content)
	}
	if len(idx.chunks) > 0 {
		st.AverageChunkSize = math.Round(float64(total)/float64(len(idx.chunks))*100) / 100
	}
	return st
}
