package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashVersion identifies the token hash used by HashingEmbedder. Vectors
// produced under different versions are not comparable; bump this when the
// hash function or tokenization changes.
const HashVersion = "fnv1a32/v1"

// DefaultDims is the fallback vector dimension, matching the all-MiniLM
// family of sentence embedders.
const DefaultDims = 384

// punctuation is trimmed from token edges so "pressure," and "pressure"
// land in the same vector position.
const punctuation = ".,!?;:()[]\"'"

// HashingEmbedder is a deterministic bag-of-words embedder. Each token's
// frequency is scattered into a fixed-size vector at an index derived from a
// stable FNV-1a hash, then the vector is L2-normalized. The same text and
// dimension always produce the identical vector, across processes and
// restarts, which keeps ranking reproducible.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a deterministic embedder with the given
// dimension (DefaultDims if <= 0).
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultDims
	}
	return &HashingEmbedder{dims: dims}
}

func (e *HashingEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	freq := map[string]int{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, punctuation)
		if len(word) <= 2 {
			continue
		}
		freq[word]++
	}

	vec := make(Vector, e.dims)
	for word, n := range freq {
		vec[tokenIndex(word, e.dims)] += float32(n)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e *HashingEmbedder) Dims() int { return e.dims }

// tokenIndex maps a token to a vector position using FNV-1a. The runtime
// map hash is seeded per process and must not be used here.
func tokenIndex(token string, dims int) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(dims))
}
