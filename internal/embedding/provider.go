package embedding

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// Provider wraps an optional learned embedder with the deterministic
// fallback and a small in-process cache. Embed degrades transparently: if
// the learned backend errors, the fallback answers and the failure is
// logged, never propagated.
type Provider struct {
	primary  Embedder
	fallback *HashingEmbedder
	cache    *ristretto.Cache
	log      *zap.Logger
}

// NewProvider builds a Provider around primary (nil means fallback only).
// The fallback uses the primary's dimension so vectors stay comparable when
// the backend degrades mid-run.
func NewProvider(primary Embedder, dims int, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	if primary != nil {
		dims = primary.Dims()
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     8 << 20,
		BufferItems: 64,
	})
	if err != nil {
		// Only reachable with a bad config literal; run uncached.
		log.Warn("embedding cache disabled", zap.Error(err))
		cache = nil
	}
	return &Provider{
		primary:  primary,
		fallback: NewHashingEmbedder(dims),
		cache:    cache,
		log:      log,
	}
}

// NewFromSettings selects a learned backend by name ("ollama", "openai" or
// empty for none) and wraps it in a Provider.
func NewFromSettings(backend, baseURL, apiKey, modelName string, dims int, log *zap.Logger) *Provider {
	var primary Embedder
	switch backend {
	case "ollama":
		if modelName == "" {
			modelName = "nomic-embed-text"
		}
		primary = NewOllamaEmbedder(baseURL, modelName)
	case "openai":
		primary = NewOpenAIEmbedder(baseURL, apiKey, modelName, dims)
	}
	return NewProvider(primary, dims, log)
}

// Embed returns the vector for text. Results are cached by text; the error
// is always nil so callers can rely on getting a usable vector.
func (p *Provider) Embed(ctx context.Context, text string) (Vector, error) {
	if p.cache != nil {
		if v, ok := p.cache.Get(text); ok {
			return v.(Vector), nil
		}
	}

	vec, err := p.embed(ctx, text)
	if err != nil {
		// embed only errors when the fallback itself is broken, which
		// cannot happen; keep the guard for interface symmetry.
		return make(Vector, p.Dims()), nil
	}

	if p.cache != nil {
		p.cache.Set(text, vec, int64(len(vec))*4)
	}
	return vec, nil
}

func (p *Provider) embed(ctx context.Context, text string) (Vector, error) {
	if p.primary != nil {
		vec, err := p.primary.Embed(ctx, text)
		if err == nil && len(vec) == p.primary.Dims() {
			return vec, nil
		}
		p.log.Warn("learned embedder failed, using fallback", zap.Error(err))
	}
	return p.fallback.Embed(ctx, text)
}

// Dims returns the active vector dimension.
func (p *Provider) Dims() int {
	if p.primary != nil {
		return p.primary.Dims()
	}
	return p.fallback.Dims()
}
