package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/edgard/baristabot/internal/database"
)

// ChunkSource is the part of database.Store the retriever reads from.
type ChunkSource interface {
	ListChunks(ctx context.Context) ([]database.DocumentChunk, error)
}

type indexedChunk struct {
	content string
	vec     []float32
}

// VectorRetriever ranks stored chunks by cosine similarity to the query.
// The index is loaded on first use and kept in memory until Reload.
type VectorRetriever struct {
	source   ChunkSource
	embedder Embedder
	cache    EmbeddingCache
	log      *slog.Logger

	mu     sync.RWMutex
	loaded bool
	chunks []indexedChunk
}

// NewVectorRetriever creates a retriever. cache may be nil.
func NewVectorRetriever(source ChunkSource, embedder Embedder, cache EmbeddingCache, log *slog.Logger) *VectorRetriever {
	if log == nil {
		log = slog.Default()
	}
	return &VectorRetriever{
		source:   source,
		embedder: embedder,
		cache:    cache,
		log:      log.With("component", "retriever"),
	}
}

// Reload replaces the in-memory index with the stored chunks.
func (r *VectorRetriever) Reload(ctx context.Context) error {
	stored, err := r.source.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	chunks := make([]indexedChunk, 0, len(stored))
	for _, c := range stored {
		vec, err := DecodeEmbedding(c.Embedding)
		if err != nil || len(vec) == 0 {
			r.log.WarnContext(ctx, "Skipping chunk with bad embedding", "chunk_id", c.ID, "source", c.Source, "error", err)
			continue
		}
		chunks = append(chunks, indexedChunk{content: c.Content, vec: vec})
	}

	r.mu.Lock()
	r.chunks = chunks
	r.loaded = true
	r.mu.Unlock()

	r.log.InfoContext(ctx, "Index loaded", "chunks", len(chunks))
	return nil
}

func (r *VectorRetriever) snapshot(ctx context.Context) ([]indexedChunk, error) {
	r.mu.RLock()
	loaded, chunks := r.loaded, r.chunks
	r.mu.RUnlock()
	if loaded {
		return chunks, nil
	}

	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chunks, nil
}

// Retrieve returns the contents of the k chunks most similar to query.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return nil, nil
	}

	chunks, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		r.log.DebugContext(ctx, "Index is empty")
		return nil, nil
	}

	qvec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(chunks))
	for i, c := range chunks {
		ranked[i] = scored{idx: i, score: cosine(qvec, c.vec)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = chunks[ranked[i].idx].content
	}
	return out, nil
}

func (r *VectorRetriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(ctx, query); ok {
			r.log.DebugContext(ctx, "Query embedding cache hit")
			return v, nil
		}
	}

	v, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(v) == 0 {
		return nil, errors.New("embedder returned an empty query vector")
	}

	if r.cache != nil {
		r.cache.Set(ctx, query, v)
	}
	return v, nil
}
