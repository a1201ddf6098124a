// Package retrieval builds and searches the vector index that grounds the
// assistant's answers in the catalog and the shop's documents.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/database"
)

const embedConcurrency = 4

// Embedder turns text into vectors. Documents and queries may be embedded
// differently by the model.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IndexStore is the part of database.Store the indexer needs.
type IndexStore interface {
	ListActiveProducts(ctx context.Context) ([]database.Product, error)
	ReplaceChunks(ctx context.Context, chunks []database.DocumentChunk) error
}

// IndexerOptions configure an Indexer.
type IndexerOptions struct {
	DocumentsDir string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Logger       *slog.Logger
}

// Indexer rebuilds the document_chunks table from products and documents.
type Indexer struct {
	store    IndexStore
	embedder Embedder
	opts     IndexerOptions
	log      *slog.Logger
}

func NewIndexer(store IndexStore, embedder Embedder, opts IndexerOptions) *Indexer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 300
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		store:    store,
		embedder: embedder,
		opts:     opts,
		log:      log.With("component", "indexer"),
	}
}

type pendingChunk struct {
	source  string
	content string
}

// Rebuild re-embeds every active product and document and replaces the
// stored index. It returns the number of chunks written.
func (ix *Indexer) Rebuild(ctx context.Context) (int, error) {
	start := time.Now()

	products, err := ix.store.ListActiveProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products for indexing: %w", err)
	}

	var pending []pendingChunk
	for _, p := range products {
		source := "product:" + strconv.FormatInt(p.ID, 10)
		for _, c := range Chunk(ProductDocument(p), ix.opts.ChunkSize, ix.opts.ChunkOverlap) {
			pending = append(pending, pendingChunk{source: source, content: c})
		}
	}

	docs, err := ix.documentChunks(ctx)
	if err != nil {
		return 0, err
	}
	pending = append(pending, docs...)

	if len(pending) == 0 {
		ix.log.WarnContext(ctx, "Nothing to index")
		return 0, ix.store.ReplaceChunks(ctx, nil)
	}

	embeddings, err := ix.embedAll(ctx, pending)
	if err != nil {
		return 0, err
	}

	chunks := make([]database.DocumentChunk, len(pending))
	for i, p := range pending {
		chunks[i] = database.DocumentChunk{
			Source:    p.source,
			Content:   p.content,
			Embedding: EncodeEmbedding(embeddings[i]),
		}
	}
	if err := ix.store.ReplaceChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store index: %w", err)
	}

	ix.log.InfoContext(ctx, "Index rebuilt",
		"products", len(products),
		"document_chunks", len(docs),
		"chunks", len(chunks),
		"duration_ms", time.Since(start).Milliseconds())
	return len(chunks), nil
}

// embedAll embeds pending in batches, a few batches at a time.
func (ix *Indexer) embedAll(ctx context.Context, pending []pendingChunk) ([][]float32, error) {
	out := make([][]float32, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for lo := 0; lo < len(pending); lo += ix.opts.BatchSize {
		hi := min(lo+ix.opts.BatchSize, len(pending))
		g.Go(func() error {
			texts := make([]string, hi-lo)
			for i := range texts {
				texts[i] = pending[lo+i].content
			}
			vecs, err := ix.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed batch %d-%d: %w", lo, hi, err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
			}
			copy(out[lo:hi], vecs)
			ix.log.DebugContext(gctx, "Embedded batch", "from", lo, "to", hi)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// documentChunks reads every .txt and .md file under DocumentsDir. A
// missing directory is logged and yields nothing.
func (ix *Indexer) documentChunks(ctx context.Context) ([]pendingChunk, error) {
	dir := ix.opts.DocumentsDir
	if dir == "" {
		return nil, nil
	}

	var chunks []pendingChunk
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		source := "doc:" + filepath.ToSlash(rel)
		n := 0
		for _, c := range Chunk(string(data), ix.opts.ChunkSize, ix.opts.ChunkOverlap) {
			chunks = append(chunks, pendingChunk{source: source, content: c})
			n++
		}
		ix.log.DebugContext(ctx, "Chunked document", "source", source, "chunks", n)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		ix.log.WarnContext(ctx, "Documents directory not found, indexing products only", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to walk documents directory: %w", err)
	}
	return chunks, nil
}

// ProductDocument renders a product for embedding. The first line uses the
// product mention format so the model can quote IDs and prices verbatim.
func ProductDocument(p database.Product) string {
	var b strings.Builder
	b.WriteString(assistant.FormatProductMention(p.Name, strconv.FormatInt(p.ID, 10), p.Price))
	if p.CategoryName != nil && *p.CategoryName != "" {
		b.WriteString("\nCategory: ")
		b.WriteString(*p.CategoryName)
	}
	if p.Description != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(p.Description)
	}
	if p.IsPopular {
		b.WriteString("\nPopular: yes")
	}
	if p.InStock {
		b.WriteString("\nIn stock: yes")
	} else {
		b.WriteString("\nIn stock: no")
	}
	return b.String()
}
