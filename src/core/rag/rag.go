package rag

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
	DefaultTopK         = 3
)

// Service answers questions about the indexed document.
type Service interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Document is the raw source text loaded at startup.
type Document struct {
	Name    string
	Content string
}

// Chunk is a contiguous window of a Document. Start and End are rune offsets
// into Document.Content.
type Chunk struct {
	ID           int64
	Index        int // the index of the chunk in the document
	DocumentName string
	Content      string
	Start        int
	End          int
}

// ScoredChunk is a chunk returned from a similarity search. Higher scores are nearer.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Embedder is the embedding side of a model provider.
type Embedder = embeddings.Embedder

// VectorStore holds chunk vectors and answers nearest-neighbour queries.
// Load is called exactly once, before any Search.
type VectorStore interface {
	Load(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error)
	Backend() string
}

// Retriever looks up the chunks most similar to a query text.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]ScoredChunk, error)
}
