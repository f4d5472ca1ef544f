package rag

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

const BackendMemory = "memory"

// MemoryStore is an in-process vector store using brute-force cosine similarity.
// It accepts exactly one Load and is read-only afterwards.
type MemoryStore struct {
	mu        sync.RWMutex
	loaded    bool
	dimension int
	chunks    []Chunk
	vectors   [][]float32
	norms     []float64
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Load(_ context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrVectorCount, len(chunks), len(vectors))
	}
	if len(vectors) == 0 {
		return errors.New("no vectors to load")
	}

	dim := len(vectors[0])
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		norms[i] = norm(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return ErrIndexLoaded
	}
	s.loaded = true
	s.dimension = dim
	s.chunks = slices.Clone(chunks)
	s.vectors = vectors
	s.norms = norms
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, k int) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, ErrIndexNotLoaded
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, want %d", len(vector), s.dimension)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	qn := norm(vector)
	results := make([]ScoredChunk, len(s.chunks))
	for i := range s.chunks {
		results[i] = ScoredChunk{Chunk: s.chunks[i], Score: cosine(vector, s.vectors[i], qn, s.norms[i])}
	}
	// ties keep document order
	slices.SortStableFunc(results, func(a, b ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len returns the number of chunks held by the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
