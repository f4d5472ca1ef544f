// Package mock provides test doubles for the model provider interfaces used
// by the rag package: an embeddings.Embedder and an llms.Model.
//
// Both doubles have deterministic defaults and accept function fields to
// inject failures or custom behaviour.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"unicode"
)

const Dimension = 64

// Embedder is a test double for embeddings.Embedder.
type Embedder struct {
	// EmbedDocumentsFunc is called by EmbedDocuments if set.
	EmbedDocumentsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQueryFunc is called by EmbedQuery if set.
	EmbedQueryFunc func(ctx context.Context, text string) ([]float32, error)

	documentCalls atomic.Int64
	queryCalls    atomic.Int64
}

func NewEmbedder() *Embedder {
	return &Embedder{}
}

func (m *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.documentCalls.Add(1)
	if m.EmbedDocumentsFunc != nil {
		return m.EmbedDocumentsFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = BagOfWords(text)
	}
	return out, nil
}

func (m *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.queryCalls.Add(1)
	if m.EmbedQueryFunc != nil {
		return m.EmbedQueryFunc(ctx, text)
	}
	return BagOfWords(text), nil
}

// DocumentCalls returns the number of EmbedDocuments calls.
func (m *Embedder) DocumentCalls() int { return int(m.documentCalls.Load()) }

// QueryCalls returns the number of EmbedQuery calls.
func (m *Embedder) QueryCalls() int { return int(m.queryCalls.Load()) }

// BagOfWords hashes the lower-cased words of text into a unit vector, so texts
// sharing words end up close to each other.
func BagOfWords(text string) []float32 {
	v := make([]float32, Dimension)
	for _, w := range Words(text) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%Dimension]++
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		n := float32(math.Sqrt(sum))
		for i := range v {
			v[i] /= n
		}
	}
	return v
}

// Words splits text into lower-cased letter/digit runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
