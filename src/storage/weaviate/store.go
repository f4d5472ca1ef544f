package weaviate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/weaviate/weaviate/entities/models"

	"docqa/src/core/rag"
	"docqa/src/log"
)

const (
	BackendWeaviate = "weaviate"
	DefaultClass    = "DocumentChunk"

	batchSize = 100
)

var chunkFields = []string{"chunkId", "chunkIndex", "documentName", "content", "startOffset", "endOffset"}

// Store is a rag.VectorStore backed by one Weaviate class. Load drops and
// recreates the class, so every start indexes from scratch.
type Store struct {
	sdk       *SDK
	className string
}

func NewStore(sdk *SDK, className string) *Store {
	if className == "" {
		className = DefaultClass
	}
	return &Store{sdk: sdk, className: className}
}

func (s *Store) Backend() string { return BackendWeaviate }

func (s *Store) Load(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", rag.ErrVectorCount, len(chunks), len(vectors))
	}

	exists, err := s.sdk.ClassExists(ctx, s.className)
	if err != nil {
		return err
	}
	if exists {
		log.Info("dropping stale weaviate class", "class", s.className)
		if err := s.sdk.DeleteSchema(ctx, s.className); err != nil {
			return err
		}
	}

	properties := []*models.Property{
		{Name: "chunkId", DataType: []string{"text"}},
		{Name: "chunkIndex", DataType: []string{"int"}},
		{Name: "documentName", DataType: []string{"text"}},
		{Name: "content", DataType: []string{"text"}},
		{Name: "startOffset", DataType: []string{"int"}},
		{Name: "endOffset", DataType: []string{"int"}},
	}
	if err := s.sdk.CreateSchema(ctx, s.className, properties, "none"); err != nil {
		return err
	}

	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := min(lo+batchSize, len(chunks))
		objects := make([]VectorObject, 0, hi-lo)
		for i := lo; i < hi; i++ {
			c := chunks[i]
			objects = append(objects, VectorObject{
				Vector: vectors[i],
				Properties: map[string]interface{}{
					"chunkId":      strconv.FormatInt(c.ID, 10),
					"chunkIndex":   c.Index,
					"documentName": c.DocumentName,
					"content":      c.Content,
					"startOffset":  c.Start,
					"endOffset":    c.End,
				},
			})
		}
		if err := s.sdk.BatchAddVectors(ctx, s.className, objects); err != nil {
			return fmt.Errorf("chunks %d-%d: %w", lo, hi-1, err)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]rag.ScoredChunk, error) {
	if k <= 0 {
		k = rag.DefaultTopK
	}
	results, err := s.sdk.QueryVectors(ctx, s.className, vector, QueryConfig{
		Fields: chunkFields,
		Limit:  k,
	})
	if err != nil {
		return nil, err
	}

	out := make([]rag.ScoredChunk, 0, len(results))
	for _, r := range results {
		content, ok := r.Properties["content"].(string)
		if !ok {
			return nil, fmt.Errorf("weaviate object %s has no content", r.ID)
		}
		id, _ := strconv.ParseInt(stringProp(r.Properties, "chunkId"), 10, 64)
		out = append(out, rag.ScoredChunk{
			Chunk: rag.Chunk{
				ID:           id,
				Index:        intProp(r.Properties, "chunkIndex"),
				DocumentName: stringProp(r.Properties, "documentName"),
				Content:      content,
				Start:        intProp(r.Properties, "startOffset"),
				End:          intProp(r.Properties, "endOffset"),
			},
			// cosine distance to similarity
			Score: 1 - r.Distance,
		})
	}
	return out, nil
}

func stringProp(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

// JSON numbers decode as float64.
func intProp(props map[string]interface{}, key string) int {
	f, _ := props[key].(float64)
	return int(f)
}
