package rag

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/panjf2000/ants/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/textsplitter"

	"docqa/src/log"
)

const (
	DefaultBatchSize = 32
	DefaultWorkers   = 4
)

// IndexerOptions configures BuildIndex.
type IndexerOptions struct {
	Splitter  textsplitter.TextSplitter
	BatchSize int
	Workers   int
	// Progress receives a progress bar while chunks are embedded. Nil disables it.
	Progress io.Writer
	Node     *snowflake.Node
}

// Index is the searchable, read-only view over the embedded document.
type Index struct {
	embedder Embedder
	store    VectorStore
	chunks   []Chunk
}

// BuildIndex splits doc, embeds every chunk and loads the vectors into store.
// Any embedding failure aborts the build; no partial index is returned.
func BuildIndex(ctx context.Context, doc Document, embedder Embedder, store VectorStore, opts IndexerOptions) (*Index, error) {
	if opts.Splitter == nil {
		opts.Splitter = WindowSplitter{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Node == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, fmt.Errorf("failed to create snowflake node: %w", err)
		}
		opts.Node = node
	}

	logger := log.WithName("indexer").WithValues("document", doc.Name)
	start := time.Now()

	chunks, err := SplitDocument(doc, opts.Splitter, opts.Node)
	if err != nil {
		return nil, err
	}
	logger.Info("document split", "chunks", len(chunks), "runes", len([]rune(doc.Content)))

	vectors, err := embedChunks(ctx, embedder, chunks, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if err := store.Load(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("failed to load %s index: %w", store.Backend(), err)
	}

	logger.Info("index built",
		"backend", store.Backend(),
		"chunks", len(chunks),
		"dimension", len(vectors[0]),
		"elapsed", time.Since(start).String())

	return &Index{embedder: embedder, store: store, chunks: chunks}, nil
}

func embedChunks(ctx context.Context, embedder Embedder, chunks []Chunk, opts IndexerOptions) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(chunks),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("embedding chunks"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	vectors := make([][]float32, len(chunks))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for lo := 0; lo < len(chunks); lo += opts.BatchSize {
		hi := min(lo+opts.BatchSize, len(chunks))
		texts := make([]string, hi-lo)
		for i := range texts {
			texts[i] = chunks[lo+i].Content
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			got, err := embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("batch at chunk %d: %w", lo, err))
				return
			}
			if len(got) != len(texts) {
				fail(fmt.Errorf("batch at chunk %d: %w: %d texts, %d vectors", lo, ErrVectorCount, len(texts), len(got)))
				return
			}
			copy(vectors[lo:], got)
			if bar != nil {
				_ = bar.Add(len(got))
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return vectors, nil
}

// SimilaritySearch embeds query and returns up to k chunks, nearest first.
func (i *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	vector, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return i.store.Search(ctx, vector, k)
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int { return len(i.chunks) }

// Backend names the vector store behind the index.
func (i *Index) Backend() string { return i.store.Backend() }
