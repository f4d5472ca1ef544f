package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bwmarrin/snowflake"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"docqa/src/core/rag"
	"docqa/src/document"
	"docqa/src/fsutil"
	"docqa/src/log"
	"docqa/src/provider"
	"docqa/src/storage/minioctrl"
	"docqa/src/storage/weaviate"
)

// chunkNode is the snowflake node number used for chunk ids.
const chunkNode = 2

// application holds everything built once at startup and shared by all queries.
type application struct {
	settings Settings
	index    *rag.Index
	answerer *rag.Answerer
}

func openDocumentStore(s Settings) (fsutil.FileStore, error) {
	switch s.Document.Source {
	case sourceMinio:
		return minioctrl.NewMinioService(s.Minio.Endpoint, s.Minio.AccessKey, s.Minio.SecretKey, s.Minio.Bucket, s.Minio.UseSSL)
	default:
		return fsutil.NewLocalFileStore(), nil
	}
}

func loadDocument(ctx context.Context, s Settings) (rag.Document, error) {
	store, err := openDocumentStore(s)
	if err != nil {
		return rag.Document{}, fmt.Errorf("failed to open document store: %w", err)
	}
	return document.Load(ctx, store, s.Document.Path)
}

func newVectorStore(s Settings) (rag.VectorStore, error) {
	switch s.Index.Backend {
	case weaviate.BackendWeaviate:
		wc, err := weaviateClient.NewClient(weaviateClient.Config{
			Host:   s.Weaviate.Host,
			Scheme: s.Weaviate.Scheme,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create weaviate client: %w", err)
		}
		return weaviate.NewStore(weaviate.NewSDK(wc), s.Weaviate.Class), nil
	default:
		return rag.NewMemoryStore(), nil
	}
}

// bootstrap loads the document, builds the index through p and wires the
// answerer. Progress, if non-nil, receives the embedding progress bar.
func bootstrap(ctx context.Context, s Settings, p *provider.Provider, progress io.Writer) (*application, error) {
	doc, err := loadDocument(ctx, s)
	if err != nil {
		return nil, err
	}

	splitter, err := rag.NewSplitter(s.Splitter.Kind, s.Splitter.ChunkSize, s.Splitter.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	store, err := newVectorStore(s)
	if err != nil {
		return nil, err
	}
	node, err := snowflake.NewNode(chunkNode)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	if !s.Index.Progress {
		progress = nil
	}
	// googleai carries no client timeout, so the whole build gets a deadline
	indexCtx, cancel := context.WithTimeout(ctx, s.Index.Timeout)
	defer cancel()
	index, err := rag.BuildIndex(indexCtx, doc, p.Embedder, store, rag.IndexerOptions{
		Splitter:  splitter,
		BatchSize: s.Index.BatchSize,
		Workers:   s.Index.Workers,
		Progress:  progress,
		Node:      node,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	log.Info("index ready",
		"provider", p.Name,
		"chat_model", s.Provider.ChatModel,
		"chunks", index.Len(),
		"backend", index.Backend(),
	)

	return &application{
		settings: s,
		index:    index,
		answerer: rag.NewAnswerer(index, p.LLM, s.Query),
	}, nil
}
