package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"

	"docqa/src/log"
)

// FallbackAnswer is the sentence the model is told to give when the context
// does not hold the answer.
const FallbackAnswer = "The answer is not available in the context"

// PromptTemplate is rendered with the retrieved chunks as {context} and the
// user's query as {question}.
const PromptTemplate = `
Answer the question as detailed as possible from the provided context. If the answer is not in the
provided context, just say, "` + FallbackAnswer + `". Do not provide a wrong answer.

Context:
{context}

Question:
{question}

Answer:
`

// Options configures the answerer.
type Options struct {
	TopK        int
	Temperature float64
	Timeout     time.Duration
}

func DefaultOptions() Options {
	return Options{
		TopK:        DefaultTopK,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
	}
}

// Answerer retrieves context for a query and asks the model to answer from it.
type Answerer struct {
	retriever Retriever
	chain     chains.Chain
	opts      Options
}

func NewAnswerer(retriever Retriever, llm llms.Model, opts Options) *Answerer {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	prompt := prompts.PromptTemplate{
		Template:       PromptTemplate,
		InputVariables: []string{"context", "question"},
		TemplateFormat: prompts.TemplateFormatFString,
	}

	return &Answerer{
		retriever: retriever,
		chain:     chains.NewStuffDocuments(chains.NewLLMChain(llm, prompt)),
		opts:      opts,
	}
}

// Answer returns the model's answer to query. Failures are *QueryError values.
func (a *Answerer) Answer(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", &QueryError{Kind: KindEmptyQuery}
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	found, err := a.retriever.SimilaritySearch(ctx, query, a.opts.TopK)
	if err != nil {
		return "", classify(ctx, KindRetrieval, err)
	}
	log.Debug("retrieved context", "query_length", len(query), "chunks", len(found))

	out, err := chains.Call(ctx, a.chain, map[string]any{
		"input_documents": toDocuments(found),
		"question":        query,
	}, chains.WithTemperature(a.opts.Temperature))
	if err != nil {
		return "", classify(ctx, KindGeneration, err)
	}

	answer, ok := out["text"].(string)
	if !ok {
		return "", &QueryError{Kind: KindGeneration, Err: fmt.Errorf("unexpected chain output %T", out["text"])}
	}
	if strings.TrimSpace(answer) == "" {
		log.Debug("model returned an empty answer", "query_length", len(query))
	}
	return answer, nil
}

func classify(ctx context.Context, kind Kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &QueryError{Kind: kind, Err: err}
}

func toDocuments(found []ScoredChunk) []schema.Document {
	docs := make([]schema.Document, len(found))
	for i, c := range found {
		docs[i] = schema.Document{
			PageContent: c.Content,
			Metadata: map[string]any{
				"id":       c.ID,
				"index":    c.Index,
				"document": c.DocumentName,
			},
			Score: float32(c.Score),
		}
	}
	return docs
}
