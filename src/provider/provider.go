package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	GoogleAI = "googleai"
	OpenAI   = "openai"
	Ollama   = "ollama"
)

var (
	ErrMissingCredential = errors.New("provider credential is not set")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// Config selects and configures the hosted model provider.
type Config struct {
	Name           string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	OllamaURL      string
	Timeout        time.Duration
}

// Provider bundles the generation model and the embedder of one backend.
type Provider struct {
	Name     string
	LLM      llms.Model
	Embedder embeddings.Embedder
}

// CredentialEnv names the environment variable holding the credential for
// provider name, or "" when the provider needs none.
func CredentialEnv(name string) string {
	switch name {
	case GoogleAI, "":
		return "GOOGLE_API_KEY"
	case OpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// Validate checks that the configuration names a known provider and carries
// the credential that provider requires.
func (c Config) Validate() error {
	switch c.Name {
	case GoogleAI, OpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set %s", ErrMissingCredential, CredentialEnv(c.Name))
		}
	case Ollama:
	default:
		return fmt.Errorf("%w %q", ErrUnknownProvider, c.Name)
	}
	return nil
}

// New builds the provider described by cfg.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var (
		model  llms.Model
		client embeddings.EmbedderClient
	)
	switch cfg.Name {
	case GoogleAI:
		// a custom http.Client would replace API key auth here; callers bound
		// googleai calls through the context instead
		g, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.ChatModel),
			googleai.WithDefaultEmbeddingModel(cfg.EmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create googleai client: %w", err)
		}
		model, client = g, g
	case OpenAI:
		o, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.ChatModel),
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		model, client = o, o
	case Ollama:
		chat, err := ollama.New(
			ollama.WithServerURL(cfg.OllamaURL),
			ollama.WithModel(cfg.ChatModel),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		// ollama serves one model per client
		embed, err := ollama.New(
			ollama.WithServerURL(cfg.OllamaURL),
			ollama.WithModel(cfg.EmbeddingModel),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedding client: %w", err)
		}
		model, client = chat, embed
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &Provider{Name: cfg.Name, LLM: model, Embedder: embedder}, nil
}
