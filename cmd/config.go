package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"docqa/src/core/rag"
	"docqa/src/provider"
	"docqa/src/storage/weaviate"
)

const (
	sourceFile  = "file"
	sourceMinio = "minio"
)

var errInvalidConfig = errors.New("invalid configuration")

func settingDefaultConfig(v *viper.Viper) {
	// Enable automatic environment variable binding
	v.AutomaticEnv()

	// Model provider
	v.BindEnv("provider.name", "DOCQA_PROVIDER")
	v.BindEnv("provider.api_key", "DOCQA_API_KEY")
	v.BindEnv("provider.chat_model", "DOCQA_CHAT_MODEL")
	v.BindEnv("provider.embedding_model", "DOCQA_EMBEDDING_MODEL")
	v.BindEnv("provider.ollama_url", "OLLAMA_URL")
	v.SetDefault("provider.name", provider.GoogleAI)
	v.SetDefault("provider.ollama_url", "http://localhost:11434")

	// Source document
	v.BindEnv("document.source", "DOCQA_DOCUMENT_SOURCE")
	v.BindEnv("document.path", "DOCQA_DOCUMENT_PATH")
	v.SetDefault("document.source", sourceFile)
	v.SetDefault("document.path", "my_document.txt")

	// MinIO
	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")
	v.BindEnv("minio.use_ssl", "MINIO_USE_SSL")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "minioadmin")
	v.SetDefault("minio.secret_key", "minioadmin")
	v.SetDefault("minio.bucket", "documents")
	v.SetDefault("minio.use_ssl", false)

	// Splitting
	v.BindEnv("splitter.kind", "DOCQA_SPLITTER")
	v.BindEnv("splitter.chunk_size", "DOCQA_CHUNK_SIZE")
	v.BindEnv("splitter.chunk_overlap", "DOCQA_CHUNK_OVERLAP")
	v.SetDefault("splitter.kind", rag.SplitterWindow)
	v.SetDefault("splitter.chunk_size", rag.DefaultChunkSize)
	v.SetDefault("splitter.chunk_overlap", rag.DefaultChunkOverlap)

	// Index
	v.BindEnv("index.backend", "DOCQA_INDEX_BACKEND")
	v.BindEnv("index.workers", "DOCQA_INDEX_WORKERS")
	v.BindEnv("index.batch_size", "DOCQA_INDEX_BATCH_SIZE")
	v.BindEnv("index.progress", "DOCQA_INDEX_PROGRESS")
	v.BindEnv("index.timeout", "DOCQA_INDEX_TIMEOUT")
	v.SetDefault("index.backend", rag.BackendMemory)
	v.SetDefault("index.workers", rag.DefaultWorkers)
	v.SetDefault("index.batch_size", rag.DefaultBatchSize)
	v.SetDefault("index.progress", true)
	v.SetDefault("index.timeout", "10m")

	v.BindEnv("weaviate.url", "WEAVIATE_URL")
	v.BindEnv("weaviate.scheme", "WEAVIATE_SCHEME")
	v.BindEnv("weaviate.class", "WEAVIATE_CLASS")
	v.SetDefault("weaviate.url", "localhost:8080")
	v.SetDefault("weaviate.scheme", "http")
	v.SetDefault("weaviate.class", weaviate.DefaultClass)

	// Query
	v.BindEnv("query.top_k", "DOCQA_TOP_K")
	v.BindEnv("query.temperature", "DOCQA_TEMPERATURE")
	v.BindEnv("query.timeout", "DOCQA_QUERY_TIMEOUT")
	v.SetDefault("query.top_k", rag.DefaultTopK)
	v.SetDefault("query.temperature", 0.3)
	v.SetDefault("query.timeout", "30s")

	// Server
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")
	v.BindEnv("server.rate_limit", "SERVER_RATE_LIMIT")
	v.BindEnv("server.rate_burst", "SERVER_RATE_BURST")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 10)

	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.development", "LOG_DEVELOPMENT")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
}

type Settings struct {
	Provider provider.Config
	Document struct {
		Source string
		Path   string
	}
	Minio struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}
	Splitter struct {
		Kind         string
		ChunkSize    int
		ChunkOverlap int
	}
	Index struct {
		Backend   string
		Workers   int
		BatchSize int
		Progress  bool
		Timeout   time.Duration
	}
	Weaviate struct {
		Host   string
		Scheme string
		Class  string
	}
	Query  rag.Options
	Server struct {
		Port            string
		ShutdownTimeout time.Duration
		RateLimit       float64
		RateBurst       int
	}
	Log struct {
		Level       string
		Development bool
	}
}

// defaultModels returns the chat and embedding model used when none is configured.
func defaultModels(name string) (string, string) {
	switch name {
	case provider.OpenAI:
		return "gpt-4o-mini", "text-embedding-3-small"
	case provider.Ollama:
		return "llama3", "nomic-embed-text"
	default:
		return "gemini-1.5-flash-latest", "embedding-001"
	}
}

// loadSettings reads and validates the configuration. The provider credential
// is only checked when requireCredential is set.
func loadSettings(v *viper.Viper, requireCredential bool) (Settings, error) {
	var s Settings

	s.Provider.Name = v.GetString("provider.name")
	s.Provider.APIKey = v.GetString("provider.api_key")
	if s.Provider.APIKey == "" {
		if env := provider.CredentialEnv(s.Provider.Name); env != "" {
			s.Provider.APIKey = os.Getenv(env)
		}
	}
	chat, embed := defaultModels(s.Provider.Name)
	s.Provider.ChatModel = stringOr(v.GetString("provider.chat_model"), chat)
	s.Provider.EmbeddingModel = stringOr(v.GetString("provider.embedding_model"), embed)
	s.Provider.OllamaURL = v.GetString("provider.ollama_url")

	s.Document.Source = v.GetString("document.source")
	s.Document.Path = v.GetString("document.path")

	s.Minio.Endpoint = v.GetString("minio.endpoint")
	s.Minio.AccessKey = v.GetString("minio.access_key")
	s.Minio.SecretKey = v.GetString("minio.secret_key")
	s.Minio.Bucket = v.GetString("minio.bucket")
	s.Minio.UseSSL = v.GetBool("minio.use_ssl")

	s.Splitter.Kind = v.GetString("splitter.kind")
	s.Splitter.ChunkSize = v.GetInt("splitter.chunk_size")
	s.Splitter.ChunkOverlap = v.GetInt("splitter.chunk_overlap")

	s.Index.Backend = v.GetString("index.backend")
	s.Index.Workers = v.GetInt("index.workers")
	s.Index.BatchSize = v.GetInt("index.batch_size")
	s.Index.Progress = v.GetBool("index.progress")

	s.Weaviate.Host = v.GetString("weaviate.url")
	s.Weaviate.Scheme = v.GetString("weaviate.scheme")
	s.Weaviate.Class = v.GetString("weaviate.class")

	s.Query.TopK = v.GetInt("query.top_k")
	s.Query.Temperature = v.GetFloat64("query.temperature")

	s.Server.Port = v.GetString("server.port")
	s.Server.RateLimit = v.GetFloat64("server.rate_limit")
	s.Server.RateBurst = v.GetInt("server.rate_burst")

	s.Log.Level = v.GetString("log.level")
	s.Log.Development = v.GetBool("log.development")

	var err error
	if s.Query.Timeout, err = time.ParseDuration(v.GetString("query.timeout")); err != nil {
		return s, fmt.Errorf("%w: query.timeout: %v", errInvalidConfig, err)
	}
	if s.Server.ShutdownTimeout, err = time.ParseDuration(v.GetString("server.shutdown_timeout")); err != nil {
		return s, fmt.Errorf("%w: server.shutdown_timeout: %v", errInvalidConfig, err)
	}
	if s.Index.Timeout, err = time.ParseDuration(v.GetString("index.timeout")); err != nil {
		return s, fmt.Errorf("%w: index.timeout: %v", errInvalidConfig, err)
	}
	s.Provider.Timeout = s.Query.Timeout

	if requireCredential {
		if err := s.Provider.Validate(); err != nil {
			return s, err
		}
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	switch s.Document.Source {
	case sourceFile, sourceMinio:
	default:
		return fmt.Errorf("%w: unknown document source %q", errInvalidConfig, s.Document.Source)
	}
	if s.Document.Path == "" {
		return fmt.Errorf("%w: document.path is empty", errInvalidConfig)
	}
	switch s.Index.Backend {
	case rag.BackendMemory, weaviate.BackendWeaviate:
	default:
		return fmt.Errorf("%w: unknown index backend %q", errInvalidConfig, s.Index.Backend)
	}
	if _, err := rag.NewSplitter(s.Splitter.Kind, s.Splitter.ChunkSize, s.Splitter.ChunkOverlap); err != nil {
		return fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	if s.Index.Timeout <= 0 {
		return fmt.Errorf("%w: index.timeout must be positive, got %s", errInvalidConfig, s.Index.Timeout)
	}
	if s.Query.TopK <= 0 {
		return fmt.Errorf("%w: query.top_k must be positive, got %d", errInvalidConfig, s.Query.TopK)
	}
	if s.Server.Port == "" {
		return fmt.Errorf("%w: server.port is empty", errInvalidConfig)
	}
	return nil
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
