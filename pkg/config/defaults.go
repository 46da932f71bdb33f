package config

const (
	defaultStorageBackend = "sqlite"
	defaultSQLitePath     = "memex.db"

	defaultEmbedderProvider   = "ollama"
	defaultEmbedderTarget     = "http://localhost:11434"
	defaultEmbedderModel      = "embeddinggemma"
	defaultEmbedderDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"
	defaultLLMModel    = "llama3.1"

	defaultAPIListen = ":8090"

	defaultSearchThreshold = 0.3
	defaultSearchLimit     = 10
	defaultCacheTTLSeconds = 300
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. The embedder and
// llm sections default to a local Ollama endpoint; the embedder model is
// left empty, so the coordinator stays UNCONFIGURED for vector features
// until a caller explicitly sets a model.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend:    defaultStorageBackend,
			SQLitePath: defaultSQLitePath,
		},
		Embedder: EmbedderConfig{
			Provider:   defaultEmbedderProvider,
			Target:     defaultEmbedderTarget,
			Dimensions: defaultEmbedderDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    defaultLLMModel,
		},
		Memory: MemoryConfig{
			SearchThreshold: defaultSearchThreshold,
			SearchLimit:     defaultSearchLimit,
			CacheTTLSeconds: defaultCacheTTLSeconds,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
