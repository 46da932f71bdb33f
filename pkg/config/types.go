package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent memex configuration stored as config.toml
// in the .memex/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Embedder  EmbedderConfig  `toml:"embedder"`
	LLM       LLMConfig       `toml:"llm"`
	Prompts   PromptsConfig   `toml:"prompts"`
	Memory    MemoryConfig    `toml:"memory"`
	API       APIConfig       `toml:"api"`
}

// StorageConfig selects and configures one of the three memory.Store backends.
type StorageConfig struct {
	// Backend is one of "sqlite", "libsql", "postgres".
	Backend string `toml:"backend,omitempty"`

	// SQLitePath is the file path (or ":memory:") for the sqlite backend.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// LibSQLPath is the file path, ":memory:", or libsql:// URL for the libsql backend.
	LibSQLPath string `toml:"libsql_path,omitempty"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EmbedderConfig describes the embedding model and its provider endpoint.
// A zero-value EmbedderConfig (empty Model) means the coordinator is
// UNCONFIGURED for vector features.
type EmbedderConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig describes the chat-completion model used for fact extraction and
// memory reconciliation.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// PromptsConfig holds overridable system-prompt templates. An empty value
// means the built-in default (factextract.DefaultPrompt / reconcile.DefaultPrompt)
// is used.
type PromptsConfig struct {
	FactExtraction string `toml:"fact_extraction,omitempty"`
	UpdateMemory   string `toml:"update_memory,omitempty"`
}

// MemoryConfig holds coordinator-level behavior settings.
type MemoryConfig struct {
	// CurrentOwner is the owner identifier stored under
	// memory.current_owner. It is not read outside pkg/config, so it is not
	// applied to operations that do not specify an owner.
	CurrentOwner string `toml:"current_owner,omitempty"`

	// SearchThreshold is a minimum hybrid-search score in [0,1], stored
	// under memory.search_threshold. It is not read outside pkg/config; a
	// search uses only the threshold its caller passes.
	SearchThreshold float64 `toml:"search_threshold,omitempty"`

	// SearchLimit is a maximum result count stored under
	// memory.search_limit. It is not read outside pkg/config; a search uses
	// only the limit its caller passes.
	SearchLimit uint `toml:"search_limit,omitempty"`

	// CacheTTLSeconds is stored under memory.cache_ttl_seconds. It is not
	// read outside pkg/config; the embedding cache always uses embedcache.TTL.
	CacheTTLSeconds uint `toml:"cache_ttl_seconds,omitempty"`

	// EventBrokers, when non-empty, routes mutation events to Kafka instead
	// of the default no-op publisher. Not exposed through the scalar
	// config get/set/list commands since it is a list, not a string.
	EventBrokers []string `toml:"event_brokers,omitempty"`

	// EventTopic is the Kafka topic mutation events are published to.
	EventTopic string `toml:"event_topic,omitempty"`
}

// APIConfig holds the HTTP/MCP server listen address.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.backend": {
		get: func(c *Config) string { return c.Storage.Backend },
		set: func(c *Config, v string) error { c.Storage.Backend = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.libsql_path": {
		get: func(c *Config) string { return c.Storage.LibSQLPath },
		set: func(c *Config, v string) error { c.Storage.LibSQLPath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"embedder.provider": {
		get: func(c *Config) string { return c.Embedder.Provider },
		set: func(c *Config, v string) error { c.Embedder.Provider = v; return nil },
	},
	"embedder.target": {
		get: func(c *Config) string { return c.Embedder.Target },
		set: func(c *Config, v string) error { c.Embedder.Target = v; return nil },
	},
	"embedder.model": {
		get: func(c *Config) string { return c.Embedder.Model },
		set: func(c *Config, v string) error { c.Embedder.Model = v; return nil },
	},
	"embedder.api_key": {
		get: func(c *Config) string { return c.Embedder.APIKey },
		set: func(c *Config, v string) error { c.Embedder.APIKey = v; return nil },
	},
	"embedder.dimensions": {
		get: func(c *Config) string {
			if c.Embedder.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedder.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedder.dimensions: %w", err)
			}
			c.Embedder.Dimensions = uint(n)
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.api_key": {
		get: func(c *Config) string { return c.LLM.APIKey },
		set: func(c *Config, v string) error { c.LLM.APIKey = v; return nil },
	},
	"prompts.fact_extraction": {
		get: func(c *Config) string { return c.Prompts.FactExtraction },
		set: func(c *Config, v string) error { c.Prompts.FactExtraction = v; return nil },
	},
	"prompts.update_memory": {
		get: func(c *Config) string { return c.Prompts.UpdateMemory },
		set: func(c *Config, v string) error { c.Prompts.UpdateMemory = v; return nil },
	},
	"memory.current_owner": {
		get: func(c *Config) string { return c.Memory.CurrentOwner },
		set: func(c *Config, v string) error { c.Memory.CurrentOwner = v; return nil },
	},
	"memory.search_threshold": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Memory.SearchThreshold, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.search_threshold: %w", err)
			}
			c.Memory.SearchThreshold = f
			return nil
		},
	},
	"memory.search_limit": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.SearchLimit), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.search_limit: %w", err)
			}
			c.Memory.SearchLimit = uint(n)
			return nil
		},
	},
	"memory.cache_ttl_seconds": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.CacheTTLSeconds), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.cache_ttl_seconds: %w", err)
			}
			c.Memory.CacheTTLSeconds = uint(n)
			return nil
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
}
