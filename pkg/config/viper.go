package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/driftwood-labs/memex/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEMEX_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEMEX_API_LISTEN, MEMEX_STORAGE_BACKEND, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MEMEX_STORAGE_BACKEND, MEMEX_EMBEDDER_MODEL, etc.
	v.SetEnvPrefix("MEMEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.libsql_path", d.Storage.LibSQLPath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Embedder
	v.SetDefault("embedder.provider", d.Embedder.Provider)
	v.SetDefault("embedder.target", d.Embedder.Target)
	v.SetDefault("embedder.model", d.Embedder.Model)
	v.SetDefault("embedder.api_key", d.Embedder.APIKey)
	v.SetDefault("embedder.dimensions", d.Embedder.Dimensions)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)

	// Prompts
	v.SetDefault("prompts.fact_extraction", d.Prompts.FactExtraction)
	v.SetDefault("prompts.update_memory", d.Prompts.UpdateMemory)

	// Memory
	v.SetDefault("memory.current_owner", d.Memory.CurrentOwner)
	v.SetDefault("memory.search_threshold", d.Memory.SearchThreshold)
	v.SetDefault("memory.search_limit", d.Memory.SearchLimit)
	v.SetDefault("memory.cache_ttl_seconds", d.Memory.CacheTTLSeconds)

	// API
	v.SetDefault("api.listen", d.API.Listen)
}
