package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/driftwood-labs/memex/pkg/dotdir"
)

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm         *dotdir.Manager
	overrideDir string
	targetPath  string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{ddm: dotdir.NewManager(), overrideDir: override}

	path, err := cfger.ddm.ConfigPath(override)
	if err != nil {
		return nil, err
	}

	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath once the .memex/ directory resolves so
	// SaveConfig can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML section order.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"storage.backend",
		"storage.sqlite_path",
		"storage.libsql_path",
		"storage.postgres_dsn",
		"embedder.provider",
		"embedder.target",
		"embedder.model",
		"embedder.api_key",
		"embedder.dimensions",
		"llm.provider",
		"llm.target",
		"llm.model",
		"llm.api_key",
		"prompts.fact_extraction",
		"prompts.update_memory",
		"memory.current_owner",
		"memory.search_threshold",
		"memory.search_limit",
		"memory.cache_ttl_seconds",
		"api.listen",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .memex/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults. A relative Storage.SQLitePath/LibSQLPath is resolved
// against the target .memex/ directory, so the database lives alongside
// config.toml instead of wherever the process's working directory happens
// to be.
func (c *Configer) LoadConfig() (*Config, error) {
	cfg, err := c.readConfigFile()
	if err != nil {
		return nil, err
	}

	if err := c.resolveStoragePaths(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Configer) readConfigFile() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

func (c *Configer) resolveStoragePaths(cfg *Config) error {
	sqlitePath, err := c.ddm.ResolveDBPath(c.overrideDir, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("resolving sqlite path: %w", err)
	}
	cfg.Storage.SQLitePath = sqlitePath

	libsqlPath, err := c.ddm.ResolveDBPath(c.overrideDir, cfg.Storage.LibSQLPath)
	if err != nil {
		return fmt.Errorf("resolving libsql path: %w", err)
	}
	cfg.Storage.LibSQLPath = libsqlPath

	return nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaults.Storage.SQLitePath
	}

	// Embedder is left empty unless the caller explicitly configured a
	// model — an empty Embedder.Model means UNCONFIGURED, which is a
	// meaningful state, not a gap to fill with defaults. Only dimensions
	// get backfilled when a model is set but dimensions is unset.
	if cfg.Embedder.Model != "" && cfg.Embedder.Dimensions == 0 {
		cfg.Embedder.Dimensions = defaults.Embedder.Dimensions
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaults.LLM.Provider
	}
	if cfg.LLM.Target == "" {
		cfg.LLM.Target = defaults.LLM.Target
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}

	if cfg.Memory.SearchThreshold == 0 {
		cfg.Memory.SearchThreshold = defaults.Memory.SearchThreshold
	}
	if cfg.Memory.SearchLimit == 0 {
		cfg.Memory.SearchLimit = defaults.Memory.SearchLimit
	}
	if cfg.Memory.CacheTTLSeconds == 0 {
		cfg.Memory.CacheTTLSeconds = defaults.Memory.CacheTTLSeconds
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

// SaveConfig persists the configuration to config.toml in the target .memex/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "openai":
		return &Config{
			Version: CurrentV,
			Storage: StorageConfig{
				Backend:    defaultStorageBackend,
				SQLitePath: defaultSQLitePath,
			},
			Embedder: EmbedderConfig{
				Provider:   "openai",
				Target:     "https://api.openai.com",
				Model:      "text-embedding-3-small",
				Dimensions: 1536,
			},
			LLM: LLMConfig{
				Provider: "openai",
				Target:   "https://api.openai.com",
				Model:    "gpt-4o-mini",
			},
			API: APIConfig{Listen: defaultAPIListen},
		}, nil

	case "anthropic":
		return &Config{
			Version: CurrentV,
			Storage: StorageConfig{
				Backend:    defaultStorageBackend,
				SQLitePath: defaultSQLitePath,
			},
			// Anthropic has no embeddings endpoint; callers pairing this
			// preset with vector search must set embedder.* separately.
			LLM: LLMConfig{
				Provider: "anthropic",
				Target:   "https://api.anthropic.com",
				Model:    "claude-3-5-haiku-latest",
			},
			API: APIConfig{Listen: defaultAPIListen},
		}, nil

	case "ollama":
		return &Config{
			Version: CurrentV,
			Storage: StorageConfig{
				Backend:    defaultStorageBackend,
				SQLitePath: defaultSQLitePath,
			},
			Embedder: EmbedderConfig{
				Provider:   "ollama",
				Target:     defaultEmbedderTarget,
				Model:      defaultEmbedderModel,
				Dimensions: defaultEmbedderDimensions,
			},
			LLM: LLMConfig{
				Provider: "ollama",
				Target:   defaultLLMTarget,
				Model:    defaultLLMModel,
			},
			API: APIConfig{Listen: defaultAPIListen},
		}, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
