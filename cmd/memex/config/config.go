// Package configcmder provides the config command for managing persistent
// memex configuration stored in the .memex/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent memex configuration.

Configuration is stored as config.toml in the .memex/ directory and provides
default values the coordinator is built from: storage backend, embedder,
chat LLM, prompt overrides, and server listen address.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.sqlite_path, storage.libsql_path, storage.postgres_dsn,
  embedder.provider, embedder.target, embedder.model, embedder.api_key, embedder.dimensions,
  llm.provider, llm.target, llm.model, llm.api_key,
  prompts.fact_extraction, prompts.update_memory,
  memory.current_owner, memory.search_threshold, memory.search_limit, memory.cache_ttl_seconds,
  api.listen

Use subcommands to get, set, or list configuration values:
  memex config set <key> <value>    Set a configuration value
  memex config get <key>            Get a configuration value
  memex config list                 List all configuration values

Examples:
  memex config set llm.provider anthropic
  memex config set embedder.model nomic-embed-text
  memex config get llm.provider
  memex config list`

const configShortDesc string = "Manage persistent memex configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
