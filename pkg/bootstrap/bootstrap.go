// Package bootstrap turns a resolved config.Config into a running
// coordinator.Coordinator: it picks a memory.Store backend and, when the
// corresponding sections are non-empty, an embedder and a chat LLM adapter.
// Every CLI subcommand that touches memories goes through Open so the
// backend/provider selection logic lives in exactly one place.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/chatllm"
	chatllmanthropic "github.com/driftwood-labs/memex/pkg/chatllm/anthropic"
	chatllmollama "github.com/driftwood-labs/memex/pkg/chatllm/ollama"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/coordinator"
	"github.com/driftwood-labs/memex/pkg/embedadapter"
	embedollama "github.com/driftwood-labs/memex/pkg/embedadapter/ollama"
	"github.com/driftwood-labs/memex/pkg/eventstream"
	eventstreamkafka "github.com/driftwood-labs/memex/pkg/eventstream/kafka"
	"github.com/driftwood-labs/memex/pkg/memory"
	"github.com/driftwood-labs/memex/pkg/memory/libsqlstore"
	"github.com/driftwood-labs/memex/pkg/memory/pgstore"
	"github.com/driftwood-labs/memex/pkg/memory/sqlitestore"
)

const purgeInterval = 5 * time.Minute

// Open resolves cfg into a store and provider adapters, then returns an
// initialized, ready-to-use Coordinator. Callers own Shutdown.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*coordinator.Coordinator, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	co := coordinator.New(logger)
	if err := co.Init(store, buildConfig(cfg), purgeInterval); err != nil {
		store.Close()
		return nil, err
	}
	return co, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (memory.Store, error) {
	switch cfg.Storage.Backend {
	case "", "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = "memex.db"
		}
		return sqlitestore.Open(path, logger)
	case "libsql":
		return libsqlstore.Open(cfg.Storage.LibSQLPath, int(cfg.Embedder.Dimensions), logger)
	case "postgres":
		return pgstore.Open(ctx, cfg.Storage.PostgresDSN, int(cfg.Embedder.Dimensions), logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildConfig(cfg *config.Config) coordinator.Config {
	return coordinator.Config{
		Embedder:     buildEmbedder(cfg.Embedder.Provider, cfg.Embedder.Model),
		EmbedDesc:    embedadapter.ModelDescriptor{Provider: cfg.Embedder.Provider, Model: cfg.Embedder.Model, BaseURL: cfg.Embedder.Target},
		ChatLLM:      buildChatLLM(cfg.LLM.Provider),
		ChatDesc:     chatllm.ModelDescriptor{Provider: cfg.LLM.Provider, Model: cfg.LLM.Model, BaseURL: cfg.LLM.Target, APIKey: cfg.LLM.APIKey},
		FactPrompt:   cfg.Prompts.FactExtraction,
		UpdatePrompt: cfg.Prompts.UpdateMemory,
		Publisher:    buildPublisher(cfg),
	}
}

// buildEmbedder returns nil for an empty model, which leaves the Coordinator
// UNCONFIGURED for vector features rather than erroring at startup.
func buildEmbedder(provider, model string) embedadapter.Adapter {
	if model == "" {
		return nil
	}
	switch provider {
	case "ollama", "":
		return embedollama.New()
	default:
		return nil
	}
}

func buildChatLLM(provider string) chatllm.Adapter {
	switch provider {
	case "anthropic":
		return chatllmanthropic.New()
	case "ollama", "":
		return chatllmollama.New()
	default:
		return nil
	}
}

// buildPublisher wires a kafka publisher when brokers are configured via
// the memory.event_brokers/memory.event_topic keys; otherwise the
// Coordinator defaults to a no-op sink on its own.
func buildPublisher(cfg *config.Config) eventstream.Publisher {
	if len(cfg.Memory.EventBrokers) == 0 {
		return nil
	}
	return eventstreamkafka.New(eventstreamkafka.Config{
		Brokers: cfg.Memory.EventBrokers,
		Topic:   cfg.Memory.EventTopic,
	})
}
