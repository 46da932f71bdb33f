// Package coordinator wires together a memory.Store, an embedadapter.Adapter,
// and a chatllm.Adapter behind the single public API surface a host
// application drives: add/update/delete/list/search/history/reset plus the
// process_turn and retrieve_relevant operations layered on top of the
// Fact Extractor and Memory Reconciler. It tracks the UNCONFIGURED/CONFIGURED
// state the rest of the core is sensitive to, the way pkg/dotdir's Manager
// tracks a single resolved directory as process-wide shared state.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/chatllm"
	"github.com/driftwood-labs/memex/pkg/embedadapter"
	"github.com/driftwood-labs/memex/pkg/embedcache"
	"github.com/driftwood-labs/memex/pkg/eventstream"
	"github.com/driftwood-labs/memex/pkg/eventstream/nop"
	"github.com/driftwood-labs/memex/pkg/factextract"
	"github.com/driftwood-labs/memex/pkg/memerr"
	"github.com/driftwood-labs/memex/pkg/memory"
	"github.com/driftwood-labs/memex/pkg/reconcile"
)

// Config describes the embedder, chat model, and prompt overrides a caller
// wants active. A zero-value Embedder leaves the coordinator UNCONFIGURED
// for vector features.
type Config struct {
	Embedder     embedadapter.Adapter
	EmbedDesc    embedadapter.ModelDescriptor
	ChatLLM      chatllm.Adapter
	ChatDesc     chatllm.ModelDescriptor
	FactPrompt   string
	UpdatePrompt string

	// Publisher receives a MemoryMutatedEvent for every committed
	// add/update/delete. A nil Publisher defaults to a no-op sink.
	Publisher eventstream.Publisher
}

// Coordinator is the core's single entry point. The zero value is not
// usable; construct with New and call Init before any other method.
type Coordinator struct {
	logger *zap.Logger

	mu           sync.RWMutex
	store        memory.Store
	embedder     embedadapter.Adapter
	embedDesc    embedadapter.ModelDescriptor
	cache        *embedcache.Cache
	chatAdapter  chatllm.Adapter
	chatDesc     chatllm.ModelDescriptor
	factPrompt   string
	updatePrompt string
	publisher    eventstream.Publisher

	purgeStop chan struct{}
	purgeDone chan struct{}
}

// New constructs an unconfigured, uninitialized Coordinator.
func New(logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{logger: logger}
}

// Init binds store and applies cfg, and, when purgeInterval is positive,
// starts a background ticker that sweeps the embedding cache's expired
// entries until Shutdown stops it.
func (c *Coordinator) Init(store memory.Store, cfg Config, purgeInterval time.Duration) error {
	if store == nil {
		return memerr.New(memerr.InvalidInput, "store must not be nil")
	}

	c.mu.Lock()
	c.store = store
	c.applyConfigLocked(cfg)
	c.mu.Unlock()

	if purgeInterval > 0 {
		c.startPurge(purgeInterval)
	}

	return nil
}

// Configure atomically swaps the embedder, chat adapter, and prompt
// overrides, and resets the cached embedding client — per §4.7, setting a
// new configuration is atomic and invalidates the old embedding cache since
// entries keyed on the previous model's dimensions are no longer valid.
func (c *Coordinator) Configure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyConfigLocked(cfg)
}

func (c *Coordinator) applyConfigLocked(cfg Config) {
	c.embedder = cfg.Embedder
	c.embedDesc = cfg.EmbedDesc
	c.chatAdapter = cfg.ChatLLM
	c.chatDesc = cfg.ChatDesc
	c.factPrompt = cfg.FactPrompt
	c.updatePrompt = cfg.UpdatePrompt
	c.publisher = cfg.Publisher
	if c.publisher == nil {
		c.publisher = nop.NewPublisher()
	}
	c.cache = embedcache.New()
	if c.embedder != nil {
		c.embedder = embedadapter.NewCached(c.embedder, c.cache)
	}
}

// IsConfigured reports whether an embedder is set (CONFIGURED state).
func (c *Coordinator) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embedder != nil
}

type configSnapshot struct {
	store        memory.Store
	embedder     embedadapter.Adapter
	embedDesc    embedadapter.ModelDescriptor
	chatAdapter  chatllm.Adapter
	chatDesc     chatllm.ModelDescriptor
	factPrompt   string
	updatePrompt string
	publisher    eventstream.Publisher
}

func (c *Coordinator) snapshot() configSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return configSnapshot{
		store:        c.store,
		embedder:     c.embedder,
		embedDesc:    c.embedDesc,
		chatAdapter:  c.chatAdapter,
		chatDesc:     c.chatDesc,
		factPrompt:   c.factPrompt,
		updatePrompt: c.updatePrompt,
		publisher:    c.publisher,
	}
}

// publish emits a mutation event on a best-effort basis; publish failures
// never fail the mutation itself, since history in the store is already the
// durable record and this is only a supplementary feed.
func (c *Coordinator) publish(ctx context.Context, snap configSnapshot, owner memory.Owner, memoryID, event, text, oldText string) {
	if snap.publisher == nil {
		return
	}
	err := snap.publisher.PublishMutation(ctx, &eventstream.MemoryMutatedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeMemoryMutated,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Owner: eventstream.EventOwner{
			UserID:  owner.UserID,
			AgentID: owner.AgentID,
			RunID:   owner.RunID,
		},
		Mutation: eventstream.MemoryMutation{
			MemoryID: memoryID,
			Event:    event,
			Text:     text,
			OldText:  oldText,
		},
	})
	if err != nil {
		c.logger.Warn("publishing memory mutation event failed", zap.Error(err))
	}
}

// Add implements §4.1 add: validates text, optionally embeds it, and
// inserts (or dedups) it in the store.
func (c *Coordinator) Add(ctx context.Context, text string, owner memory.Owner, metadata map[string]any) (memory.Memory, error) {
	snap := c.snapshot()
	if snap.store == nil {
		return memory.Memory{}, memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	if text == "" {
		return memory.Memory{}, memerr.New(memerr.InvalidInput, "text must not be empty")
	}

	var vec []float32
	if snap.embedder != nil {
		v, err := snap.embedder.EmbedOne(ctx, text, snap.embedDesc)
		if err != nil {
			c.logger.Warn("embedding failed on add, inserting without a vector", zap.Error(err))
		} else {
			vec = v
		}
	}

	m, err := snap.store.Add(ctx, text, owner, metadata, vec)
	if err != nil {
		return memory.Memory{}, err
	}
	c.publish(ctx, snap, owner, m.ID, "ADD", m.Text, "")
	return m, nil
}

// Update implements §4.1 update: re-hashes text, re-embeds on a best-effort
// basis, and shallow-merges metadata.
func (c *Coordinator) Update(ctx context.Context, id, text string, metadata map[string]any) error {
	snap := c.snapshot()
	if snap.store == nil {
		return memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	if id == "" {
		return memerr.New(memerr.InvalidInput, "id must not be empty")
	}
	if text == "" {
		return memerr.New(memerr.InvalidInput, "text must not be empty")
	}

	var vec []float32
	if snap.embedder != nil {
		v, err := snap.embedder.EmbedOne(ctx, text, snap.embedDesc)
		if err != nil {
			c.logger.Warn("embedding failed on update, leaving the existing vector unchanged", zap.Error(err))
		} else {
			vec = v
		}
	}

	if err := snap.store.Update(ctx, id, text, metadata, vec); err != nil {
		return err
	}
	c.publish(ctx, snap, memory.Owner{}, id, "UPDATE", text, "")
	return nil
}

// Delete implements §4.1 delete.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	snap := c.snapshot()
	if snap.store == nil {
		return memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	if id == "" {
		return memerr.New(memerr.InvalidInput, "id must not be empty")
	}
	if err := snap.store.Delete(ctx, id); err != nil {
		return err
	}
	c.publish(ctx, snap, memory.Owner{}, id, "DELETE", "", "")
	return nil
}

// List implements §4.1 list. Available in both UNCONFIGURED and CONFIGURED states.
func (c *Coordinator) List(ctx context.Context, opts memory.ListOptions) ([]memory.Memory, error) {
	snap := c.snapshot()
	if snap.store == nil {
		return nil, memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	return snap.store.List(ctx, opts)
}

// History implements §4.1 history.
func (c *Coordinator) History(ctx context.Context, id string) ([]memory.HistoryItem, error) {
	snap := c.snapshot()
	if snap.store == nil {
		return nil, memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	if id == "" {
		return nil, memerr.New(memerr.InvalidInput, "id must not be empty")
	}
	return snap.store.History(ctx, id)
}

// Reset implements §4.1 reset: irreversible, truncates both tables.
func (c *Coordinator) Reset(ctx context.Context) error {
	snap := c.snapshot()
	if snap.store == nil {
		return memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	return snap.store.Reset(ctx)
}

// Search implements §4.2 Hybrid Search when an embedder is configured,
// degrading to SearchText if embedding the query fails or no embedder is
// configured at all. The degradation is both logged and surfaced to the
// caller on the returned SearchResult (S6), so an API consumer can tell a
// plain-text-matched result set from a vector-scored one.
func (c *Coordinator) Search(ctx context.Context, queryText string, opts memory.SearchOptions) (memory.SearchResult, error) {
	snap := c.snapshot()
	if snap.store == nil {
		return memory.SearchResult{}, memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	if queryText == "" {
		return memory.SearchResult{}, memerr.New(memerr.InvalidInput, "query must not be empty")
	}

	if snap.embedder == nil {
		results, err := snap.store.SearchText(ctx, queryText, opts)
		if err != nil {
			return memory.SearchResult{}, err
		}
		return memory.SearchResult{Memories: results, Degraded: true, Reason: "no embedder configured"}, nil
	}

	vec, err := snap.embedder.EmbedOne(ctx, queryText, snap.embedDesc)
	if err != nil {
		c.logger.Warn("embedding the query failed, falling back to text search", zap.Error(err))
		results, serr := snap.store.SearchText(ctx, queryText, opts)
		if serr != nil {
			return memory.SearchResult{}, serr
		}
		return memory.SearchResult{Memories: results, Degraded: true, Reason: "embedding the query failed: " + err.Error()}, nil
	}

	results, err := snap.store.SearchHybrid(ctx, queryText, vec, opts)
	if err != nil {
		c.logger.Warn("hybrid search failed, falling back to text search", zap.Error(err))
		results, serr := snap.store.SearchText(ctx, queryText, opts)
		if serr != nil {
			return memory.SearchResult{}, serr
		}
		return memory.SearchResult{Memories: results, Degraded: true, Reason: "hybrid search failed: " + err.Error()}, nil
	}
	return memory.SearchResult{Memories: results}, nil
}

// RetrieveRelevant is Search without a score threshold: it always returns
// the top-scoring candidates, the shape a caller injecting context into an
// LLM prompt wants rather than a filtered result set or a degradation flag.
func (c *Coordinator) RetrieveRelevant(ctx context.Context, queryText string, owner memory.Owner, limit int) ([]memory.Memory, error) {
	result, err := c.Search(ctx, queryText, memory.SearchOptions{Owner: owner, Limit: limit, Threshold: 0})
	if err != nil {
		return nil, err
	}
	return result.Memories, nil
}

// ProcessTurn implements process_turn: extracts facts from the rendered
// turns and reconciles them against owner's existing memories. A fact
// extraction failure is fatal (no facts can be derived); a reconciliation
// failure is logged and swallowed so the caller gets back the extracted
// facts and no operations, never a half-applied mutation.
func (c *Coordinator) ProcessTurn(ctx context.Context, turns []factextract.Turn, owner memory.Owner) ([]string, []reconcile.Outcome, error) {
	snap := c.snapshot()
	if snap.store == nil {
		return nil, nil, memerr.New(memerr.NotConfigured, "coordinator not initialized")
	}
	if snap.chatAdapter == nil {
		return nil, nil, memerr.New(memerr.NotConfigured, "no chat LLM configured")
	}

	facts, err := factextract.Extract(ctx, snap.chatAdapter, snap.chatDesc, snap.factPrompt, turns)
	if err != nil {
		return nil, nil, memerr.Wrap(memerr.LLM, "fact extraction failed", err)
	}

	outcomes, err := reconcile.Reconcile(ctx, snap.store, snap.chatAdapter, snap.chatDesc, snap.updatePrompt, snap.embedder, snap.embedDesc, owner, facts)
	if err != nil {
		c.logger.Warn("reconciliation skipped", zap.Error(err))
		return facts, nil, nil
	}

	for _, o := range outcomes {
		if !o.Applied {
			continue
		}
		c.publish(ctx, snap, owner, o.Operation.ID, string(o.Operation.Event), o.Operation.Text, o.Operation.OldMemory)
	}

	return facts, outcomes, nil
}

// Shutdown stops the background purge ticker, if running, and closes the
// store and publisher.
func (c *Coordinator) Shutdown() error {
	c.stopPurge()

	c.mu.Lock()
	store := c.store
	publisher := c.publisher
	c.store = nil
	c.publisher = nil
	c.mu.Unlock()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing mutation event publisher failed", zap.Error(err))
		}
	}

	if store == nil {
		return nil
	}
	return store.Close()
}

func (c *Coordinator) startPurge(interval time.Duration) {
	c.mu.Lock()
	if c.purgeStop != nil {
		c.mu.Unlock()
		return
	}
	c.purgeStop = make(chan struct{})
	c.purgeDone = make(chan struct{})
	stop, done := c.purgeStop, c.purgeDone
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.RLock()
				cache := c.cache
				c.mu.RUnlock()
				if cache != nil {
					n := cache.PurgeExpired()
					if n > 0 {
						c.logger.Debug("purged expired embedding cache entries", zap.Int("count", n))
					}
				}
			}
		}
	}()
}

func (c *Coordinator) stopPurge() {
	c.mu.Lock()
	stop, done := c.purgeStop, c.purgeDone
	c.purgeStop, c.purgeDone = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
