package memory

import "context"

// Store is the single-writer facade over an embedded SQL engine with
// native vector support. Every storage backend (sqlitestore, libsqlstore,
// pgstore) implements this interface identically from the coordinator's
// point of view.
type Store interface {
	// Add inserts text under owner, or returns the existing non-deleted
	// row unchanged if its hash already exists (idempotent ADD).
	// embedding may be nil when no embedder is configured or embedding
	// generation failed; the row is still inserted.
	Add(ctx context.Context, text string, owner Owner, metadata map[string]any, embedding []float32) (Memory, error)

	// Update rewrites the text, hash, metadata (shallow-merged), and,
	// when embedding is non-nil, the vector of the non-deleted row
	// identified by id. Fails with memerr.NotFound if absent.
	Update(ctx context.Context, id, text string, metadataPatch map[string]any, embedding []float32) error

	// Delete soft-deletes the non-deleted row identified by id. Fails
	// with memerr.NotFound if absent.
	Delete(ctx context.Context, id string) error

	// List returns non-deleted rows matching opts, newest first.
	List(ctx context.Context, opts ListOptions) ([]Memory, error)

	// SearchText performs the SQL LIKE fallback: exact substring, then
	// the looser fuzzy token pattern, newest first.
	SearchText(ctx context.Context, queryText string, opts SearchOptions) ([]Memory, error)

	// SearchHybrid performs Hybrid Search: 0.7*vec_sim + 0.3*text_sim,
	// filtered by threshold (rows scoring 0 are never returned), sorted by
	// score desc then created_at desc.
	SearchHybrid(ctx context.Context, queryText string, queryVector []float32, opts SearchOptions) ([]Memory, error)

	// FindSimilar returns up to 50 rows scored by vec_sim alone, at or
	// above threshold, excluding excludeID. Used by the Reconciler to
	// avoid re-adding near-duplicates.
	FindSimilar(ctx context.Context, embedding []float32, threshold float64, excludeID string) ([]Memory, error)

	// History returns non-deleted history rows for id, most recent first.
	History(ctx context.Context, id string) ([]HistoryItem, error)

	// Reset truncates both tables.
	Reset(ctx context.Context) error

	// Close releases the storage engine connection.
	Close() error
}
