// Package pgstore implements memory.Store on PostgreSQL with the pgvector
// extension. Embeddings live in a vector(n) column and are scored with
// pgvector's <=> cosine-distance operator; the query vector is always sent
// as a bound $N parameter cast to ::vector, never string-interpolated.
//
// This backend deliberately does not use entgo.io/ent (the ORM the
// PostgreSQL backend this module is modeled on uses): ent requires
// generated code this module cannot produce without running the Go
// toolchain, so it shares the same raw database/sql-style query
// implementation as the other two backends instead.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/memerr"
	"github.com/driftwood-labs/memex/pkg/memory"
)

//go:embed schema.sql
var schemaTemplate string

// Store is a PostgreSQL + pgvector backed memory.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	dims   int
}

// Open connects to the PostgreSQL database identified by connStr and
// initializes the schema with an embedding column sized for dims. dims
// must match the configured embedder's expected_dimensions.
func Open(ctx context.Context, connStr string, dims int, logger *zap.Logger) (*Store, error) {
	if dims <= 0 {
		return nil, memerr.New(memerr.InvalidInput, "pgstore requires a positive vector dimension")
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "opening postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, memerr.Wrap(memerr.Backend, "pinging postgres", err)
	}

	s := &Store{pool: pool, logger: logger, dims: dims}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	schema := fmt.Sprintf(schemaTemplate, s.dims)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return memerr.Wrap(memerr.Backend, "initializing schema", err)
	}
	return nil
}

const timeLayout = time.RFC3339Nano

// vectorLiteral renders a dense vector as pgvector's text input form,
// e.g. "[0.1,0.2,0.3]". Always bound as a query parameter cast with
// ::vector, never concatenated into SQL text.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func parseVector(s string) []float32 {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "]"), "[")
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, _ := strconv.ParseFloat(strings.TrimSpace(f), 32)
		out[i] = float32(v)
	}
	return out
}

// Add inserts text under owner, or returns the existing non-deleted row
// unchanged if its hash already exists.
func (s *Store) Add(ctx context.Context, text string, owner memory.Owner, metadata map[string]any, embedding []float32) (memory.Memory, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return memory.Memory{}, memerr.New(memerr.InvalidInput, "text must not be empty")
	}
	hash := memory.Hash(text)

	if existing, err := s.findByHash(ctx, hash); err == nil {
		return existing, nil
	} else if !memerr.HasCode(err, memerr.NotFound) {
		return memory.Memory{}, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.InvalidInput, "marshaling metadata", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	var embArg any
	if len(embedding) > 0 {
		embArg = vectorLiteral(embedding)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memories (id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted)
		VALUES ($1, $2, $3, $4::vector, $5, $6, $7, $8, $9, $10, false)`,
		id, text, hash, embArg, string(metaJSON), owner.UserID, owner.AgentID, owner.RunID,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "inserting memory", err)
	}

	if err := insertHistory(ctx, tx, id, nil, &text, memory.ActionAdd, now); err != nil {
		return memory.Memory{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "committing transaction", err)
	}

	return memory.Memory{
		ID: id, Text: text, Hash: hash, Embedding: embedding, Metadata: metadata,
		UserID: owner.UserID, AgentID: owner.AgentID, RunID: owner.RunID,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (s *Store) findByHash(ctx context.Context, hash string) (memory.Memory, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories WHERE hash = $1 AND is_deleted = false`, hash)
	return scanMemory(row)
}

// Update rewrites text/hash/metadata/embedding for a non-deleted row.
func (s *Store) Update(ctx context.Context, id, text string, metadataPatch map[string]any, embedding []float32) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return memerr.New(memerr.InvalidInput, "text must not be empty")
	}

	current, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}

	merged := memory.MergeMetadata(current.Metadata, metadataPatch)
	metaJSON, err := json.Marshal(merged)
	if err != nil {
		return memerr.Wrap(memerr.InvalidInput, "marshaling metadata", err)
	}

	newHash := memory.Hash(text)
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	if len(embedding) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE memories SET memory = $1, hash = $2, embedding = $3::vector, metadata = $4, updated_at = $5
			WHERE id = $6 AND is_deleted = false`,
			text, newHash, vectorLiteral(embedding), string(metaJSON), now.Format(timeLayout), id,
		)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE memories SET memory = $1, hash = $2, metadata = $3, updated_at = $4
			WHERE id = $5 AND is_deleted = false`,
			text, newHash, string(metaJSON), now.Format(timeLayout), id,
		)
	}
	if err != nil {
		return memerr.Wrap(memerr.Backend, "updating memory", err)
	}

	oldText := current.Text
	if err := insertHistory(ctx, tx, id, &oldText, &text, memory.ActionUpdate, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return memerr.Wrap(memerr.Backend, "committing transaction", err)
	}
	return nil
}

// Delete soft-deletes the non-deleted row identified by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	current, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE memories SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`,
		now.Format(timeLayout), id,
	); err != nil {
		return memerr.Wrap(memerr.Backend, "deleting memory", err)
	}

	oldText := current.Text
	if err := insertHistory(ctx, tx, id, &oldText, nil, memory.ActionDelete, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return memerr.Wrap(memerr.Backend, "committing transaction", err)
	}
	return nil
}

func (s *Store) getActive(ctx context.Context, id string) (memory.Memory, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories WHERE id = $1 AND is_deleted = false`, id)
	return scanMemory(row)
}

// List returns non-deleted rows matching opts, newest first.
func (s *Store) List(ctx context.Context, opts memory.ListOptions) ([]memory.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	where, args, next := ownerFilter(opts.Owner, 1)
	query := `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories WHERE is_deleted = false ` + where + `
		ORDER BY created_at DESC LIMIT ` + placeholder(next)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "listing memories", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func ownerFilter(owner memory.Owner, start int) (string, []any, int) {
	var clauses []string
	var args []any
	n := start
	if owner.UserID != "" {
		clauses = append(clauses, "user_id = "+placeholder(n))
		args = append(args, owner.UserID)
		n++
	}
	if owner.AgentID != "" {
		clauses = append(clauses, "agent_id = "+placeholder(n))
		args = append(args, owner.AgentID)
		n++
	}
	if owner.RunID != "" {
		clauses = append(clauses, "run_id = "+placeholder(n))
		args = append(args, owner.RunID)
		n++
	}
	if len(clauses) == 0 {
		return "", args, n
	}
	return "AND " + strings.Join(clauses, " AND "), args, n
}

// SearchText performs the LIKE-based fallback search.
func (s *Store) SearchText(ctx context.Context, queryText string, opts memory.SearchOptions) ([]memory.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args, next := ownerFilter(opts.Owner, 1)
	query := strings.TrimSpace(queryText)

	exactPattern := "%" + query + "%"
	fuzzyPattern := fuzzyLikePattern(query)

	sqlQuery := fmt.Sprintf(`
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories
		WHERE is_deleted = false %s
		AND (memory LIKE %s OR memory LIKE %s)
		ORDER BY created_at DESC LIMIT %s`,
		where, placeholder(next), placeholder(next+1), placeholder(next+2))
	args = append(args, exactPattern, fuzzyPattern, limit)

	rows, err := s.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "text searching memories", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	for i := range memories {
		memories[i].Score = memory.TextSim(query, memories[i].Text)
	}
	return memories, nil
}

func fuzzyLikePattern(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "%" + query + "%"
	}
	return "%" + strings.Join(fields, "%") + "%"
}

// SearchHybrid scores candidates with 0.7*vec_sim + 0.3*text_sim in a
// single SQL expression and returns rows at or above threshold; rows
// scoring 0 are dropped even when threshold is 0. The query vector is
// bound as a $N parameter cast to ::vector, never interpolated.
func (s *Store) SearchHybrid(ctx context.Context, queryText string, queryVector []float32, opts memory.SearchOptions) ([]memory.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	threshold := opts.Threshold

	where, ownerArgs, next := ownerFilter(opts.Owner, 4)
	query := strings.TrimSpace(queryText)
	exactPattern := "%" + query + "%"
	fuzzyPattern := fuzzyLikePattern(query)
	queryVec := vectorLiteral(queryVector)

	sqlQuery := fmt.Sprintf(`
		SELECT * FROM (
		  SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted,
		    (0.7 * CASE WHEN embedding IS NOT NULL THEN (1.0 - (embedding <=> $1::vector)) ELSE 0 END
		     + 0.3 * CASE WHEN memory LIKE $2 THEN 1.0 WHEN memory LIKE $3 THEN 0.8 ELSE 0 END) AS score
		  FROM memories
		  WHERE is_deleted = false %s
		) scored WHERE score >= %s AND score > 0
		ORDER BY score DESC, created_at DESC
		LIMIT %s`,
		where, placeholder(next), placeholder(next+1))

	args := append([]any{queryVec, exactPattern, fuzzyPattern}, ownerArgs...)
	args = append(args, threshold, limit)

	rows, err := s.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "hybrid searching memories", err)
	}
	defer rows.Close()

	return scanScoredMemories(rows)
}

// FindSimilar returns up to 50 rows scored purely by vec_sim at or above
// threshold, excluding excludeID.
func (s *Store) FindSimilar(ctx context.Context, embedding []float32, threshold float64, excludeID string) ([]memory.Memory, error) {
	queryVec := vectorLiteral(embedding)

	sqlQuery := `
		SELECT * FROM (
		  SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted,
		    CASE WHEN embedding IS NOT NULL THEN (1.0 - (embedding <=> $1::vector)) ELSE 0 END AS score
		  FROM memories
		  WHERE is_deleted = false AND id != $2
		) scored WHERE score >= $3
		ORDER BY score DESC, created_at DESC
		LIMIT 50`

	rows, err := s.pool.Query(ctx, sqlQuery, queryVec, excludeID, threshold)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "finding similar memories", err)
	}
	defer rows.Close()

	return scanScoredMemories(rows)
}

// History returns non-deleted history rows for id, most recent first.
func (s *Store) History(ctx context.Context, id string) ([]memory.HistoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, memory_id, previous_value, new_value, action, created_at, updated_at, is_deleted
		FROM memory_history
		WHERE memory_id = $1 AND is_deleted = false
		ORDER BY id DESC`, id)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "listing history", err)
	}
	defer rows.Close()

	var items []memory.HistoryItem
	for rows.Next() {
		var item memory.HistoryItem
		var createdAt, updatedAt string
		if err := rows.Scan(&item.ID, &item.MemoryID, &item.PreviousValue, &item.NewValue, &item.Action, &createdAt, &updatedAt, &item.IsDeleted); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "scanning history row", err)
		}
		item.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		item.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Reset truncates both tables.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM memory_history`); err != nil {
		return memerr.Wrap(memerr.Backend, "resetting history", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM memories`); err != nil {
		return memerr.Wrap(memerr.Backend, "resetting memories", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return memerr.Wrap(memerr.Backend, "committing transaction", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, memoryID string, previous, newValue *string, action memory.HistoryAction, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO memory_history (memory_id, previous_value, new_value, action, created_at, updated_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, false)`,
		memoryID, previous, newValue, string(action), now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "appending history", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(sc scanner) (memory.Memory, error) {
	var m memory.Memory
	var embText *string
	var metaJSON string
	var createdAt, updatedAt string

	err := sc.Scan(&m.ID, &m.Text, &m.Hash, &embText, &metaJSON, &m.UserID, &m.AgentID, &m.RunID, &createdAt, &updatedAt, &m.IsDeleted)
	if err != nil {
		if err == pgx.ErrNoRows {
			return memory.Memory{}, memerr.New(memerr.NotFound, "no such memory")
		}
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "scanning memory row", err)
	}
	return finishScan(m, embText, metaJSON, createdAt, updatedAt)
}

func finishScan(m memory.Memory, embText *string, metaJSON, createdAt, updatedAt string) (memory.Memory, error) {
	if embText != nil {
		m.Embedding = parseVector(*embText)
	}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
	}
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	m.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return m, nil
}

func scanMemories(rows pgx.Rows) ([]memory.Memory, error) {
	var out []memory.Memory
	for rows.Next() {
		var m memory.Memory
		var embText *string
		var metaJSON string
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Text, &m.Hash, &embText, &metaJSON, &m.UserID, &m.AgentID, &m.RunID, &createdAt, &updatedAt, &m.IsDeleted); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "scanning memory row", err)
		}
		scanned, err := finishScan(m, embText, metaJSON, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, scanned)
	}
	return out, rows.Err()
}

func scanScoredMemories(rows pgx.Rows) ([]memory.Memory, error) {
	var out []memory.Memory
	for rows.Next() {
		var m memory.Memory
		var embText *string
		var metaJSON string
		var createdAt, updatedAt string
		var score float64
		if err := rows.Scan(&m.ID, &m.Text, &m.Hash, &embText, &metaJSON, &m.UserID, &m.AgentID, &m.RunID, &createdAt, &updatedAt, &m.IsDeleted, &score); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "scanning scored memory row", err)
		}
		scanned, err := finishScan(m, embText, metaJSON, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		scanned.Score = score
		out = append(out, scanned)
	}
	return out, rows.Err()
}

var _ memory.Store = (*Store)(nil)
