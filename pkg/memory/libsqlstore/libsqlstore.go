// Package libsqlstore implements memory.Store on libSQL, using the
// engine's native F32_BLOB(n) column type and vector32()/vector_distance_cos
// functions instead of a bolted-on extension. The query vector is always
// passed as a bound parameter to vector32(?), never interpolated into the
// SQL text — see the anti-injection design note this backend exists to
// satisfy.
package libsqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/memerr"
	"github.com/driftwood-labs/memex/pkg/memory"
	"github.com/driftwood-labs/memex/pkg/vecmath"
)

//go:embed schema.sql
var schemaTemplate string

// Store is a libSQL backed memory.Store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	dims   int
}

// Open opens (creating if necessary) the libSQL database at dbPath and
// initializes the schema with an embedding column sized for dims. dims
// must match the configured embedder's expected_dimensions; rows written
// under a different dimension are rejected by the engine itself.
func Open(dbPath string, dims int, logger *zap.Logger) (*Store, error) {
	if dims <= 0 {
		return nil, memerr.New(memerr.InvalidInput, "libsqlstore requires a positive vector dimension")
	}

	dsn := dbPath
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "creating database directory", err)
		}
		dsn = "file:" + dbPath
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "opening libsql database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger, dims: dims}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := fmt.Sprintf(schemaTemplate, s.dims)
	for _, stmt := range splitStatements(schema) {
		if _, err := s.db.Exec(stmt); err != nil {
			return memerr.Wrap(memerr.Backend, "initializing schema", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

const timeLayout = time.RFC3339Nano

// vectorLiteral renders a dense vector as the text form vector32() parses,
// e.g. "[0.1,0.2,0.3]". It is always bound as a query parameter, never
// concatenated into SQL text.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback()

	if len(embedding) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memories (id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted)
			VALUES (?, ?, ?, vector32(?), ?, ?, ?, ?, ?, ?, 0)`,
			id, text, hash, vectorLiteral(embedding), string(metaJSON), owner.UserID, owner.AgentID, owner.RunID,
			now.Format(timeLayout), now.Format(timeLayout),
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memories (id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted)
			VALUES (?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, 0)`,
			id, text, hash, string(metaJSON), owner.UserID, owner.AgentID, owner.RunID,
			now.Format(timeLayout), now.Format(timeLayout),
		)
	}
	if err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "inserting memory", err)
	}

	if err := insertHistory(ctx, tx, id, nil, &text, memory.ActionAdd, now); err != nil {
		return memory.Memory{}, err
	}

	if err := tx.Commit(); err != nil {
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "committing transaction", err)
	}

	return memory.Memory{
		ID: id, Text: text, Hash: hash, Embedding: embedding, Metadata: metadata,
		UserID: owner.UserID, AgentID: owner.AgentID, RunID: owner.RunID,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (s *Store) findByHash(ctx context.Context, hash string) (memory.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories WHERE hash = ? AND is_deleted = 0`, hash)
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback()

	if len(embedding) > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE memories SET memory = ?, hash = ?, embedding = vector32(?), metadata = ?, updated_at = ?
			WHERE id = ? AND is_deleted = 0`,
			text, newHash, vectorLiteral(embedding), string(metaJSON), now.Format(timeLayout), id,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE memories SET memory = ?, hash = ?, metadata = ?, updated_at = ?
			WHERE id = ? AND is_deleted = 0`,
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

	if err := tx.Commit(); err != nil {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE memories SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		now.Format(timeLayout), id,
	); err != nil {
		return memerr.Wrap(memerr.Backend, "deleting memory", err)
	}

	oldText := current.Text
	if err := insertHistory(ctx, tx, id, &oldText, nil, memory.ActionDelete, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return memerr.Wrap(memerr.Backend, "committing transaction", err)
	}
	return nil
}

func (s *Store) getActive(ctx context.Context, id string) (memory.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories WHERE id = ? AND is_deleted = 0`, id)
	return scanMemory(row)
}

// List returns non-deleted rows matching opts, newest first.
func (s *Store) List(ctx context.Context, opts memory.ListOptions) ([]memory.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	where, args := ownerFilter(opts.Owner)
	query := `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories WHERE is_deleted = 0 ` + where + `
		ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "listing memories", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

func ownerFilter(owner memory.Owner) (string, []any) {
	var clauses []string
	var args []any
	if owner.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, owner.UserID)
	}
	if owner.AgentID != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, owner.AgentID)
	}
	if owner.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, owner.RunID)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return "AND " + strings.Join(clauses, " AND "), args
}

// SearchText performs the LIKE-based fallback search.
func (s *Store) SearchText(ctx context.Context, queryText string, opts memory.SearchOptions) ([]memory.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := ownerFilter(opts.Owner)
	query := strings.TrimSpace(queryText)

	exactPattern := "%" + query + "%"
	fuzzyPattern := fuzzyLikePattern(query)

	sqlQuery := `
		SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted
		FROM memories
		WHERE is_deleted = 0 ` + where + `
		AND (memory LIKE ? OR memory LIKE ?)
		ORDER BY created_at DESC LIMIT ?`
	args = append(args, exactPattern, fuzzyPattern, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
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
// bound as a vector32(?) parameter, never interpolated.
func (s *Store) SearchHybrid(ctx context.Context, queryText string, queryVector []float32, opts memory.SearchOptions) ([]memory.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	threshold := opts.Threshold

	where, args := ownerFilter(opts.Owner)
	query := strings.TrimSpace(queryText)
	exactPattern := "%" + query + "%"
	fuzzyPattern := fuzzyLikePattern(query)
	queryVec := vectorLiteral(queryVector)

	sqlQuery := `
		SELECT * FROM (
		  SELECT id, memory, hash, embedding, metadata, user_id, agent_id, run_id, created_at, updated_at, is_deleted,
		    (0.7 * CASE WHEN embedding IS NOT NULL THEN (1.0 - vector_distance_cos(embedding, vector32(?))) ELSE 0 END
		     + 0.3 * CASE WHEN memory LIKE ? THEN 1.0 WHEN memory LIKE ? THEN 0.8 ELSE 0 END) AS score
		  FROM memories
		  WHERE is_deleted = 0 ` + where + `
		) WHERE score >= ? AND score > 0
		ORDER BY score DESC, created_at DESC
		LIMIT ?`
	queryArgs := append([]any{queryVec, exactPattern, fuzzyPattern}, args...)
	queryArgs = append(queryArgs, threshold, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, queryArgs...)
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
		    CASE WHEN embedding IS NOT NULL THEN (1.0 - vector_distance_cos(embedding, vector32(?))) ELSE 0 END AS score
		  FROM memories
		  WHERE is_deleted = 0 AND id != ?
		) WHERE score >= ?
		ORDER BY score DESC, created_at DESC
		LIMIT 50`

	rows, err := s.db.QueryContext(ctx, sqlQuery, queryVec, excludeID, threshold)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "finding similar memories", err)
	}
	defer rows.Close()

	return scanScoredMemories(rows)
}

// History returns non-deleted history rows for id, most recent first.
func (s *Store) History(ctx context.Context, id string) ([]memory.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, previous_value, new_value, action, created_at, updated_at, is_deleted
		FROM memory_history
		WHERE memory_id = ? AND is_deleted = 0
		ORDER BY id DESC`, id)
	if err != nil {
		return nil, memerr.Wrap(memerr.Backend, "listing history", err)
	}
	defer rows.Close()

	var items []memory.HistoryItem
	for rows.Next() {
		var item memory.HistoryItem
		var createdAt, updatedAt string
		var isDeleted int
		if err := rows.Scan(&item.ID, &item.MemoryID, &item.PreviousValue, &item.NewValue, &item.Action, &createdAt, &updatedAt, &isDeleted); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "scanning history row", err)
		}
		item.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		item.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		item.IsDeleted = isDeleted != 0
		items = append(items, item)
	}
	return items, rows.Err()
}

// Reset truncates both tables.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return memerr.Wrap(memerr.Backend, "beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_history`); err != nil {
		return memerr.Wrap(memerr.Backend, "resetting history", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return memerr.Wrap(memerr.Backend, "resetting memories", err)
	}
	if err := tx.Commit(); err != nil {
		return memerr.Wrap(memerr.Backend, "committing transaction", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func insertHistory(ctx context.Context, tx *sql.Tx, memoryID string, previous, newValue *string, action memory.HistoryAction, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO memory_history (memory_id, previous_value, new_value, action, created_at, updated_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
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
	var embBlob []byte
	var metaJSON string
	var createdAt, updatedAt string
	var isDeleted int

	err := sc.Scan(&m.ID, &m.Text, &m.Hash, &embBlob, &metaJSON, &m.UserID, &m.AgentID, &m.RunID, &createdAt, &updatedAt, &isDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return memory.Memory{}, memerr.New(memerr.NotFound, "no such memory")
		}
		return memory.Memory{}, memerr.Wrap(memerr.Backend, "scanning memory row", err)
	}
	return finishScan(m, embBlob, metaJSON, createdAt, updatedAt, isDeleted)
}

func finishScan(m memory.Memory, embBlob []byte, metaJSON, createdAt, updatedAt string, isDeleted int) (memory.Memory, error) {
	if len(embBlob) > 0 {
		v, err := vecmath.Decode(embBlob)
		if err != nil {
			return memory.Memory{}, memerr.Wrap(memerr.Backend, "decoding embedding", err)
		}
		m.Embedding = v
	}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
	}
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	m.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	m.IsDeleted = isDeleted != 0
	return m, nil
}

func scanMemories(rows *sql.Rows) ([]memory.Memory, error) {
	var out []memory.Memory
	for rows.Next() {
		var m memory.Memory
		var embBlob []byte
		var metaJSON string
		var createdAt, updatedAt string
		var isDeleted int
		if err := rows.Scan(&m.ID, &m.Text, &m.Hash, &embBlob, &metaJSON, &m.UserID, &m.AgentID, &m.RunID, &createdAt, &updatedAt, &isDeleted); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "scanning memory row", err)
		}
		scanned, err := finishScan(m, embBlob, metaJSON, createdAt, updatedAt, isDeleted)
		if err != nil {
			return nil, err
		}
		out = append(out, scanned)
	}
	return out, rows.Err()
}

func scanScoredMemories(rows *sql.Rows) ([]memory.Memory, error) {
	var out []memory.Memory
	for rows.Next() {
		var m memory.Memory
		var embBlob []byte
		var metaJSON string
		var createdAt, updatedAt string
		var isDeleted int
		var score float64
		if err := rows.Scan(&m.ID, &m.Text, &m.Hash, &embBlob, &metaJSON, &m.UserID, &m.AgentID, &m.RunID, &createdAt, &updatedAt, &isDeleted, &score); err != nil {
			return nil, memerr.Wrap(memerr.Backend, "scanning scored memory row", err)
		}
		scanned, err := finishScan(m, embBlob, metaJSON, createdAt, updatedAt, isDeleted)
		if err != nil {
			return nil, err
		}
		scanned.Score = score
		out = append(out, scanned)
	}
	return out, rows.Err()
}

var _ memory.Store = (*Store)(nil)
