// Package store is the embedded relational persistence layer: an SQLite
// database file with a full-text index over message content, upserted
// transactionally in batches.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

// ErrNotFound is returned by GetConversation when no row matches the id.
var ErrNotFound = errors.New("store: not found")

// Store wraps the embedded database connection pool.
type Store struct {
	db *sql.DB
}

// Open creates parent directories for path, opens the embedded store with
// write-ahead logging, a page cache sized by cachePages (negative means
// KiB, per SQLite's PRAGMA cache_size convention), and a memory-resident
// temp store, caps the connection pool at maxOpenConns, and runs
// migrations.
func Open(path string, maxOpenConns, cachePages int) (*Store, error) {
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: creating data directory: %w", err)
		}
	}

	dsn := path
	if path == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 5
	}
	db.SetMaxOpenConns(maxOpenConns)

	if cachePages == 0 {
		cachePages = -65536
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA cache_size = %d", cachePages),
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: applying %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// runMigrations creates the tables, FTS virtual table, triggers, and
// indexes. It is idempotent.
func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: running migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the shared connection pool to read-only collaborators (the
// search engine) that need to run their own queries against it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ProcessConversationBatch atomically upserts every conversation in
// batch, keyed by (provider, external_id), and inserts its messages.
// Upsert updates mutable conversation fields but never deletes prior
// messages — a known add-only re-import limitation (spec §9).
func (s *Store) ProcessConversationBatch(ctx context.Context, batch []canonical.Conversation) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	accepted := 0
	for _, conv := range batch {
		rowID, err := upsertConversation(ctx, tx, &conv)
		if err != nil {
			return 0, fmt.Errorf("store: upserting conversation %s: %w", conv.ID, err)
		}
		if err := insertMessages(ctx, tx, rowID, conv.Messages); err != nil {
			return 0, fmt.Errorf("store: inserting messages for %s: %w", conv.ID, err)
		}
		accepted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: committing batch: %w", err)
	}
	committed = true
	return accepted, nil
}

// upsertConversation writes conv keyed by (provider, external_id) and
// returns the row's integer id, either freshly assigned or the existing
// one on conflict.
func upsertConversation(ctx context.Context, tx *sql.Tx, conv *canonical.Conversation) (int64, error) {
	now := time.Now().UTC().UnixMicro()
	row := tx.QueryRowContext(ctx, `
		INSERT INTO conversations (uid, provider, external_id, title, model, created_at, updated_at, raw_json, system_prompt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, external_id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			updated_at = excluded.updated_at,
			raw_json = excluded.raw_json,
			system_prompt = excluded.system_prompt
		RETURNING id
	`,
		conv.ID, conv.Provider, nullableString(conv.ExternalID), nullableString(conv.Title), nullableString(conv.Model),
		conv.StartTime.UnixMicro(), now, nullableString(conv.RawJSON), nullableString(conv.SystemPrompt),
	)

	var rowID int64
	if err := row.Scan(&rowID); err != nil {
		return 0, err
	}
	return rowID, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, conversationRowID int64, messages []canonical.Message) error {
	for i, m := range messages {
		toolCallsJSON, attachmentsJSON, err := marshalMessageExtras(m)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, position, role, content, model, created_at, tokens, tool_calls_json, attachments_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			conversationRowID, i, string(m.Role), m.Content, nullableString(m.Model), m.Timestamp.UnixMicro(),
			messageTokens(m), toolCallsJSON, attachmentsJSON,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// messageTokens extracts the provider-reported token count from a
// message's metadata, if any, for the schema's own tokens column —
// grok.go is the only parser that currently populates "token_count".
func messageTokens(m canonical.Message) sql.NullInt64 {
	raw, ok := m.Metadata["token_count"]
	if !ok {
		return sql.NullInt64{}
	}
	switch v := raw.(type) {
	case float64:
		return sql.NullInt64{Int64: int64(v), Valid: true}
	case int:
		return sql.NullInt64{Int64: int64(v), Valid: true}
	case int64:
		return sql.NullInt64{Int64: v, Valid: true}
	default:
		return sql.NullInt64{}
	}
}

func marshalMessageExtras(m canonical.Message) (toolCalls, attachments sql.NullString, err error) {
	if len(m.Metadata) > 0 {
		rest := m.Metadata
		if _, ok := rest["token_count"]; ok {
			rest = make(map[string]any, len(m.Metadata))
			for k, v := range m.Metadata {
				if k != "token_count" {
					rest[k] = v
				}
			}
		}
		if len(rest) > 0 {
			data, err := json.Marshal(rest)
			if err != nil {
				return sql.NullString{}, sql.NullString{}, err
			}
			toolCalls = sql.NullString{String: string(data), Valid: true}
		}
	}
	if len(m.MediaFiles) > 0 {
		data, err := json.Marshal(m.MediaFiles)
		if err != nil {
			return sql.NullString{}, sql.NullString{}, err
		}
		attachments = sql.NullString{String: string(data), Valid: true}
	}
	return toolCalls, attachments, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ConversationRow pairs the canonical conversation with the integer row
// id the store assigned it, used by the cache and by search result
// ordering.
type ConversationRow struct {
	RowID int64
	canonical.Conversation
}

// GetConversation returns the conversation row by its canonical stable
// id (uid), or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (*ConversationRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uid, provider, COALESCE(external_id,''), COALESCE(title,''), COALESCE(model,''), created_at, COALESCE(system_prompt,'')
		FROM conversations WHERE uid = ?
	`, id)

	var c ConversationRow
	var createdAtMicros int64
	if err := row.Scan(&c.RowID, &c.ID, &c.Provider, &c.ExternalID, &c.Title, &c.Model, &createdAtMicros, &c.SystemPrompt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: getting conversation %s: %w", id, err)
	}
	c.StartTime = time.UnixMicro(createdAtMicros).UTC()
	return &c, nil
}

// GetMessages returns every message for the conversation identified by
// its canonical stable id, ordered by position.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]canonical.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.role, m.content, COALESCE(m.model,''), m.created_at
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE c.uid = ? ORDER BY m.position ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: getting messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var out []canonical.Message
	for rows.Next() {
		var m canonical.Message
		var role string
		var createdAtMicros int64
		if err := rows.Scan(&role, &m.Content, &m.Model, &createdAtMicros); err != nil {
			return nil, err
		}
		m.Role = canonical.Role(role)
		m.Timestamp = time.UnixMicro(createdAtMicros).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// Stats reports the counts published as gauges by background maintenance.
type Stats struct {
	Conversations     int64
	Messages          int64
	DatabaseSizeBytes int64
}

// CountStats queries conversation/message counts and the database file
// size for the periodic gauge refresh.
func (s *Store) CountStats(ctx context.Context, path string) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&st.Conversations); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.Messages); err != nil {
		return st, err
	}
	if path != "" && path != ":memory:" {
		if info, err := os.Stat(path); err == nil {
			st.DatabaseSizeBytes = info.Size()
		}
	}
	return st, nil
}
