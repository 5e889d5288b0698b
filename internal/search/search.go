// Package search implements the full-text, prefix, and DSL query modes
// over the persistence layer's FTS index, sharing one result shape. The
// package holds no cache; cmd/archivecli fronts it with internal/cache.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/convoarchive/convoarchive/internal/metrics"
)

// DefaultLimit and MaxLimit bound every search call: callers that ask for
// more than MaxLimit are silently capped.
const (
	DefaultLimit = 50
	MaxLimit     = 100

	prefixModeThreshold = 3
)

// SearchResult is the shared shape returned by every mode.
type SearchResult struct {
	ConversationID  string
	ConversationUID string
	Title           string
	Snippet         string
	Score           float64
}

var searchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "search_duration_seconds",
		Help:    "Duration of search queries in seconds, by provider.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// ErrEmptyQuery is returned for a query that is empty after trimming.
type ErrEmptyQuery struct{}

func (ErrEmptyQuery) Error() string { return "search: empty query" }

// defaultSnippetTokens is the snippet() token budget used when no
// snippet length has been configured, matching the original's
// default of a 300-character snippet (snippet_length / 10 tokens).
const defaultSnippetTokens = 30

// Engine runs queries against a shared read connection pool.
type Engine struct {
	db            *sql.DB
	snippetTokens int
}

// New returns an Engine reading from db, with the default snippet
// length.
func New(db *sql.DB) *Engine {
	return &Engine{db: db, snippetTokens: defaultSnippetTokens}
}

// WithSnippetLength sets the snippet length in characters, converted to
// the token budget SQLite's snippet() function takes (characters / 10,
// the same heuristic the original search module used). A non-positive
// length leaves the default in place.
func (e *Engine) WithSnippetLength(chars int) *Engine {
	if chars > 0 {
		e.snippetTokens = chars / 10
		if e.snippetTokens < 1 {
			e.snippetTokens = 1
		}
	}
	return e
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Search selects full-text mode for queries of 3 or more characters and
// prefix mode otherwise, per §4.7.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery{}
	}
	limit = clampLimit(limit)

	start := time.Now()
	metrics.SearchesTotal.WithLabelValues("all").Inc()
	defer func() { searchDuration.WithLabelValues("all").Observe(time.Since(start).Seconds()) }()

	if len([]rune(query)) < prefixModeThreshold {
		return e.searchPrefix(ctx, query, limit)
	}
	return e.searchFullText(ctx, query, limit)
}

// searchFullText runs an FTS MATCH query, joins to conversations, and
// orders by rank (surfaced as a positive score).
func (e *Engine) searchFullText(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT c.id, c.uid, COALESCE(c.title, ''), messages_fts.rank,
			snippet(messages_fts, 0, '<mark>', '</mark>', '…', ?)
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN conversations c ON c.id = m.conversation_id
		WHERE messages_fts MATCH ?
		ORDER BY messages_fts.rank
		LIMIT ?
	`, e.snippetTokens, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: full-text query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var rowID int64
		var rank float64
		if err := rows.Scan(&rowID, &r.ConversationUID, &r.Title, &rank, &r.Snippet); err != nil {
			return nil, err
		}
		r.ConversationID = fmt.Sprintf("%d", rowID)
		r.Score = absFloat(rank)
		out = append(out, r)
	}
	return out, rows.Err()
}

// searchPrefix runs a LIKE prefix match against titles and message
// content; title matches sort first, then content-only matches (content
// rows of a conversation whose title matched are left out), ties broken
// by conversation id descending.
func (e *Engine) searchPrefix(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	pattern := query + "%"
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, uid, title, matched_in, snippet FROM (
			SELECT c.id AS id, c.uid AS uid, COALESCE(c.title, '') AS title,
				0 AS matched_in, COALESCE(c.title, '') AS snippet
			FROM conversations c
			WHERE c.title LIKE ?
			UNION ALL
			SELECT c.id AS id, c.uid AS uid, COALESCE(c.title, '') AS title,
				1 AS matched_in, substr(m.content, 1, 120) AS snippet
			FROM messages m JOIN conversations c ON c.id = m.conversation_id
			WHERE m.content LIKE ? AND COALESCE(c.title, '') NOT LIKE ?
		)
		ORDER BY matched_in ASC, id DESC
		LIMIT ?
	`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search: prefix query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var rowID int64
		var matchedIn int
		if err := rows.Scan(&rowID, &r.ConversationUID, &r.Title, &matchedIn, &r.Snippet); err != nil {
			return nil, err
		}
		r.ConversationID = fmt.Sprintf("%d", rowID)
		r.Score = 1.0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSearchSuggestions returns up to limit distinct conversation titles
// starting with prefix, most recently created first — a title-prefix
// autocomplete, not a full search.
func (e *Engine) GetSearchSuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	limit = clampLimit(limit)

	rows, err := e.db.QueryContext(ctx, `
		SELECT DISTINCT title FROM conversations
		WHERE title LIKE ? || '%' AND title IS NOT NULL
		ORDER BY created_at DESC
		LIMIT ?
	`, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("search: suggestions query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
