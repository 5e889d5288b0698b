package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/metrics"
)

// dslKeys is the closed set of recognized key:value filters.
var dslKeys = map[string]bool{
	"provider": true,
	"role":     true,
	"model":    true,
	"after":    true,
	"before":   true,
}

// dslQuery is the parsed form of a DSL input string.
type dslQuery struct {
	Provider string
	Role     string
	Model    string
	After    *time.Time
	Before   *time.Time
	FreeText string
}

// parseDSL tokenizes a whitespace-separated input. Recognized
// "key:value" pairs populate the corresponding field; "after"/"before"
// values parse as YYYY-MM-DD. Unrecognized key:value pairs and bare
// tokens are rejoined with spaces into FreeText.
func parseDSL(input string) (dslQuery, error) {
	var q dslQuery
	var free []string

	for _, tok := range strings.Fields(input) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || !dslKeys[strings.ToLower(key)] {
			free = append(free, tok)
			continue
		}

		switch strings.ToLower(key) {
		case "provider":
			q.Provider = value
		case "role":
			q.Role = value
		case "model":
			q.Model = value
		case "after":
			t, err := time.Parse("2006-01-02", value)
			if err != nil {
				return dslQuery{}, fmt.Errorf("search: invalid after date %q: %w", value, err)
			}
			q.After = &t
		case "before":
			t, err := time.Parse("2006-01-02", value)
			if err != nil {
				return dslQuery{}, fmt.Errorf("search: invalid before date %q: %w", value, err)
			}
			q.Before = &t
		}
	}

	q.FreeText = strings.TrimSpace(strings.Join(free, " "))
	return q, nil
}

// AdvancedSearch parses dsl and runs the resulting filtered query,
// ordered by conversation id descending, bounded by limit.
func (e *Engine) AdvancedSearch(ctx context.Context, dsl string, limit int) ([]SearchResult, error) {
	limit = clampLimit(limit)

	q, err := parseDSL(dsl)
	if err != nil {
		return nil, err
	}

	providerLabel := "all"
	if q.Provider != "" {
		providerLabel = q.Provider
	}
	start := time.Now()
	metrics.SearchesTotal.WithLabelValues(providerLabel).Inc()
	defer func() { searchDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds()) }()

	var conds []string
	var args []any

	if q.Provider != "" {
		conds = append(conds, "c.provider = ?")
		args = append(args, q.Provider)
	}
	if q.Role != "" {
		conds = append(conds, "m.role = ?")
		args = append(args, q.Role)
	}
	if q.Model != "" {
		conds = append(conds, "c.model = ?")
		args = append(args, q.Model)
	}
	if q.After != nil {
		conds = append(conds, "m.created_at >= ?")
		args = append(args, q.After.UnixMicro())
	}
	if q.Before != nil {
		conds = append(conds, "m.created_at <= ?")
		args = append(args, q.Before.UnixMicro())
	}
	if q.FreeText != "" {
		conds = append(conds, "m.content LIKE ?")
		args = append(args, "%"+q.FreeText+"%")
	}

	stmt := `
		SELECT DISTINCT c.id, c.uid, COALESCE(c.title, ''), substr(m.content, 1, 120)
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE 1=1`
	for _, cond := range conds {
		stmt += " AND " + cond
	}
	stmt += " ORDER BY c.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search: dsl query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var rowID int64
		if err := rows.Scan(&rowID, &r.ConversationUID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.ConversationID = fmt.Sprintf("%d", rowID)
		r.Score = 1.0
		out = append(out, r)
	}
	return out, rows.Err()
}
