package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

// ImportEvent is one row of the audit log surfaced to operators.
type ImportEvent struct {
	ID        int64
	EventType string
	Provider  string
	FilePath  string
	Status    string
	StatsJSON string
	Error     string
	CreatedAt time.Time
}

// LogImportStart records that an import began for file under provider.
func (s *Store) LogImportStart(ctx context.Context, provider, filePath string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_events (event_type, provider, file_path, status, created_at)
		VALUES ('import', ?, ?, 'running', ?)
	`, provider, filePath, time.Now().UTC().UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("store: logging import start: %w", err)
	}
	return res.LastInsertId()
}

// LogImportComplete updates the event row started by LogImportStart with
// its final stats. A non-nil importErr marks the event failed and records
// the error message; otherwise the event is marked complete.
func (s *Store) LogImportComplete(ctx context.Context, eventID int64, stats *canonical.ImportStats, importErr error) error {
	status := "complete"
	var errMsg string
	if importErr != nil {
		status = "failed"
		errMsg = importErr.Error()
	}

	statsJSON, err := json.Marshal(struct {
		Imported int                       `json:"imported"`
		Errors   []canonical.ImportError   `json:"errors"`
		Warnings []canonical.ImportWarning `json:"warnings"`
	}{
		Imported: stats.Imported(),
		Errors:   stats.Errors(),
		Warnings: stats.Warnings(),
	})
	if err != nil {
		return fmt.Errorf("store: marshaling import stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE import_events SET status = ?, stats_json = ?, error = ? WHERE id = ?
	`, status, string(statsJSON), nullableString(errMsg), eventID)
	if err != nil {
		return fmt.Errorf("store: logging import completion: %w", err)
	}
	return nil
}

// RecentImportEvents returns the most recent import_events rows, newest
// first, bounded by limit.
func (s *Store) RecentImportEvents(ctx context.Context, limit int) ([]ImportEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, provider, COALESCE(file_path,''), status, COALESCE(stats_json,''), COALESCE(error,''), created_at
		FROM import_events ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: listing import events: %w", err)
	}
	defer rows.Close()

	var out []ImportEvent
	for rows.Next() {
		var e ImportEvent
		var createdAtMicros int64
		if err := rows.Scan(&e.ID, &e.EventType, &e.Provider, &e.FilePath, &e.Status, &e.StatsJSON, &e.Error, &createdAtMicros); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMicro(createdAtMicros).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// providerMarkers are the cheap discriminating substrings from spec §4.11,
// checked in order against a file's raw content. The registry does not
// call DetectProvider; it relies on each parser's CanHandle sniff.
var providerMarkers = []struct {
	provider string
	marker   string
}{
	{"claude", `"chat_messages"`},
	{"claude", `"transcript"`},
	{"chatgpt", `"mapping"`},
	{"gemini", `"turns"`},
	{"grok", `"responses"`},
	{"zed", `"context"`},
}

// DetectProvider performs a fast substring heuristic over a file's raw
// content, returning "" when no marker matches. It is a heuristic only
// and is not consulted by the registry, whose per-parser CanHandle decides.
func DetectProvider(content string) string {
	for _, m := range providerMarkers {
		if strings.Contains(content, m.marker) {
			return m.provider
		}
	}
	return ""
}
