package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

func TestStore_ImportEventLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.LogImportStart(ctx, "claude", "/data/conversations.json")
	require.NoError(t, err)
	assert.NotZero(t, id)

	stats := canonical.NewImportStats()
	stats.AddImported(3)
	require.NoError(t, s.LogImportComplete(ctx, id, stats, nil))

	events, err := s.RecentImportEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "claude", events[0].Provider)
	assert.Equal(t, "complete", events[0].Status)
	assert.Empty(t, events[0].Error)
}

func TestStore_ImportEventLifecycle_Failure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.LogImportStart(ctx, "chatgpt", "/data/export.json")
	require.NoError(t, err)

	stats := canonical.NewImportStats()
	require.NoError(t, s.LogImportComplete(ctx, id, stats, assert.AnError))

	events, err := s.RecentImportEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "failed", events[0].Status)
	assert.NotEmpty(t, events[0].Error)
}

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"claude chat_messages", `{"uuid":"x","chat_messages":[]}`, "claude"},
		{"chatgpt mapping", `{"mapping":{}}`, "chatgpt"},
		{"gemini turns", `{"turns":[]}`, "gemini"},
		{"unknown shape", `{"foo":"bar"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectProvider(tc.content))
		})
	}
}
