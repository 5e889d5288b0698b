package main

import (
	"context"
	"testing"
	"time"

	"github.com/convoarchive/convoarchive/internal/cache"
	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/store"
)

func newTestShowApp(t *testing.T) *app {
	t.Helper()
	st, err := store.Open(":memory:", 1, 0)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &app{
		store: st,
		previewCache: cache.New[int64, store.ConversationRow](
			"conversation_preview_test", time.Minute, 10, cloneConversationRow,
		),
	}
}

func seedConversation(t *testing.T, a *app, uid string) {
	t.Helper()
	conv := canonical.Conversation{
		ID:        uid,
		Provider:  "claude",
		Title:     "Test conversation",
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Messages: []canonical.Message{
			{Role: canonical.RoleUser, Content: "hi", Timestamp: time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)},
			{Role: canonical.RoleAssistant, Content: "hello", Timestamp: time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC)},
		},
	}
	if _, err := a.store.ProcessConversationBatch(context.Background(), []canonical.Conversation{conv}); err != nil {
		t.Fatalf("ProcessConversationBatch() error = %v", err)
	}
}

func TestShowWithCache_MissThenHit(t *testing.T) {
	a := newTestShowApp(t)
	seedConversation(t, a, "conv-1")
	ctx := context.Background()

	row, err := showWithCache(ctx, a, "conv-1")
	if err != nil {
		t.Fatalf("showWithCache() error = %v", err)
	}
	if len(row.Messages) != 2 {
		t.Fatalf("showWithCache() messages = %d, want 2", len(row.Messages))
	}
	if a.previewCache.Len() != 1 {
		t.Fatalf("previewCache.Len() = %d, want 1 after miss", a.previewCache.Len())
	}

	cached, err := showWithCache(ctx, a, "conv-1")
	if err != nil {
		t.Fatalf("showWithCache() second call error = %v", err)
	}
	if len(cached.Messages) != 2 || cached.Title != row.Title {
		t.Errorf("showWithCache() cached row = %+v, want matching first result", cached)
	}
}

func TestShowWithCache_UnknownConversation(t *testing.T) {
	a := newTestShowApp(t)
	if _, err := showWithCache(context.Background(), a, "missing"); err != store.ErrNotFound {
		t.Errorf("showWithCache() error = %v, want ErrNotFound", err)
	}
}
