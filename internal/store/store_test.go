package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", 1, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleConversation(provider, externalID string, messages ...canonical.Message) canonical.Conversation {
	conv := canonical.Conversation{
		ID:         provider + "_" + externalID,
		ExternalID: externalID,
		Provider:   provider,
		Title:      "title-" + externalID,
		Messages:   messages,
	}
	conv.Normalize()
	return conv
}

func TestStore_ProcessConversationBatch_InsertsConversationAndMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("claude", "c1", canonical.Message{
		Role:      canonical.RoleUser,
		Content:   "hello",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})

	accepted, err := s.ProcessConversationBatch(ctx, []canonical.Conversation{conv})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "claude", got.Provider)
	assert.Equal(t, "title-c1", got.Title)
	assert.NotZero(t, got.RowID)

	msgs, err := s.GetMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, canonical.RoleUser, msgs[0].Role)
}

func TestStore_ProcessConversationBatch_UpsertsOnProviderAndExternalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleConversation("claude", "c1", canonical.Message{
		Role:      canonical.RoleUser,
		Content:   "first message",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	_, err := s.ProcessConversationBatch(ctx, []canonical.Conversation{first})
	require.NoError(t, err)

	second := sampleConversation("claude", "c1", canonical.Message{
		Role:      canonical.RoleAssistant,
		Content:   "second message",
		Timestamp: time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC),
	})
	second.Title = "updated title"
	_, err = s.ProcessConversationBatch(ctx, []canonical.Conversation{second})
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated title", got.Title)

	msgs, err := s.GetMessages(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "re-import must add new message rows without deleting prior ones")
}

func TestStore_ProcessConversationBatch_EmptyBatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	accepted, err := s.ProcessConversationBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, accepted)
}

func TestStore_GetConversation_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MessagesOrderedByPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("claude", "c2",
		canonical.Message{Role: canonical.RoleUser, Content: "one", Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		canonical.Message{Role: canonical.RoleAssistant, Content: "two", Timestamp: time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)},
		canonical.Message{Role: canonical.RoleUser, Content: "three", Timestamp: time.Date(2024, 1, 1, 10, 2, 0, 0, time.UTC)},
	)
	_, err := s.ProcessConversationBatch(ctx, []canonical.Conversation{conv})
	require.NoError(t, err)

	msgs, err := s.GetMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
}

func TestInsertMessages_PopulatesTokensColumnFromMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("grok", "c4", canonical.Message{
		Role:      canonical.RoleAssistant,
		Content:   "answer",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Metadata:  map[string]any{"token_count": float64(42)},
	})
	_, err := s.ProcessConversationBatch(ctx, []canonical.Conversation{conv})
	require.NoError(t, err)

	var tokens int64
	var toolCalls *string
	err = s.db.QueryRowContext(ctx, `SELECT tokens, tool_calls_json FROM messages WHERE conversation_id = (SELECT id FROM conversations WHERE uid = ?)`, conv.ID).
		Scan(&tokens, &toolCalls)
	require.NoError(t, err)
	assert.EqualValues(t, 42, tokens)
	assert.Nil(t, toolCalls, "token_count alone should not also land in tool_calls_json")
}

func TestMarshalMessageExtras_KeepsOtherMetadataAlongsideTokenCount(t *testing.T) {
	m := canonical.Message{Metadata: map[string]any{"token_count": float64(7), "tool": "calculator"}}
	toolCalls, _, err := marshalMessageExtras(m)
	require.NoError(t, err)
	require.True(t, toolCalls.Valid)
	assert.Contains(t, toolCalls.String, "calculator")
	assert.NotContains(t, toolCalls.String, "token_count")
}

func TestStore_CountStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("claude", "c3", canonical.Message{
		Role:      canonical.RoleUser,
		Content:   "hi",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	_, err := s.ProcessConversationBatch(ctx, []canonical.Conversation{conv})
	require.NoError(t, err)

	stats, err := s.CountStats(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Conversations)
	assert.EqualValues(t, 1, stats.Messages)
}
