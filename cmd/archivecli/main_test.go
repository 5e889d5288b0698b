package main

import (
	"testing"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/search"
	"github.com/convoarchive/convoarchive/internal/store"
)

func TestCloneSearchResults_IsIndependentSlice(t *testing.T) {
	in := []search.SearchResult{{ConversationUID: "a"}}
	out := cloneSearchResults(in)
	out[0].ConversationUID = "b"
	if in[0].ConversationUID != "a" {
		t.Errorf("cloneSearchResults did not isolate backing array")
	}
}

func TestCloneConversationRow_IsIndependentSlice(t *testing.T) {
	in := store.ConversationRow{
		RowID: 1,
		Conversation: canonical.Conversation{
			Messages: []canonical.Message{{Content: "hi"}},
		},
	}
	out := cloneConversationRow(in)
	out.Messages[0].Content = "bye"
	if in.Messages[0].Content != "hi" {
		t.Errorf("cloneConversationRow did not isolate Messages slice")
	}
}
