package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
)

func TestChatGPTParser_MappingForm(t *testing.T) {
	const content = `[{
		"conversation_id": "conv-1",
		"title": "linear chain",
		"create_time": 1704103330.0,
		"default_model_slug": "gpt-4",
		"mapping": {
			"root": {"id": "root", "message": null, "parent": null, "children": ["n1"]},
			"n1": {"id": "n1", "message": {"id": "n1", "author": {"role": "user"}, "create_time": 1704103330, "content": {"content_type": "text", "parts": ["hi"]}}, "parent": "root", "children": ["n2"]},
			"n2": {"id": "n2", "message": {"id": "n2", "author": {"role": "assistant"}, "create_time": 1704103331, "content": {"content_type": "text", "parts": ["hello"]}}, "parent": "n1", "children": ["n3"]},
			"n3": {"id": "n3", "message": {"id": "n3", "author": {"role": "user"}, "create_time": 1704103332, "content": {"content_type": "text", "parts": ["thanks"]}}, "parent": "n2", "children": []}
		}
	}]`

	dir := t.TempDir()
	file := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := NewChatGPTParser()
	stats := canonical.NewImportStats()
	convs, err := p.ExtractConversations(file, stats)
	if err != nil {
		t.Fatalf("ExtractConversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("len(convs) = %d, want 1", len(convs))
	}

	c := convs[0]
	if len(c.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(c.Messages))
	}
	wantStart := time.Date(2024, 1, 1, 10, 2, 10, 0, time.UTC)
	if !c.StartTime.Equal(wantStart) {
		t.Errorf("StartTime = %v, want %v", c.StartTime, wantStart)
	}
	roles := []canonical.Role{c.Messages[0].Role, c.Messages[1].Role, c.Messages[2].Role}
	want := []canonical.Role{canonical.RoleUser, canonical.RoleAssistant, canonical.RoleUser}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("Messages[%d].Role = %v, want %v", i, roles[i], want[i])
		}
	}
}

func TestChatGPTParser_LiftsSystemPrompt(t *testing.T) {
	const content = `[{
		"conversation_id": "conv-2",
		"mapping": {
			"root": {"id": "root", "message": null, "parent": null, "children": ["s"]},
			"s": {"id": "s", "message": {"id": "s", "author": {"role": "system"}, "create_time": 1704103320, "content": {"parts": ["be nice"]}}, "parent": "root", "children": ["u"]},
			"u": {"id": "u", "message": {"id": "u", "author": {"role": "user"}, "create_time": 1704103330, "content": {"parts": ["hi"]}}, "parent": "s", "children": []}
		}
	}]`

	dir := t.TempDir()
	file := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := NewChatGPTParser()
	stats := canonical.NewImportStats()
	convs, err := p.ExtractConversations(file, stats)
	if err != nil {
		t.Fatalf("ExtractConversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("len(convs) = %d, want 1", len(convs))
	}
	if convs[0].SystemPrompt != "be nice" {
		t.Errorf("SystemPrompt = %q, want %q", convs[0].SystemPrompt, "be nice")
	}
	if len(convs[0].Messages) != 1 {
		t.Errorf("len(Messages) = %d, want 1", len(convs[0].Messages))
	}
}

func TestChatGPTParser_FlatForm(t *testing.T) {
	const content = `{
		"conversation_id": "conv-3",
		"messages": [
			{"author": {"role": "user"}, "create_time": 1704103330, "content": {"parts": ["hi"]}},
			{"author": {"role": "assistant"}, "create_time": 1704103331, "content": {"parts": ["hello"]}}
		]
	}`

	dir := t.TempDir()
	file := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := NewChatGPTParser()
	stats := canonical.NewImportStats()
	convs, err := p.ExtractConversations(file, stats)
	if err != nil {
		t.Fatalf("ExtractConversations() error = %v", err)
	}
	if len(convs) != 1 || len(convs[0].Messages) != 2 {
		t.Fatalf("got %+v", convs)
	}
}

func TestChatGPTParser_ModelSlugNormalization(t *testing.T) {
	if got := normalizeModelSlug("text-davinci-002-render-sha"); got != "gpt-3.5-turbo" {
		t.Errorf("normalizeModelSlug() = %q, want %q", got, "gpt-3.5-turbo")
	}
	if got := normalizeModelSlug("gpt-4-gizmo"); got != "gpt-4" {
		t.Errorf("normalizeModelSlug() = %q, want %q", got, "gpt-4")
	}
}
