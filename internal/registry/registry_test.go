package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_FindProvider(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "conversations.json")
	content := `[{"uuid":"x","chat_messages":[{"uuid":"m1","sender":"human","text":"hi","created_at":"2024-01-01T10:00:00Z"}]}]`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	r := New()
	p := r.FindProvider(file)
	if p == nil {
		t.Fatalf("FindProvider() = nil, want claude parser")
	}
	if p.Name() != "claude" {
		t.Errorf("FindProvider().Name() = %q, want %q", p.Name(), "claude")
	}
}

func TestRegistry_FindProvider_NoMatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "random.json")
	if err := os.WriteFile(file, []byte(`{"nothing":"here"}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	r := New()
	if p := r.FindProvider(file); p != nil {
		t.Errorf("FindProvider() = %v, want nil", p.Name())
	}
}

func TestRegistry_ParserByName_Unknown(t *testing.T) {
	r := New()
	if p := r.ParserByName("does-not-exist"); p != nil {
		t.Errorf("ParserByName() = %v, want nil", p)
	}
}
